package apiclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tr4ction-console/internal/config"
)

func TestRetryPolicy_Delays(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		policy RetryPolicy
		want   []time.Duration
	}{
		{
			name:   "default",
			policy: DefaultRetryPolicy(),
			want:   []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:   "single attempt",
			policy: RetryPolicy{MaxAttempts: 1, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2},
			want:   []time.Duration{},
		},
		{
			name:   "capped",
			policy: RetryPolicy{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2},
			want:   []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second},
		},
		{
			name:   "constant",
			policy: RetryPolicy{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond, MaxDelay: time.Second, Multiplier: 1},
			want:   []time.Duration{200 * time.Millisecond, 200 * time.Millisecond},
		},
		{
			name:   "nonsense is sanitized",
			policy: RetryPolicy{MaxAttempts: 0, InitialDelay: -time.Second, MaxDelay: -time.Second, Multiplier: 0.5},
			want:   []time.Duration{},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, tc.policy.Delays())
		})
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	t.Parallel()

	p := RetryPolicyFromConfig(config.APIConfig{
		MaxAttempts:        4,
		InitialDelayMillis: 250,
		MaxDelayMillis:     1000,
		BackoffMultiplier:  3,
	})
	require.Equal(t, 4, p.MaxAttempts)
	require.Equal(t, []time.Duration{250 * time.Millisecond, 750 * time.Millisecond, time.Second}, p.Delays())
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleepContext(context.Background(), time.Millisecond))
	require.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	require.ErrorIs(t, sleepContext(ctx, 0), context.Canceled)
}
