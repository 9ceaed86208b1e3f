package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishReachesSubscribers(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	var got []EventType
	d.Subscribe(EventSessionExpired, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})
	d.Subscribe(EventSessionLoggedOut, func(_ context.Context, e Event) error {
		t.Fatal("wrong subscriber called")
		return nil
	})

	ev := New(EventSessionExpired, SessionExpiredPayload{Reason: ReasonTokenExpired, Method: "GET", Path: "/founder/trails"})
	require.NoError(t, d.Publish(context.Background(), ev))
	require.Equal(t, []EventType{EventSessionExpired}, got)
	require.NotEmpty(t, ev.ID)
	require.False(t, ev.Timestamp.IsZero())
}

func TestDispatcher_HandlerErrorsDoNotStopOthers(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	calls := 0
	d.Subscribe(EventSessionStarted, func(context.Context, Event) error {
		calls++
		return boom
	})
	d.Subscribe(EventSessionStarted, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), New(EventSessionStarted, nil))
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}

func TestNop(t *testing.T) {
	t.Parallel()

	var d Dispatcher = Nop{}
	d.Subscribe(EventSessionStarted, func(context.Context, Event) error { return errors.New("never") })
	require.NoError(t, d.Publish(context.Background(), New(EventSessionStarted, nil)))
}
