package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load looks at so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TR4CTION_API_URL", "NEXT_PUBLIC_API_URL", "NEXT_PUBLIC_API_BASE_URL",
		"API_TIMEOUT_SECONDS", "API_MAX_ATTEMPTS", "API_INITIAL_DELAY_MS",
		"API_MAX_DELAY_MS", "API_BACKOFF_MULTIPLIER",
		"SESSION_BACKEND", "SESSION_DIR", "SESSION_NAMESPACE",
		"POSTGRES_DSN", "REDIS_DB", "LOG_LEVEL", "LOG_ENCODING",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "http://127.0.0.1:8000", cfg.API.BaseURL)
	require.Equal(t, 3, cfg.API.MaxAttempts)
	require.Equal(t, time.Second, cfg.API.InitialDelay())
	require.Equal(t, 5*time.Second, cfg.API.MaxDelay())
	require.Equal(t, 2.0, cfg.API.BackoffMultiplier)
	require.Equal(t, 30*time.Second, cfg.API.Timeout())
	require.Equal(t, SessionBackendFile, cfg.Session.Backend)
	require.Equal(t, "tr4ction", cfg.Session.Namespace)
}

func TestLoad_BaseURLPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_API_BASE_URL", "http://legacy:8000")
	t.Setenv("NEXT_PUBLIC_API_URL", "https://api.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", cfg.API.BaseURL)

	t.Setenv("TR4CTION_API_URL", "https://console.example.com")
	cfg, err = Load()
	require.NoError(t, err)
	require.Equal(t, "https://console.example.com", cfg.API.BaseURL)
}

func TestLoad_RetryOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_MAX_ATTEMPTS", "5")
	t.Setenv("API_INITIAL_DELAY_MS", "200")
	t.Setenv("API_MAX_DELAY_MS", "800")
	t.Setenv("API_BACKOFF_MULTIPLIER", "1.5")
	t.Setenv("API_TIMEOUT_SECONDS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5, cfg.API.MaxAttempts)
	require.Equal(t, 200*time.Millisecond, cfg.API.InitialDelay())
	require.Equal(t, 800*time.Millisecond, cfg.API.MaxDelay())
	require.Equal(t, 1.5, cfg.API.BackoffMultiplier)
	require.Equal(t, 4*time.Second, cfg.API.Timeout())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"zero attempts", map[string]string{"API_MAX_ATTEMPTS": "0"}, "API_MAX_ATTEMPTS"},
		{"cap below initial", map[string]string{"API_MAX_DELAY_MS": "10"}, "API_MAX_DELAY_MS"},
		{"shrinking backoff", map[string]string{"API_BACKOFF_MULTIPLIER": "0.5"}, "API_BACKOFF_MULTIPLIER"},
		{"bad multiplier", map[string]string{"API_BACKOFF_MULTIPLIER": "fast"}, "API_BACKOFF_MULTIPLIER"},
		{"unknown backend", map[string]string{"SESSION_BACKEND": "cookie"}, "SESSION_BACKEND"},
		{"postgres without dsn", map[string]string{"SESSION_BACKEND": "postgres"}, "POSTGRES_DSN"},
		{"bad url", map[string]string{"TR4CTION_API_URL": "not a url"}, "invalid API base url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAPIConfig_TimeoutDisabled(t *testing.T) {
	t.Parallel()
	require.Zero(t, APIConfig{TimeoutSeconds: 0}.Timeout())
}

func TestStubConfig_Addr(t *testing.T) {
	t.Parallel()
	require.Equal(t, "127.0.0.1:8000", StubConfig{Host: "127.0.0.1", Port: "8000"}.Addr())
}
