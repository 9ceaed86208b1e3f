package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromResponse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		body      string
		kind      Kind
		message   string
		retryable bool
	}{
		{"detail string", 400, `{"detail":"Email já cadastrado"}`, KindValidation, "Email já cadastrado", false},
		{"detail list", 422, `{"detail":[{"loc":["body","email"],"msg":"field required"},{"msg":"too short"}]}`, KindValidation, "field required; too short", false},
		{"message", 404, `{"message":"Trilha não encontrada"}`, KindNotFound, "Trilha não encontrada", false},
		{"nested error", 409, `{"error":{"code":"CONFLICT","message":"Etapa bloqueada"}}`, KindValidation, "Etapa bloqueada", false},
		{"plain error", 403, `{"error":"Acesso negado"}`, KindForbidden, "Acesso negado", false},
		{"401 without body", 401, ``, KindUnauthorized, MsgSessionExpired, false},
		{"401 with detail", 401, `{"detail":"Token inválido"}`, KindUnauthorized, "Token inválido", false},
		{"429 without body", 429, ``, KindRateLimited, MsgRateLimited, false},
		{"500 with detail", 500, `{"detail":"Erro interno"}`, KindServer, "Erro interno", true},
		{"503 html", 503, `<html>down</html>`, KindServer, "HTTP 503", true},
		{"418", 418, `not json`, KindClient, "HTTP 418", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := fromResponse(tc.status, []byte(tc.body), "req-1")
			require.Equal(t, tc.status, err.Status)
			require.Equal(t, tc.kind, err.Kind)
			require.Equal(t, tc.message, err.Message)
			require.Equal(t, "req-1", err.RequestID)
			require.Equal(t, tc.retryable, err.retryable())
		})
	}
}

func TestFromTransport(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := fromTransport(context.Background(), cause, "r")
	require.Equal(t, KindConnectivity, err.Kind)
	require.Zero(t, err.Status)
	require.True(t, err.retryable())
	require.ErrorIs(t, err, cause)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = fromTransport(ctx, cause, "r")
	require.Equal(t, KindCanceled, err.Kind)
	require.False(t, err.retryable())
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("loading trails: %w", sessionExpired())
	require.True(t, IsUnauthorized(wrapped))
	require.False(t, IsNotFound(wrapped))
	require.EqualError(t, sessionExpired(), MsgSessionExpired)

	apiErr, ok := AsError(wrapped)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, ok = AsError(errors.New("plain"))
	require.False(t, ok)
	require.False(t, IsConnectivity(nil))
}
