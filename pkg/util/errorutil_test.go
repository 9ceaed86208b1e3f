package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	require.Nil(t, ToDomainError(nil))

	notFound := fmt.Errorf("loading: %w", NewNotFound("Trilha não encontrada"))
	de := ToDomainError(notFound)
	require.Equal(t, http.StatusNotFound, de.HTTPStatus)
	require.Equal(t, "NOT_FOUND", de.Code)
	require.Equal(t, "Trilha não encontrada", de.Message)

	cause := errors.New("boom")
	de = ToDomainError(cause)
	require.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	require.ErrorIs(t, de, cause)
}

func TestFromStatus(t *testing.T) {
	cases := map[int]string{
		http.StatusTooManyRequests:     "RATE_LIMITED",
		http.StatusServiceUnavailable:  "INTERNAL_ERROR",
		http.StatusForbidden:           "FORBIDDEN",
		http.StatusTeapot:              "REQUEST_FAILED",
		http.StatusUnauthorized:        "UNAUTHORIZED",
		http.StatusNotFound:            "NOT_FOUND",
		http.StatusInternalServerError: "INTERNAL_ERROR",
	}
	for status, code := range cases {
		de := FromStatus(status, "")
		require.Equal(t, code, de.Code)
		require.Equal(t, status, de.HTTPStatus)
		require.Equal(t, http.StatusText(status), de.Message)
	}
	require.Equal(t, "Limite", FromStatus(http.StatusTooManyRequests, "Limite").Message)
}
