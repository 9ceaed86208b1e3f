package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure for callers that branch on it.
type Kind string

const (
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindNotFound       Kind = "not_found"
	KindValidation     Kind = "validation"
	KindRateLimited    Kind = "rate_limited"
	KindClient         Kind = "client_error"
	KindServer         Kind = "server_error"
	KindConnectivity   Kind = "connectivity"
	KindCanceled       Kind = "canceled"
	KindDecode         Kind = "decode"
	KindInvalidRequest Kind = "invalid_request"
	KindSession        Kind = "session"
)

// User-facing messages. They are rendered as-is by the console.
const (
	MsgSessionExpired  = "Sessão expirada. Faça login novamente."
	MsgConnectivity    = "Não foi possível conectar ao servidor. Verifique sua conexão."
	MsgRateLimited     = "Muitas requisições. Tente novamente em instantes."
	MsgCanceled        = "Requisição cancelada."
	MsgInvalidResponse = "Resposta inválida do servidor."
	MsgSessionStore    = "Não foi possível acessar a sessão local."
)

// Error is the only error type the client returns. Status is 0 when no
// HTTP response was received.
type Error struct {
	Status    int
	Kind      Kind
	Message   string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err ended the session.
func IsUnauthorized(err error) bool {
	return hasKind(err, KindUnauthorized)
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsConnectivity reports whether the backend could not be reached.
func IsConnectivity(err error) bool {
	return hasKind(err, KindConnectivity)
}

func hasKind(err error, kind Kind) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == kind
}

// retryable holds the transport half of the retry rule: network failures
// and 5xx. Caller opt-out and the attempt budget are checked by the loop.
func (e *Error) retryable() bool {
	switch e.Kind {
	case KindConnectivity:
		return true
	case KindServer:
		return e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindClient
	}
}

// fromResponse normalizes a non-2xx response.
func fromResponse(status int, body []byte, requestID string) *Error {
	msg := extractDetail(body)
	if msg == "" {
		switch status {
		case http.StatusUnauthorized:
			msg = MsgSessionExpired
		case http.StatusTooManyRequests:
			msg = MsgRateLimited
		default:
			msg = fmt.Sprintf("HTTP %d", status)
		}
	}
	return &Error{
		Status:    status,
		Kind:      kindForStatus(status),
		Message:   msg,
		RequestID: requestID,
	}
}

// fromTransport normalizes a failure that produced no response. parent is
// the caller's context, used to tell cancellation from a per-attempt timeout.
func fromTransport(parent context.Context, err error, requestID string) *Error {
	if parent.Err() != nil {
		return &Error{Kind: KindCanceled, Message: MsgCanceled, RequestID: requestID, Err: err}
	}
	return &Error{Kind: KindConnectivity, Message: MsgConnectivity, RequestID: requestID, Err: err}
}

func sessionExpired() *Error {
	return &Error{Status: http.StatusUnauthorized, Kind: KindUnauthorized, Message: MsgSessionExpired}
}

// extractDetail reads the backend error text. FastAPI sends {"detail": "..."}
// or, for validation failures, {"detail": [{"msg": "..."}]}; some routes
// use {"message": "..."} or {"error": {"message": "..."}}.
func extractDetail(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ""
	}

	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}

	if msg := detailText(envelope.Detail); msg != "" {
		return msg
	}
	if strings.TrimSpace(envelope.Message) != "" {
		return envelope.Message
	}
	if len(envelope.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if json.Unmarshal(envelope.Error, &plain) == nil {
			return plain
		}
	}
	return ""
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if json.Unmarshal(raw, &text) == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
