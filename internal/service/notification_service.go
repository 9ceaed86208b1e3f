package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/tr4ction-console/internal/events"
)

// Messages shown to the user when the session changes.
const (
	NoticeSessionExpired = "Sua sessão expirou. Execute `tr4ction login` para entrar novamente."
	NoticeLoggedOut      = "Sessão encerrada."
)

// NotificationService turns session events into log lines and user-facing
// notices.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu  sync.Mutex
	out io.Writer
}

// NewNotificationService creates the service. out may be nil to only log.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, out io.Writer) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		out:        out,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSessionStarted, n.handleSessionStarted)
	n.dispatcher.Subscribe(events.EventSessionExpired, n.handleSessionExpired)
	n.dispatcher.Subscribe(events.EventSessionLoggedOut, n.handleLoggedOut)
}

func (n *NotificationService) handleSessionStarted(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SessionStartedPayload)
	n.logger.Info("SessionStarted",
		zap.String("event_id", event.ID),
		zap.String("user_id", string(payload.User.ID)),
		zap.String("role", string(payload.User.Role)))
	return nil
}

func (n *NotificationService) handleSessionExpired(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SessionExpiredPayload)
	n.logger.Warn("SessionExpired",
		zap.String("event_id", event.ID),
		zap.String("reason", string(payload.Reason)),
		zap.String("method", payload.Method),
		zap.String("path", payload.Path))
	return n.notify(NoticeSessionExpired)
}

func (n *NotificationService) handleLoggedOut(_ context.Context, event events.Event) error {
	n.logger.Info("SessionLoggedOut", zap.String("event_id", event.ID))
	return n.notify(NoticeLoggedOut)
}

func (n *NotificationService) notify(msg string) error {
	if n.out == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintln(n.out, msg); err != nil {
		return fmt.Errorf("write notice: %w", err)
	}
	return nil
}
