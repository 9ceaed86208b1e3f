package worker

import (
	"github.com/spec-kit/tr4ction-console/internal/service"
)

// StartNotificationWorker registers the session notice handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
