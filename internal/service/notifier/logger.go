package notifier

import (
	"context"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/repository"
	"github.com/qline/queue-api/pkg/logger"
)

// deliveryLog appends one audit row per actual send attempt. Audit failures
// are swallowed into the operational log: delivery outcomes are never
// contingent on audit-logging success.
type deliveryLog struct {
	repo   repository.NotificationLogRepository
	logger *logger.Logger
}

func newDeliveryLog(repo repository.NotificationLogRepository, log *logger.Logger) *deliveryLog {
	return &deliveryLog{repo: repo, logger: log}
}

func (l *deliveryLog) record(ctx context.Context, event *model.NotificationEvent, channel string, success bool, sendErr error) {
	entry := &model.NotificationLogEntry{
		OrganizationID: event.OrganizationID,
		TicketID:       event.TicketID,
		TicketNumber:   event.TicketNumber,
		CustomerPhone:  event.CustomerPhone,
		Type:           event.Type,
		Channel:        channel,
		Success:        success,
	}
	if sendErr != nil {
		msg := sendErr.Error()
		entry.ErrorMessage = &msg
	}

	if err := l.repo.Create(ctx, entry); err != nil {
		l.logger.Warn("failed to write notification log entry",
			"channel", channel, "ticket", event.TicketNumber, "error", err.Error())
	}
}
