package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/repository"
	sessionService "github.com/qline/queue-api/internal/service/session"
	"github.com/qline/queue-api/pkg/logger"
	"github.com/qline/queue-api/pkg/metrics"
	"github.com/qline/queue-api/pkg/push"
	"github.com/qline/queue-api/pkg/whatsapp"
)

// Service routes one queue event to the delivery channels. Push fan-out runs
// first; the messaging-channel decision is computed from the preference
// record and the push outcome, and a send additionally requires a live
// conversation window.
type Service interface {
	Notify(ctx context.Context, event *model.NotificationEvent) (*model.DeliveryResult, error)
}

type service struct {
	prefs    repository.PreferenceRepository
	sessions sessionService.Service
	push     *pushDispatcher
	wa       whatsapp.Transport
	audit    *deliveryLog
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	prefs repository.PreferenceRepository,
	subs repository.SubscriptionRepository,
	sessions sessionService.Service,
	logRepo repository.NotificationLogRepository,
	pushTransport push.Transport,
	waTransport whatsapp.Transport,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	audit := newDeliveryLog(logRepo, log)
	return &service{
		prefs:    prefs,
		sessions: sessions,
		push:     newPushDispatcher(subs, pushTransport, audit, log),
		wa:       waTransport,
		audit:    audit,
		logger:   log,
		metrics:  m,
	}
}

func (s *service) Notify(ctx context.Context, event *model.NotificationEvent) (*model.DeliveryResult, error) {
	if err := s.validateEvent(event); err != nil {
		return nil, fmt.Errorf("invalid notification event: %w", err)
	}

	result := &model.DeliveryResult{}
	pushStart := time.Now()
	result.PushAttempted, result.PushSucceeded = s.push.fanOut(ctx, event)
	s.observePush(result, time.Since(pushStart))

	if event.CustomerPhone == "" {
		// Nothing to decide: the messaging channel needs a phone number.
		result.WhatsAppReason = ReasonNothingRequested
		return result, nil
	}

	pref, err := s.prefs.GetByPhone(ctx, event.CustomerPhone)
	if err != nil {
		// A genuine store fault, not an absent row; surface it alongside
		// whatever push already delivered.
		return result, fmt.Errorf("failed to load notification preference: %w", err)
	}

	decision := DecideWhatsApp(event, pref, result.PushSucceeded)
	result.WhatsAppDecision = decision.Should
	result.WhatsAppReason = decision.Reason
	s.observeDecision(decision)

	if !decision.Should {
		return result, nil
	}

	live, err := s.sessions.HasActiveSession(ctx, event.CustomerPhone)
	if err != nil {
		// Fail closed: if liveness cannot be confirmed, do not send.
		s.logger.Warn("session check failed, treating as no active session",
			"phone", event.CustomerPhone, "error", err.Error())
		live = false
	}
	if !live {
		// The customer must message first to reopen the window. Not an
		// attempt, so no audit row.
		s.logger.Debug("whatsapp send skipped, no live session",
			"phone", event.CustomerPhone, "ticket", event.TicketNumber)
		return result, nil
	}

	sendStart := time.Now()
	sendErr := s.wa.SendText(ctx, event.CustomerPhone, messageText(event))
	s.audit.record(ctx, event, model.ChannelWhatsApp, sendErr == nil, sendErr)
	s.observeWhatsApp(sendErr, time.Since(sendStart))
	if sendErr != nil {
		s.logger.Error(sendErr, "whatsapp delivery failed",
			"phone", event.CustomerPhone, "ticket", event.TicketNumber)
		return result, nil
	}

	result.WhatsAppSent = true
	return result, nil
}

func (s *service) validateEvent(event *model.NotificationEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization ID is required")
	}
	if event.Type == "" {
		return fmt.Errorf("notification type is required")
	}
	return nil
}

func (s *service) observePush(result *model.DeliveryResult, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.DeliveryAttempts.WithLabelValues(model.ChannelPush, "success").Add(float64(result.PushSucceeded))
	s.metrics.DeliveryAttempts.WithLabelValues(model.ChannelPush, "failure").Add(float64(result.PushAttempted - result.PushSucceeded))
	if result.PushAttempted > 0 {
		s.metrics.DeliveryLatency.WithLabelValues(model.ChannelPush).Observe(elapsed.Seconds())
	}
}

func (s *service) observeDecision(d Decision) {
	if s.metrics == nil {
		return
	}
	outcome := "skip"
	if d.Should {
		outcome = "send"
	}
	s.metrics.WhatsAppDecision.WithLabelValues(outcome, d.Reason).Inc()
}

func (s *service) observeWhatsApp(sendErr error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if sendErr != nil {
		outcome = "failure"
	}
	s.metrics.DeliveryAttempts.WithLabelValues(model.ChannelWhatsApp, outcome).Inc()
	s.metrics.DeliveryLatency.WithLabelValues(model.ChannelWhatsApp).Observe(elapsed.Seconds())
}
