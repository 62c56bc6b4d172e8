package preference

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/repository"
	"github.com/qline/queue-api/pkg/logger"
)

// Service is the write-side surface for customer notification choices:
// subscribing a browser for push, denying push, and the preference row both
// of those maintain.
type Service interface {
	Get(ctx context.Context, phone string) (*model.NotificationPreference, error)
	Upsert(ctx context.Context, organizationID uuid.UUID, phone string, pushEnabled, pushDenied bool) (*model.NotificationPreference, error)
	SubscribePush(ctx context.Context, sub *model.PushSubscription) error
	DenyPush(ctx context.Context, organizationID uuid.UUID, phone string) error
	ListSubscriptions(ctx context.Context, organizationID uuid.UUID, phone string, ticketID *uuid.UUID) ([]*model.PushSubscription, error)
}

type service struct {
	prefs  repository.PreferenceRepository
	subs   repository.SubscriptionRepository
	logger *logger.Logger
}

func NewService(prefs repository.PreferenceRepository, subs repository.SubscriptionRepository, log *logger.Logger) Service {
	return &service{prefs: prefs, subs: subs, logger: log}
}

func (s *service) Get(ctx context.Context, phone string) (*model.NotificationPreference, error) {
	return s.prefs.GetByPhone(ctx, phone)
}

func (s *service) Upsert(ctx context.Context, organizationID uuid.UUID, phone string, pushEnabled, pushDenied bool) (*model.NotificationPreference, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone number is required")
	}
	return s.prefs.Upsert(ctx, organizationID, phone, pushEnabled, pushDenied)
}

// SubscribePush registers (or reactivates) the endpoint and marks the
// customer push-enabled when a phone is attached.
func (s *service) SubscribePush(ctx context.Context, sub *model.PushSubscription) error {
	if sub.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}

	if err := s.subs.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}

	if sub.CustomerPhone != nil && *sub.CustomerPhone != "" {
		if _, err := s.prefs.Upsert(ctx, sub.OrganizationID, *sub.CustomerPhone, true, false); err != nil {
			return fmt.Errorf("failed to update preference: %w", err)
		}
	}
	return nil
}

// DenyPush records the denial and retires the customer's endpoints. The
// preference row keeps whatsapp_fallback true, so queue updates still reach
// them over messaging.
func (s *service) DenyPush(ctx context.Context, organizationID uuid.UUID, phone string) error {
	if phone == "" {
		return fmt.Errorf("phone number is required")
	}

	if _, err := s.prefs.Upsert(ctx, organizationID, phone, false, true); err != nil {
		return fmt.Errorf("failed to record denial: %w", err)
	}

	if err := s.subs.DeactivateByPhone(ctx, organizationID, phone); err != nil {
		return fmt.Errorf("failed to deactivate subscriptions: %w", err)
	}

	s.logger.Info("push denied", "phone", phone)
	return nil
}

// ListSubscriptions returns active endpoints for a ticket when one is given,
// otherwise for the customer's phone.
func (s *service) ListSubscriptions(ctx context.Context, organizationID uuid.UUID, phone string, ticketID *uuid.UUID) ([]*model.PushSubscription, error) {
	if ticketID != nil {
		return s.subs.ActiveByTicket(ctx, *ticketID)
	}
	if phone == "" {
		return nil, fmt.Errorf("phone number or ticket ID is required")
	}
	return s.subs.ActiveByPhone(ctx, organizationID, phone)
}
