package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/phone"
	"github.com/qline/queue-api/internal/repository"
)

type subscriptionRepository struct {
	BaseRepository
}

func NewSubscriptionRepository(base BaseRepository) repository.SubscriptionRepository {
	return &subscriptionRepository{base}
}

// Upsert creates a subscription or reactivates the existing row for the same
// endpoint. Re-subscribing after a denial flips the row back to active.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	query := `
		INSERT INTO push_subscriptions (
			id, organization_id, ticket_id, customer_phone, endpoint,
			p256dh, auth, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8)
		ON CONFLICT (endpoint) DO UPDATE SET
			ticket_id      = EXCLUDED.ticket_id,
			customer_phone = EXCLUDED.customer_phone,
			p256dh         = EXCLUDED.p256dh,
			auth           = EXCLUDED.auth,
			is_active      = TRUE,
			updated_at     = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CustomerPhone != nil {
		norm := phone.Normalize(*sub.CustomerPhone)
		sub.CustomerPhone = &norm
	}
	now := time.Now()
	sub.UpdatedAt = now
	sub.IsActive = true

	err := r.GetDB().QueryRowxContext(ctx, query,
		sub.ID,
		sub.OrganizationID,
		sub.TicketID,
		sub.CustomerPhone,
		sub.Endpoint,
		sub.P256DH,
		sub.Auth,
		now,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}
	return nil
}

// ActiveByPhone matches rows stored under any historical phone format.
func (r *subscriptionRepository) ActiveByPhone(ctx context.Context, organizationID uuid.UUID, rawPhone string) ([]*model.PushSubscription, error) {
	query := `
		SELECT * FROM push_subscriptions
		WHERE organization_id = $1
		  AND customer_phone = ANY($2)
		  AND is_active = TRUE
		ORDER BY created_at DESC
	`

	var subs []*model.PushSubscription
	err := r.GetDB().SelectContext(ctx, &subs, query, organizationID, pq.Array(phone.LookupForms(rawPhone)))
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions by phone: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) ActiveByTicket(ctx context.Context, ticketID uuid.UUID) ([]*model.PushSubscription, error) {
	query := `
		SELECT * FROM push_subscriptions
		WHERE ticket_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC
	`

	var subs []*model.PushSubscription
	if err := r.GetDB().SelectContext(ctx, &subs, query, ticketID); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions by ticket: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE push_subscriptions
		SET is_active = FALSE, updated_at = $1
		WHERE id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) DeactivateByPhone(ctx context.Context, organizationID uuid.UUID, rawPhone string) error {
	query := `
		UPDATE push_subscriptions
		SET is_active = FALSE, updated_at = $1
		WHERE organization_id = $2 AND customer_phone = ANY($3)
	`
	_, err := r.db.ExecContext(ctx, query, time.Now(), organizationID, pq.Array(phone.LookupForms(rawPhone)))
	if err != nil {
		return fmt.Errorf("failed to deactivate subscriptions by phone: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE push_subscriptions
		SET last_used_at = $1, updated_at = $1
		WHERE id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to touch subscription: %w", err)
	}
	return nil
}
