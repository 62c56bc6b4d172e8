package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/phone"
	"github.com/qline/queue-api/internal/repository"
)

type sessionRepository struct {
	BaseRepository
}

func NewSessionRepository(base BaseRepository) repository.SessionRepository {
	return &sessionRepository{base}
}

func (r *sessionRepository) GetByPhone(ctx context.Context, rawPhone string) (*model.WhatsAppSession, error) {
	query := `
		SELECT * FROM whatsapp_sessions
		WHERE customer_phone = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var session model.WhatsAppSession
	err := r.GetDB().GetContext(ctx, &session, query, phone.Normalize(rawPhone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get whatsapp session: %w", err)
	}
	return &session, nil
}

// Create opens (or reopens) the session row for a phone. A phone has a single
// row; renewed contact after expiry reuses it rather than accumulating rows.
func (r *sessionRepository) Create(ctx context.Context, session *model.WhatsAppSession) error {
	query := `
		INSERT INTO whatsapp_sessions (
			id, organization_id, customer_phone, ticket_id, customer_name,
			is_active, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $7)
		ON CONFLICT (customer_phone) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			ticket_id       = EXCLUDED.ticket_id,
			customer_name   = COALESCE(EXCLUDED.customer_name, whatsapp_sessions.customer_name),
			is_active       = TRUE,
			expires_at      = EXCLUDED.expires_at,
			updated_at      = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CustomerPhone = phone.Normalize(session.CustomerPhone)
	session.IsActive = true
	now := time.Now()
	session.UpdatedAt = now

	err := r.GetDB().QueryRowxContext(ctx, query,
		session.ID,
		session.OrganizationID,
		session.CustomerPhone,
		session.TicketID,
		session.CustomerName,
		session.ExpiresAt,
		now,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create whatsapp session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Extend(ctx context.Context, rawPhone string, expiresAt time.Time) error {
	query := `
		UPDATE whatsapp_sessions
		SET is_active = TRUE, expires_at = $1, updated_at = $2
		WHERE customer_phone = $3
	`
	result, err := r.db.ExecContext(ctx, query, expiresAt, time.Now(), phone.Normalize(rawPhone))
	if err != nil {
		return fmt.Errorf("failed to extend whatsapp session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) Deactivate(ctx context.Context, rawPhone string) error {
	query := `
		UPDATE whatsapp_sessions
		SET is_active = FALSE, updated_at = $1
		WHERE customer_phone = $2
	`
	if _, err := r.db.ExecContext(ctx, query, time.Now(), phone.Normalize(rawPhone)); err != nil {
		return fmt.Errorf("failed to deactivate whatsapp session: %w", err)
	}
	return nil
}

// DeactivateExpired flips every stale active row. Only active rows already
// past expiry are touched, so concurrent sweeps are harmless.
func (r *sessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE whatsapp_sessions
		SET is_active = FALSE, updated_at = $1
		WHERE is_active = TRUE AND expires_at <= $1
	`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
