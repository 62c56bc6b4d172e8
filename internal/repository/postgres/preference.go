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

type preferenceRepository struct {
	BaseRepository
}

func NewPreferenceRepository(base BaseRepository) repository.PreferenceRepository {
	return &preferenceRepository{base}
}

// GetByPhone tries every historical phone format in order and returns the
// first match, newest row first. A missing row returns (nil, nil): absence
// means "no preference recorded yet", which the decision engine handles by
// rule, not by error.
func (r *preferenceRepository) GetByPhone(ctx context.Context, rawPhone string) (*model.NotificationPreference, error) {
	query := `
		SELECT * FROM notification_preferences
		WHERE customer_phone = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	for _, form := range phone.LookupForms(rawPhone) {
		var pref model.NotificationPreference
		err := r.GetDB().GetContext(ctx, &pref, query, form)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get notification preference: %w", err)
		}
		return &pref, nil
	}

	return nil, nil
}

// Upsert writes the single authoritative row for (organization, normalized
// phone). WhatsAppFallback is forced true on every write: the messaging
// channel stays available as a safety net regardless of push state.
func (r *preferenceRepository) Upsert(ctx context.Context, organizationID uuid.UUID, rawPhone string, pushEnabled, pushDenied bool) (*model.NotificationPreference, error) {
	query := `
		INSERT INTO notification_preferences (
			id, organization_id, customer_phone, push_enabled, push_denied,
			whatsapp_fallback, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		ON CONFLICT (organization_id, customer_phone) DO UPDATE SET
			push_enabled      = EXCLUDED.push_enabled,
			push_denied       = EXCLUDED.push_denied,
			whatsapp_fallback = TRUE,
			updated_at        = EXCLUDED.updated_at
		RETURNING *
	`

	var pref model.NotificationPreference
	err := r.GetDB().GetContext(ctx, &pref, query,
		uuid.New(),
		organizationID,
		phone.Normalize(rawPhone),
		pushEnabled,
		pushDenied,
		time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert notification preference: %w", err)
	}
	return &pref, nil
}
