package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/phone"
	"github.com/qline/queue-api/internal/repository"
)

type notificationLogRepository struct {
	BaseRepository
}

func NewNotificationLogRepository(base BaseRepository) repository.NotificationLogRepository {
	return &notificationLogRepository{base}
}

// Create appends one delivery-attempt row. Rows are write-once.
func (r *notificationLogRepository) Create(ctx context.Context, entry *model.NotificationLogEntry) error {
	query := `
		INSERT INTO notification_logs (
			id, organization_id, ticket_id, ticket_number, customer_phone,
			type, channel, success, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			entry.ID,
			entry.OrganizationID,
			entry.TicketID,
			entry.TicketNumber,
			entry.CustomerPhone,
			entry.Type,
			entry.Channel,
			entry.Success,
			entry.ErrorMessage,
			entry.CreatedAt,
		)
		return err
	})
}

func (r *notificationLogRepository) List(ctx context.Context, filters map[string]interface{}) ([]*model.NotificationLogEntry, error) {
	query := `SELECT * FROM notification_logs WHERE 1=1`
	var args []interface{}

	if v, ok := filters["organization_id"]; ok {
		query += fmt.Sprintf(" AND organization_id = $%d", len(args)+1)
		args = append(args, v)
	}
	if v, ok := filters["ticket_id"]; ok {
		query += fmt.Sprintf(" AND ticket_id = $%d", len(args)+1)
		args = append(args, v)
	}
	if v, ok := filters["customer_phone"]; ok {
		if s, isStr := v.(string); isStr {
			query += fmt.Sprintf(" AND customer_phone = ANY($%d)", len(args)+1)
			args = append(args, pq.Array(phone.LookupForms(s)))
		}
	}
	if v, ok := filters["channel"]; ok {
		query += fmt.Sprintf(" AND channel = $%d", len(args)+1)
		args = append(args, v)
	}
	if v, ok := filters["type"]; ok {
		query += fmt.Sprintf(" AND type = $%d", len(args)+1)
		args = append(args, v)
	}

	query += " ORDER BY created_at DESC"

	var entries []*model.NotificationLogEntry
	if err := r.GetDB().SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notification logs: %w", err)
	}
	return entries, nil
}
