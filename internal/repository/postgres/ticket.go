package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/repository"
)

type ticketRepository struct {
	BaseRepository
}

func NewTicketRepository(base BaseRepository) repository.TicketRepository {
	return &ticketRepository{base}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	query := `
		INSERT INTO tickets (
			id, organization_id, branch_id, department_id, number,
			customer_name, customer_phone, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	ticket.ID = uuid.New()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = time.Now()
	if ticket.Status == "" {
		ticket.Status = model.TicketStatusWaiting
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			ticket.ID,
			ticket.OrganizationID,
			ticket.BranchID,
			ticket.DepartmentID,
			ticket.Number,
			ticket.CustomerName,
			ticket.CustomerPhone,
			ticket.Status,
			ticket.CreatedAt,
			ticket.UpdatedAt,
		)
		return err
	})
}

func (r *ticketRepository) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	query := `SELECT * FROM tickets WHERE id = $1 AND deleted_at IS NULL`
	var ticket model.Ticket
	if err := r.GetDB().GetContext(ctx, &ticket, query, id); err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *model.Ticket) error {
	query := `
		UPDATE tickets
		SET status = $1, counter = $2, called_at = $3, served_at = $4, updated_at = $5
		WHERE id = $6 AND deleted_at IS NULL
	`
	ticket.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		ticket.Status,
		ticket.Counter,
		ticket.CalledAt,
		ticket.ServedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ticket not found")
	}

	return nil
}

func (r *ticketRepository) List(ctx context.Context, filters *model.TicketFilters) ([]*model.Ticket, error) {
	query := `SELECT * FROM tickets WHERE deleted_at IS NULL`
	var args []interface{}

	if filters != nil {
		if filters.OrganizationID != uuid.Nil {
			query += fmt.Sprintf(" AND organization_id = $%d", len(args)+1)
			args = append(args, filters.OrganizationID)
		}
		if filters.BranchID != uuid.Nil {
			query += fmt.Sprintf(" AND branch_id = $%d", len(args)+1)
			args = append(args, filters.BranchID)
		}
		if filters.DepartmentID != uuid.Nil {
			query += fmt.Sprintf(" AND department_id = $%d", len(args)+1)
			args = append(args, filters.DepartmentID)
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", len(args)+1)
			args = append(args, filters.Status)
		}
	}

	query += " ORDER BY created_at"

	var tickets []*model.Ticket
	if err := r.db.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (r *ticketRepository) OldestWaiting(ctx context.Context, departmentID uuid.UUID) (*model.Ticket, error) {
	query := `
		SELECT * FROM tickets
		WHERE department_id = $1 AND status = $2 AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT 1
	`
	var ticket model.Ticket
	err := r.GetDB().GetContext(ctx, &ticket, query, departmentID, model.TicketStatusWaiting)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest waiting ticket: %w", err)
	}
	return &ticket, nil
}

func (r *ticketRepository) WaitingAtPosition(ctx context.Context, departmentID uuid.UUID, position int) (*model.Ticket, error) {
	if position < 1 {
		return nil, fmt.Errorf("position must be >= 1")
	}
	query := `
		SELECT * FROM tickets
		WHERE department_id = $1 AND status = $2 AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT 1 OFFSET $3
	`
	var ticket model.Ticket
	err := r.GetDB().GetContext(ctx, &ticket, query, departmentID, model.TicketStatusWaiting, position-1)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waiting ticket at position %d: %w", position, err)
	}
	return &ticket, nil
}

func (r *ticketRepository) QueuePosition(ctx context.Context, ticketID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) + 1 FROM tickets t
		WHERE t.department_id = (SELECT department_id FROM tickets WHERE id = $1)
		  AND t.status = $2
		  AND t.deleted_at IS NULL
		  AND t.created_at < (SELECT created_at FROM tickets WHERE id = $1)
	`
	var position int
	if err := r.GetDB().GetContext(ctx, &position, query, ticketID, model.TicketStatusWaiting); err != nil {
		return 0, fmt.Errorf("failed to compute queue position: %w", err)
	}
	return position, nil
}

func (r *ticketRepository) CountWaiting(ctx context.Context, departmentID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*) FROM tickets
		WHERE department_id = $1 AND status = $2 AND deleted_at IS NULL
	`
	var count int64
	if err := r.GetDB().GetContext(ctx, &count, query, departmentID, model.TicketStatusWaiting); err != nil {
		return 0, fmt.Errorf("failed to count waiting tickets: %w", err)
	}
	return count, nil
}

func (r *ticketRepository) GetQueueStats(ctx context.Context, organizationID uuid.UUID, from, to time.Time) (*model.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'waiting')   AS waiting,
			COUNT(*) FILTER (WHERE status = 'served')    AS served,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			AVG(EXTRACT(EPOCH FROM (called_at - created_at)))
				FILTER (WHERE called_at IS NOT NULL)     AS avg_wait_seconds
		FROM tickets
		WHERE organization_id = $1
		  AND created_at BETWEEN $2 AND $3
		  AND deleted_at IS NULL
	`
	var stats model.QueueStats
	if err := r.GetDB().GetContext(ctx, &stats, query, organizationID, from, to); err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return &stats, nil
}
