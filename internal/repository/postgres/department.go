package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/repository"
)

type departmentRepository struct {
	BaseRepository
}

func NewDepartmentRepository(base BaseRepository) repository.DepartmentRepository {
	return &departmentRepository{base}
}

func (r *departmentRepository) Create(ctx context.Context, dept *model.Department) error {
	query := `
		INSERT INTO departments (
			id, organization_id, branch_id, name, ticket_prefix,
			ticket_counter, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	dept.ID = uuid.New()
	dept.CreatedAt = time.Now()
	dept.UpdatedAt = time.Now()
	if dept.TicketPrefix == "" {
		dept.TicketPrefix = "A"
	}
	if dept.Status == "" {
		dept.Status = "active"
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			dept.ID,
			dept.OrganizationID,
			dept.BranchID,
			dept.Name,
			dept.TicketPrefix,
			dept.TicketCounter,
			dept.Status,
			dept.CreatedAt,
			dept.UpdatedAt,
		)
		return err
	})
}

func (r *departmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	query := `SELECT * FROM departments WHERE id = $1 AND deleted_at IS NULL`
	var dept model.Department
	if err := r.GetDB().GetContext(ctx, &dept, query, id); err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &dept, nil
}

func (r *departmentRepository) Update(ctx context.Context, dept *model.Department) error {
	query := `
		UPDATE departments
		SET name = $1, ticket_prefix = $2, status = $3, updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL
	`
	dept.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		dept.Name,
		dept.TicketPrefix,
		dept.Status,
		dept.UpdatedAt,
		dept.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("department not found")
	}

	return nil
}

func (r *departmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE departments
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("department not found")
	}

	return nil
}

func (r *departmentRepository) List(ctx context.Context, branchID uuid.UUID) ([]*model.Department, error) {
	query := `
		SELECT * FROM departments
		WHERE branch_id = $1 AND deleted_at IS NULL
		ORDER BY name
	`
	var depts []*model.Department
	if err := r.db.SelectContext(ctx, &depts, query, branchID); err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return depts, nil
}

// AllocateTicketNumber bumps the per-department counter atomically so two
// concurrent CreateTicket calls can never produce the same number.
func (r *departmentRepository) AllocateTicketNumber(ctx context.Context, id uuid.UUID) (string, error) {
	query := `
		UPDATE departments
		SET ticket_counter = ticket_counter + 1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING ticket_prefix, ticket_counter
	`
	var (
		prefix  string
		counter int
	)
	if err := r.db.QueryRowxContext(ctx, query, time.Now(), id).Scan(&prefix, &counter); err != nil {
		return "", fmt.Errorf("failed to allocate ticket number: %w", err)
	}
	return fmt.Sprintf("%s-%03d", prefix, counter), nil
}
