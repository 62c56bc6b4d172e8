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

type branchRepository struct {
	BaseRepository
}

func NewBranchRepository(base BaseRepository) repository.BranchRepository {
	return &branchRepository{base}
}

func (r *branchRepository) Create(ctx context.Context, branch *model.Branch) error {
	query := `
		INSERT INTO branches (
			id, organization_id, name, address, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	branch.ID = uuid.New()
	branch.CreatedAt = time.Now()
	branch.UpdatedAt = time.Now()
	if branch.Status == "" {
		branch.Status = "active"
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			branch.ID,
			branch.OrganizationID,
			branch.Name,
			branch.Address,
			branch.Status,
			branch.CreatedAt,
			branch.UpdatedAt,
		)
		return err
	})
}

func (r *branchRepository) Get(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	query := `SELECT * FROM branches WHERE id = $1 AND deleted_at IS NULL`
	var branch model.Branch
	if err := r.GetDB().GetContext(ctx, &branch, query, id); err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return &branch, nil
}

func (r *branchRepository) Update(ctx context.Context, branch *model.Branch) error {
	query := `
		UPDATE branches
		SET name = $1, address = $2, status = $3, updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL
	`
	branch.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		branch.Name,
		branch.Address,
		branch.Status,
		branch.UpdatedAt,
		branch.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update branch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("branch not found")
	}

	return nil
}

func (r *branchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE branches
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("branch not found")
	}

	return nil
}

func (r *branchRepository) List(ctx context.Context, organizationID uuid.UUID) ([]*model.Branch, error) {
	query := `
		SELECT * FROM branches
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	var branches []*model.Branch
	if err := r.db.SelectContext(ctx, &branches, query, organizationID); err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}
