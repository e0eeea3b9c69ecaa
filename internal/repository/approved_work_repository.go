package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portfolio-api/internal/models"
)

const approvedWorkColumns = `id, name, files, "timestamp", status, created_at, deleted_at`

// ApprovedWorkRepository reads and retires approved works.
type ApprovedWorkRepository struct {
	db *sqlx.DB
}

// NewApprovedWorkRepository constructs the repository.
func NewApprovedWorkRepository(db *sqlx.DB) *ApprovedWorkRepository {
	return &ApprovedWorkRepository{db: db}
}

// ListActive returns works that have not been deleted, newest first.
func (r *ApprovedWorkRepository) ListActive(ctx context.Context, excludeName string) ([]models.ApprovedWork, error) {
	query := `SELECT ` + approvedWorkColumns + ` FROM approved_works
	WHERE status <> 'deleted' AND name <> $1
	ORDER BY created_at DESC, id DESC`
	var rows []models.ApprovedWork
	if err := r.db.SelectContext(ctx, &rows, query, excludeName); err != nil {
		return nil, fmt.Errorf("list approved works: %w", err)
	}
	if rows == nil {
		rows = []models.ApprovedWork{}
	}
	return rows, nil
}

// GetByID returns a work including soft-deleted ones.
func (r *ApprovedWorkRepository) GetByID(ctx context.Context, id string) (*models.ApprovedWork, error) {
	query := `SELECT ` + approvedWorkColumns + ` FROM approved_works WHERE id = $1`
	var work models.ApprovedWork
	if err := r.db.GetContext(ctx, &work, query, id); err != nil {
		return nil, err
	}
	return &work, nil
}

// SoftDelete hides a work from listings while keeping its row.
func (r *ApprovedWorkRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE approved_works SET status = 'deleted', deleted_at = $2 WHERE id = $1 AND status <> 'deleted'`
	res, err := r.db.ExecContext(ctx, query, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete approved work: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approved work delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListPurgeable returns works soft deleted before cutoff, oldest first.
func (r *ApprovedWorkRepository) ListPurgeable(ctx context.Context, cutoff time.Time, limit int) ([]models.ApprovedWork, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + approvedWorkColumns + ` FROM approved_works
	WHERE status = 'deleted' AND deleted_at < $1
	ORDER BY deleted_at ASC, id ASC
	LIMIT $2`
	var rows []models.ApprovedWork
	if err := r.db.SelectContext(ctx, &rows, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list purgeable works: %w", err)
	}
	return rows, nil
}

// HardDelete removes a soft-deleted work permanently.
func (r *ApprovedWorkRepository) HardDelete(ctx context.Context, id string) error {
	const query = `DELETE FROM approved_works WHERE id = $1 AND status = 'deleted'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("hard delete approved work: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approved work purge rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
