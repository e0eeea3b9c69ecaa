package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portfolio-api/internal/models"
)

const accessRequestColumns = `id, student_name, email, status, notes, requested_at, decided_at`

// AccessRequestRepository persists student access requests.
type AccessRequestRepository struct {
	db *sqlx.DB
}

// NewAccessRequestRepository constructs the repository.
func NewAccessRequestRepository(db *sqlx.DB) *AccessRequestRepository {
	return &AccessRequestRepository{db: db}
}

// Create stores a pending request. A second open request for the same email
// returns ErrDuplicate.
func (r *AccessRequestRepository) Create(ctx context.Context, req *models.AccessRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	req.Status = models.AccessRequestPending

	const query = `INSERT INTO student_requests (id, student_name, email, status, notes, requested_at)
	VALUES (:id, :student_name, :email, :status, :notes, :requested_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create access request: %w", err)
	}
	return nil
}

// GetByID returns a request regardless of status.
func (r *AccessRequestRepository) GetByID(ctx context.Context, id string) (*models.AccessRequest, error) {
	var req models.AccessRequest
	query := `SELECT ` + accessRequestColumns + ` FROM student_requests WHERE id = $1`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests oldest first along with the total matching count.
func (r *AccessRequestRepository) List(ctx context.Context, filter models.AccessRequestFilter) ([]models.AccessRequest, int, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	where := ""
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = " WHERE status = $1"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM student_requests`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count access requests: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM student_requests%s
	ORDER BY requested_at ASC, id ASC LIMIT %d OFFSET %d`, accessRequestColumns, where, limit, offset)
	var rows []models.AccessRequest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list access requests: %w", err)
	}
	if rows == nil {
		rows = []models.AccessRequest{}
	}
	return rows, total, nil
}

// Decide moves a pending request to status. Requests already decided are left
// untouched and reported as sql.ErrNoRows.
func (r *AccessRequestRepository) Decide(ctx context.Context, id string, status models.AccessRequestStatus, notes string, at time.Time) error {
	const query = `UPDATE student_requests SET status = $2, notes = $3, decided_at = $4
	WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, status, notes, at)
	if err != nil {
		return fmt.Errorf("decide access request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check access request rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
