package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portfolio-api/internal/models"
)

const submissionColumns = `id, name, files, "timestamp", status, created_at`

// SubmissionRepository persists student submissions and their approval.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// ListPending returns submissions awaiting moderation, newest first. Rows named
// excludeName are test fixtures and never listed.
func (r *SubmissionRepository) ListPending(ctx context.Context, excludeName string) ([]models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM student_submissions
	WHERE status = 'pending' AND name <> $1
	ORDER BY created_at DESC, id DESC`
	var rows []models.Submission
	if err := r.db.SelectContext(ctx, &rows, query, excludeName); err != nil {
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}
	if rows == nil {
		rows = []models.Submission{}
	}
	return rows, nil
}

// GetByID returns a submission regardless of status.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM student_submissions WHERE id = $1`
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Create inserts a new pending submission, assigning its id.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	sub.ID = uuid.NewString()
	sub.Status = models.SubmissionPending
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if sub.Files == nil {
		sub.Files = models.EncodedFiles{}
	}
	const query = `INSERT INTO student_submissions (id, name, files, "timestamp", status, created_at)
	VALUES (:id, :name, :files, :timestamp, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// Approve copies a pending submission into approved_works and marks it
// approved in a single transaction.
func (r *SubmissionRepository) Approve(ctx context.Context, id string) (work *models.ApprovedWork, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approve transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var sub models.Submission
	lockQuery := `SELECT ` + submissionColumns + ` FROM student_submissions WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &sub, lockQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock submission: %w", err)
	}
	if !sub.IsPending() {
		err = ErrNotPending
		return nil, err
	}

	work = &models.ApprovedWork{
		ID:        sub.ID,
		Name:      sub.Name,
		Files:     sub.Files,
		Timestamp: sub.Timestamp,
		Status:    models.WorkApproved,
		CreatedAt: time.Now().UTC(),
	}
	const insertQuery = `INSERT INTO approved_works (id, name, files, "timestamp", status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insertQuery, work.ID, work.Name, work.Files, work.Timestamp, work.Status, work.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return nil, err
		}
		return nil, fmt.Errorf("insert approved work: %w", err)
	}

	const updateQuery = `UPDATE student_submissions SET status = 'approved' WHERE id = $1 AND status = 'pending'`
	res, err := tx.ExecContext(ctx, updateQuery, id)
	if err != nil {
		return nil, fmt.Errorf("mark submission approved: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check approve rows: %w", err)
	}
	if affected == 0 {
		err = ErrNotPending
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve transaction: %w", err)
	}
	return work, nil
}

// UpdateStatus moves a pending submission to status. Already moderated rows
// are left untouched and reported as sql.ErrNoRows.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error {
	const query = `UPDATE student_submissions SET status = $2 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check submission status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
