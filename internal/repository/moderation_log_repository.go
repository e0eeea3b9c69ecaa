package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portfolio-api/internal/models"
)

// ModerationLogRepository stores the developer audit trail.
type ModerationLogRepository struct {
	db *sqlx.DB
}

// NewModerationLogRepository constructs the repository.
func NewModerationLogRepository(db *sqlx.DB) *ModerationLogRepository {
	return &ModerationLogRepository{db: db}
}

// Create appends an entry.
func (r *ModerationLogRepository) Create(ctx context.Context, entry *models.ModerationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO moderation_logs (id, action, resource_id, details, actor, created_at)
	VALUES (:id, :action, :resource_id, :details, :actor, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create moderation log: %w", err)
	}
	return nil
}

// List returns entries newest first along with the total matching count.
func (r *ModerationLogRepository) List(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, int, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	where := ""
	args := []interface{}{}
	if filter.Action != "" {
		args = append(args, filter.Action)
		where = " WHERE action = $1"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM moderation_logs`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count moderation logs: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, action, resource_id, details, actor, created_at FROM moderation_logs%s
	ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`, where, limit, offset)
	var rows []models.ModerationLog
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list moderation logs: %w", err)
	}
	if rows == nil {
		rows = []models.ModerationLog{}
	}
	return rows, total, nil
}
