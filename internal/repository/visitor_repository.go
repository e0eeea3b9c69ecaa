package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portfolio-api/internal/models"
)

// VisitorRepository stores portal visits.
type VisitorRepository struct {
	db *sqlx.DB
}

// NewVisitorRepository constructs the repository.
func NewVisitorRepository(db *sqlx.DB) *VisitorRepository {
	return &VisitorRepository{db: db}
}

// Create records a visit.
func (r *VisitorRepository) Create(ctx context.Context, visitor *models.Visitor) error {
	if visitor.ID == "" {
		visitor.ID = uuid.NewString()
	}
	if visitor.VisitedAt.IsZero() {
		visitor.VisitedAt = time.Now().UTC()
	}
	const query = `INSERT INTO visitors (id, name, page, device_type, user_agent, ip_address, visited_at)
	VALUES (:id, :name, :page, :device_type, :user_agent, :ip_address, :visited_at)`
	if _, err := r.db.NamedExecContext(ctx, query, visitor); err != nil {
		return fmt.Errorf("create visitor: %w", err)
	}
	return nil
}

// List returns visits newest first along with the total matching count.
func (r *VisitorRepository) List(ctx context.Context, filter models.VisitorFilter) ([]models.Visitor, int, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	where := ""
	args := []interface{}{}
	if filter.Page != "" {
		args = append(args, filter.Page)
		where = " WHERE page = $1"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM visitors`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count visitors: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, name, page, device_type, user_agent, ip_address, visited_at FROM visitors%s
	ORDER BY visited_at DESC, id DESC LIMIT %d OFFSET %d`, where, limit, offset)
	var rows []models.Visitor
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list visitors: %w", err)
	}
	if rows == nil {
		rows = []models.Visitor{}
	}
	return rows, total, nil
}
