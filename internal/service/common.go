package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

type moderationLogWriter interface {
	Create(ctx context.Context, entry *models.ModerationLog) error
}

// changeNotifier publishes change events and logs failures. Publishing is
// best effort; subscribers reconcile on the next event.
type changeNotifier struct {
	publisher realtime.Publisher
	metrics   *MetricsService
	logger    *zap.Logger
}

func (n changeNotifier) notify(ctx context.Context, action, recordID string, tables ...string) {
	if n.publisher == nil {
		return
	}
	for _, table := range tables {
		if err := n.publisher.Publish(ctx, realtime.NewEvent(table, action, recordID)); err != nil {
			n.logger.Warn("failed to publish change", zap.String("table", table), zap.String("record_id", recordID), zap.Error(err))
			continue
		}
		n.metrics.RecordRealtimeEvent(table)
	}
}

func recordModeration(ctx context.Context, logs moderationLogWriter, logger *zap.Logger, action, resourceID, details, actor string) {
	if logs == nil {
		return
	}
	entry := &models.ModerationLog{Action: action, Details: details, Actor: actor}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := logs.Create(ctx, entry); err != nil {
		logger.Warn("failed to record moderation log", zap.String("action", action), zap.Error(err))
	}
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// normalizeID returns id in canonical UUID form. ok is false for ids that
// cannot exist; the id columns are UUIDs.
func normalizeID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func newValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return validator.New()
	}
	return v
}

func pagination(limit, offset, total int) *models.Pagination {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return &models.Pagination{Limit: limit, Offset: offset, TotalCount: total}
}
