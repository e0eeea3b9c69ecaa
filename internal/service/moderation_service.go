package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	"github.com/noah-isme/student-portfolio-api/internal/repository"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

// BannerTTLSeconds is how long clients show the approval banner.
const BannerTTLSeconds = 5

type moderationSubmissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Approve(ctx context.Context, id string) (*models.ApprovedWork, error)
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error
}

type moderationWorkStore interface {
	GetByID(ctx context.Context, id string) (*models.ApprovedWork, error)
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

type moderationLogStore interface {
	moderationLogWriter
	List(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, int, error)
}

// ModerationService approves, rejects and retires student work.
type ModerationService struct {
	submissions moderationSubmissionStore
	works       moderationWorkStore
	logs        moderationLogStore
	cache       *CacheService
	notifier    changeNotifier
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewModerationService constructs the service.
func NewModerationService(submissions moderationSubmissionStore, works moderationWorkStore, logs moderationLogStore, publisher realtime.Publisher, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationService{
		submissions: submissions,
		works:       works,
		logs:        logs,
		cache:       cache,
		notifier:    changeNotifier{publisher: publisher, metrics: metrics, logger: logger},
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Approve publishes a pending submission as an approved work.
func (s *ModerationService) Approve(ctx context.Context, id, actor string) (result *dto.ApprovalResult, err error) {
	defer func() { s.metrics.RecordModeration(models.ModerationActionApprove, err) }()

	id, ok := normalizeID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	work, err := s.submissions.Approve(ctx, id)
	if err != nil {
		switch {
		case isNotFound(err):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		case errors.Is(err, repository.ErrNotPending), errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "submission has already been moderated")
		default:
			return nil, internalError(err, "failed to approve submission")
		}
	}

	s.cache.InvalidateWorks(ctx)
	s.notifier.notify(ctx, realtime.ActionUpdate, id, realtime.TableSubmissions, realtime.TableApprovedWorks)
	recordModeration(ctx, s.logs, s.logger, models.ModerationActionApprove, id, work.Name, actor)
	s.logger.Info("submission approved", zap.String("submission_id", id), zap.String("student", work.Name), zap.String("actor", actor))

	return &dto.ApprovalResult{Work: work, StudentName: work.Name, BannerTTLSeconds: BannerTTLSeconds}, nil
}

// Reject closes a pending submission without publishing it.
func (s *ModerationService) Reject(ctx context.Context, id, actor string) (sub *models.Submission, err error) {
	defer func() { s.metrics.RecordModeration(models.ModerationActionReject, err) }()

	id, ok := normalizeID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	sub, err = s.submissions.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, internalError(err, "failed to load submission")
	}
	if !sub.IsPending() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "submission has already been moderated")
	}

	if err = s.submissions.UpdateStatus(ctx, id, models.SubmissionRejected); err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "submission has already been moderated")
		}
		return nil, internalError(err, "failed to reject submission")
	}
	sub.Status = models.SubmissionRejected

	s.notifier.notify(ctx, realtime.ActionUpdate, id, realtime.TableSubmissions)
	recordModeration(ctx, s.logs, s.logger, models.ModerationActionReject, id, sub.Name, actor)
	s.logger.Info("submission rejected", zap.String("submission_id", id), zap.String("student", sub.Name), zap.String("actor", actor))
	return sub, nil
}

// DeleteWork soft deletes an active work. The row is kept for the purge job.
func (s *ModerationService) DeleteWork(ctx context.Context, id, actor string) (err error) {
	defer func() { s.metrics.RecordModeration(models.ModerationActionDelete, err) }()

	id, ok := normalizeID(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "work not found")
	}
	work, err := s.works.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return internalError(err, "failed to load work")
	}
	if !work.IsActive() {
		return appErrors.Clone(appErrors.ErrConflict, "work has already been deleted")
	}

	if err = s.works.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrConflict, "work has already been deleted")
		}
		return internalError(err, "failed to delete work")
	}

	s.cache.InvalidateWorks(ctx)
	s.notifier.notify(ctx, realtime.ActionUpdate, id, realtime.TableApprovedWorks)
	recordModeration(ctx, s.logs, s.logger, models.ModerationActionDelete, id, work.Name, actor)
	s.logger.Info("work deleted", zap.String("work_id", id), zap.String("actor", actor))
	return nil
}

// ListLogs pages through the moderation log, newest first.
func (s *ModerationService) ListLogs(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error) {
	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list moderation logs")
	}
	return logs, pagination(filter.Limit, filter.Offset, total), nil
}
