package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/repository"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

type accessRequestStore interface {
	Create(ctx context.Context, req *models.AccessRequest) error
	GetByID(ctx context.Context, id string) (*models.AccessRequest, error)
	List(ctx context.Context, filter models.AccessRequestFilter) ([]models.AccessRequest, int, error)
	Decide(ctx context.Context, id string, status models.AccessRequestStatus, notes string, at time.Time) error
}

// AccessRequestService takes student access requests and lets a developer
// decide them.
type AccessRequestService struct {
	repo      accessRequestStore
	logs      moderationLogWriter
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccessRequestService constructs the service.
func NewAccessRequestService(repo accessRequestStore, logs moderationLogWriter, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AccessRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessRequestService{
		repo:      repo,
		logs:      logs,
		validator: newValidator(validate),
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Request files a pending access request.
func (s *AccessRequestService) Request(ctx context.Context, req dto.CreateAccessRequest) (*models.AccessRequest, error) {
	req.StudentName = strings.TrimSpace(req.StudentName)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid access request")
	}

	ar := &models.AccessRequest{StudentName: req.StudentName, Email: req.Email}
	if err := s.repo.Create(ctx, ar); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an access request for this email is already pending")
		}
		return nil, internalError(err, "failed to store access request")
	}
	s.logger.Info("access requested", zap.String("request_id", ar.ID), zap.String("student", ar.StudentName))
	return ar, nil
}

// List returns requests oldest first.
func (s *AccessRequestService) List(ctx context.Context, filter models.AccessRequestFilter) ([]models.AccessRequest, *models.Pagination, error) {
	switch filter.Status {
	case "", models.AccessRequestPending, models.AccessRequestApproved, models.AccessRequestRejected:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list access requests")
	}
	return rows, pagination(filter.Limit, filter.Offset, total), nil
}

// Approve grants a pending request.
func (s *AccessRequestService) Approve(ctx context.Context, id, notes, actor string) (*models.AccessRequest, error) {
	return s.decide(ctx, id, models.AccessRequestApproved, models.ModerationActionApproveRequest, notes, actor)
}

// Reject declines a pending request.
func (s *AccessRequestService) Reject(ctx context.Context, id, notes, actor string) (*models.AccessRequest, error) {
	return s.decide(ctx, id, models.AccessRequestRejected, models.ModerationActionRejectRequest, notes, actor)
}

func (s *AccessRequestService) decide(ctx context.Context, rawID string, status models.AccessRequestStatus, action, notes, actor string) (ar *models.AccessRequest, err error) {
	defer func() { s.metrics.RecordModeration(action, err) }()

	id, ok := normalizeID(rawID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "access request not found")
	}
	notes = strings.TrimSpace(notes)
	if err = s.validator.Struct(dto.DecideAccessRequest{Notes: notes}); err != nil {
		return nil, validationError(err, "invalid decision")
	}

	decidedAt := s.now().UTC()
	if err = s.repo.Decide(ctx, id, status, notes, decidedAt); err != nil {
		if !isNotFound(err) {
			return nil, internalError(err, "failed to decide access request")
		}
		// Nothing pending under id: tell a missing request from a decided one.
		existing, getErr := s.repo.GetByID(ctx, id)
		if getErr != nil {
			if isNotFound(getErr) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "access request not found")
			}
			return nil, internalError(getErr, "failed to load access request")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "access request has already been "+string(existing.Status))
	}

	ar, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load access request")
	}
	recordModeration(ctx, s.logs, s.logger, action, id, ar.StudentName, actor)
	s.logger.Info("access request decided",
		zap.String("request_id", id),
		zap.String("status", string(status)),
		zap.String("actor", actor),
	)
	return ar, nil
}
