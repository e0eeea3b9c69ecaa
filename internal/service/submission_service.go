package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

type submissionStore interface {
	ListPending(ctx context.Context, excludeName string) ([]models.Submission, error)
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Create(ctx context.Context, sub *models.Submission) error
}

type approvedWorkReader interface {
	ListActive(ctx context.Context, excludeName string) ([]models.ApprovedWork, error)
	GetByID(ctx context.Context, id string) (*models.ApprovedWork, error)
}

// SubmissionServiceConfig carries the portal's submission rules.
type SubmissionServiceConfig struct {
	SentinelName string
	MaxFiles     int
}

// SubmissionService accepts student uploads and serves the listings.
type SubmissionService struct {
	submissions submissionStore
	works       approvedWorkReader
	cache       *CacheService
	notifier    changeNotifier
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         SubmissionServiceConfig
	now         func() time.Time
}

// NewSubmissionService constructs the service.
func NewSubmissionService(submissions submissionStore, works approvedWorkReader, publisher realtime.Publisher, cache *CacheService, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg SubmissionServiceConfig) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 10
	}
	return &SubmissionService{
		submissions: submissions,
		works:       works,
		cache:       cache,
		notifier:    changeNotifier{publisher: publisher, metrics: metrics, logger: logger},
		validator:   newValidator(validate),
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Create validates and stores a new pending submission. Nothing reaches the
// store unless the payload is valid.
func (s *SubmissionService) Create(ctx context.Context, req dto.CreateSubmissionRequest) (*models.Submission, error) {
	if err := s.validateCreate(&req); err != nil {
		return nil, err
	}

	timestamp := strings.TrimSpace(req.Timestamp)
	if timestamp == "" {
		timestamp = s.now().UTC().Format(time.RFC3339)
	}
	sub := &models.Submission{
		Name:      req.Name,
		Files:     models.EncodedFiles(req.Files),
		Timestamp: timestamp,
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, internalError(err, "failed to store submission")
	}

	s.metrics.IncSubmissions()
	s.notifier.notify(ctx, realtime.ActionInsert, sub.ID, realtime.TableSubmissions)
	s.logger.Info("submission received",
		zap.String("submission_id", sub.ID),
		zap.String("student", sub.Name),
		zap.Int("files", len(sub.Files)),
	)
	return sub, nil
}

func (s *SubmissionService) validateCreate(req *dto.CreateSubmissionRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if len(req.Files) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one file is required")
	}
	if len(req.Files) > s.cfg.MaxFiles {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d files are allowed", s.cfg.MaxFiles))
	}
	for i := range req.Files {
		req.Files[i].Name = strings.TrimSpace(req.Files[i].Name)
		if req.Files[i].Name == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %d has no name", i+1))
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid submission payload")
	}
	return nil
}

// ListPending returns submissions awaiting moderation.
func (s *SubmissionService) ListPending(ctx context.Context) ([]models.Submission, error) {
	subs, err := s.submissions.ListPending(ctx, s.cfg.SentinelName)
	if err != nil {
		return nil, internalError(err, "failed to list pending submissions")
	}
	return subs, nil
}

// ListApprovedWorks returns every active work with file payloads.
func (s *SubmissionService) ListApprovedWorks(ctx context.Context) ([]models.ApprovedWork, error) {
	works, err := s.works.ListActive(ctx, s.cfg.SentinelName)
	if err != nil {
		return nil, internalError(err, "failed to list approved works")
	}
	return works, nil
}

// ListPublicWorks returns payload-free views of active works, served from the
// cache when possible. hit reports whether the cache answered.
func (s *SubmissionService) ListPublicWorks(ctx context.Context) (views []dto.WorkView, hit bool, err error) {
	// The key is taken before the query: if a change lands in between, the
	// generation has moved on and this result is never read back.
	key, cacheable := s.cache.WorksKey(ctx)
	if cacheable {
		var cached []dto.WorkView
		if s.cache.Get(ctx, key, &cached) {
			return cached, true, nil
		}
	}

	works, err := s.ListApprovedWorks(ctx)
	if err != nil {
		return nil, false, err
	}
	views = WorkViews(works)
	if cacheable {
		s.cache.Set(ctx, key, views, 0)
	}
	return views, false, nil
}

// GetWork returns an active work.
func (s *SubmissionService) GetWork(ctx context.Context, id string) (*dto.WorkView, error) {
	work, err := s.GetWorkRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if !work.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
	}
	view := dto.NewWorkView(*work)
	return &view, nil
}

// GetWorkRecord returns a work regardless of status.
func (s *SubmissionService) GetWorkRecord(ctx context.Context, id string) (*models.ApprovedWork, error) {
	id, ok := normalizeID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
	}
	work, err := s.works.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, internalError(err, "failed to load work")
	}
	return work, nil
}

// WorkViews maps works to their payload-free views.
func WorkViews(works []models.ApprovedWork) []dto.WorkView {
	views := make([]dto.WorkView, len(works))
	for i, w := range works {
		views[i] = dto.NewWorkView(w)
	}
	return views
}
