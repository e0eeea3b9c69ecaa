package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
	"github.com/noah-isme/student-portfolio-api/pkg/jobs"
)

const purgeJobKey = "purge_deleted_works"

type purgeWorkStore interface {
	ListPurgeable(ctx context.Context, cutoff time.Time, limit int) ([]models.ApprovedWork, error)
	HardDelete(ctx context.Context, id string) error
}

type archiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// PurgeConfig controls how long soft-deleted works are kept.
type PurgeConfig struct {
	Retention time.Duration
	BatchSize int
}

// PurgeService archives and removes works soft deleted before the retention
// window.
type PurgeService struct {
	works    purgeWorkStore
	archive  archiveStore
	logs     moderationLogWriter
	notifier changeNotifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      PurgeConfig
	now      func() time.Time
}

// NewPurgeService constructs the service.
func NewPurgeService(works purgeWorkStore, archive archiveStore, logs moderationLogWriter, publisher realtime.Publisher, metrics *MetricsService, logger *zap.Logger, cfg PurgeConfig) *PurgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &PurgeService{
		works:    works,
		archive:  archive,
		logs:     logs,
		notifier: changeNotifier{publisher: publisher, metrics: metrics, logger: logger},
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ArchiveKey is where a purged work is written in the archive store.
func ArchiveKey(work models.ApprovedWork) string {
	at := work.CreatedAt.UTC()
	if work.DeletedAt != nil {
		at = work.DeletedAt.UTC()
	}
	return fmt.Sprintf("approved_works/%04d/%02d/%s.json", at.Year(), int(at.Month()), work.ID)
}

// Purge runs one batch. A work is only deleted once its archive copy is
// written; failures are reported per work and leave the row in place.
func (s *PurgeService) Purge(ctx context.Context) (*dto.PurgeResult, error) {
	cutoff := s.now().UTC().Add(-s.cfg.Retention)
	works, err := s.works.ListPurgeable(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return nil, internalError(err, "failed to list purgeable works")
	}

	result := &dto.PurgeResult{Cutoff: cutoff, Purged: []string{}, Archived: []string{}}
	for _, work := range works {
		key, err := s.purgeOne(ctx, work)
		if err != nil {
			s.logger.Warn("failed to purge work", zap.String("work_id", work.ID), zap.Error(err))
			result.Failed = append(result.Failed, work.ID)
			continue
		}
		result.Purged = append(result.Purged, work.ID)
		result.Archived = append(result.Archived, key)
	}

	s.metrics.RecordPurge(len(result.Purged), len(result.Failed))
	if len(result.Purged) > 0 {
		s.notifier.notify(ctx, realtime.ActionDelete, "", realtime.TableApprovedWorks)
	}
	s.logger.Info("purge finished",
		zap.Time("cutoff", cutoff),
		zap.Int("purged", len(result.Purged)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *PurgeService) purgeOne(ctx context.Context, work models.ApprovedWork) (string, error) {
	payload, err := json.Marshal(work)
	if err != nil {
		return "", fmt.Errorf("encode work: %w", err)
	}
	key := ArchiveKey(work)
	if s.archive != nil {
		if err := s.archive.Put(ctx, key, payload, "application/json"); err != nil {
			return "", fmt.Errorf("archive work: %w", err)
		}
	}
	if err := s.works.HardDelete(ctx, work.ID); err != nil {
		return "", fmt.Errorf("delete work: %w", err)
	}
	recordModeration(ctx, s.logs, s.logger, models.ModerationActionPurge, work.ID, key, "system")
	return key, nil
}

// PurgeWorker schedules purge runs on a job queue.
type PurgeWorker struct {
	service  *PurgeService
	queue    *jobs.Queue
	interval time.Duration
	logger   *zap.Logger
}

// PurgeWorkerConfig configures the queue backing the worker.
type PurgeWorkerConfig struct {
	Interval   time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// NewPurgeWorker constructs the worker.
func NewPurgeWorker(svc *PurgeService, cfg PurgeWorkerConfig, logger *zap.Logger) *PurgeWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &PurgeWorker{service: svc, interval: cfg.Interval, logger: logger}
	w.queue = jobs.NewQueue("purge", w.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 2,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return w
}

// Start launches the queue and, when an interval is set, the schedule.
func (w *PurgeWorker) Start(ctx context.Context) {
	w.queue.Start(ctx)
	w.queue.Every(ctx, w.interval, w.newJob)
}

// Stop drains the queue.
func (w *PurgeWorker) Stop() {
	w.queue.Stop()
}

// Trigger enqueues an on-demand run.
func (w *PurgeWorker) Trigger() (*dto.PurgeAccepted, error) {
	job := w.newJob()
	if err := w.queue.Enqueue(job); err != nil {
		switch {
		case errors.Is(err, jobs.ErrAlreadyQueued):
			return nil, appErrors.Clone(appErrors.ErrConflict, "a purge is already running")
		case errors.Is(err, jobs.ErrNotStarted):
			return nil, appErrors.Clone(appErrors.ErrUnavailable, "purge worker is not running")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "purge queue is busy")
		}
	}
	return &dto.PurgeAccepted{JobID: job.ID, Enqueued: job.Enqueued}, nil
}

func (w *PurgeWorker) newJob() jobs.Job {
	return jobs.Job{
		ID:       uuid.NewString(),
		Type:     "purge",
		Key:      purgeJobKey,
		Enqueued: time.Now().UTC(),
	}
}

func (w *PurgeWorker) handle(ctx context.Context, job jobs.Job) error {
	result, err := w.service.Purge(ctx)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("purge job %s: %d works failed", job.ID, len(result.Failed))
	}
	return nil
}
