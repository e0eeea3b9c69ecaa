package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

// Cache keys for the public gallery. The gallery key is suffixed with the
// current generation; invalidation bumps the generation so a list read before
// a change can never be stored under a key later readers use.
const (
	publicWorksPrefix     = "works:public:"
	publicWorksPattern    = "works:public:*"
	publicWorksGeneration = "works:generation"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps the cache repository with metrics and an on/off switch.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get loads key into dest and reports whether it was a hit. Backend failures
// are logged and reported as misses.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Set stores value under key. Failures are logged only.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes cached values matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

// WorksKey returns the gallery key for the current generation. ok is false
// when caching is off or the generation cannot be read, in which case callers
// bypass the cache entirely.
func (s *CacheService) WorksKey(ctx context.Context) (key string, ok bool) {
	if !s.Enabled() {
		return "", false
	}
	var generation int64
	if err := s.repo.Get(ctx, publicWorksGeneration, &generation); err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache generation read failed", zap.Error(err))
		return "", false
	}
	return publicWorksPrefix + strconv.FormatInt(generation, 10), true
}

// InvalidateWorks retires the cached public gallery by moving to a new
// generation, then drops the entries of older generations.
func (s *CacheService) InvalidateWorks(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if _, err := s.repo.Incr(ctx, publicWorksGeneration); err != nil {
		s.logger.Warn("cache generation bump failed", zap.Error(err))
	}
	s.Invalidate(ctx, publicWorksPattern)
}

// WatchWorks invalidates the public gallery whenever approved works change,
// including changes made by other instances. It returns when ctx is done or
// the subscription closes.
func (s *CacheService) WatchWorks(ctx context.Context, subscriber realtime.Subscriber) {
	if !s.Enabled() || subscriber == nil {
		return
	}
	sub := subscriber.Subscribe(realtime.TableApprovedWorks)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C():
			if !ok {
				return
			}
			s.InvalidateWorks(ctx)
		}
	}
}
