package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type cacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(operation, status string)
}

// CacheService wraps the Redis-backed cache with enable switching and
// metrics. All methods are no-ops when caching is disabled, so callers never
// branch on configuration themselves.
type CacheService struct {
	repo    cacheRepository
	metrics cacheMetrics
	enabled bool
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCacheService constructs CacheService. metrics may be nil.
func NewCacheService(repo cacheRepository, metrics cacheMetrics, enabled bool, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, enabled: enabled, ttl: ttl, logger: logger}
}

// Enabled reports whether caching is switched on.
func (s *CacheService) Enabled() bool {
	return s.enabled && s.repo != nil
}

// Get loads a cached payload into dest. Returns ErrCacheMiss when disabled or
// absent.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !s.Enabled() {
		return appErrors.ErrCacheMiss
	}
	if err := s.repo.Get(ctx, key, dest); err != nil {
		if err == appErrors.ErrCacheMiss {
			s.record("get", "miss")
		} else {
			s.record("get", "error")
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return appErrors.ErrCacheMiss
	}
	s.record("get", "hit")
	return nil
}

// Set stores a payload under the configured TTL. Failures are logged, not
// surfaced: the cache is an optimisation, never a source of truth.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Set(ctx, key, value, s.ttl); err != nil {
		s.record("set", "error")
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.record("set", "ok")
}

// Invalidate drops every cached entry matching the pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.record("invalidate", "error")
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	s.record("invalidate", "ok")
}

func (s *CacheService) record(operation, status string) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(operation, status)
	}
}
