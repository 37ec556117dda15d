package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EliasBlind/UniBot/internal/models"
	"github.com/EliasBlind/UniBot/pkg/config"
)

type weekFetcher interface {
	Fetch(ctx context.Context, at time.Time) ([]models.Lesson, error)
}

type weekStore interface {
	ReplaceWeek(ctx context.Context, lessons []models.Lesson) error
	Week(ctx context.Context, at time.Time) ([]models.ScheduleRow, error)
}

// SyncService coordinates the refresh-on-read schedule cache. It owns the
// staleness deadline and guarantees at most one refresh in flight: a second
// caller observing Stale blocks on the mutex and finds the state Fresh once
// it acquires it.
type SyncService struct {
	fetcher   weekFetcher
	store     weekStore
	interval  time.Duration
	jitterMax time.Duration
	metrics   *MetricsService
	logger    *zap.Logger

	now    func() time.Time
	jitter func(max time.Duration) time.Duration

	mu            sync.Mutex
	nextRefreshAt time.Time
}

// NewSyncService constructs the coordinator in the Fresh state with the
// first refresh due one full interval from now.
func NewSyncService(fetcher weekFetcher, store weekStore, cfg config.ScheduleConfig, metrics *MetricsService, logger *zap.Logger) *SyncService {
	interval := cfg.UpdateInterval
	if interval <= 0 {
		interval = time.Hour
	}
	jitterMax := cfg.JitterMax
	if jitterMax < 0 {
		jitterMax = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &SyncService{
		fetcher:   fetcher,
		store:     store,
		interval:  interval,
		jitterMax: jitterMax,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		jitter:    uniformJitter,
	}
	s.nextRefreshAt = s.now().Add(interval)
	return s
}

// CurrentWeek refreshes the persisted snapshot when stale, then returns the
// current week's occurrences. A failed fetch is propagated and leaves the
// deadline untouched, so the next read retries.
func (s *SyncService) CurrentWeek(ctx context.Context) ([]models.ScheduleRow, error) {
	if err := s.refreshIfStale(ctx); err != nil {
		return nil, err
	}
	return s.store.Week(ctx, s.now())
}

func (s *SyncService) refreshIfStale(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Before(s.nextRefreshAt) {
		return nil
	}

	cycle := uuid.NewString()
	started := time.Now()
	s.logger.Info("schedule stale, refreshing", zap.String("cycle", cycle))

	lessons, err := s.fetcher.Fetch(ctx, now)
	if err != nil {
		s.metrics.RecordRefresh("fetch_error", time.Since(started))
		s.logger.Warn("refresh fetch failed", zap.String("cycle", cycle), zap.Error(err))
		return err
	}

	if err := s.store.ReplaceWeek(ctx, lessons); err != nil {
		// Prior snapshot stays intact; keep serving it and retry on the
		// next read.
		s.metrics.RecordRefresh("store_error", time.Since(started))
		s.logger.Error("refresh persist failed", zap.String("cycle", cycle), zap.Error(err))
		return nil
	}

	s.nextRefreshAt = now.Add(s.interval + s.jitter(s.jitterMax))
	s.metrics.RecordRefresh("ok", time.Since(started))
	s.logger.Info("schedule refreshed",
		zap.String("cycle", cycle),
		zap.Int("lessons", len(lessons)),
		zap.Time("next_refresh_at", s.nextRefreshAt),
	)
	return nil
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max) + 1))
}
