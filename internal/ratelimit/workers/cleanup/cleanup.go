package cleanup

import (
	"context"
	"log/slog"
	"time"

	"showroom/internal/ratelimit/metrics"
)

// CleanupResult contains the results of one sweep.
type CleanupResult struct {
	WindowsRemoved int
	WindowsTracked int
	Duration       time.Duration
}

// WindowStore is the in-memory window store being swept.
type WindowStore interface {
	Cleanup(ctx context.Context, now time.Time) (int, error)
	Len() int
}

type Option func(*WindowCleanupService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *WindowCleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *WindowCleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *WindowCleanupService) {
		s.metrics = m
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *WindowCleanupService) {
		if now != nil {
			s.now = now
		}
	}
}

// WindowCleanupService periodically drops rate windows that hold no live
// admissions, so one-off visitors do not pin memory until LRU pressure evicts them.
type WindowCleanupService struct {
	store    WindowStore
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(store WindowStore, opts ...Option) *WindowCleanupService {
	service := &WindowCleanupService{
		store:    store,
		logger:   slog.Default(),
		interval: time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Start sweeps on every tick until ctx is cancelled.
func (s *WindowCleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Error("ratelimit_cleanup_failed", "error", err)
				continue
			}
			if res.WindowsRemoved > 0 {
				s.logger.Debug("ratelimit_cleanup_completed",
					"windows_removed", res.WindowsRemoved,
					"windows_tracked", res.WindowsTracked,
					"duration_ms", res.Duration.Milliseconds(),
				)
			}

		case <-ctx.Done():
			s.logger.Info("ratelimit cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep and records metrics.
func (s *WindowCleanupService) RunOnce(ctx context.Context) (*CleanupResult, error) {
	startTime := time.Now()
	removed, err := s.store.Cleanup(ctx, s.now())
	duration := time.Since(startTime)

	if s.metrics != nil {
		s.metrics.ObserveCleanupDuration(duration.Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementCleanupRuns("error")
		}
		return nil, err
	}

	tracked := s.store.Len()
	if s.metrics != nil {
		s.metrics.IncrementCleanupRuns("success")
		s.metrics.AddEvictions("idle", removed)
		s.metrics.SetTrackedKeys(tracked)
	}
	return &CleanupResult{WindowsRemoved: removed, WindowsTracked: tracked, Duration: duration}, nil
}
