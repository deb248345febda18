// Package sweeper evicts idle client window entries on a fixed cadence,
// bounding memory growth from transient or attacking addresses that never
// return.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"tillgate/internal/ratelimit/metrics"
	"tillgate/internal/ratelimit/store/client"
)

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithRetention(retention time.Duration) Option {
	return func(s *Sweeper) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

type Sweeper struct {
	store     client.Store
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	metrics   *metrics.Metrics
}

func New(store client.Store, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:     store,
		logger:    slog.Default(),
		interval:  10 * time.Minute,
		retention: 6 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the sweep loop until the context is canceled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			removed, err := s.RunOnce(ctx)
			duration := time.Since(start)

			if err != nil {
				s.logger.Error("ratelimit_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if s.metrics != nil {
					s.metrics.RecordSweep("error", 0, duration.Seconds())
				}
				continue
			}

			s.logger.Info("ratelimit_sweep_completed",
				"entries_evicted", removed,
				"duration_ms", duration.Milliseconds(),
			)
			if s.metrics != nil {
				s.metrics.RecordSweep("success", removed, duration.Seconds())
				if n, err := s.store.Len(ctx); err == nil {
					s.metrics.SetTrackedClients(n)
				}
			}

		case <-ctx.Done():
			s.logger.Info("ratelimit sweeper stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep. Logging is handled by the caller (Start).
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	return s.store.Sweep(ctx, s.retention)
}
