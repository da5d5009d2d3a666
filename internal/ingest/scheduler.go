// Package ingest runs the periodic weather ingestion cycle.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
)

// Fetcher downloads one snapshot of observations for the catalog stations.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.Observation, error)
}

// ObservationWriter stores a snapshot. Partial success is reported as an error.
type ObservationWriter interface {
	PutAll(ctx context.Context, obs []domain.Observation) error
}

// Publisher forwards stored observations to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, cycleID string, obs []domain.Observation) error
}

// ParseSchedule accepts a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 10m".
func ParseSchedule(expr string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	if s.Next(time.Now()).IsZero() {
		return nil, fmt.Errorf("parse schedule %q: never fires", expr)
	}
	return s, nil
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPublisher publishes every fully stored snapshot.
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// Scheduler fetches the feed and stores the result on a cron schedule. One
// cycle runs immediately on start; cycles never overlap.
type Scheduler struct {
	fetcher   Fetcher
	writer    ObservationWriter
	publisher Publisher
	schedule  cron.Schedule
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Scheduler.
func New(f Fetcher, w ObservationWriter, schedule cron.Schedule, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:  f,
		writer:   w,
		schedule: schedule,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckReadiness returns nil once a cycle has stored every fetched observation.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no ingestion cycle has completed yet")
	}
	return nil
}

// Run executes cycles until the context is cancelled. It fails when the
// schedule stops producing activation times.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started")
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	_ = s.RunCycle(ctx)

	for {
		now := s.clock.Now()
		next := s.schedule.Next(now)
		if next.IsZero() {
			s.logger.Error("schedule has no next activation", "after", now)
			return errors.New("schedule has no next activation")
		}
		timer := s.clock.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-timer.Chan():
		}

		_ = s.RunCycle(ctx)
	}
}

// RunCycle performs one fetch-store-publish pass. Failures are logged and
// counted here; the returned error is informational.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	logger := s.logger.With("cycle_id", cycleID)
	start := s.clock.Now()

	obs, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		outcome := "fetch_error"
		if errors.Is(err, domain.ErrParse) {
			outcome = "parse_error"
		}
		s.metrics.IngestCycles.WithLabelValues(outcome).Inc()
		logger.Error("ingestion cycle abandoned", "error", err, "outcome", outcome)
		return err
	}

	if err := s.writer.PutAll(ctx, obs); err != nil {
		s.metrics.IngestCycles.WithLabelValues("partial").Inc()
		logger.Warn("ingestion cycle stored partially", "error", err, "observations", len(obs))
		return err
	}

	s.metrics.ObservationsStored.Add(float64(len(obs)))
	s.metrics.IngestCycles.WithLabelValues("success").Inc()
	s.metrics.IngestCycleDuration.Observe(s.clock.Since(start).Seconds())
	s.metrics.LastIngestSuccess.Set(float64(s.clock.Now().Unix()))
	s.ready.Store(true)
	logger.Info("ingestion cycle complete", "observations", len(obs))

	if s.publisher != nil && len(obs) > 0 {
		if err := s.publisher.Publish(ctx, cycleID, obs); err != nil {
			s.metrics.PublishErrors.Inc()
			logger.Warn("publish observations failed", "error", err)
		} else {
			s.metrics.ObservationsPublished.Add(float64(len(obs)))
		}
	}
	return nil
}
