package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
	"github.com/adsparkhq/adspark-backend/pkg/metrics"
)

const videoSweepJob = "video_pending_sweep"

type staleJobStore interface {
	ListStaleVideoPending(ctx context.Context, before time.Time) ([]models.AdJob, error)
	ResetVideoStatus(ctx context.Context, id string) error
}

// Sweeper releases video claims that never completed so owners can retry.
type Sweeper struct {
	jobs     staleJobStore
	logg     *logger.Logger
	metrics  *metrics.CronJobMetrics
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

type SweeperParams struct {
	Jobs     staleJobStore
	Logger   *logger.Logger
	Metrics  *metrics.CronJobMetrics
	TTL      time.Duration
	Interval time.Duration
}

// NewSweeper builds the stale video claim sweeper.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Jobs == nil {
		return nil, errors.New("job store required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.TTL <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if params.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	return &Sweeper{
		jobs:     params.Jobs,
		logg:     params.Logger,
		metrics:  params.Metrics,
		ttl:      params.TTL,
		interval: params.Interval,
		now:      time.Now,
	}, nil
}

// Run executes the sweep loop until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Sweep(ctx); err != nil {
		s.logg.Error(ctx, "video pending sweep failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "video pending sweeper context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logg.Error(ctx, "video pending sweep failed", err)
			}
		}
	}
}

// Sweep resets every video claim older than the TTL.
func (s *Sweeper) Sweep(ctx context.Context) error {
	start := s.now()
	cutoff := start.UTC().Add(-s.ttl)

	stale, err := s.jobs.ListStaleVideoPending(ctx, cutoff)
	if err != nil {
		s.metrics.IncFailure(videoSweepJob)
		return fmt.Errorf("list stale video claims: %w", err)
	}

	var errs error
	released := 0
	for _, job := range stale {
		if err := s.jobs.ResetVideoStatus(ctx, job.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reset job %s: %w", job.ID, err))
			continue
		}
		released++
		logCtx := s.logg.WithField(ctx, "ad_id", job.ID)
		s.logg.Warn(logCtx, "released stale video claim")
	}

	s.metrics.ObserveDuration(videoSweepJob, s.now().Sub(start))
	if errs != nil {
		s.metrics.IncFailure(videoSweepJob)
		return errs
	}
	s.metrics.IncSuccess(videoSweepJob)
	if released > 0 {
		logCtx := s.logg.WithField(ctx, "released", released)
		s.logg.Info(logCtx, "video pending sweep completed")
	}
	return nil
}
