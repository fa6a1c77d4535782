// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package refresh

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/kinoscope/internal/config"
)

// Scheduler periodically turns refresh recommendations into submissions and
// prunes the staleness ledger. It runs as a suture service under the process
// supervisor. Automatic submissions are rate limited so a persistently
// stale system does not pile up duplicate jobs between completions.
type Scheduler struct {
	cfg     config.RefreshConfig
	manager *Manager
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewScheduler creates the background refresh scheduler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewScheduler(cfg config.RefreshConfig, manager *Manager, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		manager: manager,
		limiter: rate.NewLimiter(rate.Limit(cfg.SubmitRate), cfg.SubmitBurst),
		logger:  logger.With().Str("component", "refresh.scheduler").Logger(),
	}
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	interval := s.cfg.SchedulerInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("refresh scheduler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if removed, err := s.manager.PruneLedger(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("ledger prune failed")
	} else if removed > 0 {
		s.logger.Info().Int64("removed", removed).Msg("ledger pruned")
	}

	rec, err := s.manager.Recommendation(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("recommendation check failed")
		return
	}
	if rec != RecommendationRequired && rec != RecommendationRecommended {
		s.logger.Debug().Str("recommendation", rec).Msg("no refresh needed")
		return
	}

	inProgress, err := s.manager.InProgress()
	if err != nil {
		s.logger.Error().Err(err).Msg("in-progress check failed")
		return
	}
	if inProgress {
		s.logger.Debug().Msg("refresh already in progress, skipping")
		return
	}

	if !s.limiter.Allow() {
		s.logger.Debug().Str("recommendation", rec).Msg("submission rate limited")
		return
	}

	job, err := s.manager.RefreshAll(ctx, nil, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("automatic refresh submission failed")
		return
	}
	s.logger.Info().
		Str("job_id", job.ID).
		Str("recommendation", rec).
		Msg("automatic refresh submitted")
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "refresh-scheduler"
}
