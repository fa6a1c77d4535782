// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/config"
	"github.com/tomtom215/kinoscope/internal/models"
	"github.com/tomtom215/kinoscope/internal/predcache"
	"github.com/tomtom215/kinoscope/internal/staleness"
	"github.com/tomtom215/kinoscope/internal/taskrunner"
)

// JobTypeRefresh is the task runner job type for refresh work.
const JobTypeRefresh = "refresh"

// Recommendation levels, strongest first.
const (
	RecommendationRequired    = "refresh_required"
	RecommendationRecommended = "refresh_recommended"
	RecommendationSuggested   = "refresh_suggested"
	RecommendationUpToDate    = "up_to_date"
)

// Request is the refresh job payload. Empty slices mean "all supported
// decades" and "all active profiles" respectively, resolved at execution
// time so a queued full refresh picks up profiles added after submission.
type Request struct {
	Decades    []int    `json:"decades,omitempty"`
	ProfileIDs []string `json:"profile_ids,omitempty"`

	// Full marks a whole-matrix refresh; on success the entire ledger is
	// cleared instead of just the refreshed decades.
	Full bool `json:"full,omitempty"`
}

// JobRunner is the task runner surface the manager uses.
type JobRunner interface {
	Submit(ctx context.Context, jobType string, payload any) (*taskrunner.Job, error)
	Active() ([]*taskrunner.Job, error)
	History(limit int) ([]*taskrunner.Job, error)
	CancelPending() (int, error)
}

// Ledger is the staleness tracker surface the manager uses.
type Ledger interface {
	Report(ctx context.Context, lastRefresh *time.Time) (*staleness.Report, error)
	Clear(ctx context.Context) error
	ClearDecades(ctx context.Context, decades []int) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// CacheAdmin is the prediction cache surface the manager uses.
type CacheAdmin interface {
	IsStale(ctx context.Context, decade int, profileID string, maxAge time.Duration) (bool, error)
	AgeStats(ctx context.Context) (*predcache.AgeStats, error)
	DeleteAll(ctx context.Context) error
}

// Progress describes the most recent running refresh job.
type Progress struct {
	JobID     string    `json:"job_id"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Manager orchestrates refreshes: submission, progress, history, the
// recommendation policy, and forced full rebuilds. The in-progress check is
// advisory only; duplicate submissions are safe because the final cache
// state per key is decided by the last upsert to complete.
type Manager struct {
	cfg      config.RefreshConfig
	runner   JobRunner
	executor *Executor
	cache    CacheAdmin
	ledger   Ledger
	movies   MovieSource
	logger   zerolog.Logger
}

// NewManager creates a refresh manager.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewManager(cfg config.RefreshConfig, runner JobRunner, executor *Executor, cache CacheAdmin, ledger Ledger, movies MovieSource, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		runner:   runner,
		executor: executor,
		cache:    cache,
		ledger:   ledger,
		movies:   movies,
		logger:   logger.With().Str("component", "refresh").Logger(),
	}
}

// Handler returns the task runner handler for refresh jobs. Register it
// under JobTypeRefresh before starting the runner.
func (m *Manager) Handler() taskrunner.Handler {
	return func(ctx context.Context, job *taskrunner.Job, progress taskrunner.ProgressFunc) error {
		var req Request
		if len(job.Payload) > 0 {
			if err := json.Unmarshal(job.Payload, &req); err != nil {
				return fmt.Errorf("decode refresh request: %w", err)
			}
		}

		decades := req.Decades
		if len(decades) == 0 {
			decades = models.SupportedDecades()
		}
		profileIDs := req.ProfileIDs
		if len(profileIDs) == 0 {
			ids, err := m.movies.ActiveProfileIDs(ctx)
			if err != nil {
				return fmt.Errorf("resolve active profiles: %w", err)
			}
			profileIDs = ids
		}

		if err := m.executor.Run(ctx, decades, profileIDs, progress); err != nil {
			return err
		}

		// Successful refresh retires the staleness signal it answered.
		if req.Full || len(req.Decades) == 0 {
			if err := m.ledger.Clear(ctx); err != nil {
				m.logger.Warn().Err(err).Msg("ledger clear after full refresh failed")
			}
		} else if err := m.ledger.ClearDecades(ctx, decades); err != nil {
			m.logger.Warn().Err(err).Ints("decades", decades).Msg("ledger clear after refresh failed")
		}
		return nil
	}
}

// RefreshAll submits a full-matrix refresh. Optional profile ids and decades
// narrow the sweep; nil means everything.
func (m *Manager) RefreshAll(ctx context.Context, profileIDs []string, decades []int) (*taskrunner.Job, error) {
	if err := validateDecades(decades); err != nil {
		return nil, err
	}
	return m.runner.Submit(ctx, JobTypeRefresh, Request{
		Decades:    decades,
		ProfileIDs: profileIDs,
		Full:       len(decades) == 0,
	})
}

// RefreshDecades submits a refresh for the given decades across all active
// profiles.
func (m *Manager) RefreshDecades(ctx context.Context, decades []int) (*taskrunner.Job, error) {
	if len(decades) == 0 {
		return nil, fmt.Errorf("refresh_decades requires at least one decade")
	}
	if err := validateDecades(decades); err != nil {
		return nil, err
	}
	return m.runner.Submit(ctx, JobTypeRefresh, Request{Decades: decades})
}

// RefreshOne submits a refresh for a single (decade, profile) pair.
func (m *Manager) RefreshOne(ctx context.Context, decade int, profileID string) (*taskrunner.Job, error) {
	if err := validateDecades([]int{decade}); err != nil {
		return nil, err
	}
	return m.runner.Submit(ctx, JobTypeRefresh, Request{
		Decades:    []int{decade},
		ProfileIDs: []string{profileID},
	})
}

func validateDecades(decades []int) error {
	for _, d := range decades {
		if !models.IsSupportedDecade(d) {
			return fmt.Errorf("unsupported decade %d", d)
		}
	}
	return nil
}

// InProgress reports whether any refresh job is queued or running.
func (m *Manager) InProgress() (bool, error) {
	active, err := m.runner.Active()
	if err != nil {
		return false, err
	}
	for _, job := range active {
		if job.Type == JobTypeRefresh {
			return true, nil
		}
	}
	return false, nil
}

// Progress returns the newest running refresh job's progress, or nil when
// nothing is running.
func (m *Manager) Progress() (*Progress, error) {
	active, err := m.runner.Active()
	if err != nil {
		return nil, err
	}
	for _, job := range active {
		if job.Type != JobTypeRefresh || job.State != taskrunner.StateRunning {
			continue
		}
		p := &Progress{
			JobID:   job.ID,
			Percent: job.Progress.Percent,
			Message: job.Progress.Message,
		}
		if job.AttemptedAt != nil {
			p.StartedAt = *job.AttemptedAt
		}
		return p, nil
	}
	return nil, nil
}

// CancelAll cancels queued refresh work. Running jobs finish on their own.
func (m *Manager) CancelAll() (int, error) {
	return m.runner.CancelPending()
}

// History returns recent terminal refresh outcomes, including error detail
// for failed runs. Failed jobs are not retried automatically; retry is an
// operator decision.
func (m *Manager) History(limit int) ([]*taskrunner.Job, error) {
	jobs, err := m.runner.History(limit)
	if err != nil {
		return nil, err
	}
	out := jobs[:0]
	for _, job := range jobs {
		if job.Type == JobTypeRefresh {
			out = append(out, job)
		}
	}
	return out, nil
}

// Stale reports whether the (decade, profile) entry is absent or older than
// the configured maximum cache age. Read paths consult this before serving a
// cached prediction set.
func (m *Manager) Stale(ctx context.Context, decade int, profileID string) (bool, error) {
	if err := validateDecades([]int{decade}); err != nil {
		return false, err
	}
	return m.cache.IsStale(ctx, decade, profileID, m.cfg.MaxCacheAge)
}

// Recommendation applies the decision policy over cache age and the change
// ledger. All thresholds come from configuration.
func (m *Manager) Recommendation(ctx context.Context) (string, error) {
	ages, err := m.cache.AgeStats(ctx)
	if err != nil {
		return "", fmt.Errorf("cache age stats: %w", err)
	}
	if ages.Count == 0 {
		return RecommendationRequired, nil
	}

	// The newest entry's calculation time approximates the last refresh.
	lastRefresh := time.Now().UTC().Add(-ages.Newest)
	report, err := m.ledger.Report(ctx, &lastRefresh)
	if err != nil {
		return "", fmt.Errorf("staleness report: %w", err)
	}

	switch {
	case report.Changes.Total > m.cfg.TotalChangesHigh:
		return RecommendationRecommended, nil
	case report.Changes.Festivals > m.cfg.FestivalChangesHigh:
		return RecommendationRecommended, nil
	case ages.Oldest > m.cfg.LongCacheAge:
		return RecommendationRecommended, nil
	case report.Changes.Total > m.cfg.TotalChangesModerate:
		return RecommendationSuggested, nil
	case ages.Oldest > m.cfg.MediumCacheAge && report.Changes.Total > 0:
		return RecommendationSuggested, nil
	default:
		return RecommendationUpToDate, nil
	}
}

// ClearAllCaches deletes every cache entry and wipes the staleness ledger.
// Used for forced full rebuilds.
func (m *Manager) ClearAllCaches(ctx context.Context) error {
	if err := m.cache.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete cache entries: %w", err)
	}
	if err := m.ledger.Clear(ctx); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	m.logger.Info().Msg("all caches cleared")
	return nil
}

// PruneLedger removes ledger rows older than the configured retention.
func (m *Manager) PruneLedger(ctx context.Context) (int64, error) {
	if m.cfg.LedgerRetention <= 0 {
		return 0, nil
	}
	return m.ledger.Prune(ctx, time.Now().Add(-m.cfg.LedgerRetention))
}
