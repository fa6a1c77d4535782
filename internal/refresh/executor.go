// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package refresh orchestrates prediction recomputation: it decides when
// cached rankings need rebuilding, submits background jobs to the task
// runner, and executes the per-(decade, profile) scoring work inside those
// jobs. Duplicate submissions are allowed and safe; the cache's atomic
// replace-on-conflict upsert makes the last completed write per key win.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/kinoscope/internal/models"
	"github.com/tomtom215/kinoscope/internal/predcache"
	"github.com/tomtom215/kinoscope/internal/scoring"
)

// MovieSource is the read-only movie store view the executor needs.
// Implemented by the movie store.
type MovieSource interface {
	MoviesByDecade(ctx context.Context, decade int) ([]models.Movie, error)
	ActiveProfileIDs(ctx context.Context) ([]string, error)
}

// Scorer produces ranked scores for a candidate set. Implemented by the
// batch scorer.
type Scorer interface {
	ScoreBatch(ctx context.Context, movies []models.Movie, profile models.WeightingProfile) ([]scoring.BatchItem, error)
}

// Cache is the executor's write surface on the prediction cache.
type Cache interface {
	Upsert(ctx context.Context, decade int, profileID string, entry *predcache.Entry) error
}

// Executor performs the scoring work for refresh jobs. Signal preloads run
// behind a circuit breaker so a broken store fails fast instead of grinding
// through every remaining pair.
type Executor struct {
	movies   MovieSource
	profiles *scoring.Resolver
	scorer   Scorer
	cache    Cache
	breaker  *gobreaker.CircuitBreaker[[]scoring.BatchItem]
	version  string
	logger   zerolog.Logger
}

// NewExecutor creates a refresh executor. version is recorded in entry
// metadata as algorithm_version.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewExecutor(movies MovieSource, profiles *scoring.Resolver, scorer Scorer, cache Cache, version string, logger zerolog.Logger) *Executor {
	breaker := gobreaker.NewCircuitBreaker[[]scoring.BatchItem](gobreaker.Settings{
		Name:    "refresh-scoring",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Executor{
		movies:   movies,
		profiles: profiles,
		scorer:   scorer,
		cache:    cache,
		breaker:  breaker,
		version:  version,
		logger:   logger.With().Str("component", "refresh.executor").Logger(),
	}
}

// RefreshPair recomputes and upserts the cache entry for one
// (decade, profile) key. An empty candidate set still writes an entry, so
// coverage reflects "computed, nothing eligible" rather than "never ran".
func (e *Executor) RefreshPair(ctx context.Context, decade int, profileID string) error {
	// Unknown profile ids resolve to the default profile, keeping the
	// recompute path available; the cache key stays the requested id.
	profile := e.profiles.Resolve(ctx, scoring.ByReference(profileID))

	candidates, err := e.movies.MoviesByDecade(ctx, decade)
	if err != nil {
		return fmt.Errorf("load candidates for %d: %w", decade, err)
	}

	items, err := e.breaker.Execute(func() ([]scoring.BatchItem, error) {
		return e.scorer.ScoreBatch(ctx, candidates, profile)
	})
	if err != nil {
		return fmt.Errorf("score %d/%s: %w", decade, profileID, err)
	}

	scores := make(map[string]predcache.MovieScore, len(items))
	for _, item := range items {
		ms := predcache.MovieScore{
			Title:           item.Movie.Title,
			Score:           item.Result.Total,
			Likelihood:      item.Result.Likelihood,
			Year:            item.Movie.Year(),
			OnCanonicalList: item.Movie.OnCanonicalList,
			Breakdown:       item.Result.Breakdown,
		}
		if item.Movie.ReleaseDate != nil {
			ms.ReleaseDate = item.Movie.ReleaseDate.Format("2006-01-02")
		}
		// Keyed by movie id; titles are not unique within a decade.
		scores[strconv.FormatInt(item.Movie.ID, 10)] = ms
	}

	entry := &predcache.Entry{
		Decade:      decade,
		ProfileID:   profileID,
		ProfileName: profile.Name,
		MovieScores: scores,
		Statistics:  predcache.ComputeStatistics(scores),
		Metadata: map[string]any{
			"algorithm_version": e.version,
			"candidate_count":   len(candidates),
		},
		CalculatedAt: time.Now().UTC(),
	}
	if err := e.cache.Upsert(ctx, decade, profileID, entry); err != nil {
		return fmt.Errorf("upsert %d/%s: %w", decade, profileID, err)
	}

	e.logger.Debug().
		Int("decade", decade).
		Str("profile_id", profileID).
		Int("candidates", len(candidates)).
		Msg("pair refreshed")
	return nil
}

// Run refreshes every (decade, profile) pair in the cross product, reporting
// progress after each pair. Pair failures are collected rather than aborting
// the sweep, so one bad decade does not block the rest; any failure makes
// the whole run fail so it lands in job history with detail.
func (e *Executor) Run(ctx context.Context, decades []int, profileIDs []string, progress func(percent float64, message string)) error {
	total := len(decades) * len(profileIDs)
	if total == 0 {
		return nil
	}

	var errs []error
	done := 0
	for _, decade := range decades {
		for _, profileID := range profileIDs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.RefreshPair(ctx, decade, profileID); err != nil {
				e.logger.Error().Err(err).Int("decade", decade).Str("profile_id", profileID).
					Msg("pair refresh failed")
				errs = append(errs, err)
			}
			done++
			if progress != nil {
				progress(float64(done)/float64(total)*100,
					fmt.Sprintf("refreshed %d/%d decade-profile pairs", done, total))
			}
		}
	}
	return errors.Join(errs...)
}
