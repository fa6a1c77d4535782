// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/metrics"
	"github.com/tomtom215/kinoscope/internal/models"
)

// SignalProvider supplies bulk per-movie signal data for batch scoring.
// Each method loads rows for the whole movie set in a single pass.
// Implemented by the movie store.
type SignalProvider interface {
	RatingsForMovies(ctx context.Context, movieIDs []int64) (map[int64][]models.Rating, error)
	NominationsForMovies(ctx context.Context, movieIDs []int64) (map[int64][]models.Nomination, error)
	DirectorCanonCountsForMovies(ctx context.Context, movieIDs []int64) (map[int64][]int, error)
}

// BatchScorer scores many movies at once. It pre-loads all signal data in
// three bulk queries and then scores each movie purely from in-memory maps,
// producing results identical to element-wise Engine.Score calls.
type BatchScorer struct {
	engine  *Engine
	signals SignalProvider
	logger  zerolog.Logger
}

// NewBatchScorer creates a batch scorer over the given signal provider.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBatchScorer(engine *Engine, signals SignalProvider, logger zerolog.Logger) *BatchScorer {
	return &BatchScorer{
		engine:  engine,
		signals: signals,
		logger:  logger.With().Str("component", "batch_scorer").Logger(),
	}
}

// ScoreBatch scores every movie in the input under the given profile.
// Output order is unspecified; use SortByScore for ranked output.
func (b *BatchScorer) ScoreBatch(ctx context.Context, movies []models.Movie, profile models.WeightingProfile) ([]BatchItem, error) {
	if len(movies) == 0 {
		return nil, nil
	}
	start := time.Now()

	ids := make([]int64, len(movies))
	for i := range movies {
		ids[i] = movies[i].ID
	}

	ratings, err := b.signals.RatingsForMovies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("preload ratings: %w", err)
	}
	nominations, err := b.signals.NominationsForMovies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("preload nominations: %w", err)
	}
	canonCounts, err := b.signals.DirectorCanonCountsForMovies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("preload director canon counts: %w", err)
	}

	items := make([]BatchItem, 0, len(movies))
	for i := range movies {
		movie := movies[i]
		signals := models.MovieSignals{
			Movie:               movie,
			Ratings:             ratings[movie.ID],
			Nominations:         nominations[movie.ID],
			DirectorCanonCounts: canonCounts[movie.ID],
		}
		items = append(items, BatchItem{
			Movie:  movie,
			Result: b.engine.Score(signals, profile),
		})
	}

	metrics.BatchScoreDuration.Observe(time.Since(start).Seconds())
	metrics.BatchScoredMovies.Add(float64(len(items)))

	b.logger.Debug().
		Int("movies", len(items)).
		Str("profile_id", profile.ID).
		Dur("elapsed", time.Since(start)).
		Msg("batch scored")

	return items, nil
}

// SortByScore orders items by total score descending, breaking ties by
// title then id for stable rankings.
func SortByScore(items []BatchItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Result.Total != items[j].Result.Total {
			return items[i].Result.Total > items[j].Result.Total
		}
		if items[i].Movie.Title != items[j].Movie.Title {
			return items[i].Movie.Title < items[j].Movie.Title
		}
		return items[i].Movie.ID < items[j].Movie.ID
	})
}

// TopN returns the first n items of a ranked slice, or all of them when
// fewer exist.
func TopN(items []BatchItem, n int) []BatchItem {
	if n < 0 {
		n = 0
	}
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
