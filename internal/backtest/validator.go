// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package backtest validates the scoring engine against decades whose
// canonical-list membership is already settled. For each such decade it
// scores every eligible movie, takes the top K ranked by score (K = size of
// the confirmed ground-truth set), and measures the overlap. Comparing
// profiles this way is how an operator picks a better default weighting.
package backtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/models"
	"github.com/tomtom215/kinoscope/internal/scoring"
)

// Store is the movie store surface the validator reads. Decades with ground
// truth are discovered dynamically, not hardcoded, so validation adapts as
// new decades accumulate confirmed entries.
type Store interface {
	MoviesByDecade(ctx context.Context, decade int) ([]models.Movie, error)
	CanonicalMoviesByDecade(ctx context.Context, decade int) ([]models.Movie, error)
	GroundTruthDecades(ctx context.Context) ([]int, error)
	Profiles(ctx context.Context) ([]models.WeightingProfile, error)
}

// Scorer ranks candidate movies under a profile.
type Scorer interface {
	ScoreBatch(ctx context.Context, movies []models.Movie, profile models.WeightingProfile) ([]scoring.BatchItem, error)
}

// DecadeResult is the validation outcome for one decade under one profile.
type DecadeResult struct {
	Decade           int     `json:"decade"`
	GroundTruthCount int     `json:"ground_truth_count"`
	Correct          int     `json:"correct"`
	Accuracy         float64 `json:"accuracy"`
	Missed           int     `json:"missed"`
	FalsePositives   int     `json:"false_positives"`

	// TopTitles is the predicted top-K, ranked, for operator inspection.
	TopTitles []string `json:"top_titles,omitempty"`
}

// ProfileResult aggregates validation across every ground-truth decade.
// OverallAccuracy is weighted by each decade's ground-truth count, so a
// decade with twenty confirmed entries counts twenty times a decade with one.
type ProfileResult struct {
	ProfileID       string         `json:"profile_id"`
	ProfileName     string         `json:"profile_name,omitempty"`
	OverallAccuracy float64        `json:"overall_accuracy"`
	TotalTruth      int            `json:"total_ground_truth"`
	TotalCorrect    int            `json:"total_correct"`
	Decades         []DecadeResult `json:"decades"`
}

// Comparison ranks every known profile by overall accuracy and reports
// which profile scored highest in each decade.
type Comparison struct {
	Rankings      []ProfileResult `json:"rankings"`
	DecadeWinners map[int]string  `json:"decade_winners"`
}

// Validator backtests profiles against confirmed canonical membership.
type Validator struct {
	store  Store
	scorer Scorer
	logger zerolog.Logger
}

// New creates a validator.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(store Store, scorer Scorer, logger zerolog.Logger) *Validator {
	return &Validator{
		store:  store,
		scorer: scorer,
		logger: logger.With().Str("component", "backtest").Logger(),
	}
}

// ValidateDecade scores all eligible movies of one decade and measures the
// predicted top-K against the confirmed canonical set.
func (v *Validator) ValidateDecade(ctx context.Context, decade int, profile models.WeightingProfile) (*DecadeResult, error) {
	truth, err := v.store.CanonicalMoviesByDecade(ctx, decade)
	if err != nil {
		return nil, fmt.Errorf("load ground truth for %d: %w", decade, err)
	}
	result := &DecadeResult{Decade: decade, GroundTruthCount: len(truth)}
	if len(truth) == 0 {
		return result, nil
	}

	candidates, err := v.store.MoviesByDecade(ctx, decade)
	if err != nil {
		return nil, fmt.Errorf("load candidates for %d: %w", decade, err)
	}

	items, err := v.scorer.ScoreBatch(ctx, candidates, profile)
	if err != nil {
		return nil, fmt.Errorf("score %d: %w", decade, err)
	}
	scoring.SortByScore(items)
	top := scoring.TopN(items, len(truth))

	truthIDs := make(map[int64]bool, len(truth))
	for _, m := range truth {
		truthIDs[m.ID] = true
	}

	for _, item := range top {
		result.TopTitles = append(result.TopTitles, item.Movie.Title)
		if truthIDs[item.Movie.ID] {
			result.Correct++
		} else {
			result.FalsePositives++
		}
	}
	result.Missed = len(truth) - result.Correct
	result.Accuracy = float64(result.Correct) / float64(len(truth)) * 100

	v.logger.Debug().
		Int("decade", decade).
		Str("profile_id", profile.ID).
		Int("correct", result.Correct).
		Int("of", len(truth)).
		Msg("decade validated")
	return result, nil
}

// ValidateAllDecades runs ValidateDecade for every decade with ground truth
// and aggregates a truth-count-weighted overall accuracy.
func (v *Validator) ValidateAllDecades(ctx context.Context, profile models.WeightingProfile) (*ProfileResult, error) {
	decades, err := v.store.GroundTruthDecades(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover ground-truth decades: %w", err)
	}

	result := &ProfileResult{ProfileID: profile.ID, ProfileName: profile.Name}
	for _, decade := range decades {
		dr, err := v.ValidateDecade(ctx, decade, profile)
		if err != nil {
			return nil, err
		}
		result.Decades = append(result.Decades, *dr)
		result.TotalTruth += dr.GroundTruthCount
		result.TotalCorrect += dr.Correct
	}
	if result.TotalTruth > 0 {
		result.OverallAccuracy = float64(result.TotalCorrect) / float64(result.TotalTruth) * 100
	}
	return result, nil
}

// CompareProfiles validates every known profile and ranks them by overall
// accuracy, reporting per-decade winners.
func (v *Validator) CompareProfiles(ctx context.Context) (*Comparison, error) {
	profiles, err := v.store.Profiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	cmp := &Comparison{DecadeWinners: make(map[int]string)}
	bestAccuracy := make(map[int]float64)

	for _, profile := range profiles {
		pr, err := v.ValidateAllDecades(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("validate profile %q: %w", profile.ID, err)
		}
		cmp.Rankings = append(cmp.Rankings, *pr)

		for _, dr := range pr.Decades {
			if dr.GroundTruthCount == 0 {
				continue
			}
			if best, seen := bestAccuracy[dr.Decade]; !seen || dr.Accuracy > best {
				bestAccuracy[dr.Decade] = dr.Accuracy
				cmp.DecadeWinners[dr.Decade] = profile.ID
			}
		}
	}

	// Rank by overall accuracy descending, profile id as tiebreaker.
	sort.SliceStable(cmp.Rankings, func(i, j int) bool {
		if cmp.Rankings[i].OverallAccuracy != cmp.Rankings[j].OverallAccuracy {
			return cmp.Rankings[i].OverallAccuracy > cmp.Rankings[j].OverallAccuracy
		}
		return cmp.Rankings[i].ProfileID < cmp.Rankings[j].ProfileID
	})
	return cmp, nil
}
