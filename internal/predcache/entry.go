// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package predcache

import (
	"sort"
	"time"

	"github.com/tomtom215/kinoscope/internal/scoring"
)

// Confidence tier thresholds over likelihood percentage.
const (
	ConfidenceHighMin   = 70.0
	ConfidenceMediumMin = 40.0
)

// MovieScore is the compact per-movie record stored in a cache entry.
type MovieScore struct {
	Title           string                  `json:"title"`
	Score           float64                 `json:"score"`
	Likelihood      float64                 `json:"likelihood"`
	ReleaseDate     string                  `json:"release_date,omitempty"`
	Year            int                     `json:"year,omitempty"`
	OnCanonicalList bool                    `json:"on_canonical_list"`
	Breakdown       []scoring.CategoryScore `json:"breakdown,omitempty"`
}

// Statistics summarizes one cached prediction set.
type Statistics struct {
	Count          int     `json:"count"`
	AverageScore   float64 `json:"average_score"`
	MedianScore    float64 `json:"median_score"`
	HighConfidence int     `json:"high_confidence"`
	MedConfidence  int     `json:"med_confidence"`
	LowConfidence  int     `json:"low_confidence"`
}

// Entry is the unit of the prediction cache: the full ranked result set for
// one (decade, profile) key plus summary statistics and provenance metadata.
type Entry struct {
	Decade      int    `json:"decade"`
	ProfileID   string `json:"profile_id"`
	ProfileName string `json:"profile_name,omitempty"`

	// MovieScores is keyed by decimal movie id. Titles recur across decades
	// and remakes, so they live inside the record, never in the key.
	MovieScores map[string]MovieScore `json:"movie_scores"`
	Statistics  Statistics            `json:"statistics"`
	Metadata    map[string]any        `json:"metadata,omitempty"`

	// CalculatedAt is when this result set was computed; replaced on upsert.
	CalculatedAt time.Time `json:"calculated_at"`

	// CreatedAt is when the key first appeared; preserved across upserts.
	CreatedAt time.Time `json:"created_at"`
}

// ComputeStatistics derives summary statistics from a score map.
func ComputeStatistics(scores map[string]MovieScore) Statistics {
	stats := Statistics{Count: len(scores)}
	if stats.Count == 0 {
		return stats
	}

	values := make([]float64, 0, len(scores))
	sum := 0.0
	for _, ms := range scores {
		values = append(values, ms.Score)
		sum += ms.Score
		switch {
		case ms.Likelihood >= ConfidenceHighMin:
			stats.HighConfidence++
		case ms.Likelihood >= ConfidenceMediumMin:
			stats.MedConfidence++
		default:
			stats.LowConfidence++
		}
	}

	sort.Float64s(values)
	stats.AverageScore = sum / float64(len(values))
	mid := len(values) / 2
	if len(values)%2 == 0 {
		stats.MedianScore = (values[mid-1] + values[mid]) / 2
	} else {
		stats.MedianScore = values[mid]
	}
	return stats
}
