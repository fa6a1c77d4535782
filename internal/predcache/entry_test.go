// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package predcache

import (
	"math"
	"testing"
)

func score(s, likelihood float64) MovieScore {
	return MovieScore{Score: s, Likelihood: likelihood}
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil)
	if stats.Count != 0 || stats.AverageScore != 0 || stats.MedianScore != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
}

func TestComputeStatisticsOddCount(t *testing.T) {
	stats := ComputeStatistics(map[string]MovieScore{
		"a": score(10, 90),
		"b": score(30, 50),
		"c": score(80, 10),
	})

	if stats.Count != 3 {
		t.Errorf("count = %d", stats.Count)
	}
	if stats.AverageScore != 40 {
		t.Errorf("average = %v, want 40", stats.AverageScore)
	}
	if stats.MedianScore != 30 {
		t.Errorf("median = %v, want 30", stats.MedianScore)
	}
	if stats.HighConfidence != 1 || stats.MedConfidence != 1 || stats.LowConfidence != 1 {
		t.Errorf("tiers = %d/%d/%d, want 1/1/1",
			stats.HighConfidence, stats.MedConfidence, stats.LowConfidence)
	}
}

func TestComputeStatisticsEvenCountMedian(t *testing.T) {
	stats := ComputeStatistics(map[string]MovieScore{
		"a": score(10, 0),
		"b": score(20, 0),
		"c": score(60, 0),
		"d": score(90, 0),
	})

	if stats.MedianScore != 40 {
		t.Errorf("median = %v, want mean of middle pair 40", stats.MedianScore)
	}
	if math.Abs(stats.AverageScore-45) > 1e-9 {
		t.Errorf("average = %v, want 45", stats.AverageScore)
	}
	if stats.LowConfidence != 4 {
		t.Errorf("low confidence = %d, want 4", stats.LowConfidence)
	}
}

func TestComputeStatisticsTierBoundaries(t *testing.T) {
	stats := ComputeStatistics(map[string]MovieScore{
		"exactly high":   score(1, ConfidenceHighMin),
		"exactly medium": score(1, ConfidenceMediumMin),
		"just below":     score(1, ConfidenceMediumMin - 0.1),
	})

	if stats.HighConfidence != 1 || stats.MedConfidence != 1 || stats.LowConfidence != 1 {
		t.Errorf("tiers = %d/%d/%d, want boundary values inclusive",
			stats.HighConfidence, stats.MedConfidence, stats.LowConfidence)
	}
}
