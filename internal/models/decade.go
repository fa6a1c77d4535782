// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package models

import "time"

// Decade bucket bounds. The canonical list starts in the silent era and the
// cache key space currently ends at the 2020s.
const (
	FirstDecade = 1920
	LastDecade  = 2020
)

// DecadeOf buckets a release year into its decade (1975 -> 1970).
// Returns 0 for non-positive years.
func DecadeOf(year int) int {
	if year <= 0 {
		return 0
	}
	return year / 10 * 10
}

// DecadeOfDate buckets a release date into its decade.
// A nil date yields 0, meaning the decade is indeterminate.
func DecadeOfDate(date *time.Time) int {
	if date == nil {
		return 0
	}
	return DecadeOf(date.Year())
}

// SupportedDecades returns every decade the cache key space covers,
// ascending.
func SupportedDecades() []int {
	decades := make([]int, 0, (LastDecade-FirstDecade)/10+1)
	for d := FirstDecade; d <= LastDecade; d += 10 {
		decades = append(decades, d)
	}
	return decades
}

// IsSupportedDecade reports whether d is a valid cache decade bucket.
func IsSupportedDecade(d int) bool {
	return d >= FirstDecade && d <= LastDecade && d%10 == 0
}
