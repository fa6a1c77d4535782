// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package models

import (
	"testing"
	"time"
)

func TestDecadeOf(t *testing.T) {
	tests := []struct {
		year int
		want int
	}{
		{1975, 1970},
		{1920, 1920},
		{1929, 1920},
		{2000, 2000},
		{2023, 2020},
		{0, 0},
		{-5, 0},
	}
	for _, tt := range tests {
		if got := DecadeOf(tt.year); got != tt.want {
			t.Errorf("DecadeOf(%d) = %d, want %d", tt.year, got, tt.want)
		}
	}
}

func TestDecadeOfDate(t *testing.T) {
	if got := DecadeOfDate(nil); got != 0 {
		t.Errorf("DecadeOfDate(nil) = %d, want 0", got)
	}
	d := time.Date(1994, 9, 23, 0, 0, 0, 0, time.UTC)
	if got := DecadeOfDate(&d); got != 1990 {
		t.Errorf("DecadeOfDate(1994) = %d, want 1990", got)
	}
}

func TestSupportedDecades(t *testing.T) {
	decades := SupportedDecades()
	if len(decades) != 11 {
		t.Fatalf("expected 11 supported decades, got %d", len(decades))
	}
	if decades[0] != 1920 || decades[len(decades)-1] != 2020 {
		t.Errorf("decade range = [%d, %d], want [1920, 2020]", decades[0], decades[len(decades)-1])
	}
	for _, d := range decades {
		if !IsSupportedDecade(d) {
			t.Errorf("IsSupportedDecade(%d) = false, want true", d)
		}
	}
}

func TestIsSupportedDecadeRejectsOutOfRange(t *testing.T) {
	for _, d := range []int{1910, 2030, 1975, 0, -10} {
		if IsSupportedDecade(d) {
			t.Errorf("IsSupportedDecade(%d) = true, want false", d)
		}
	}
}

func TestRatingNormalized(t *testing.T) {
	tests := []struct {
		name   string
		rating Rating
		want   float64
	}{
		{"ten point scale", Rating{Value: 8.5, Scale: 10}, 85},
		{"hundred point scale", Rating{Value: 92, Scale: 100}, 92},
		{"five star scale", Rating{Value: 4, Scale: 5}, 80},
		{"zero scale", Rating{Value: 8, Scale: 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rating.Normalized(); got != tt.want {
				t.Errorf("Normalized() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestMovieYear(t *testing.T) {
	m := Movie{}
	if got := m.Year(); got != 0 {
		t.Errorf("Year() with nil date = %d, want 0", got)
	}
	d := time.Date(1941, 5, 1, 0, 0, 0, 0, time.UTC)
	m.ReleaseDate = &d
	if got := m.Year(); got != 1941 {
		t.Errorf("Year() = %d, want 1941", got)
	}
}
