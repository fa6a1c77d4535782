// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package models defines the shared domain types for the prediction engine:
// movies, per-movie scoring signals, weighting profiles, and decade helpers.
//
// This core only reads movie data; the ingestion subsystem owns writes.
package models

import "time"

// Movie is the subset of movie data the scoring engine needs.
type Movie struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	Budget      int64      `json:"budget"`
	Revenue     int64      `json:"revenue"`
	Popularity  float64    `json:"popularity"`
	VoteAverage float64    `json:"vote_average"` // 0-10 scale
	VoteCount   int        `json:"vote_count"`
	Genres      []string   `json:"genres,omitempty"`
	Language    string     `json:"language,omitempty"`

	// OnCanonicalList marks confirmed membership in the canonical
	// must-see list (ground truth; never written by this core).
	OnCanonicalList bool `json:"on_canonical_list"`
}

// Year returns the release year, or 0 when the release date is unknown.
func (m *Movie) Year() int {
	if m.ReleaseDate == nil {
		return 0
	}
	return m.ReleaseDate.Year()
}

// Rating is one critic or audience rating from a single source.
type Rating struct {
	MovieID int64   `json:"movie_id"`
	Source  string  `json:"source"`
	Value   float64 `json:"value"`
	Scale   float64 `json:"scale"` // the source's native maximum, e.g. 10 or 100
}

// Normalized returns the rating on a 0-100 scale.
func (r *Rating) Normalized() float64 {
	if r.Scale <= 0 {
		return 0
	}
	return r.Value / r.Scale * 100
}

// Nomination is one festival award nomination or win.
type Nomination struct {
	ID       int64  `json:"id"`
	MovieID  int64  `json:"movie_id"`
	Festival string `json:"festival"`
	Category string `json:"category"`
	Year     int    `json:"year"`
	Won      bool   `json:"won"`
}

// MovieSignals bundles every per-movie input to a scoring call.
// Sparse fields are legal; missing signals score as zero contribution.
type MovieSignals struct {
	Movie       Movie        `json:"movie"`
	Ratings     []Rating     `json:"ratings,omitempty"`
	Nominations []Nomination `json:"nominations,omitempty"`

	// DirectorCanonCounts holds, per credited director, how many of their
	// other works are already on the canonical list.
	DirectorCanonCounts []int `json:"director_canon_counts,omitempty"`
}

// WeightingProfile is a named set of relative category weights.
// Profiles are reference data administered outside this core, except for
// transient inline profiles built from caller-supplied weights.
type WeightingProfile struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Weights Weights `json:"weights"`
}

// Weights holds the relative weight of each scoring category.
// Weights are non-negative and need not sum to 1.0.
type Weights struct {
	CriticalAcclaim     float64 `json:"critical_acclaim"`
	FestivalRecognition float64 `json:"festival_recognition"`
	CulturalImpact      float64 `json:"cultural_impact"`
	TechnicalInnovation float64 `json:"technical_innovation"`
	AuteurRecognition   float64 `json:"auteur_recognition"`
}
