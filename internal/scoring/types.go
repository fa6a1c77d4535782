// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package scoring

import "github.com/tomtom215/kinoscope/internal/models"

// Category identifiers, used as breakdown keys and metric labels.
const (
	CategoryCriticalAcclaim     = "critical_acclaim"
	CategoryFestivalRecognition = "festival_recognition"
	CategoryCulturalImpact      = "cultural_impact"
	CategoryTechnicalInnovation = "technical_innovation"
	CategoryAuteurRecognition   = "auteur_recognition"
)

// Categories lists the five scoring categories in canonical order.
var Categories = []string{
	CategoryCriticalAcclaim,
	CategoryFestivalRecognition,
	CategoryCulturalImpact,
	CategoryTechnicalInnovation,
	CategoryAuteurRecognition,
}

// CategoryScore is one row of a score breakdown. Weighted is always
// Raw * Weight so breakdowns sum back to the total and stay auditable.
type CategoryScore struct {
	Category string  `json:"category"`
	Raw      float64 `json:"raw"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// ScoreResult is the outcome of scoring one movie under one profile.
// It is ephemeral: recomputed on every call and persisted only inside
// prediction cache entries.
type ScoreResult struct {
	MovieID    int64           `json:"movie_id"`
	Total      float64         `json:"total"`
	Likelihood float64         `json:"likelihood"`
	Breakdown  []CategoryScore `json:"breakdown"`
	ProfileID  string          `json:"profile_id"`
}

// BatchItem pairs a movie with its score in batch output.
type BatchItem struct {
	Movie  models.Movie `json:"movie"`
	Result ScoreResult  `json:"result"`
}
