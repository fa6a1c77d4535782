// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package scoring implements the multi-criterion weighted scoring engine that
// predicts how likely a movie is to join the canonical must-see list.
//
// # Categories
//
// Five independent sub-scores, each on a 0-100 scale:
//
//   - Critical acclaim: mean of ratings normalized to 0-100
//   - Festival recognition: best single nomination, prestige-tiered
//   - Cultural impact: ROI tier + popularity tier + genre/crossover bonuses
//   - Technical innovation: technical-category nominations, capped
//   - Auteur recognition: directors' prior canonical credits, tiered
//
// The weighted total is the plain weighted sum of sub-scores. A monotonic
// piecewise-linear curve compresses the total into a likelihood percentage
// that spreads strong candidates apart and clusters weak ones near zero.
//
// # Failure policy
//
// Missing signals contribute zero. Score never returns an error; sparse data
// is the normal case for older decades.
//
// The Engine is pure and safe for concurrent use. BatchScorer adds bulk
// signal pre-loading so scoring a decade does not issue one query per movie.
package scoring
