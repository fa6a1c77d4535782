// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package scoring

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/models"
)

// InlineProfileID identifies transient profiles built from ad hoc weights.
const InlineProfileID = "custom"

// ProfileSource is a tagged union describing how a caller references a
// weighting profile: by stable id, by display name, or inline with ad hoc
// weights. It is resolved exactly once at the entry point of a scoring call;
// downstream code only ever sees a canonical WeightingProfile.
type ProfileSource struct {
	ref    string
	name   string
	inline *models.Weights
}

// ByReference references a profile by its stable id.
func ByReference(id string) ProfileSource {
	return ProfileSource{ref: id}
}

// ByName references a profile by display name.
func ByName(name string) ProfileSource {
	return ProfileSource{name: name}
}

// Inline builds a transient profile from caller-supplied weights.
func Inline(weights models.Weights) ProfileSource {
	return ProfileSource{inline: &weights}
}

// ProfileStore is the read-only source of weighting profile reference data.
// Implemented by the movie store.
type ProfileStore interface {
	ProfileByID(ctx context.Context, id string) (models.WeightingProfile, error)
	ProfileByName(ctx context.Context, name string) (models.WeightingProfile, error)
	Profiles(ctx context.Context) ([]models.WeightingProfile, error)
}

// Resolver turns a ProfileSource into a canonical WeightingProfile.
// Unknown references fall back to the configured default profile so read
// paths stay available.
type Resolver struct {
	store    ProfileStore
	fallback models.WeightingProfile
	logger   zerolog.Logger
}

// NewResolver creates a profile resolver with the given fallback profile.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewResolver(store ProfileStore, fallback models.WeightingProfile, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		fallback: fallback,
		logger:   logger.With().Str("component", "profiles").Logger(),
	}
}

// Fallback returns the default profile used for unresolvable references.
func (r *Resolver) Fallback() models.WeightingProfile {
	return r.fallback
}

// Resolve canonicalizes a profile source. It never fails: unknown ids and
// names resolve to the fallback profile, with a warning logged.
func (r *Resolver) Resolve(ctx context.Context, src ProfileSource) models.WeightingProfile {
	switch {
	case src.inline != nil:
		return models.WeightingProfile{
			ID:      InlineProfileID,
			Name:    "Custom",
			Weights: *src.inline,
		}
	case src.name != "":
		profile, err := r.store.ProfileByName(ctx, src.name)
		if err != nil {
			r.logger.Warn().Err(err).Str("profile_name", src.name).
				Msg("unknown profile name, using default profile")
			return r.fallback
		}
		return profile
	case src.ref != "":
		profile, err := r.store.ProfileByID(ctx, src.ref)
		if err != nil {
			r.logger.Warn().Err(err).Str("profile_id", src.ref).
				Msg("unknown profile id, using default profile")
			return r.fallback
		}
		return profile
	default:
		return r.fallback
	}
}
