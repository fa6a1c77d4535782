// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package moviestore

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/config"
)

// testDB opens an in-memory DuckDB with the demo seed loaded.
func testDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.DatabaseConfig{Path: "", MaxMemory: "256MB", SeedDemoData: true}
	db, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	return db
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.SeedIfEmpty(context.Background()); err != nil {
		t.Fatalf("second seed call failed: %v", err)
	}
	movies, err := db.MoviesByDecade(context.Background(), 1950)
	if err != nil {
		t.Fatalf("MoviesByDecade failed: %v", err)
	}
	if len(movies) != 3 {
		t.Errorf("1950s movies = %d, want 3 (seed must not duplicate)", len(movies))
	}
}

func TestMoviesByDecade(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	movies, err := db.MoviesByDecade(ctx, 1970)
	if err != nil {
		t.Fatalf("MoviesByDecade failed: %v", err)
	}
	if len(movies) != 3 {
		t.Fatalf("1970s movies = %d, want 3", len(movies))
	}

	var godfather bool
	for _, m := range movies {
		if m.Title == "The Godfather" {
			godfather = true
			if !m.OnCanonicalList {
				t.Error("The Godfather should be on the canonical list")
			}
			if len(m.Genres) != 2 || m.Genres[0] != "crime" {
				t.Errorf("genres = %v", m.Genres)
			}
			if m.Year() != 1972 {
				t.Errorf("year = %d, want 1972", m.Year())
			}
		}
	}
	if !godfather {
		t.Error("The Godfather missing from 1970s candidates")
	}

	empty, err := db.MoviesByDecade(ctx, 1930)
	if err != nil {
		t.Fatalf("MoviesByDecade(1930) failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("1930s movies = %d, want 0", len(empty))
	}
}

func TestCanonicalMoviesByDecade(t *testing.T) {
	db := testDB(t)
	movies, err := db.CanonicalMoviesByDecade(context.Background(), 1950)
	if err != nil {
		t.Fatalf("CanonicalMoviesByDecade failed: %v", err)
	}
	if len(movies) != 2 { // Seven Samurai, Tokyo Story
		t.Fatalf("1950s canonical movies = %d, want 2", len(movies))
	}
	for _, m := range movies {
		if !m.OnCanonicalList {
			t.Errorf("%s returned as canonical but flag is false", m.Title)
		}
	}
}

func TestGroundTruthDecades(t *testing.T) {
	db := testDB(t)
	decades, err := db.GroundTruthDecades(context.Background())
	if err != nil {
		t.Fatalf("GroundTruthDecades failed: %v", err)
	}
	want := []int{1920, 1940, 1950, 1960, 1970, 2000, 2010}
	if len(decades) != len(want) {
		t.Fatalf("decades = %v, want %v", decades, want)
	}
	for i, d := range want {
		if decades[i] != d {
			t.Errorf("decades[%d] = %d, want %d", i, decades[i], d)
		}
	}
}

func TestRatingsForMovies(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	ratings, err := db.RatingsForMovies(ctx, []int64{5, 10, 2})
	if err != nil {
		t.Fatalf("RatingsForMovies failed: %v", err)
	}
	if len(ratings[5]) != 2 {
		t.Errorf("movie 5 ratings = %d, want 2", len(ratings[5]))
	}
	if len(ratings[10]) != 2 {
		t.Errorf("movie 10 ratings = %d, want 2", len(ratings[10]))
	}
	if len(ratings[2]) != 0 {
		t.Errorf("movie 2 ratings = %d, want 0 (sparse data)", len(ratings[2]))
	}

	empty, err := db.RatingsForMovies(ctx, nil)
	if err != nil {
		t.Fatalf("RatingsForMovies(nil) failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty input returned %d entries", len(empty))
	}
}

func TestNominationsForMovies(t *testing.T) {
	db := testDB(t)
	noms, err := db.NominationsForMovies(context.Background(), []int64{14})
	if err != nil {
		t.Fatalf("NominationsForMovies failed: %v", err)
	}
	if len(noms[14]) != 3 {
		t.Fatalf("movie 14 nominations = %d, want 3", len(noms[14]))
	}
	var palme bool
	for _, n := range noms[14] {
		if n.Category == "Palme d'Or" && n.Won {
			palme = true
		}
	}
	if !palme {
		t.Error("expected a Palme d'Or win for movie 14")
	}
}

func TestDirectorCanonCountsForMovies(t *testing.T) {
	db := testDB(t)
	counts, err := db.DirectorCanonCountsForMovies(context.Background(), []int64{7, 15, 2})
	if err != nil {
		t.Fatalf("DirectorCanonCountsForMovies failed: %v", err)
	}

	// Movie 7 is directed by person 103, who also directed canonical movie 5.
	if got := counts[7]; len(got) != 1 || got[0] != 1 {
		t.Errorf("movie 7 canon counts = %v, want [1]", got)
	}
	// Movie 15's director (110) has no canonical works; the zero count must
	// still be reported (director known, tier 20, not missing data).
	if got := counts[15]; len(got) != 1 || got[0] != 0 {
		t.Errorf("movie 15 canon counts = %v, want [0]", got)
	}
	// Movie 2 has no director credits at all.
	if got := counts[2]; len(got) != 0 {
		t.Errorf("movie 2 canon counts = %v, want none", got)
	}
}

func TestMovieDecade(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	decade, err := db.MovieDecade(ctx, 12)
	if err != nil {
		t.Fatalf("MovieDecade failed: %v", err)
	}
	if decade != 1970 {
		t.Errorf("movie 12 (1975 release) decade = %d, want 1970", decade)
	}

	decade, err = db.MovieDecade(ctx, 99999)
	if err != nil {
		t.Fatalf("MovieDecade(unknown) failed: %v", err)
	}
	if decade != 0 {
		t.Errorf("unknown movie decade = %d, want 0", decade)
	}
}

func TestNominationMovieDecade(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	decade, err := db.NominationMovieDecade(ctx, 8)
	if err != nil {
		t.Fatalf("NominationMovieDecade failed: %v", err)
	}
	if decade != 2010 {
		t.Errorf("nomination 8 decade = %d, want 2010", decade)
	}

	decade, err = db.NominationMovieDecade(ctx, 424242)
	if err != nil {
		t.Fatalf("NominationMovieDecade(unknown) failed: %v", err)
	}
	if decade != 0 {
		t.Errorf("unknown nomination decade = %d, want 0", decade)
	}
}

func TestPersonDecades(t *testing.T) {
	db := testDB(t)
	decades, err := db.PersonDecades(context.Background(), 103)
	if err != nil {
		t.Fatalf("PersonDecades failed: %v", err)
	}
	// Person 103 directed movies 5 (1954) and 7 (1958): one distinct decade.
	if len(decades) != 1 || decades[0] != 1950 {
		t.Errorf("person 103 decades = %v, want [1950]", decades)
	}

	multi, err := db.PersonDecades(context.Background(), 110)
	if err != nil {
		t.Fatalf("PersonDecades failed: %v", err)
	}
	// Person 110 directed movies in 2013 and 2022.
	if len(multi) != 2 || multi[0] != 2010 || multi[1] != 2020 {
		t.Errorf("person 110 decades = %v, want [2010 2020]", multi)
	}
}

func TestProfiles(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	p, err := db.ProfileByID(ctx, "balanced")
	if err != nil {
		t.Fatalf("ProfileByID failed: %v", err)
	}
	if p.Name != "Balanced" || p.Weights.CriticalAcclaim != 0.25 {
		t.Errorf("balanced profile = %+v", p)
	}

	p, err = db.ProfileByName(ctx, "Festival Favorite")
	if err != nil {
		t.Fatalf("ProfileByName failed: %v", err)
	}
	if p.ID != "festival-favorite" {
		t.Errorf("profile by name id = %q", p.ID)
	}

	_, err = db.ProfileByID(ctx, "no-such-profile")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}

	all, err := db.Profiles(ctx)
	if err != nil {
		t.Fatalf("Profiles failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("profiles = %d, want 3", len(all))
	}

	ids, err := db.ActiveProfileIDs(ctx)
	if err != nil {
		t.Fatalf("ActiveProfileIDs failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != "balanced" {
		t.Errorf("active profile ids = %v", ids)
	}
}
