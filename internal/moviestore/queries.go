// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package moviestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/kinoscope/internal/models"
)

// ErrProfileNotFound is returned for unknown weighting profile references.
var ErrProfileNotFound = errors.New("weighting profile not found")

const queryTimeout = 30 * time.Second

// decadeExpr buckets release_date into a decade in SQL, matching
// models.DecadeOf.
const decadeExpr = "(CAST(date_part('year', release_date) AS INTEGER) / 10) * 10"

// MoviesByDecade returns every movie released in the given decade that has a
// parseable release date. This is the candidate pool for scoring.
func (db *DB) MoviesByDecade(ctx context.Context, decade int) ([]models.Movie, error) {
	query := fmt.Sprintf(`
		SELECT id, title, release_date, budget, revenue, popularity,
		       vote_average, vote_count, genres, language, on_canonical_list
		FROM movies
		WHERE release_date IS NOT NULL AND %s = ?
		ORDER BY id`, decadeExpr)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, decade)
	if err != nil {
		return nil, fmt.Errorf("query movies for decade %d: %w", decade, err)
	}
	defer rows.Close()

	return scanMovies(rows)
}

// CanonicalMoviesByDecade returns the ground truth: confirmed canonical list
// members released in the given decade.
func (db *DB) CanonicalMoviesByDecade(ctx context.Context, decade int) ([]models.Movie, error) {
	query := fmt.Sprintf(`
		SELECT id, title, release_date, budget, revenue, popularity,
		       vote_average, vote_count, genres, language, on_canonical_list
		FROM movies
		WHERE release_date IS NOT NULL AND on_canonical_list AND %s = ?
		ORDER BY id`, decadeExpr)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, decade)
	if err != nil {
		return nil, fmt.Errorf("query canonical movies for decade %d: %w", decade, err)
	}
	defer rows.Close()

	return scanMovies(rows)
}

// GroundTruthDecades returns the distinct decade buckets that have confirmed
// canonical entries, ascending. Decades are discovered from data, not
// hardcoded, so validation adapts as new decades accumulate entries.
func (db *DB) GroundTruthDecades(ctx context.Context) ([]int, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s AS decade
		FROM movies
		WHERE release_date IS NOT NULL AND on_canonical_list
		ORDER BY decade`, decadeExpr)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ground truth decades: %w", err)
	}
	defer rows.Close()

	var decades []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan decade: %w", err)
		}
		decades = append(decades, d)
	}
	return decades, rows.Err()
}

// RatingsForMovies bulk-loads all rating rows for the movie set in one pass.
func (db *DB) RatingsForMovies(ctx context.Context, movieIDs []int64) (map[int64][]models.Rating, error) {
	result := make(map[int64][]models.Rating, len(movieIDs))
	if len(movieIDs) == 0 {
		return result, nil
	}

	placeholders, args := inClause(movieIDs)
	query := fmt.Sprintf(`
		SELECT movie_id, source, value, scale
		FROM ratings
		WHERE movie_id IN (%s)`, placeholders)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.MovieID, &r.Source, &r.Value, &r.Scale); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		result[r.MovieID] = append(result[r.MovieID], r)
	}
	return result, rows.Err()
}

// NominationsForMovies bulk-loads all nomination rows for the movie set.
func (db *DB) NominationsForMovies(ctx context.Context, movieIDs []int64) (map[int64][]models.Nomination, error) {
	result := make(map[int64][]models.Nomination, len(movieIDs))
	if len(movieIDs) == 0 {
		return result, nil
	}

	placeholders, args := inClause(movieIDs)
	query := fmt.Sprintf(`
		SELECT id, movie_id, festival, category, COALESCE(year, 0), won
		FROM nominations
		WHERE movie_id IN (%s)`, placeholders)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nominations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n models.Nomination
		if err := rows.Scan(&n.ID, &n.MovieID, &n.Festival, &n.Category, &n.Year, &n.Won); err != nil {
			return nil, fmt.Errorf("scan nomination: %w", err)
		}
		result[n.MovieID] = append(result[n.MovieID], n)
	}
	return result, rows.Err()
}

// DirectorCanonCountsForMovies returns, per movie, one count per credited
// director: how many of that director's other works are already canonical.
// Directors with no prior canonical works appear with a zero count, which is
// distinct from a movie having no director data at all.
func (db *DB) DirectorCanonCountsForMovies(ctx context.Context, movieIDs []int64) (map[int64][]int, error) {
	result := make(map[int64][]int, len(movieIDs))
	if len(movieIDs) == 0 {
		return result, nil
	}

	placeholders, args := inClause(movieIDs)
	query := fmt.Sprintf(`
		SELECT c.movie_id, c.person_id, COUNT(m2.id) AS canon_count
		FROM credits c
		LEFT JOIN credits c2
		  ON c2.person_id = c.person_id AND c2.movie_id <> c.movie_id AND c2.role = 'director'
		LEFT JOIN movies m2
		  ON m2.id = c2.movie_id AND m2.on_canonical_list
		WHERE c.role = 'director' AND c.movie_id IN (%s)
		GROUP BY c.movie_id, c.person_id`, placeholders)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query director canon counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var movieID, personID int64
		var count int
		if err := rows.Scan(&movieID, &personID, &count); err != nil {
			return nil, fmt.Errorf("scan canon count: %w", err)
		}
		result[movieID] = append(result[movieID], count)
	}
	return result, rows.Err()
}

// MovieDecade returns the decade bucket of a movie's release date, or 0 when
// the date is missing or the movie is unknown.
func (db *DB) MovieDecade(ctx context.Context, movieID int64) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(%s, 0) FROM movies WHERE id = ?`, decadeExpr)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var decade int
	err := db.conn.QueryRowContext(ctx, query, movieID).Scan(&decade)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query movie decade: %w", err)
	}
	return decade, nil
}

// NominationMovieDecade returns the decade of the movie a nomination points
// at, or 0 when either the nomination or the release date is missing.
func (db *DB) NominationMovieDecade(ctx context.Context, nominationID int64) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(%s, 0)
		FROM nominations n
		JOIN movies ON movies.id = n.movie_id
		WHERE n.id = ?`, decadeExpr)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var decade int
	err := db.conn.QueryRowContext(ctx, query, nominationID).Scan(&decade)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query nomination decade: %w", err)
	}
	return decade, nil
}

// PersonDecades returns the distinct decades across all of a person's movie
// credits. A person-level signal change can retroactively affect every
// decade they worked in.
func (db *DB) PersonDecades(ctx context.Context, personID int64) ([]int, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s AS decade
		FROM credits c
		JOIN movies ON movies.id = c.movie_id
		WHERE c.person_id = ? AND release_date IS NOT NULL
		ORDER BY decade`, decadeExpr)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("query person decades: %w", err)
	}
	defer rows.Close()

	var decades []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan person decade: %w", err)
		}
		decades = append(decades, d)
	}
	return decades, rows.Err()
}

// ProfileByID returns one weighting profile, or ErrProfileNotFound.
func (db *DB) ProfileByID(ctx context.Context, id string) (models.WeightingProfile, error) {
	return db.profileBy(ctx, "id", id)
}

// ProfileByName returns one weighting profile by display name.
func (db *DB) ProfileByName(ctx context.Context, name string) (models.WeightingProfile, error) {
	return db.profileBy(ctx, "name", name)
}

func (db *DB) profileBy(ctx context.Context, column, value string) (models.WeightingProfile, error) {
	query := fmt.Sprintf(`
		SELECT id, name, critical_acclaim, festival_recognition, cultural_impact,
		       technical_innovation, auteur_recognition
		FROM weighting_profiles
		WHERE %s = ?`, column)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p models.WeightingProfile
	err := db.conn.QueryRowContext(ctx, query, value).Scan(
		&p.ID, &p.Name,
		&p.Weights.CriticalAcclaim, &p.Weights.FestivalRecognition,
		&p.Weights.CulturalImpact, &p.Weights.TechnicalInnovation,
		&p.Weights.AuteurRecognition,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WeightingProfile{}, fmt.Errorf("%w: %s=%s", ErrProfileNotFound, column, value)
	}
	if err != nil {
		return models.WeightingProfile{}, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

// Profiles returns every known weighting profile.
func (db *DB) Profiles(ctx context.Context) ([]models.WeightingProfile, error) {
	query := `
		SELECT id, name, critical_acclaim, festival_recognition, cultural_impact,
		       technical_innovation, auteur_recognition
		FROM weighting_profiles
		ORDER BY id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.WeightingProfile
	for rows.Next() {
		var p models.WeightingProfile
		if err := rows.Scan(
			&p.ID, &p.Name,
			&p.Weights.CriticalAcclaim, &p.Weights.FestivalRecognition,
			&p.Weights.CulturalImpact, &p.Weights.TechnicalInnovation,
			&p.Weights.AuteurRecognition,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ActiveProfileIDs returns the ids of all known profiles, for cache
// coverage computation.
func (db *DB) ActiveProfileIDs(ctx context.Context) ([]string, error) {
	profiles, err := db.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	return ids, nil
}

// scanMovies reads movie rows into domain values.
func scanMovies(rows *sql.Rows) ([]models.Movie, error) {
	var movies []models.Movie
	for rows.Next() {
		var (
			m       models.Movie
			release sql.NullTime
			genres  string
		)
		if err := rows.Scan(
			&m.ID, &m.Title, &release, &m.Budget, &m.Revenue, &m.Popularity,
			&m.VoteAverage, &m.VoteCount, &genres, &m.Language, &m.OnCanonicalList,
		); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		if release.Valid {
			t := release.Time
			m.ReleaseDate = &t
		}
		if genres != "" {
			m.Genres = strings.Split(genres, ",")
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}
