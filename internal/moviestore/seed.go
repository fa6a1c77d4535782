// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package moviestore

import (
	"context"
	"fmt"
)

// SeedIfEmpty loads a small demo dataset when the movies table is empty.
// Intended for standalone runs and tests; production data arrives through
// the ingestion subsystem.
func (db *DB) SeedIfEmpty(ctx context.Context) error {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&count); err != nil {
		return fmt.Errorf("count movies: %w", err)
	}
	if count > 0 {
		return nil
	}
	db.logger.Info().Msg("seeding demo dataset")

	statements := []string{
		`INSERT INTO weighting_profiles VALUES
			('balanced', 'Balanced', 0.25, 0.25, 0.20, 0.15, 0.15),
			('critics-choice', 'Critics Choice', 0.45, 0.20, 0.15, 0.10, 0.10),
			('festival-favorite', 'Festival Favorite', 0.20, 0.45, 0.10, 0.10, 0.15)`,

		`INSERT INTO movies VALUES
			(1, 'Metropolis',           DATE '1927-01-10',   1300000,   1200000, 32.1, 8.2, 18000, 'science fiction,drama', 'de', TRUE),
			(2, 'City Streets at Dawn', DATE '1929-06-02',    200000,    450000,  4.2, 6.4,   800, 'drama',                 'en', FALSE),
			(3, 'Bicycle Thieves',      DATE '1948-11-24',    133000,    990000, 25.7, 8.3, 12000, 'drama',                 'it', TRUE),
			(4, 'The Forgotten Reel',   DATE '1949-03-15',     90000,    120000,  2.1, 5.9,   300, 'mystery',               'en', FALSE),
			(5, 'Seven Samurai',        DATE '1954-04-26',    500000,   3000000, 48.9, 8.6, 21000, 'action,drama',          'ja', TRUE),
			(6, 'Tokyo Story',          DATE '1953-11-03',    300000,    800000, 22.4, 8.2,  9000, 'drama',                 'ja', TRUE),
			(7, 'The Night Circuit',    DATE '1958-09-12',    400000,    700000,  3.8, 6.2,   500, 'thriller',              'en', FALSE),
			(8, 'Persona',              DATE '1966-10-18',    300000,    600000, 30.2, 8.1, 11000, 'drama',                 'sv', TRUE),
			(9, 'Weekend Getaway',      DATE '1968-05-20',    800000,   1400000,  2.9, 5.5,   400, 'comedy',                'en', FALSE),
			(10, 'The Godfather',       DATE '1972-03-24',   6000000, 250000000, 95.3, 8.7, 19000, 'crime,drama',           'en', TRUE),
			(11, 'Stalker',             DATE '1979-05-25',   1000000,   2300000, 28.8, 8.1,  9500, 'science fiction,drama', 'ru', TRUE),
			(12, 'Roadside Diner',      DATE '1975-08-08',    900000,   1100000,  1.7, 5.8,   250, 'drama',                 'en', FALSE),
			(13, 'Spirited Away',       DATE '2001-07-20',  19000000, 395000000, 88.4, 8.5, 16000, 'animation,fantasy',     'ja', TRUE),
			(14, 'Parasite',            DATE '2019-05-30',  11400000, 258000000, 92.7, 8.5, 17000, 'thriller,drama',        'ko', TRUE),
			(15, 'Margin Call Redux',   DATE '2013-02-14',   3000000,   4200000,  5.5, 6.6,  1200, 'drama',                 'en', FALSE),
			(16, 'Glass Harbor',        DATE '2022-09-09',  20000000,  31000000, 14.2, 7.1,  2100, 'drama',                 'en', FALSE)`,

		`INSERT INTO ratings VALUES
			(1, 'critics', 9.0, 10), (1, 'audience', 84, 100),
			(3, 'critics', 9.2, 10), (3, 'audience', 90, 100),
			(5, 'critics', 9.5, 10), (5, 'audience', 96, 100),
			(6, 'critics', 9.1, 10),
			(8, 'critics', 8.8, 10), (8, 'audience', 88, 100),
			(10, 'critics', 9.7, 10), (10, 'audience', 98, 100),
			(11, 'critics', 8.6, 10),
			(13, 'critics', 9.3, 10), (13, 'audience', 94, 100),
			(14, 'critics', 9.4, 10), (14, 'audience', 92, 100),
			(15, 'critics', 6.8, 10),
			(16, 'critics', 7.4, 10), (16, 'audience', 71, 100)`,

		`INSERT INTO nominations VALUES
			(1, 5, 'Venice', 'Silver Lion', 1954, TRUE),
			(2, 8, 'Cannes', 'Competition', 1967, FALSE),
			(3, 10, 'Academy Awards', 'Best Picture', 1973, TRUE),
			(4, 10, 'Academy Awards', 'Best Sound', 1973, FALSE),
			(5, 11, 'Cannes', 'Prize of the Ecumenical Jury', 1980, TRUE),
			(6, 13, 'Berlin', 'Golden Bear', 2002, TRUE),
			(7, 13, 'Academy Awards', 'Best Animated Feature', 2003, TRUE),
			(8, 14, 'Cannes', 'Palme d''Or', 2019, TRUE),
			(9, 14, 'Academy Awards', 'Best Picture', 2020, TRUE),
			(10, 14, 'Academy Awards', 'Best Film Editing', 2020, FALSE),
			(11, 16, 'Venice', 'Competition', 2022, FALSE),
			(12, 3, 'Academy Awards', 'Honorary Award', 1950, TRUE)`,

		`INSERT INTO credits VALUES
			(101, 1, 'director'),
			(102, 3, 'director'),
			(103, 5, 'director'),
			(104, 6, 'director'),
			(105, 8, 'director'),
			(106, 10, 'director'),
			(107, 11, 'director'),
			(108, 13, 'director'),
			(109, 14, 'director'),
			(110, 15, 'director'),
			(110, 16, 'director'),
			(103, 7, 'director')`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
