// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package moviestore provides read access to movie, signal, and weighting
// profile data in DuckDB. The ingestion subsystem owns the write path; this
// core only issues bulk read queries, plus schema bootstrap and seed helpers
// so the engine can run standalone and under test.
package moviestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/config"
)

// DB wraps the DuckDB connection and provides movie data access.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// New opens the DuckDB database and initializes the schema. An empty path
// opens an in-memory database.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg *config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	connStr := ""
	if cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
			cfg.Path, threads, cfg.MaxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{
		conn:   conn,
		logger: logger.With().Str("component", "moviestore").Logger(),
	}
	if err := db.initSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if cfg.SeedDemoData {
		if err := db.SeedIfEmpty(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	return db, nil
}

// SQL exposes the underlying connection for sibling stores that share the
// database file (the staleness ledger).
func (db *DB) SQL() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the movie data tables when absent.
func (db *DB) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS movies (
			id BIGINT PRIMARY KEY,
			title VARCHAR NOT NULL,
			release_date DATE,
			budget BIGINT DEFAULT 0,
			revenue BIGINT DEFAULT 0,
			popularity DOUBLE DEFAULT 0,
			vote_average DOUBLE DEFAULT 0,
			vote_count INTEGER DEFAULT 0,
			genres VARCHAR DEFAULT '',
			language VARCHAR DEFAULT '',
			on_canonical_list BOOLEAN DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			movie_id BIGINT NOT NULL,
			source VARCHAR NOT NULL,
			value DOUBLE NOT NULL,
			scale DOUBLE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS nominations (
			id BIGINT PRIMARY KEY,
			movie_id BIGINT NOT NULL,
			festival VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			year INTEGER,
			won BOOLEAN DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS credits (
			person_id BIGINT NOT NULL,
			movie_id BIGINT NOT NULL,
			role VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weighting_profiles (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			critical_acclaim DOUBLE NOT NULL,
			festival_recognition DOUBLE NOT NULL,
			cultural_impact DOUBLE NOT NULL,
			technical_innovation DOUBLE NOT NULL,
			auteur_recognition DOUBLE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_movie ON ratings(movie_id)`,
		`CREATE INDEX IF NOT EXISTS idx_nominations_movie ON nominations(movie_id)`,
		`CREATE INDEX IF NOT EXISTS idx_credits_person ON credits(person_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// inClause builds "?,?,?" placeholders and the matching args slice.
func inClause(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
