// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package staleness tracks upstream data changes that can invalidate cached
// predictions. Every mutation that could alter a score appends an immutable
// ChangeEvent to a DuckDB ledger, tagged with the decades it affects. The
// refresh manager reads the ledger to decide when cached rankings are stale;
// a successful full refresh clears it.
//
// Ledger rows are never updated in place: the only operations are append,
// full clear, and age-based pruning, so no application-level locking is
// needed on top of the store.
package staleness

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/metrics"
	"github.com/tomtom215/kinoscope/internal/models"
)

// ChangeKind classifies a ledger event.
type ChangeKind string

// Supported change kinds.
const (
	KindMovieCreated        ChangeKind = "movie_created"
	KindMovieUpdated        ChangeKind = "movie_updated"
	KindSignalUpdated       ChangeKind = "signal_updated"
	KindFestivalAdded       ChangeKind = "festival_added"
	KindFestivalUpdated     ChangeKind = "festival_updated"
	KindPersonSignalUpdated ChangeKind = "person_signal_updated"
)

// Class buckets kinds into the three reporting classes.
func (k ChangeKind) Class() string {
	switch k {
	case KindMovieCreated, KindMovieUpdated:
		return "movies"
	case KindSignalUpdated, KindPersonSignalUpdated:
		return "metrics"
	case KindFestivalAdded, KindFestivalUpdated:
		return "festivals"
	default:
		return "other"
	}
}

// DecadeSource resolves which decades an entity belongs to. Implemented by
// the movie store.
type DecadeSource interface {
	MovieDecade(ctx context.Context, movieID int64) (int, error)
	NominationMovieDecade(ctx context.Context, nominationID int64) (int, error)
	PersonDecades(ctx context.Context, personID int64) ([]int, error)
}

// RecordOptions carries the optional fields of a Record call.
type RecordOptions struct {
	EntityType string

	// AffectedDecades overrides decade inference when the caller already
	// knows the blast radius.
	AffectedDecades []int

	Metadata map[string]any
}

// ChangeCounts groups ledger counts by change class.
type ChangeCounts struct {
	Movies    int `json:"movies"`
	Metrics   int `json:"metrics"`
	Festivals int `json:"festivals"`
	Total     int `json:"total"`
}

// Report summarizes ledger state for refresh decisions.
type Report struct {
	LastRefresh     *time.Time   `json:"last_refresh,omitempty"`
	Changes         ChangeCounts `json:"changes_since_last_refresh"`
	AffectedDecades []int        `json:"affected_decades"`
}

// Tracker is the staleness ledger.
type Tracker struct {
	conn    *sql.DB
	decades DecadeSource
	logger  zerolog.Logger
}

// New creates a tracker over a DuckDB connection (shared with the movie
// store) and initializes the ledger table.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(conn *sql.DB, decades DecadeSource, logger zerolog.Logger) (*Tracker, error) {
	t := &Tracker{
		conn:    conn,
		decades: decades,
		logger:  logger.With().Str("component", "staleness").Logger(),
	}
	if err := t.initSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}
	return t, nil
}

func (t *Tracker) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS change_events_id_seq`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id BIGINT PRIMARY KEY DEFAULT nextval('change_events_id_seq'),
			kind VARCHAR NOT NULL,
			entity_id BIGINT NOT NULL,
			entity_type VARCHAR DEFAULT '',
			affected_decades INTEGER[],
			metadata VARCHAR DEFAULT '{}',
			inserted_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_inserted ON change_events(inserted_at)`,
	}
	for _, stmt := range statements {
		if _, err := t.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record appends one change event. When opts does not supply affected
// decades they are inferred from the entity; inference failures and
// unparseable release dates degrade to an empty decade set rather than
// failing the call, so change tracking never blocks ingestion.
func (t *Tracker) Record(ctx context.Context, kind ChangeKind, entityID int64, opts *RecordOptions) error {
	if opts == nil {
		opts = &RecordOptions{}
	}

	decades := opts.AffectedDecades
	if decades == nil {
		decades = t.inferDecades(ctx, kind, entityID)
	}

	metaJSON := "{}"
	if len(opts.Metadata) > 0 {
		data, err := json.Marshal(opts.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		metaJSON = string(data)
	}

	query := `
		INSERT INTO change_events (kind, entity_id, entity_type, affected_decades, metadata, inserted_at)
		VALUES (?, ?, ?, CAST(? AS INTEGER[]), ?, ?)`

	_, err := t.conn.ExecContext(ctx, query,
		string(kind), entityID, opts.EntityType,
		decadeListLiteral(decades), metaJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append change event: %w", err)
	}

	metrics.LedgerEvents.WithLabelValues(string(kind)).Inc()
	t.logger.Debug().
		Str("kind", string(kind)).
		Int64("entity_id", entityID).
		Ints("affected_decades", decades).
		Msg("change recorded")
	return nil
}

// inferDecades resolves affected decades by change kind. Any failure yields
// an empty set.
func (t *Tracker) inferDecades(ctx context.Context, kind ChangeKind, entityID int64) []int {
	var (
		decades []int
		err     error
	)

	switch kind {
	case KindMovieCreated, KindMovieUpdated, KindSignalUpdated:
		var decade int
		decade, err = t.decades.MovieDecade(ctx, entityID)
		if decade != 0 {
			decades = []int{decade}
		}
	case KindFestivalAdded, KindFestivalUpdated:
		var decade int
		decade, err = t.decades.NominationMovieDecade(ctx, entityID)
		if decade != 0 {
			decades = []int{decade}
		}
	case KindPersonSignalUpdated:
		decades, err = t.decades.PersonDecades(ctx, entityID)
	}

	if err != nil {
		t.logger.Warn().Err(err).
			Str("kind", string(kind)).
			Int64("entity_id", entityID).
			Msg("decade inference failed, recording event with empty decade set")
		return nil
	}
	return decades
}

// Report returns change counts and affected decades since lastRefresh.
// A nil lastRefresh means no cache has ever been computed: counts cover the
// full ledger and every supported decade is reported as affected.
func (t *Tracker) Report(ctx context.Context, lastRefresh *time.Time) (*Report, error) {
	report := &Report{LastRefresh: lastRefresh}

	query := `SELECT kind, COUNT(*) FROM change_events`
	args := []any{}
	if lastRefresh != nil {
		query += ` WHERE inserted_at > ?`
		args = append(args, lastRefresh.UTC())
	}
	query += ` GROUP BY kind`

	rows, err := t.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query change counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan change count: %w", err)
		}
		switch ChangeKind(kind).Class() {
		case "movies":
			report.Changes.Movies += count
		case "metrics":
			report.Changes.Metrics += count
		case "festivals":
			report.Changes.Festivals += count
		}
		report.Changes.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if lastRefresh == nil {
		report.AffectedDecades = models.SupportedDecades()
		return report, nil
	}

	report.AffectedDecades, err = t.affectedDecadesSince(ctx, *lastRefresh)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// affectedDecadesSince unions the affected_decades arrays of all events
// after the given time.
func (t *Tracker) affectedDecadesSince(ctx context.Context, since time.Time) ([]int, error) {
	query := `
		SELECT DISTINCT unnest(affected_decades) AS decade
		FROM change_events
		WHERE inserted_at > ?
		ORDER BY decade`

	rows, err := t.conn.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query affected decades: %w", err)
	}
	defer rows.Close()

	var decades []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan affected decade: %w", err)
		}
		decades = append(decades, d)
	}
	return decades, rows.Err()
}

// CountForDecade counts events after since whose affected decades include
// the given decade.
func (t *Tracker) CountForDecade(ctx context.Context, decade int, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM change_events
		WHERE inserted_at > ? AND list_contains(affected_decades, ?)`

	var count int
	if err := t.conn.QueryRowContext(ctx, query, since.UTC(), decade).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events for decade %d: %w", decade, err)
	}
	return count, nil
}

// Count returns the total ledger size.
func (t *Tracker) Count(ctx context.Context) (int, error) {
	var count int
	if err := t.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM change_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count change events: %w", err)
	}
	return count, nil
}

// Clear wipes the ledger. Called after a successful full refresh.
func (t *Tracker) Clear(ctx context.Context) error {
	if _, err := t.conn.ExecContext(ctx, `DELETE FROM change_events`); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	t.logger.Info().Msg("change ledger cleared")
	return nil
}

// ClearDecades removes events whose affected decades are fully covered by
// the given set, after a selective refresh of those decades. Events touching
// decades outside the set are kept so their staleness signal survives.
func (t *Tracker) ClearDecades(ctx context.Context, decades []int) error {
	if len(decades) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		DELETE FROM change_events
		WHERE len(list_filter(affected_decades, d -> NOT list_contains(CAST(%s AS INTEGER[]), d))) = 0`,
		quoteListLiteral(decadeListLiteral(decades)))

	if _, err := t.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear ledger for decades %v: %w", decades, err)
	}
	return nil
}

// Prune removes events inserted before the cutoff, bounding ledger growth
// without a full refresh.
func (t *Tracker) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := t.conn.ExecContext(ctx,
		`DELETE FROM change_events WHERE inserted_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune ledger: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // drivers without RowsAffected still pruned successfully
	}
	return removed, nil
}

// decadeListLiteral renders a decade set as a DuckDB list literal string,
// e.g. "[1970, 1980]". An empty set renders as "[]".
func decadeListLiteral(decades []int) string {
	if len(decades) == 0 {
		return "[]"
	}
	parts := make([]string, len(decades))
	for i, d := range decades {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// quoteListLiteral wraps a list literal for inline SQL use.
func quoteListLiteral(lit string) string {
	return "'" + lit + "'"
}
