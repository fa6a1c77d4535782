// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package predcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/metrics"
	"github.com/tomtom215/kinoscope/internal/models"
)

// ErrNotFound is returned when no entry exists for a (decade, profile) key.
// A miss is an expected state, not a failure; callers decide whether to
// trigger a refresh.
var ErrNotFound = errors.New("prediction cache entry not found")

// entryKeyPrefix namespaces prediction entries in the shared Badger store.
const entryKeyPrefix = "prediction:"

// Store is the durable prediction cache.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewStore creates a prediction cache over an open Badger database.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(db *badger.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "predcache").Logger(),
	}
}

// entryKey builds the Badger key for a (decade, profile) pair.
func entryKey(decade int, profileID string) []byte {
	return []byte(fmt.Sprintf("%s%d:%s", entryKeyPrefix, decade, profileID))
}

// Get returns the entry for a key, or ErrNotFound.
func (s *Store) Get(_ context.Context, decade int, profileID string) (*Entry, error) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(decade, profileID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.CacheMisses.Inc()
		}
		return nil, err
	}
	metrics.CacheHits.Inc()
	return &entry, nil
}

// Exists reports whether an entry is cached for the key.
func (s *Store) Exists(_ context.Context, decade int, profileID string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(entryKey(decade, profileID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check entry: %w", err)
	}
	return true, nil
}

// IsStale reports whether the key has no entry or an entry older than maxAge.
func (s *Store) IsStale(ctx context.Context, decade int, profileID string, maxAge time.Duration) (bool, error) {
	entry, err := s.Get(ctx, decade, profileID)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return time.Since(entry.CalculatedAt) > maxAge, nil
}

// Upsert atomically replaces the entry for (decade, profileID). The value is
// fully replaced; CreatedAt is preserved from any prior entry for the key.
// The whole operation runs in one transaction, so concurrent upserts resolve
// last-writer-wins and readers never see a partial entry.
func (s *Store) Upsert(_ context.Context, decade int, profileID string, entry *Entry) error {
	now := time.Now().UTC()
	entry.Decade = decade
	entry.ProfileID = profileID
	if entry.CalculatedAt.IsZero() {
		entry.CalculatedAt = now
	}
	entry.CreatedAt = now

	key := entryKey(decade, profileID)
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// first write for this key
		case err != nil:
			return fmt.Errorf("read prior entry: %w", err)
		default:
			var prior Entry
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &prior)
			}); verr == nil && !prior.CreatedAt.IsZero() {
				entry.CreatedAt = prior.CreatedAt
			}
		}

		data, err := json.Marshal(Normalize(entry))
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return err
	}

	metrics.CacheUpserts.Inc()
	s.logger.Debug().
		Int("decade", decade).
		Str("profile_id", profileID).
		Int("movies", len(entry.MovieScores)).
		Msg("cache entry written")
	return nil
}

// Delete removes the entry for a key. Deleting an absent key is a no-op.
func (s *Store) Delete(_ context.Context, decade int, profileID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(decade, profileID))
	})
}

// DeleteAllForProfile removes every decade's entry for one profile.
func (s *Store) DeleteAllForProfile(ctx context.Context, profileID string) error {
	keys, err := s.collectKeys(func(e *Entry) bool { return e.ProfileID == profileID })
	if err != nil {
		return err
	}
	return s.deleteKeys(keys)
}

// DeleteAll removes every cached entry. Used for forced full rebuilds.
func (s *Store) DeleteAll(_ context.Context) error {
	keys, err := s.collectKeys(func(*Entry) bool { return true })
	if err != nil {
		return err
	}
	return s.deleteKeys(keys)
}

// Coverage describes how much of the (decade x profile) matrix is cached.
type Coverage struct {
	Total    int     `json:"total"`
	Cached   int     `json:"cached"`
	Fraction float64 `json:"fraction"`
	Missing  []Combo `json:"missing,omitempty"`
}

// Combo identifies one cell of the cache matrix.
type Combo struct {
	Decade    int    `json:"decade"`
	ProfileID string `json:"profile_id"`
}

// Coverage reports the cached fraction of the full decade x active-profile
// matrix and lists the missing combinations.
func (s *Store) Coverage(_ context.Context, profileIDs []string) (*Coverage, error) {
	decades := models.SupportedDecades()
	cov := &Coverage{Total: len(decades) * len(profileIDs)}

	err := s.db.View(func(txn *badger.Txn) error {
		for _, profileID := range profileIDs {
			for _, decade := range decades {
				_, err := txn.Get(entryKey(decade, profileID))
				switch {
				case errors.Is(err, badger.ErrKeyNotFound):
					cov.Missing = append(cov.Missing, Combo{Decade: decade, ProfileID: profileID})
				case err != nil:
					return fmt.Errorf("check %d/%s: %w", decade, profileID, err)
				default:
					cov.Cached++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cov.Total > 0 {
		cov.Fraction = float64(cov.Cached) / float64(cov.Total)
	}
	metrics.CacheEntries.Set(float64(cov.Cached))
	return cov, nil
}

// AgeStats summarizes entry ages for operational visibility.
type AgeStats struct {
	Count   int           `json:"count"`
	Oldest  time.Duration `json:"oldest"`
	Newest  time.Duration `json:"newest"`
	Average time.Duration `json:"average"`
	Median  time.Duration `json:"median"`
}

// AgeStats computes age statistics across all cached entries.
func (s *Store) AgeStats(_ context.Context) (*AgeStats, error) {
	now := time.Now().UTC()
	var ages []time.Duration

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("decode entry: %w", err)
				}
				ages = append(ages, now.Sub(entry.CalculatedAt))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats := &AgeStats{Count: len(ages)}
	if len(ages) == 0 {
		return stats, nil
	}

	sort.Slice(ages, func(i, j int) bool { return ages[i] < ages[j] })
	stats.Newest = ages[0]
	stats.Oldest = ages[len(ages)-1]

	var total time.Duration
	for _, age := range ages {
		total += age
	}
	stats.Average = total / time.Duration(len(ages))

	mid := len(ages) / 2
	if len(ages)%2 == 0 {
		stats.Median = (ages[mid-1] + ages[mid]) / 2
	} else {
		stats.Median = ages[mid]
	}
	return stats, nil
}

// collectKeys gathers entry keys whose decoded entry matches the filter.
func (s *Store) collectKeys(match func(*Entry) bool) ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("decode entry: %w", err)
				}
				if match(&entry) {
					keys = append(keys, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// deleteKeys removes the given keys, splitting across transactions when the
// batch grows too large for one.
func (s *Store) deleteKeys(keys [][]byte) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return wb.Flush()
}
