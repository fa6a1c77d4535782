// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package taskrunner

import (
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/metrics"
)

// ErrJobNotFound is returned when a job id is not in the store.
var ErrJobNotFound = errors.New("job not found")

const jobKeyPrefix = "job:"

// JobStore persists job records in Badger. All mutations go through a
// read-modify-write transaction so concurrent updates to the same job
// serialize on the store.
type JobStore struct {
	db           *badger.DB
	historyLimit int
	logger       zerolog.Logger
}

// NewJobStore creates a job store. historyLimit caps how many terminal jobs
// are retained; zero or negative disables pruning.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewJobStore(db *badger.DB, historyLimit int, logger zerolog.Logger) *JobStore {
	return &JobStore{
		db:           db,
		historyLimit: historyLimit,
		logger:       logger.With().Str("component", "jobstore").Logger(),
	}
}

func jobKey(id string) []byte {
	return []byte(jobKeyPrefix + id)
}

// Save writes a job record.
func (s *JobStore) Save(job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(jobKey(job.ID), data)
	})
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// Get loads one job by id.
func (s *JobStore) Get(id string) (*Job, error) {
	var job Job
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return &job, nil
}

// update applies fn to a job inside one transaction.
func (s *JobStore) update(id string, fn func(*Job) error) (*Job, error) {
	var job Job
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		}); err != nil {
			return err
		}
		if err := fn(&job); err != nil {
			return err
		}
		data, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		return txn.Set(jobKey(id), data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	return &job, nil
}

// MarkRunning transitions a queued job to running and stamps attempted_at.
// Returns false when the job is no longer queued (e.g. cancelled while
// waiting), in which case the caller must skip execution.
func (s *JobStore) MarkRunning(id string) (bool, error) {
	eligible := true
	_, err := s.update(id, func(job *Job) error {
		if job.State != StateQueued {
			eligible = false
			return nil
		}
		now := time.Now().UTC()
		job.State = StateRunning
		job.AttemptedAt = &now
		return nil
	})
	if err != nil {
		return false, err
	}
	return eligible, nil
}

// UpdateProgress records a running job's completion estimate.
func (s *JobStore) UpdateProgress(id string, percent float64, message string) error {
	_, err := s.update(id, func(job *Job) error {
		job.Progress = Progress{Percent: percent, Message: message}
		return nil
	})
	return err
}

// Complete marks a job completed.
func (s *JobStore) Complete(id string) error {
	return s.finish(id, StateCompleted, "")
}

// Fail marks a job failed with the error detail preserved for History.
func (s *JobStore) Fail(id string, jobErr error) error {
	detail := ""
	if jobErr != nil {
		detail = jobErr.Error()
	}
	return s.finish(id, StateFailed, detail)
}

func (s *JobStore) finish(id string, state JobState, detail string) error {
	job, err := s.update(id, func(job *Job) error {
		now := time.Now().UTC()
		job.State = state
		job.CompletedAt = &now
		job.Error = detail
		if state == StateCompleted {
			job.Progress = Progress{Percent: 100, Message: job.Progress.Message}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.JobsCompleted.WithLabelValues(string(state)).Inc()
	if d := job.Duration(); d > 0 {
		metrics.JobDuration.Observe(d.Seconds())
	}
	return s.pruneHistory()
}

// CancelQueued transitions every queued job to cancelled and returns how
// many were affected. Running jobs are left to finish.
func (s *JobStore) CancelQueued() (int, error) {
	jobs, err := s.List()
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, job := range jobs {
		if job.State != StateQueued {
			continue
		}
		_, err := s.update(job.ID, func(j *Job) error {
			if j.State != StateQueued {
				return nil
			}
			now := time.Now().UTC()
			j.State = StateCancelled
			j.CompletedAt = &now
			return nil
		})
		if err != nil {
			return cancelled, err
		}
		metrics.JobsCompleted.WithLabelValues(string(StateCancelled)).Inc()
		cancelled++
	}
	return cancelled, nil
}

// List returns all stored jobs, newest first.
func (s *JobStore) List() ([]*Job, error) {
	var jobs []*Job
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var job Job
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			})
			if err != nil {
				return err
			}
			jobs = append(jobs, &job)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].EnqueuedAt.After(jobs[j].EnqueuedAt)
	})
	return jobs, nil
}

// Active returns jobs that are queued or running, newest first.
func (s *JobStore) Active() ([]*Job, error) {
	jobs, err := s.List()
	if err != nil {
		return nil, err
	}
	active := jobs[:0]
	for _, job := range jobs {
		if !job.State.Terminal() {
			active = append(active, job)
		}
	}
	return active, nil
}

// History returns up to limit terminal jobs, newest first, including error
// details for failed runs.
func (s *JobStore) History(limit int) ([]*Job, error) {
	jobs, err := s.List()
	if err != nil {
		return nil, err
	}
	var history []*Job
	for _, job := range jobs {
		if !job.State.Terminal() {
			continue
		}
		history = append(history, job)
		if limit > 0 && len(history) >= limit {
			break
		}
	}
	return history, nil
}

// pruneHistory drops the oldest terminal jobs beyond the retention cap.
func (s *JobStore) pruneHistory() error {
	if s.historyLimit <= 0 {
		return nil
	}
	jobs, err := s.List()
	if err != nil {
		return err
	}
	terminal := 0
	for _, job := range jobs {
		if !job.State.Terminal() {
			continue
		}
		terminal++
		if terminal <= s.historyLimit {
			continue
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(jobKey(job.ID))
		})
		if err != nil {
			return fmt.Errorf("prune job %s: %w", job.ID, err)
		}
		s.logger.Debug().Str("job_id", job.ID).Msg("pruned job from history")
	}
	return nil
}
