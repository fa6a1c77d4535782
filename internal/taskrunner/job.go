// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package taskrunner executes long-running background jobs through an
// in-process Watermill queue with Badger-backed state, so job progress and
// history survive restarts and can be inspected while a job runs.
//
// Lifecycle: queued -> running -> completed | failed | cancelled. Cancelled
// is reachable only from queued; running jobs finish on their own.
package taskrunner

import (
	"time"

	"github.com/goccy/go-json"
)

// JobState is a job lifecycle state.
type JobState string

// Job lifecycle states.
const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Progress is a job's current completion estimate.
type Progress struct {
	Percent float64 `json:"percent"`
	Message string  `json:"message,omitempty"`
}

// Job is one unit of background work.
type Job struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	State    JobState        `json:"state"`
	Progress Progress        `json:"progress"`

	// Error holds the failure detail for failed jobs.
	Error string `json:"error,omitempty"`

	EnqueuedAt  time.Time  `json:"enqueued_at"`
	AttemptedAt *time.Time `json:"attempted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns the job's run time, zero until it has both started and
// finished.
func (j *Job) Duration() time.Duration {
	if j.AttemptedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.AttemptedAt)
}
