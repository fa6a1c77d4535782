// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package taskrunner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/config"
)

func testRunner(t *testing.T) (*Runner, *JobStore) {
	t.Helper()
	store := testStore(t, 100)
	cfg := config.RunnerConfig{
		Workers:      2,
		QueueBuffer:  16,
		HistoryLimit: 100,
		CloseTimeout: 5 * time.Second,
	}
	r, err := New(cfg, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("create runner: %v", err)
	}
	return r, store
}

func startRunner(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start runner: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
}

// waitForState polls until the job reaches the state or the deadline passes.
func waitForState(t *testing.T, r *Runner, id string, want JobState) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := r.Job(id)
		if err != nil {
			t.Fatalf("load job: %v", err)
		}
		if job.State == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := r.Job(id)
	t.Fatalf("job %s state = %s, want %s", id, job.State, want)
	return nil
}

func TestRunnerExecutesJob(t *testing.T) {
	r, _ := testRunner(t)

	type payload struct {
		Decade int `json:"decade"`
	}
	var got payload
	r.Register("score-decade", func(_ context.Context, job *Job, progress ProgressFunc) error {
		if err := json.Unmarshal(job.Payload, &got); err != nil {
			return err
		}
		progress(50, "halfway")
		return nil
	})
	startRunner(t, r)

	job, err := r.Submit(context.Background(), "score-decade", payload{Decade: 1970})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if job.State != StateQueued {
		t.Errorf("submitted state = %s, want queued", job.State)
	}

	done := waitForState(t, r, job.ID, StateCompleted)
	if got.Decade != 1970 {
		t.Errorf("handler payload decade = %d, want 1970", got.Decade)
	}
	if done.Progress.Percent != 100 {
		t.Errorf("final progress = %v, want 100", done.Progress.Percent)
	}
	if done.AttemptedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps missing on completed job")
	}
}

func TestRunnerRecordsFailure(t *testing.T) {
	r, _ := testRunner(t)
	r.Register("flaky", func(context.Context, *Job, ProgressFunc) error {
		return errors.New("signal store unavailable")
	})
	startRunner(t, r)

	job, err := r.Submit(context.Background(), "flaky", nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	failed := waitForState(t, r, job.ID, StateFailed)
	if failed.Error != "signal store unavailable" {
		t.Errorf("error detail = %q", failed.Error)
	}

	history, err := r.History(10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].Error == "" {
		t.Errorf("history = %+v, want failure with detail", history)
	}
}

func TestRunnerReportsProgress(t *testing.T) {
	r, _ := testRunner(t)

	reported := make(chan struct{})
	release := make(chan struct{})
	r.Register("slow", func(_ context.Context, _ *Job, progress ProgressFunc) error {
		progress(40, "scoring 1970s")
		close(reported)
		<-release
		return nil
	})
	startRunner(t, r)

	job, err := r.Submit(context.Background(), "slow", nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case <-reported:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}

	mid, err := r.Job(job.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if mid.State != StateRunning {
		t.Errorf("mid-run state = %s, want running", mid.State)
	}
	if mid.Progress.Percent != 40 || mid.Progress.Message != "scoring 1970s" {
		t.Errorf("mid-run progress = %+v", mid.Progress)
	}

	active, err := r.Active()
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("active jobs = %d, want 1", len(active))
	}

	close(release)
	waitForState(t, r, job.ID, StateCompleted)
}

func TestSubmitUnknownTypeRejected(t *testing.T) {
	r, _ := testRunner(t)
	startRunner(t, r)

	if _, err := r.Submit(context.Background(), "nonexistent", nil); err == nil {
		t.Error("expected error for unregistered job type")
	}
}

func TestCancelPendingOnlyTouchesQueued(t *testing.T) {
	r, store := testRunner(t)
	r.Register("noop", func(context.Context, *Job, ProgressFunc) error { return nil })

	// Enqueue records directly without starting dispatch, so they stay queued.
	queuedJob(t, store, "stuck-1")
	queuedJob(t, store, "stuck-2")

	n, err := r.CancelPending()
	if err != nil {
		t.Fatalf("CancelPending failed: %v", err)
	}
	if n != 2 {
		t.Errorf("cancelled = %d, want 2", n)
	}
	for _, id := range []string{"stuck-1", "stuck-2"} {
		job, err := store.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		if job.State != StateCancelled || job.CompletedAt == nil {
			t.Errorf("job %s = %+v, want cancelled with completed_at", id, job)
		}
	}
}
