// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package taskrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/config"
	"github.com/tomtom215/kinoscope/internal/metrics"
)

const jobTopic = "kinoscope.jobs"

// ProgressFunc reports a running job's completion estimate. Persistence
// failures are logged, not surfaced, so handlers never fail on progress.
type ProgressFunc func(percent float64, message string)

// Handler executes one job. The context is cancelled on runner shutdown.
type Handler func(ctx context.Context, job *Job, progress ProgressFunc) error

// Runner dispatches persisted jobs through an in-process Watermill queue.
// Job records live in the JobStore; the queue only carries job ids, so a
// message lost to a restart leaves an inspectable queued record behind.
type Runner struct {
	cfg    config.RunnerConfig
	store  *JobStore
	pubsub *gochannel.GoChannel
	router *message.Router
	logger zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	slots  chan struct{}
	wg     sync.WaitGroup
	runCtx context.Context
	cancel context.CancelFunc
}

// New creates a runner. Handlers must be registered before Start.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg config.RunnerConfig, store *JobStore, logger zerolog.Logger) (*Runner, error) {
	wmLogger := newWatermillLogger(logger)

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.QueueBuffer),
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create job router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	r := &Runner{
		cfg:      cfg,
		store:    store,
		pubsub:   pubsub,
		router:   router,
		logger:   logger.With().Str("component", "taskrunner").Logger(),
		handlers: make(map[string]Handler),
		slots:    make(chan struct{}, workers),
	}
	router.AddConsumerHandler("job-executor", jobTopic, pubsub, r.handleMessage)
	return r, nil
}

// Register binds a handler to a job type. Must be called before Start.
func (r *Runner) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

// Start runs the dispatch loop and returns once it is accepting jobs.
func (r *Runner) Start(ctx context.Context) error {
	r.runCtx, r.cancel = context.WithCancel(ctx)

	go func() {
		if err := r.router.Run(r.runCtx); err != nil {
			r.logger.Error().Err(err).Msg("job router stopped")
		}
	}()

	select {
	case <-r.router.Running():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit persists a queued job and publishes it for execution. The returned
// job reflects the queued state; poll Job for updates.
func (r *Runner) Submit(ctx context.Context, jobType string, payload any) (*Job, error) {
	r.mu.RLock()
	_, known := r.handlers[jobType]
	r.mu.RUnlock()
	if !known {
		return nil, fmt.Errorf("no handler registered for job type %q", jobType)
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal job payload: %w", err)
		}
		raw = data
	}

	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    raw,
		State:      StateQueued,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := r.store.Save(job); err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte(job.ID))
	msg.SetContext(ctx)
	if err := r.pubsub.Publish(jobTopic, msg); err != nil {
		return nil, fmt.Errorf("publish job %s: %w", job.ID, err)
	}

	metrics.JobsSubmitted.WithLabelValues(jobType).Inc()
	r.logger.Info().Str("job_id", job.ID).Str("job_type", jobType).Msg("job submitted")
	return job, nil
}

// handleMessage claims the job and hands it to a worker slot. The message is
// acked once the job is claimed; job state, not redelivery, is the source of
// truth for what ran.
func (r *Runner) handleMessage(msg *message.Message) error {
	jobID := string(msg.Payload)

	job, err := r.store.Get(jobID)
	if err != nil {
		r.logger.Warn().Err(err).Str("job_id", jobID).Msg("queued job record missing, dropping")
		return nil
	}

	eligible, err := r.store.MarkRunning(jobID)
	if err != nil {
		return err
	}
	if !eligible {
		r.logger.Debug().Str("job_id", jobID).Str("state", string(job.State)).
			Msg("skipping job no longer queued")
		return nil
	}

	r.mu.RLock()
	handler := r.handlers[job.Type]
	r.mu.RUnlock()
	if handler == nil {
		return r.store.Fail(jobID, fmt.Errorf("no handler for job type %q", job.Type))
	}

	select {
	case r.slots <- struct{}{}:
	case <-r.runCtx.Done():
		return r.store.Fail(jobID, r.runCtx.Err())
	}

	r.wg.Add(1)
	go r.run(job, handler)
	return nil
}

func (r *Runner) run(job *Job, handler Handler) {
	defer func() {
		<-r.slots
		r.wg.Done()
	}()

	progress := func(percent float64, message string) {
		if err := r.store.UpdateProgress(job.ID, percent, message); err != nil {
			r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("progress update failed")
		}
	}

	start := time.Now()
	err := handler(r.runCtx, job, progress)
	if err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Str("job_type", job.Type).
			Dur("elapsed", time.Since(start)).Msg("job failed")
		if ferr := r.store.Fail(job.ID, err); ferr != nil {
			r.logger.Error().Err(ferr).Str("job_id", job.ID).Msg("recording job failure failed")
		}
		return
	}

	if cerr := r.store.Complete(job.ID); cerr != nil {
		r.logger.Error().Err(cerr).Str("job_id", job.ID).Msg("recording job completion failed")
		return
	}
	r.logger.Info().Str("job_id", job.ID).Str("job_type", job.Type).
		Dur("elapsed", time.Since(start)).Msg("job completed")
}

// Job returns one job record.
func (r *Runner) Job(id string) (*Job, error) {
	return r.store.Get(id)
}

// Active returns queued and running jobs.
func (r *Runner) Active() ([]*Job, error) {
	return r.store.Active()
}

// History returns finished jobs, newest first.
func (r *Runner) History(limit int) ([]*Job, error) {
	return r.store.History(limit)
}

// CancelPending cancels all queued jobs. Running jobs finish normally.
func (r *Runner) CancelPending() (int, error) {
	return r.store.CancelQueued()
}

// Close stops dispatch and waits for in-flight jobs up to CloseTimeout.
func (r *Runner) Close() error {
	if err := r.router.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("job router close")
	}
	if err := r.pubsub.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("job queue close")
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	timeout := r.cfg.CloseTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		r.logger.Warn().Msg("timed out waiting for in-flight jobs")
	}

	if r.cancel != nil {
		r.cancel()
	}
	return nil
}
