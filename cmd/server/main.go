// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package main is the entry point for the Kinoscope prediction engine.
//
// Kinoscope predicts which movies are likely to join canonical "must-see"
// film lists. It scores candidates across five weighted categories, caches
// ranked predictions per (decade, weighting profile) pair, tracks upstream
// data changes in a staleness ledger, and recomputes stale predictions
// through background refresh jobs.
//
// # Startup order
//
//  1. Configuration: koanf v2 (defaults, optional YAML file, KINOSCOPE_* env)
//  2. Logging: zerolog, with an slog bridge for the supervisor
//  3. DuckDB: movie/signal store and staleness ledger (shared connection)
//  4. Badger: prediction cache and job records
//  5. Task runner: Watermill gochannel queue with the refresh handler
//  6. Supervision tree: refresh scheduler (optional) and ops HTTP surface
//
// # Signal handling
//
// SIGINT/SIGTERM stop the supervision tree, drain in-flight refresh jobs up
// to the runner close timeout, then close both stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/kinoscope/internal/backtest"
	"github.com/tomtom215/kinoscope/internal/config"
	"github.com/tomtom215/kinoscope/internal/logging"
	"github.com/tomtom215/kinoscope/internal/models"
	"github.com/tomtom215/kinoscope/internal/moviestore"
	"github.com/tomtom215/kinoscope/internal/ops"
	"github.com/tomtom215/kinoscope/internal/predcache"
	"github.com/tomtom215/kinoscope/internal/refresh"
	"github.com/tomtom215/kinoscope/internal/scoring"
	"github.com/tomtom215/kinoscope/internal/staleness"
	"github.com/tomtom215/kinoscope/internal/supervisor"
	"github.com/tomtom215/kinoscope/internal/taskrunner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kinoscope: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()
	logger.Info().Msg("starting kinoscope")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DuckDB: movies, signals, profiles, and the staleness ledger.
	db, err := moviestore.New(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open movie store: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("movie store close")
		}
	}()

	tracker, err := staleness.New(db.SQL(), db, logger)
	if err != nil {
		return fmt.Errorf("open staleness ledger: %w", err)
	}

	// Badger: prediction cache entries and job records share one store.
	badgerOpts := badger.DefaultOptions(cfg.Cache.Path).WithLogger(nil)
	if cfg.Cache.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	kv, err := badger.Open(badgerOpts)
	if err != nil {
		return fmt.Errorf("open prediction cache store: %w", err)
	}
	defer func() {
		if cerr := kv.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("cache store close")
		}
	}()

	cache := predcache.NewStore(kv, logger)

	// Scoring pipeline. The configured default weights back the resolver
	// when a referenced profile cannot be loaded from the store.
	engine := scoring.NewEngine(logger)
	batch := scoring.NewBatchScorer(engine, db, logger)
	fallback := models.WeightingProfile{
		ID:   cfg.Scoring.DefaultProfileID,
		Name: "Default",
		Weights: models.Weights{
			CriticalAcclaim:     cfg.Scoring.DefaultWeights.CriticalAcclaim,
			FestivalRecognition: cfg.Scoring.DefaultWeights.FestivalRecognition,
			CulturalImpact:      cfg.Scoring.DefaultWeights.CulturalImpact,
			TechnicalInnovation: cfg.Scoring.DefaultWeights.TechnicalInnovation,
			AuteurRecognition:   cfg.Scoring.DefaultWeights.AuteurRecognition,
		},
	}
	resolver := scoring.NewResolver(db, fallback, logger)
	validator := backtest.New(db, batch, logger)

	// Background refresh machinery.
	jobs := taskrunner.NewJobStore(kv, cfg.Runner.HistoryLimit, logger)
	runner, err := taskrunner.New(cfg.Runner, jobs, logger)
	if err != nil {
		return fmt.Errorf("create task runner: %w", err)
	}

	executor := refresh.NewExecutor(db, resolver, batch, cache, cfg.Scoring.AlgorithmVersion, logger)
	manager := refresh.NewManager(cfg.Refresh, runner, executor, cache, tracker, db, logger)
	runner.Register(refresh.JobTypeRefresh, manager.Handler())

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start task runner: %w", err)
	}
	defer func() {
		if cerr := runner.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("task runner close")
		}
	}()

	// Supervision tree: scheduler and ops surface.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if cfg.Refresh.SchedulerEnabled {
		tree.AddBackground(refresh.NewScheduler(cfg.Refresh, manager, logger))
	}
	if cfg.Ops.Enabled {
		tree.AddOps(ops.New(cfg.Ops, ops.Deps{
			Manager:    manager,
			Cache:      cache,
			Validator:  validator,
			ProfileIDs: db.ActiveProfileIDs,
			Ready: []ops.ReadyCheck{
				func(ctx context.Context) error { return db.SQL().PingContext(ctx) },
			},
		}, logger))
	}

	logger.Info().
		Bool("scheduler", cfg.Refresh.SchedulerEnabled).
		Bool("ops", cfg.Ops.Enabled).
		Msg("kinoscope running")

	err = <-tree.ServeBackground(ctx)
	if err != nil && !isShutdown(err) {
		return fmt.Errorf("supervision tree: %w", err)
	}
	logger.Info().Msg("kinoscope stopped")
	return nil
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
