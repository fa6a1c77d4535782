// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package config defines the Kinoscope configuration model and the koanf-based
// loader that merges defaults, an optional YAML file, and KINOSCOPE_* environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the prediction engine.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Refresh   RefreshConfig   `koanf:"refresh"`
	Runner    RunnerConfig    `koanf:"runner"`
	Ops       OpsConfig       `koanf:"ops"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig configures the DuckDB movie/signal store and staleness ledger.
type DatabaseConfig struct {
	// Path to the DuckDB database file. Empty string opens an in-memory
	// database (used by tests and standalone demos).
	Path string `koanf:"path"`

	// MaxMemory is DuckDB's memory limit, e.g. "2GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads for DuckDB query execution. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`

	// SeedDemoData loads a small seed dataset on startup when the
	// movies table is empty.
	SeedDemoData bool `koanf:"seed_demo_data"`
}

// CacheConfig configures the BadgerDB store backing the prediction cache
// and the task runner's job records.
type CacheConfig struct {
	// Path is the Badger data directory.
	Path string `koanf:"path"`

	// InMemory runs Badger without disk persistence (tests only).
	InMemory bool `koanf:"in_memory"`
}

// ScoringConfig holds scoring engine parameters.
type ScoringConfig struct {
	// AlgorithmVersion is recorded in cache entry metadata so operators can
	// tell which engine produced a cached prediction set.
	AlgorithmVersion string `koanf:"algorithm_version"`

	// DefaultProfileID is the fallback weighting profile when a caller
	// references an unknown profile.
	DefaultProfileID string `koanf:"default_profile_id"`

	// Default category weights, used when the default profile id cannot be
	// resolved from the store either.
	DefaultWeights WeightsConfig `koanf:"default_weights"`
}

// WeightsConfig mirrors the five scoring categories. Weights are relative;
// they need not sum to 1.0.
type WeightsConfig struct {
	CriticalAcclaim     float64 `koanf:"critical_acclaim"`
	FestivalRecognition float64 `koanf:"festival_recognition"`
	CulturalImpact      float64 `koanf:"cultural_impact"`
	TechnicalInnovation float64 `koanf:"technical_innovation"`
	AuteurRecognition   float64 `koanf:"auteur_recognition"`
}

// RefreshConfig holds the refresh decision policy thresholds and the
// background scheduler settings. Thresholds live here, not at call sites.
type RefreshConfig struct {
	// MaxCacheAge is the age at which a cache entry is considered stale
	// for IsStale checks.
	MaxCacheAge time.Duration `koanf:"max_cache_age"`

	// LongCacheAge alone makes a refresh recommended.
	LongCacheAge time.Duration `koanf:"long_cache_age"`

	// MediumCacheAge combined with a moderate change count makes a refresh
	// suggested.
	MediumCacheAge time.Duration `koanf:"medium_cache_age"`

	// TotalChangesHigh: total recorded changes above this make a refresh
	// recommended.
	TotalChangesHigh int `koanf:"total_changes_high"`

	// TotalChangesModerate: total recorded changes above this make a refresh
	// suggested.
	TotalChangesModerate int `koanf:"total_changes_moderate"`

	// FestivalChangesHigh: festival-class changes alone above this make a
	// refresh recommended.
	FestivalChangesHigh int `koanf:"festival_changes_high"`

	// SchedulerEnabled runs the background scheduler that periodically
	// turns recommendations into submissions.
	SchedulerEnabled bool `koanf:"scheduler_enabled"`

	// SchedulerInterval is how often the scheduler re-evaluates.
	SchedulerInterval time.Duration `koanf:"scheduler_interval"`

	// SubmitRate and SubmitBurst bound automatic submissions (tokens/sec).
	SubmitRate  float64 `koanf:"submit_rate"`
	SubmitBurst int     `koanf:"submit_burst"`

	// LedgerRetention bounds ledger growth; Prune removes older rows.
	LedgerRetention time.Duration `koanf:"ledger_retention"`
}

// RunnerConfig configures the in-process background task runner.
type RunnerConfig struct {
	// Workers is the number of concurrent job executors.
	Workers int `koanf:"workers"`

	// QueueBuffer is the gochannel buffer size for queued jobs.
	QueueBuffer int `koanf:"queue_buffer"`

	// HistoryLimit caps retained terminal job records.
	HistoryLimit int `koanf:"history_limit"`

	// CloseTimeout bounds router shutdown.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// OpsConfig configures the operational HTTP surface (/metrics, /healthz).
type OpsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	Timeout time.Duration `koanf:"timeout"`
}

// defaultConfig returns a Config with all default values. Defaults are applied
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:         "/data/kinoscope.duckdb",
			MaxMemory:    "2GB",
			Threads:      0,
			SeedDemoData: false,
		},
		Cache: CacheConfig{
			Path:     "/data/predictions",
			InMemory: false,
		},
		Scoring: ScoringConfig{
			AlgorithmVersion: "v2.1",
			DefaultProfileID: "balanced",
			DefaultWeights: WeightsConfig{
				CriticalAcclaim:     0.25,
				FestivalRecognition: 0.25,
				CulturalImpact:      0.20,
				TechnicalInnovation: 0.15,
				AuteurRecognition:   0.15,
			},
		},
		Refresh: RefreshConfig{
			MaxCacheAge:          7 * 24 * time.Hour,
			LongCacheAge:         30 * 24 * time.Hour,
			MediumCacheAge:       14 * 24 * time.Hour,
			TotalChangesHigh:     50,
			TotalChangesModerate: 10,
			FestivalChangesHigh:  5,
			SchedulerEnabled:     false,
			SchedulerInterval:    1 * time.Hour,
			SubmitRate:           1.0 / 60.0, // one automatic submission per minute
			SubmitBurst:          1,
			LedgerRetention:      90 * 24 * time.Hour,
		},
		Runner: RunnerConfig{
			Workers:      2,
			QueueBuffer:  64,
			HistoryLimit: 100,
			CloseTimeout: 30 * time.Second,
		},
		Ops: OpsConfig{
			Enabled: true,
			Addr:    ":3858",
			Timeout: 15 * time.Second,
		},
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Refresh.MaxCacheAge <= 0 {
		return fmt.Errorf("refresh.max_cache_age must be positive, got %s", c.Refresh.MaxCacheAge)
	}
	if c.Refresh.MediumCacheAge > c.Refresh.LongCacheAge {
		return fmt.Errorf("refresh.medium_cache_age (%s) must not exceed refresh.long_cache_age (%s)",
			c.Refresh.MediumCacheAge, c.Refresh.LongCacheAge)
	}
	if c.Refresh.TotalChangesModerate > c.Refresh.TotalChangesHigh {
		return fmt.Errorf("refresh.total_changes_moderate (%d) must not exceed refresh.total_changes_high (%d)",
			c.Refresh.TotalChangesModerate, c.Refresh.TotalChangesHigh)
	}
	if c.Runner.Workers < 1 {
		return fmt.Errorf("runner.workers must be at least 1, got %d", c.Runner.Workers)
	}
	if c.Scoring.DefaultProfileID == "" {
		return fmt.Errorf("scoring.default_profile_id must not be empty")
	}
	w := c.Scoring.DefaultWeights
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"critical_acclaim", w.CriticalAcclaim},
		{"festival_recognition", w.FestivalRecognition},
		{"cultural_impact", w.CulturalImpact},
		{"technical_innovation", w.TechnicalInnovation},
		{"auteur_recognition", w.AuteurRecognition},
	} {
		if v.value < 0 {
			return fmt.Errorf("scoring.default_weights.%s must be non-negative, got %f", v.name, v.value)
		}
	}
	return nil
}
