// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package metrics exposes Prometheus instrumentation for the prediction
// engine: scoring throughput, cache efficiency, ledger growth, and
// background refresh job outcomes. Metrics are served by the ops surface
// at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scoring metrics
	BatchScoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kinoscope_batch_score_duration_seconds",
			Help:    "Duration of batch scoring passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BatchScoredMovies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kinoscope_batch_scored_movies_total",
			Help: "Total number of movies scored by the batch scorer",
		},
	)

	// Prediction cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kinoscope_prediction_cache_hits_total",
			Help: "Prediction cache lookups that found an entry",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kinoscope_prediction_cache_misses_total",
			Help: "Prediction cache lookups that found no entry",
		},
	)

	CacheUpserts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kinoscope_prediction_cache_upserts_total",
			Help: "Prediction cache entries written (insert or replace)",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kinoscope_prediction_cache_entries",
			Help: "Current number of prediction cache entries",
		},
	)

	// Staleness ledger metrics
	LedgerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinoscope_change_events_total",
			Help: "Change events appended to the staleness ledger",
		},
		[]string{"kind"},
	)

	// Refresh job metrics
	JobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinoscope_refresh_jobs_submitted_total",
			Help: "Refresh jobs submitted to the task runner",
		},
		[]string{"job_type"},
	)

	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinoscope_refresh_jobs_finished_total",
			Help: "Refresh jobs that reached a terminal state",
		},
		[]string{"state"},
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kinoscope_refresh_job_duration_seconds",
			Help:    "Refresh job execution time in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)
)
