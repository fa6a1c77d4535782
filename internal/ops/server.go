// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package ops serves the operational HTTP surface: Prometheus metrics,
// liveness/readiness probes, and a small read-only JSON view of refresh and
// cache state. The product-facing web API is a separate layer and does not
// live here.
package ops

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/backtest"
	"github.com/tomtom215/kinoscope/internal/config"
	"github.com/tomtom215/kinoscope/internal/predcache"
	"github.com/tomtom215/kinoscope/internal/refresh"
)

// ReadyCheck reports whether a dependency is usable. Readiness fails when
// any check errors.
type ReadyCheck func(ctx context.Context) error

// Deps are the components the ops surface reads from.
type Deps struct {
	Manager    *refresh.Manager
	Cache      *predcache.Store
	Validator  *backtest.Validator
	ProfileIDs func(ctx context.Context) ([]string, error)
	Ready      []ReadyCheck
}

// Server is the ops HTTP server, run as a suture service.
type Server struct {
	cfg    config.OpsConfig
	deps   Deps
	logger zerolog.Logger
}

// New creates the ops server.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg config.OpsConfig, deps Deps, logger zerolog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With().Str("component", "ops").Logger(),
	}
}

// Router builds the chi router. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.cfg.Timeout > 0 {
		r.Use(middleware.Timeout(s.cfg.Timeout))
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/ops/v1", func(r chi.Router) {
		r.Get("/refresh/recommendation", s.handleRecommendation)
		r.Get("/refresh/progress", s.handleProgress)
		r.Get("/refresh/history", s.handleHistory)
		r.Get("/cache/coverage", s.handleCoverage)
		r.Get("/cache/ages", s.handleAges)
		r.Get("/cache/stale", s.handleStale)
		r.Get("/backtest/compare", s.handleCompare)
	})
	return r
}

// Serve implements suture.Service: it runs the HTTP listener until the
// context is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("ops server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// String names the service in supervisor logs.
func (s *Server) String() string {
	return "ops-server"
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	for _, check := range s.deps.Ready {
		if err := check(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Manager.Recommendation(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"recommendation": rec})
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	progress, err := s.deps.Manager.Progress()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if progress == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"in_progress": false})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"in_progress": true, "progress": progress})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	history, err := s.deps.Manager.History(50)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	profileIDs, err := s.deps.ProfileIDs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	coverage, err := s.deps.Cache.Coverage(r.Context(), profileIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, coverage)
}

// handleStale answers the staleness-by-age check for one (decade, profile)
// key, using the configured maximum cache age.
func (s *Server) handleStale(w http.ResponseWriter, r *http.Request) {
	decade, err := strconv.Atoi(r.URL.Query().Get("decade"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "decade must be an integer"})
		return
	}
	profileID := r.URL.Query().Get("profile")
	if profileID == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "profile is required"})
		return
	}

	stale, err := s.deps.Manager.Stale(r.Context(), decade, profileID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"decade":     decade,
		"profile_id": profileID,
		"stale":      stale,
	})
}

func (s *Server) handleAges(w http.ResponseWriter, r *http.Request) {
	ages, err := s.deps.Cache.AgeStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ages)
}

// handleCompare backtests every profile against confirmed decades. This can
// take a while on large datasets; the router timeout bounds it.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	comparison, err := s.deps.Validator.CompareProfiles(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, comparison)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("ops request failed")
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
