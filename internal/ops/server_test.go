// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package ops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/backtest"
	"github.com/tomtom215/kinoscope/internal/config"
	"github.com/tomtom215/kinoscope/internal/models"
	"github.com/tomtom215/kinoscope/internal/predcache"
	"github.com/tomtom215/kinoscope/internal/refresh"
	"github.com/tomtom215/kinoscope/internal/scoring"
	"github.com/tomtom215/kinoscope/internal/staleness"
	"github.com/tomtom215/kinoscope/internal/taskrunner"
)

type stubMovies struct{}

func (stubMovies) MoviesByDecade(context.Context, int) ([]models.Movie, error) { return nil, nil }
func (stubMovies) CanonicalMoviesByDecade(context.Context, int) ([]models.Movie, error) {
	return nil, nil
}
func (stubMovies) GroundTruthDecades(context.Context) ([]int, error) { return nil, nil }
func (stubMovies) Profiles(context.Context) ([]models.WeightingProfile, error) {
	return []models.WeightingProfile{{ID: "balanced", Name: "Balanced"}}, nil
}
func (stubMovies) ProfileByID(_ context.Context, id string) (models.WeightingProfile, error) {
	return models.WeightingProfile{ID: id}, nil
}
func (stubMovies) ProfileByName(_ context.Context, name string) (models.WeightingProfile, error) {
	return models.WeightingProfile{ID: name, Name: name}, nil
}
func (stubMovies) ActiveProfileIDs(context.Context) ([]string, error) {
	return []string{"balanced"}, nil
}

type stubScorer struct{}

func (stubScorer) ScoreBatch(context.Context, []models.Movie, models.WeightingProfile) ([]scoring.BatchItem, error) {
	return nil, nil
}

type stubRunner struct{}

func (stubRunner) Submit(_ context.Context, jobType string, _ any) (*taskrunner.Job, error) {
	return &taskrunner.Job{ID: "j", Type: jobType, State: taskrunner.StateQueued}, nil
}
func (stubRunner) Active() ([]*taskrunner.Job, error)     { return nil, nil }
func (stubRunner) History(int) ([]*taskrunner.Job, error) { return nil, nil }
func (stubRunner) CancelPending() (int, error)            { return 0, nil }

type stubLedger struct{}

func (stubLedger) Report(context.Context, *time.Time) (*staleness.Report, error) {
	return &staleness.Report{}, nil
}
func (stubLedger) Clear(context.Context) error               { return nil }
func (stubLedger) ClearDecades(context.Context, []int) error { return nil }
func (stubLedger) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func testServer(t *testing.T, ready []ReadyCheck) (*Server, *predcache.Store) {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cache := predcache.NewStore(db, zerolog.Nop())

	resolver := scoring.NewResolver(stubMovies{},
		models.WeightingProfile{ID: "balanced", Name: "Balanced"}, zerolog.Nop())
	exec := refresh.NewExecutor(stubMovies{}, resolver, stubScorer{}, cache, "v2.1", zerolog.Nop())
	manager := refresh.NewManager(config.RefreshConfig{
		MaxCacheAge:          7 * 24 * time.Hour,
		LongCacheAge:         30 * 24 * time.Hour,
		MediumCacheAge:       14 * 24 * time.Hour,
		TotalChangesHigh:     50,
		TotalChangesModerate: 10,
		FestivalChangesHigh:  5,
	}, stubRunner{}, exec, cache, stubLedger{}, stubMovies{}, zerolog.Nop())

	srv := New(config.OpsConfig{Addr: ":0", Timeout: 5 * time.Second}, Deps{
		Manager:    manager,
		Cache:      cache,
		Validator:  backtest.New(stubMovies{}, stubScorer{}, zerolog.Nop()),
		ProfileIDs: stubMovies{}.ActiveProfileIDs,
		Ready:      ready,
	}, zerolog.Nop())
	return srv, cache
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec := get(t, srv.Router(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	srv, _ := testServer(t, nil)
	if rec := get(t, srv.Router(), "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", rec.Code)
	}

	failing, _ := testServer(t, []ReadyCheck{
		func(context.Context) error { return nil },
		func(context.Context) error { return errors.New("duckdb unreachable") },
	})
	rec := get(t, failing.Router(), "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec := get(t, srv.Router(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body empty")
	}
}

func TestRecommendationEndpoint(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec := get(t, srv.Router(), "/ops/v1/refresh/recommendation")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	// Empty cache means a refresh is required.
	if body["recommendation"] != refresh.RecommendationRequired {
		t.Errorf("recommendation = %q", body["recommendation"])
	}
}

func TestProgressEndpointIdle(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec := get(t, srv.Router(), "/ops/v1/refresh/progress")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["in_progress"] != false {
		t.Errorf("in_progress = %v, want false", body["in_progress"])
	}
}

func TestCompareEndpoint(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec := get(t, srv.Router(), "/ops/v1/backtest/compare")
	if rec.Code != http.StatusOK {
		t.Fatalf("compare status = %d", rec.Code)
	}
	var cmp backtest.Comparison
	if err := json.Unmarshal(rec.Body.Bytes(), &cmp); err != nil {
		t.Fatal(err)
	}
	if len(cmp.Rankings) != 1 || cmp.Rankings[0].ProfileID != "balanced" {
		t.Errorf("rankings = %+v", cmp.Rankings)
	}
}

func TestStaleEndpoint(t *testing.T) {
	srv, cache := testServer(t, nil)
	err := cache.Upsert(context.Background(), 1970, "balanced", &predcache.Entry{
		MovieScores: map[string]predcache.MovieScore{},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := get(t, srv.Router(), "/ops/v1/cache/stale?decade=1970&profile=balanced")
	if rec.Code != http.StatusOK {
		t.Fatalf("stale status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["stale"] != false {
		t.Errorf("fresh entry stale = %v, want false", body["stale"])
	}

	rec = get(t, srv.Router(), "/ops/v1/cache/stale?decade=1980&profile=balanced")
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["stale"] != true {
		t.Errorf("uncached key stale = %v, want true", body["stale"])
	}

	if rec := get(t, srv.Router(), "/ops/v1/cache/stale?decade=soon&profile=balanced"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad decade status = %d, want 400", rec.Code)
	}
	if rec := get(t, srv.Router(), "/ops/v1/cache/stale?decade=1970"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing profile status = %d, want 400", rec.Code)
	}
}

func TestCoverageAndAges(t *testing.T) {
	srv, cache := testServer(t, nil)
	err := cache.Upsert(context.Background(), 1970, "balanced", &predcache.Entry{
		MovieScores: map[string]predcache.MovieScore{},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := get(t, srv.Router(), "/ops/v1/cache/coverage")
	if rec.Code != http.StatusOK {
		t.Fatalf("coverage status = %d", rec.Code)
	}
	var cov predcache.Coverage
	if err := json.Unmarshal(rec.Body.Bytes(), &cov); err != nil {
		t.Fatal(err)
	}
	if cov.Cached != 1 || cov.Total != len(models.SupportedDecades()) {
		t.Errorf("coverage = %+v", cov)
	}

	rec = get(t, srv.Router(), "/ops/v1/cache/ages")
	if rec.Code != http.StatusOK {
		t.Fatalf("ages status = %d", rec.Code)
	}
	var ages predcache.AgeStats
	if err := json.Unmarshal(rec.Body.Bytes(), &ages); err != nil {
		t.Fatal(err)
	}
	if ages.Count != 1 {
		t.Errorf("ages count = %d, want 1", ages.Count)
	}
}
