// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package scoring

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/models"
)

// mockSignalProvider implements SignalProvider for testing, counting calls
// to verify the one-pass preload contract.
type mockSignalProvider struct {
	ratings     map[int64][]models.Rating
	nominations map[int64][]models.Nomination
	canonCounts map[int64][]int

	ratingsErr error

	ratingCalls     atomic.Int32
	nominationCalls atomic.Int32
	canonCalls      atomic.Int32
}

func (m *mockSignalProvider) RatingsForMovies(_ context.Context, _ []int64) (map[int64][]models.Rating, error) {
	m.ratingCalls.Add(1)
	if m.ratingsErr != nil {
		return nil, m.ratingsErr
	}
	return m.ratings, nil
}

func (m *mockSignalProvider) NominationsForMovies(_ context.Context, _ []int64) (map[int64][]models.Nomination, error) {
	m.nominationCalls.Add(1)
	return m.nominations, nil
}

func (m *mockSignalProvider) DirectorCanonCountsForMovies(_ context.Context, _ []int64) (map[int64][]int, error) {
	m.canonCalls.Add(1)
	return m.canonCounts, nil
}

func testMovies() []models.Movie {
	return []models.Movie{
		{ID: 1, Title: "First", Budget: 1_000_000, Revenue: 12_000_000, VoteAverage: 8.2, VoteCount: 20000},
		{ID: 2, Title: "Second", VoteAverage: 6.1, VoteCount: 300},
		{ID: 3, Title: "Third", Budget: 5_000_000, Revenue: 11_000_000, VoteAverage: 7.4, VoteCount: 2000, Language: "ko"},
	}
}

func testProvider() *mockSignalProvider {
	return &mockSignalProvider{
		ratings: map[int64][]models.Rating{
			1: {{MovieID: 1, Value: 9, Scale: 10}},
			3: {{MovieID: 3, Value: 7, Scale: 10}, {MovieID: 3, Value: 80, Scale: 100}},
		},
		nominations: map[int64][]models.Nomination{
			1: {{MovieID: 1, Festival: "Cannes", Category: "Palme d'Or", Won: true}},
			3: {{MovieID: 3, Festival: "Academy Awards", Category: "Best Cinematography", Won: false}},
		},
		canonCounts: map[int64][]int{
			1: {5},
			3: {0},
		},
	}
}

func TestScoreBatchEquivalentToSingleScoring(t *testing.T) {
	engine := testEngine()
	provider := testProvider()
	scorer := NewBatchScorer(engine, provider, zerolog.Nop())
	profile := uniformProfile()
	movies := testMovies()

	items, err := scorer.ScoreBatch(context.Background(), movies, profile)
	if err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}
	if len(items) != len(movies) {
		t.Fatalf("got %d items, want %d", len(items), len(movies))
	}

	for _, item := range items {
		signals := models.MovieSignals{
			Movie:               item.Movie,
			Ratings:             provider.ratings[item.Movie.ID],
			Nominations:         provider.nominations[item.Movie.ID],
			DirectorCanonCounts: provider.canonCounts[item.Movie.ID],
		}
		single := engine.Score(signals, profile)
		if math.Abs(single.Total-item.Result.Total) > 1e-9 {
			t.Errorf("movie %d: batch total %f != single total %f",
				item.Movie.ID, item.Result.Total, single.Total)
		}
		if math.Abs(single.Likelihood-item.Result.Likelihood) > 1e-9 {
			t.Errorf("movie %d: batch likelihood %f != single likelihood %f",
				item.Movie.ID, item.Result.Likelihood, single.Likelihood)
		}
	}
}

func TestScoreBatchPreloadsOnce(t *testing.T) {
	provider := testProvider()
	scorer := NewBatchScorer(testEngine(), provider, zerolog.Nop())

	if _, err := scorer.ScoreBatch(context.Background(), testMovies(), uniformProfile()); err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}

	if n := provider.ratingCalls.Load(); n != 1 {
		t.Errorf("ratings loaded %d times, want 1", n)
	}
	if n := provider.nominationCalls.Load(); n != 1 {
		t.Errorf("nominations loaded %d times, want 1", n)
	}
	if n := provider.canonCalls.Load(); n != 1 {
		t.Errorf("canon counts loaded %d times, want 1", n)
	}
}

func TestScoreBatchEmptyInput(t *testing.T) {
	provider := testProvider()
	scorer := NewBatchScorer(testEngine(), provider, zerolog.Nop())

	items, err := scorer.ScoreBatch(context.Background(), nil, uniformProfile())
	if err != nil {
		t.Fatalf("ScoreBatch(nil) failed: %v", err)
	}
	if items != nil {
		t.Errorf("expected nil items for empty input, got %d", len(items))
	}
	if provider.ratingCalls.Load() != 0 {
		t.Error("empty batch should not hit the signal provider")
	}
}

func TestScoreBatchPropagatesPreloadError(t *testing.T) {
	provider := testProvider()
	provider.ratingsErr = errors.New("store unavailable")
	scorer := NewBatchScorer(testEngine(), provider, zerolog.Nop())

	_, err := scorer.ScoreBatch(context.Background(), testMovies(), uniformProfile())
	if err == nil {
		t.Fatal("expected error when preload fails")
	}
	if !errors.Is(err, provider.ratingsErr) {
		t.Errorf("error %v does not wrap preload error", err)
	}
}

func TestSortByScoreAndTopN(t *testing.T) {
	items := []BatchItem{
		{Movie: models.Movie{ID: 1, Title: "B"}, Result: ScoreResult{Total: 50}},
		{Movie: models.Movie{ID: 2, Title: "A"}, Result: ScoreResult{Total: 80}},
		{Movie: models.Movie{ID: 3, Title: "C"}, Result: ScoreResult{Total: 50}},
		{Movie: models.Movie{ID: 4, Title: "A"}, Result: ScoreResult{Total: 50}},
	}
	SortByScore(items)

	wantOrder := []int64{2, 4, 1, 3} // 80 first, then ties by title then id
	for i, want := range wantOrder {
		if items[i].Movie.ID != want {
			t.Errorf("position %d: movie %d, want %d", i, items[i].Movie.ID, want)
		}
	}

	top := TopN(items, 2)
	if len(top) != 2 || top[0].Movie.ID != 2 {
		t.Errorf("TopN(2) = %v", top)
	}
	if got := TopN(items, 10); len(got) != 4 {
		t.Errorf("TopN beyond length = %d items, want 4", len(got))
	}
	if got := TopN(items, -1); len(got) != 0 {
		t.Errorf("TopN(-1) = %d items, want 0", len(got))
	}
}
