// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package scoring

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kinoscope/internal/models"
)

// festivalTier holds the base festival-recognition scores for a festival.
type festivalTier struct {
	win        float64
	nomination float64
}

// festivalTiers maps lowercase festival names to prestige tiers.
// Unlisted festivals fall back to defaultFestivalTier.
var festivalTiers = map[string]festivalTier{
	"cannes":         {win: 95, nomination: 70},
	"venice":         {win: 90, nomination: 65},
	"berlin":         {win: 90, nomination: 65},
	"academy awards": {win: 85, nomination: 60},
	"sundance":       {win: 75, nomination: 55},
	"toronto":        {win: 70, nomination: 50},
	"locarno":        {win: 65, nomination: 45},
}

var defaultFestivalTier = festivalTier{win: 50, nomination: 30}

// prestigeCategoryKeywords mark best-picture/director-class categories that
// earn a bonus on top of the festival tier base.
var prestigeCategoryKeywords = []string{
	"palme d'or",
	"golden lion",
	"golden bear",
	"best picture",
	"best film",
	"best director",
	"grand prix",
	"grand jury",
}

const prestigeCategoryBonus = 10

// technicalCategoryKeywords match technical-craft award categories.
var technicalCategoryKeywords = []string{
	"cinematography",
	"sound",
	"editing",
	"visual effects",
	"special effects",
	"production design",
	"makeup",
}

// Auteur tier mapping: prior canonical credits of the movie's directors.
const (
	auteurTierNone = 20  // director known, no prior canonical works
	auteurTierFew  = 60  // 1-2 prior works
	auteurTierMany = 80  // 3-4 prior works
	auteurTierTop  = 100 // 5 or more
)

// Engine computes weighted multi-criterion scores. It is stateless apart
// from its logger and safe for concurrent use.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a scoring engine.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "scoring").Logger(),
	}
}

// Score computes the weighted score and likelihood for one movie under the
// given profile. Missing signals contribute zero; Score never fails.
func (e *Engine) Score(signals models.MovieSignals, profile models.WeightingProfile) ScoreResult {
	raw := map[string]float64{
		CategoryCriticalAcclaim:     e.criticalAcclaim(signals),
		CategoryFestivalRecognition: e.festivalRecognition(signals),
		CategoryCulturalImpact:      e.culturalImpact(signals),
		CategoryTechnicalInnovation: e.technicalInnovation(signals),
		CategoryAuteurRecognition:   e.auteurRecognition(signals),
	}
	weights := map[string]float64{
		CategoryCriticalAcclaim:     profile.Weights.CriticalAcclaim,
		CategoryFestivalRecognition: profile.Weights.FestivalRecognition,
		CategoryCulturalImpact:      profile.Weights.CulturalImpact,
		CategoryTechnicalInnovation: profile.Weights.TechnicalInnovation,
		CategoryAuteurRecognition:   profile.Weights.AuteurRecognition,
	}

	breakdown := make([]CategoryScore, 0, len(Categories))
	total := 0.0
	for _, cat := range Categories {
		weighted := raw[cat] * weights[cat]
		total += weighted
		breakdown = append(breakdown, CategoryScore{
			Category: cat,
			Raw:      raw[cat],
			Weight:   weights[cat],
			Weighted: weighted,
		})
	}

	return ScoreResult{
		MovieID:    signals.Movie.ID,
		Total:      total,
		Likelihood: Likelihood(total),
		Breakdown:  breakdown,
		ProfileID:  profile.ID,
	}
}

// criticalAcclaim averages all ratings normalized to 0-100.
func (e *Engine) criticalAcclaim(signals models.MovieSignals) float64 {
	if len(signals.Ratings) == 0 {
		return 0
	}
	sum := 0.0
	for i := range signals.Ratings {
		sum += signals.Ratings[i].Normalized()
	}
	return clamp(sum / float64(len(signals.Ratings)))
}

// festivalRecognition takes the best single nomination rather than summing,
// so one Palme d'Or is not diluted by a pile of minor nominations.
func (e *Engine) festivalRecognition(signals models.MovieSignals) float64 {
	best := 0.0
	for i := range signals.Nominations {
		nom := &signals.Nominations[i]

		tier, ok := festivalTiers[strings.ToLower(nom.Festival)]
		if !ok {
			tier = defaultFestivalTier
		}
		score := tier.nomination
		if nom.Won {
			score = tier.win
		}
		if matchesAny(nom.Category, prestigeCategoryKeywords) {
			score += prestigeCategoryBonus
		}
		if score > best {
			best = score
		}
	}
	return clamp(best)
}

// culturalImpact sums independently capped sub-scores: a box-office ROI
// tier (0-40), a popularity tier (0-30), and smaller genre and
// international-crossover bonuses.
func (e *Engine) culturalImpact(signals models.MovieSignals) float64 {
	m := &signals.Movie
	score := roiTier(m) + popularityTier(m) + genreBonus(m) + crossoverBonus(m)
	return clamp(score)
}

// roiTier is a staircase over revenue/budget ratio, capped at 40.
func roiTier(m *models.Movie) float64 {
	if m.Budget <= 0 || m.Revenue <= 0 {
		return 0
	}
	ratio := float64(m.Revenue) / float64(m.Budget)
	switch {
	case ratio >= 10:
		return 40
	case ratio >= 5:
		return 30
	case ratio >= 3:
		return 20
	case ratio >= 2:
		return 10
	default:
		return 0
	}
}

// popularityTier is a staircase requiring both a minimum average rating and
// a minimum vote count, capped at 30.
func popularityTier(m *models.Movie) float64 {
	switch {
	case m.VoteCount >= 10000 && m.VoteAverage >= 8.0:
		return 30
	case m.VoteCount >= 5000 && m.VoteAverage >= 7.5:
		return 20
	case m.VoteCount >= 1000 && m.VoteAverage >= 7.0:
		return 10
	default:
		return 0
	}
}

// canonScarceGenres are genres historically under-represented on the list;
// clearing the other cultural-impact bars in one of them earns a small bonus.
var canonScarceGenres = map[string]struct{}{
	"animation":   {},
	"documentary": {},
	"western":     {},
	"horror":      {},
}

func genreBonus(m *models.Movie) float64 {
	for _, g := range m.Genres {
		if _, ok := canonScarceGenres[strings.ToLower(g)]; ok {
			return 10
		}
	}
	return 0
}

// crossoverBonus rewards non-English films that reached a global audience.
func crossoverBonus(m *models.Movie) float64 {
	if m.Language != "" && !strings.EqualFold(m.Language, "en") && m.VoteCount >= 1000 {
		return 15
	}
	return 0
}

// technicalInnovation sums nominations in technical categories:
// 20 points per win, 10 per nomination, capped at 100.
func (e *Engine) technicalInnovation(signals models.MovieSignals) float64 {
	score := 0.0
	for i := range signals.Nominations {
		nom := &signals.Nominations[i]
		if !matchesAny(nom.Category, technicalCategoryKeywords) {
			continue
		}
		if nom.Won {
			score += 20
		} else {
			score += 10
		}
	}
	return clamp(score)
}

// auteurRecognition tiers the best director's prior canonical credit count.
// No director data at all scores zero.
func (e *Engine) auteurRecognition(signals models.MovieSignals) float64 {
	if len(signals.DirectorCanonCounts) == 0 {
		return 0
	}
	best := 0
	for _, count := range signals.DirectorCanonCounts {
		if count > best {
			best = count
		}
	}
	switch {
	case best >= 5:
		return auteurTierTop
	case best >= 3:
		return auteurTierMany
	case best >= 1:
		return auteurTierFew
	default:
		return auteurTierNone
	}
}

// likelihoodBreakpoints define the monotonic piecewise-linear compression
// from weighted total to likelihood percentage. The exact breakpoints are a
// tuning artifact; the curve must stay monotonic, cluster weak candidates
// near zero, and keep strong candidates distinguishable near the top.
var likelihoodBreakpoints = []struct {
	total      float64
	likelihood float64
}{
	{0, 0},
	{20, 10},
	{40, 25},
	{60, 55},
	{75, 80},
	{90, 95},
	{100, 100},
}

// Likelihood converts a weighted total score into a 0-100 likelihood
// percentage via piecewise-linear interpolation over likelihoodBreakpoints.
func Likelihood(total float64) float64 {
	bps := likelihoodBreakpoints
	if total <= bps[0].total {
		return bps[0].likelihood
	}
	last := bps[len(bps)-1]
	if total >= last.total {
		return last.likelihood
	}
	for i := 1; i < len(bps); i++ {
		if total <= bps[i].total {
			lo, hi := bps[i-1], bps[i]
			frac := (total - lo.total) / (hi.total - lo.total)
			return lo.likelihood + frac*(hi.likelihood-lo.likelihood)
		}
	}
	return last.likelihood
}

// matchesAny reports whether s contains any of the keywords,
// case-insensitively.
func matchesAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// clamp bounds a sub-score to the 0-100 range.
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
