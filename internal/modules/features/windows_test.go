package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hoopsight/hoopsight/internal/domain"
)

func TestDecayWeights(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{name: "single game", n: 1},
		{name: "five games", n: 5},
		{name: "twenty games", n: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights := DecayWeights(tt.n)
			assert.Len(t, weights, tt.n)

			var sum float64
			for _, w := range weights {
				sum += w
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "weights must be normalized")

			// Most recent game carries the largest weight.
			for i := 1; i < len(weights); i++ {
				assert.Greater(t, weights[i-1], weights[i])
			}
		})
	}
}

func TestDecayWeights_Empty(t *testing.T) {
	assert.Nil(t, DecayWeights(0))
	assert.Nil(t, DecayWeights(-3))
}

func TestPer36(t *testing.T) {
	tests := []struct {
		name    string
		total   float64
		minutes float64
		want    float64
	}{
		{name: "full game pace", total: 18, minutes: 36, want: 18},
		{name: "half minutes doubles rate", total: 10, minutes: 18, want: 20},
		{name: "zero minutes yields zero", total: 12, minutes: 0, want: 0},
		{name: "negative minutes yields zero", total: 12, minutes: -5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, per36(tt.total, tt.minutes), 1e-9)
		})
	}
}

func TestRatioHelpers(t *testing.T) {
	assert.InDelta(t, 2.5, ratioOrZero(5, 2), 1e-9)
	assert.Zero(t, ratioOrZero(5, 0))

	// Zero turnovers keeps the assist count instead of collapsing to zero.
	assert.InDelta(t, 7, ratioOrNumerator(7, 0), 1e-9)
	assert.InDelta(t, 3.5, ratioOrNumerator(7, 2), 1e-9)
}

func TestWindowMeans(t *testing.T) {
	// Most recent first: 30, 20, 10.
	prior := []domain.PlayerGameLog{
		{Points: 30, MinutesPlayed: 36},
		{Points: 20, MinutesPlayed: 30},
		{Points: 10, MinutesPlayed: 24},
	}

	assert.InDelta(t, 20, windowMean(prior, "points"), 1e-9)
	assert.InDelta(t, 25, windowMean(window(prior, 2), "points"), 1e-9)
	assert.InDelta(t, 90, windowSum(prior, "minutes_played"), 1e-9)

	// Recency weighting pulls the mean toward the most recent 30-point game.
	weighted := weightedMean(prior, "points", DecayWeights(len(prior)))
	assert.Greater(t, weighted, 20.0)

	assert.Zero(t, windowMean(nil, "points"))
}

func TestStarterShare(t *testing.T) {
	win := []domain.PlayerGameLog{
		{IsStarter: true},
		{IsStarter: false},
		{IsStarter: true},
		{IsStarter: true},
	}
	assert.InDelta(t, 0.75, starterShare(win), 1e-9)
	assert.Zero(t, starterShare(nil))
}

func TestMinutesTrend(t *testing.T) {
	rising := []domain.PlayerGameLog{
		{MinutesPlayed: 34}, // most recent
		{MinutesPlayed: 32},
		{MinutesPlayed: 30},
		{MinutesPlayed: 28},
	}
	assert.InDelta(t, 2.0, minutesTrend(rising), 1e-9)

	falling := []domain.PlayerGameLog{
		{MinutesPlayed: 20},
		{MinutesPlayed: 25},
		{MinutesPlayed: 30},
	}
	assert.Less(t, minutesTrend(falling), 0.0)

	flat := []domain.PlayerGameLog{
		{MinutesPlayed: 30},
		{MinutesPlayed: 30},
		{MinutesPlayed: 30},
	}
	assert.Zero(t, minutesTrend(flat))

	short := []domain.PlayerGameLog{
		{MinutesPlayed: 30},
		{MinutesPlayed: 20},
	}
	assert.Zero(t, minutesTrend(short))
}

func TestComputeRolling(t *testing.T) {
	// Seven prior games, most recent first, points 28 down to 16.
	prior := make([]domain.PlayerGameLog, 7)
	for i := range prior {
		prior[i] = domain.PlayerGameLog{
			Points:              float64(28 - 2*i),
			Rebounds:            5,
			Assists:             4,
			Turnovers:           2,
			MinutesPlayed:       32,
			FieldGoalsMade:      8,
			FieldGoalsAttempted: 16,
			IsStarter:           true,
		}
	}

	v := NewVector()
	computeRolling(v, prior)

	// Last 5: 28, 26, 24, 22, 20.
	got, ok := v.Value("points_l5")
	assert.True(t, ok)
	assert.InDelta(t, 24, got, 1e-9)

	// The 10 and 20 game windows shrink to the 7 available games.
	got, ok = v.Value("points_l10")
	assert.True(t, ok)
	assert.InDelta(t, 22, got, 1e-9)
	got, _ = v.Value("points_l20")
	assert.InDelta(t, 22, got, 1e-9)

	// Recency weighting rewards the hot streak.
	weighted, _ := v.Value("points_l5_weighted")
	assert.Greater(t, weighted, 24.0)

	fgPct, _ := v.Value("fg_pct_l5")
	assert.InDelta(t, 0.5, fgPct, 1e-9)

	per36Pts, _ := v.Value("points_per36_l5")
	assert.InDelta(t, 24.0/32.0*36.0, per36Pts, 1e-9)

	// Zero turnovers in history never happens here, ratio is defined.
	astTo, _ := v.Value("ast_to_ratio_l5")
	assert.InDelta(t, 2.0, astTo, 1e-9)

	starter, _ := v.Value("is_starter_l5")
	assert.InDelta(t, 1.0, starter, 1e-9)

	// Chronological minutes are flat.
	trend, _ := v.Value("minutes_trend")
	assert.Zero(t, trend)
}

func TestComputeRolling_EmptyHistory(t *testing.T) {
	v := NewVector()
	computeRolling(v, nil)

	for _, name := range []string{"points_l5", "points_l20_weighted", "fg_pct_l10", "minutes_trend"} {
		got, ok := v.Value(name)
		assert.True(t, ok, name)
		assert.False(t, math.IsNaN(got), name)
		assert.Zero(t, got, name)
	}
}
