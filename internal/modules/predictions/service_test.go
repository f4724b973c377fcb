package predictions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/features"
)

func TestEnsembleVersion(t *testing.T) {
	got := ensembleVersion([]string{"symmetric_gbt", "depthwise_gbt", "random_forest", "leafwise_gbt"})
	assert.Equal(t, "depthwise_gbt+leafwise_gbt+random_forest+symmetric_gbt", got)

	// Registration order never changes the stored version.
	reordered := ensembleVersion([]string{"random_forest", "leafwise_gbt", "symmetric_gbt", "depthwise_gbt"})
	assert.Equal(t, got, reordered)

	assert.Equal(t, "depthwise_gbt", ensembleVersion([]string{"depthwise_gbt"}))
}

func TestEnsembleLine(t *testing.T) {
	lines := []domain.StatLine{
		{Points: 20, Rebounds: 4, Assists: 6, Steals: 1, Blocks: 0, Turnovers: 2, ThreePointersMade: 3},
		{Points: 24, Rebounds: 6, Assists: 4, Steals: 2, Blocks: 1, Turnovers: 3, ThreePointersMade: 1},
	}

	avg := ensembleLine(lines)
	assert.InDelta(t, 22, avg.Points, 1e-9)
	assert.InDelta(t, 5, avg.Rebounds, 1e-9)
	assert.InDelta(t, 5, avg.Assists, 1e-9)
	assert.InDelta(t, 1.5, avg.Steals, 1e-9)
	assert.InDelta(t, 0.5, avg.Blocks, 1e-9)
	assert.InDelta(t, 2.5, avg.Turnovers, 1e-9)
	assert.InDelta(t, 2, avg.ThreePointersMade, 1e-9)
}

func TestWeightedEnsembleLine(t *testing.T) {
	lines := []domain.StatLine{
		{Points: 20, Rebounds: 4},
		{Points: 24, Rebounds: 6},
	}

	// Weights 3:1 pull the blend toward the first line.
	blended := weightedEnsembleLine(lines, []float64{3, 1})
	assert.InDelta(t, 21, blended.Points, 1e-9)
	assert.InDelta(t, 4.5, blended.Rebounds, 1e-9)

	// A family without error history drops everything back to equal votes.
	fallback := weightedEnsembleLine(lines, []float64{3, 0})
	assert.InDelta(t, 22, fallback.Points, 1e-9)
	assert.InDelta(t, 5, fallback.Rebounds, 1e-9)
}

func TestRoundLine(t *testing.T) {
	rounded := roundLine(domain.StatLine{Points: 21.4499, Rebounds: 5.55, Assists: 3.04})
	assert.Equal(t, 21.4, rounded.Points)
	assert.InDelta(t, 5.6, rounded.Rebounds, 1e-9)
	assert.Equal(t, 3.0, rounded.Assists)
}

func TestApplyBoost(t *testing.T) {
	line := domain.StatLine{Points: 18, Rebounds: 5, Assists: 4, Steals: 1}

	applyBoost(&line, domain.StatLine{Points: 3.2, Rebounds: 1.1, Assists: -0.5})
	assert.InDelta(t, 21.2, line.Points, 1e-9)
	assert.InDelta(t, 6.1, line.Rebounds, 1e-9)
	assert.InDelta(t, 3.5, line.Assists, 1e-9)
	assert.InDelta(t, 1, line.Steals, 1e-9, "boosts only touch points, rebounds, assists")

	// A negative boost never drives a stat below zero.
	low := domain.StatLine{Points: 1}
	applyBoost(&low, domain.StatLine{Points: -4})
	assert.Zero(t, low.Points)
}

func TestMeanAbsoluteError(t *testing.T) {
	predicted := domain.StatLine{Points: 20, Rebounds: 5, Assists: 4, Steals: 1, Blocks: 0, Turnovers: 2, ThreePointersMade: 2}
	actual := domain.StatLine{Points: 27, Rebounds: 5, Assists: 4, Steals: 1, Blocks: 0, Turnovers: 2, ThreePointersMade: 2}

	assert.Equal(t, 1.0, meanAbsoluteError(predicted, actual), "a 7-point miss spreads to 1.0 across seven stats")
	assert.Zero(t, meanAbsoluteError(actual, actual))

	// Rounded to two decimals.
	off := actual
	off.Points += 0.1
	assert.Equal(t, 0.01, meanAbsoluteError(off, actual))
}

func TestExplain_RanksByImpact(t *testing.T) {
	v := features.NewVector()
	v.Set("points_l5", 30)   // far from the mean
	v.Set("team_pace", 99)   // near the mean
	v.Set("minutes_trend", 2)

	means := &features.Means{Values: map[string]float64{
		"points_l5": 12,
		"team_pace": 98,
	}}
	importance := map[string]float64{
		"points_l5":     0.5, // impact 9.0
		"team_pace":     0.4, // impact 0.4
		"minutes_trend": 0.1, // impact 0.2
		"unused":        0,
	}

	impacts := explain(v, func(string) float64 { return 0 }, importance, means)
	require.Len(t, impacts, 3, "zero-weight features are dropped")
	assert.Equal(t, "points_l5", impacts[0].Feature)
	assert.InDelta(t, 9.0, impacts[0].Impact, 1e-9)
	assert.Equal(t, "team_pace", impacts[1].Feature)
	assert.Equal(t, "minutes_trend", impacts[2].Feature)
}

func TestExplain_TruncatesToDepth(t *testing.T) {
	v := features.NewVector()
	importance := make(map[string]float64)
	for i, name := range features.ColumnNames() {
		v.Set(name, float64(i))
		importance[name] = 0.01
	}
	means := &features.Means{Values: map[string]float64{}}

	impacts := explain(v, func(string) float64 { return 0 }, importance, means)
	assert.Len(t, impacts, explanationDepth)
}

func TestEncodeExplanations(t *testing.T) {
	encoded := encodeExplanations(map[string][]FeatureImpact{
		"points": {{Feature: "points_l5", Value: 24, Impact: 6}},
	})

	var decoded map[string][]FeatureImpact
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	require.Len(t, decoded["points"], 1)
	assert.Equal(t, "points_l5", decoded["points"][0].Feature)

	assert.Equal(t, "{}", encodeExplanations(nil))
}
