package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPosition(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Position
	}{
		{name: "plain guard", raw: "Guard", want: PositionGuard},
		{name: "short guard", raw: "G", want: PositionGuard},
		{name: "guard-forward combo leans forward", raw: "Guard-Forward", want: PositionForward},
		{name: "short guard-forward", raw: "G-F", want: PositionGuard},
		{name: "plain forward", raw: "Forward", want: PositionForward},
		{name: "short forward", raw: "F", want: PositionForward},
		{name: "forward-center combo", raw: "Forward-Center", want: PositionForward},
		{name: "short forward-center", raw: "F-C", want: PositionForward},
		{name: "plain center", raw: "Center", want: PositionCenter},
		{name: "short center", raw: "C", want: PositionCenter},
		{name: "center-forward leans forward", raw: "Center-Forward", want: PositionForward},
		{name: "lowercase", raw: "center", want: PositionCenter},
		{name: "whitespace", raw: "  Guard  ", want: PositionGuard},
		{name: "empty falls back to guard", raw: "", want: PositionGuard},
		{name: "garbage falls back to guard", raw: "Utility", want: PositionGuard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPosition(tt.raw))
		})
	}
}

func TestPosition_OneHot(t *testing.T) {
	g, f, c := PositionGuard.OneHot()
	assert.Equal(t, []float64{1, 0, 0}, []float64{g, f, c})

	g, f, c = PositionForward.OneHot()
	assert.Equal(t, []float64{0, 1, 0}, []float64{g, f, c})

	g, f, c = PositionCenter.OneHot()
	assert.Equal(t, []float64{0, 0, 1}, []float64{g, f, c})
}

func TestStatLine_ValueRoundTrip(t *testing.T) {
	stats := []string{
		"points", "rebounds_total", "assists", "steals",
		"blocks", "turnovers", "three_pointers_made",
	}

	var line StatLine
	for i, stat := range stats {
		line.SetValue(stat, float64(i+1))
	}
	for i, stat := range stats {
		assert.Equal(t, float64(i+1), line.Value(stat), stat)
	}

	assert.Zero(t, line.Value("minutes_played"))
}
