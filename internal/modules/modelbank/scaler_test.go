package modelbank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitScaler(t *testing.T) {
	x := [][]float64{
		{1, 10, 5},
		{3, 20, 5},
		{5, 30, 5},
	}

	s := FitScaler(x)
	require.Len(t, s.Mean, 3)

	assert.InDelta(t, 3, s.Mean[0], 1e-9)
	assert.InDelta(t, 20, s.Mean[1], 1e-9)

	// A constant column gets unit std so the transform is defined.
	assert.Equal(t, 1.0, s.Std[2])

	scaled := s.TransformAll(x)
	for j := 0; j < 2; j++ {
		var sum float64
		for _, row := range scaled {
			sum += row[j]
		}
		assert.InDelta(t, 0, sum, 1e-9, "scaled column %d should be centered", j)
	}
	assert.Zero(t, scaled[0][2])
}

func TestScaler_Transform_DoesNotMutate(t *testing.T) {
	s := FitScaler([][]float64{{0, 0}, {2, 4}})
	row := []float64{1, 2}
	out := s.Transform(row)

	assert.Equal(t, []float64{1, 2}, row)
	assert.InDelta(t, 0, out[0], 1e-9)
}

func TestScaler_Empty(t *testing.T) {
	s := FitScaler(nil)
	out := s.Transform([]float64{7, 8})
	assert.Equal(t, []float64{7, 8}, out, "an unfitted scaler passes rows through")
}
