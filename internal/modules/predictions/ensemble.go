package predictions

import (
	"sort"
	"strings"

	"github.com/hoopsight/hoopsight/internal/domain"
)

// ensembleVersion derives the ensemble row's model version from the family
// rows behind it, sorted for stability.
func ensembleVersion(familyNames []string) string {
	names := make([]string, len(familyNames))
	copy(names, familyNames)
	sort.Strings(names)
	return strings.Join(names, "+")
}

// ensembleLine averages the family lines with equal weight.
func ensembleLine(lines []domain.StatLine) domain.StatLine {
	weights := make([]float64, len(lines))
	for i := range weights {
		weights[i] = 1
	}
	return weightedEnsembleLine(lines, weights)
}

// weightedEnsembleLine averages the family lines with the given weights.
// Non-positive weights fall back to equal weighting so a family without
// validation error history still contributes.
func weightedEnsembleLine(lines []domain.StatLine, weights []float64) domain.StatLine {
	total := 0.0
	for _, w := range weights {
		if w <= 0 {
			return equalWeightLine(lines)
		}
		total += w
	}
	if total == 0 {
		return equalWeightLine(lines)
	}

	var sum domain.StatLine
	for i, l := range lines {
		w := weights[i] / total
		sum.Points += l.Points * w
		sum.Rebounds += l.Rebounds * w
		sum.Assists += l.Assists * w
		sum.Steals += l.Steals * w
		sum.Blocks += l.Blocks * w
		sum.Turnovers += l.Turnovers * w
		sum.ThreePointersMade += l.ThreePointersMade * w
	}
	return sum
}

func equalWeightLine(lines []domain.StatLine) domain.StatLine {
	var sum domain.StatLine
	for _, l := range lines {
		sum.Points += l.Points
		sum.Rebounds += l.Rebounds
		sum.Assists += l.Assists
		sum.Steals += l.Steals
		sum.Blocks += l.Blocks
		sum.Turnovers += l.Turnovers
		sum.ThreePointersMade += l.ThreePointersMade
	}
	n := float64(len(lines))
	sum.Points /= n
	sum.Rebounds /= n
	sum.Assists /= n
	sum.Steals /= n
	sum.Blocks /= n
	sum.Turnovers /= n
	sum.ThreePointersMade /= n
	return sum
}
