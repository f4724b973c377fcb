package features

import (
	"fmt"
	"math"

	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/pkg/formulas"
)

// DecayWeights returns n exponential-decay weights, most recent first,
// normalized to sum to 1. Recency is rewarded: the newest game carries the
// largest weight.
func DecayWeights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	weights := make([]float64, n)
	var sum float64
	for i := range weights {
		weights[i] = math.Exp(-0.1 * float64(i))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// statValue extracts one raw stat from a log line by schema name.
func statValue(l domain.PlayerGameLog, stat string) float64 {
	switch stat {
	case "points":
		return l.Points
	case "rebounds_total":
		return l.Rebounds
	case "assists":
		return l.Assists
	case "steals":
		return l.Steals
	case "blocks":
		return l.Blocks
	case "turnovers":
		return l.Turnovers
	case "three_pointers_made":
		return l.ThreePointersMade
	case "minutes_played":
		return l.MinutesPlayed
	case "usage_rate":
		return l.UsageRate
	case "true_shooting_pct":
		return l.TrueShootingPct
	case "offensive_rating":
		return l.OffensiveRating
	case "defensive_rating":
		return l.DefensiveRating
	}
	return 0
}

// computeRolling fills every rolling, role, and trend column from the
// player's prior games, ordered most recent first. Windows shrink to the
// available history; an empty history produces zeros, which the fallback
// layer then replaces.
func computeRolling(v *Vector, prior []domain.PlayerGameLog) {
	for _, w := range Windows {
		win := window(prior, w)
		fillWindow(v, win, w)
	}

	v.Set("is_starter_l5", starterShare(window(prior, 5)))
	v.Set("is_starter_l10", starterShare(window(prior, 10)))
	v.Set("minutes_trend", minutesTrend(prior))
}

// window returns the first n entries of prior (the n most recent games).
func window(prior []domain.PlayerGameLog, n int) []domain.PlayerGameLog {
	if len(prior) < n {
		return prior
	}
	return prior[:n]
}

func fillWindow(v *Vector, win []domain.PlayerGameLog, w int) {
	suffix := fmt.Sprintf("_l%d", w)

	weights := DecayWeights(len(win))

	for _, stat := range Stats {
		v.Set(stat+suffix, windowMean(win, stat))
		v.Set(stat+suffix+"_weighted", weightedMean(win, stat, weights))
	}

	totalMinutes := windowSum(win, "minutes_played")
	for _, stat := range Stats {
		v.Set(stat+"_per36"+suffix, per36(windowSum(win, stat), totalMinutes))
	}

	v.Set("minutes_played"+suffix, windowMean(win, "minutes_played"))
	v.Set("minutes_played"+suffix+"_weighted", weightedMean(win, "minutes_played", weights))
	v.Set("usage_rate"+suffix, windowMean(win, "usage_rate"))
	v.Set("usage_rate"+suffix+"_weighted", weightedMean(win, "usage_rate", weights))

	var fgm, fga, tpm, tpa, ftm, fta float64
	for _, l := range win {
		fgm += l.FieldGoalsMade
		fga += l.FieldGoalsAttempted
		tpm += l.ThreePointersMade
		tpa += l.ThreePointersAttempted
		ftm += l.FreeThrowsMade
		fta += l.FreeThrowsAttempted
	}
	v.Set("fg_pct"+suffix, ratioOrZero(fgm, fga))
	v.Set("three_pct"+suffix, ratioOrZero(tpm, tpa))
	v.Set("ft_pct"+suffix, ratioOrZero(ftm, fta))
	v.Set("true_shooting_pct"+suffix, windowMean(win, "true_shooting_pct"))

	points := windowSum(win, "points")
	assists := windowSum(win, "assists")
	turnovers := windowSum(win, "turnovers")
	rebounds := windowSum(win, "rebounds_total")

	v.Set("ast_to_ratio"+suffix, ratioOrNumerator(assists, turnovers))
	v.Set("pts_per_fga"+suffix, ratioOrZero(points, fga))
	v.Set("pts_per_ast"+suffix, ratioOrNumerator(points, assists))
	v.Set("reb_rate"+suffix, ratioOrZero(rebounds, totalMinutes/36))

	offRtg := windowMean(win, "offensive_rating")
	defRtg := windowMean(win, "defensive_rating")
	v.Set("offensive_rating"+suffix, offRtg)
	v.Set("defensive_rating"+suffix, defRtg)
	v.Set("net_rating"+suffix, offRtg-defRtg)
}

func windowMean(win []domain.PlayerGameLog, stat string) float64 {
	if len(win) == 0 {
		return 0
	}
	vals := make([]float64, len(win))
	for i, l := range win {
		vals[i] = statValue(l, stat)
	}
	return formulas.Mean(vals)
}

func windowSum(win []domain.PlayerGameLog, stat string) float64 {
	var sum float64
	for _, l := range win {
		sum += statValue(l, stat)
	}
	return sum
}

func weightedMean(win []domain.PlayerGameLog, stat string, weights []float64) float64 {
	var sum float64
	for i, l := range win {
		sum += weights[i] * statValue(l, stat)
	}
	return sum
}

func per36(total, minutes float64) float64 {
	if minutes <= 0 {
		return 0
	}
	return total / minutes * 36
}

func ratioOrZero(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

// ratioOrNumerator degrades to the bare numerator on a zero denominator,
// keeping high-assist low-turnover lines distinguishable from empty ones.
func ratioOrNumerator(num, den float64) float64 {
	if den <= 0 {
		return num
	}
	return num / den
}

func starterShare(win []domain.PlayerGameLog) float64 {
	if len(win) == 0 {
		return 0
	}
	var starts float64
	for _, l := range win {
		if l.IsStarter {
			starts++
		}
	}
	return starts / float64(len(win))
}

// minutesTrend is the least-squares slope of the player's last up-to-10
// minutes totals in chronological order. Fewer than 3 games, or no variance,
// yields 0.
func minutesTrend(prior []domain.PlayerGameLog) float64 {
	win := window(prior, 10)
	if len(win) < 3 {
		return 0
	}
	minutes := make([]float64, len(win))
	for i, l := range win {
		minutes[len(win)-1-i] = l.MinutesPlayed
	}
	return formulas.Slope(minutes)
}
