package features

import "time"

// defaultDaysRest is assumed when a player has no prior game in the season.
const defaultDaysRest = 3

// seasonLengthDays normalizes season progress to [0, 1].
const seasonLengthDays = 180

// regularSeasonGames is a full team schedule.
const regularSeasonGames = 82

// timezoneOffsets maps arena timezones to UTC offsets during the season.
// Phoenix does not observe daylight saving; the values are winter offsets,
// which is when the season is played.
var timezoneOffsets = map[string]float64{
	"America/New_York":    -5,
	"America/Toronto":     -5,
	"America/Chicago":     -6,
	"America/Denver":      -7,
	"America/Phoenix":     -7,
	"America/Los_Angeles": -8,
	"America/Anchorage":   -9,
	"Pacific/Honolulu":    -10,
}

const defaultTimezoneOffset = -6

// TimezoneOffset returns the UTC offset for an arena timezone, defaulting to
// central time when unknown.
func TimezoneOffset(tz string) float64 {
	if off, ok := timezoneOffsets[tz]; ok {
		return off
	}
	return defaultTimezoneOffset
}

// allStarBreaks maps seasons to the first day of the All-Star break.
var allStarBreaks = map[string]time.Time{
	"2020-21": date(2021, 3, 7),
	"2021-22": date(2022, 2, 20),
	"2022-23": date(2023, 2, 19),
	"2023-24": date(2024, 2, 18),
	"2024-25": date(2025, 2, 16),
	"2025-26": date(2026, 2, 15),
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysSinceAllStarBreak returns the signed day count from the season's
// All-Star break, clamped to one year either way, or 0 for seasons without a
// recorded break.
func DaysSinceAllStarBreak(gameDate time.Time, season string) float64 {
	asb, ok := allStarBreaks[season]
	if !ok {
		return 0
	}
	days := float64(gameDate.Sub(asb) / (24 * time.Hour))
	if days > 365 {
		return 365
	}
	if days < -365 {
		return -365
	}
	return days
}

// PostAllStarBounce reports the short window after the break where rested
// rotations tend to outperform.
func PostAllStarBounce(daysSince float64) bool {
	return daysSince > 0 && daysSince <= 14
}

// SeasonProgress maps a game date to [0, 1] across a nominal season length.
func SeasonProgress(gameDate, seasonStart time.Time) float64 {
	p := float64(gameDate.Sub(seasonStart)/(24*time.Hour)) / seasonLengthDays
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// SeasonPhase buckets a player's season game count into early, mid, and late
// phases.
func SeasonPhase(gamesPlayed int) (early, mid, late bool) {
	switch {
	case gamesPlayed <= 20:
		return true, false, false
	case gamesPlayed <= 60:
		return false, true, false
	default:
		return false, false, true
	}
}

// GamesRemaining estimates regulation games left for a team given completed
// games, floored at zero.
func GamesRemaining(teamGamesPlayed int) float64 {
	remaining := regularSeasonGames - teamGamesPlayed
	if remaining < 0 {
		return 0
	}
	return float64(remaining)
}

// DaysRest returns whole days between the player's most recent prior game
// and the game date, or the default when there is no prior game. priorDates
// must be ascending.
func DaysRest(gameDate time.Time, priorDates []time.Time) float64 {
	if len(priorDates) == 0 {
		return defaultDaysRest
	}
	last := priorDates[len(priorDates)-1]
	return float64(gameDate.Sub(last) / (24 * time.Hour))
}

// GamesWithinDays counts prior games within the trailing window of days
// before the game date, inclusive of the window edge.
func GamesWithinDays(gameDate time.Time, priorDates []time.Time, days int) float64 {
	var count float64
	for _, d := range priorDates {
		diff := gameDate.Sub(d) / (24 * time.Hour)
		if diff > 0 && int(diff) <= days {
			count++
		}
	}
	return count
}

// ConsecutiveGames returns the length of the player's dense stretch as of the
// most recent prior game: that game plus each earlier game separated from the
// next by at most two days. Staleness relative to the upcoming game is
// carried separately by the rest-days feature. No prior games returns 0.
func ConsecutiveGames(gameDate time.Time, priorDates []time.Time) float64 {
	if len(priorDates) == 0 {
		return 0
	}
	// Streak as of the most recent prior game.
	streak := 1.0
	for i := len(priorDates) - 1; i > 0; i-- {
		gap := priorDates[i].Sub(priorDates[i-1]) / (24 * time.Hour)
		if gap <= 2 {
			streak++
		} else {
			break
		}
	}
	return streak
}
