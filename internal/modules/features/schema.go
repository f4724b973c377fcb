// Package features builds leakage-free model inputs from historical game
// lines. The batch builder produces training tables; the online builder
// produces one vector per upcoming player-game. Both paths compute every
// column from data dated strictly before the game being described, and both
// share the same explicit, ordered schema.
package features

import "fmt"

// SchemaVersion identifies the feature schema. Stored model artifacts carry
// the feature names they were trained on, so schema drift surfaces as a
// reorder/pad at prediction time rather than silent misalignment.
const SchemaVersion = "2025.1"

// Windows are the rolling-window lengths, in games.
var Windows = []int{5, 10, 20}

// Stats are the seven projected statistics, in storage-column form.
var Stats = []string{
	"points",
	"rebounds_total",
	"assists",
	"steals",
	"blocks",
	"turnovers",
	"three_pointers_made",
}

// ColumnKind drives the fallback policy when a value cannot be computed for
// an upcoming game.
type ColumnKind int

const (
	// KindRolling falls back to the player's recent mean of the base stat,
	// then to the league mean of the column.
	KindRolling ColumnKind = iota
	// KindMean falls back to the league mean of the column.
	KindMean
	// KindFlag falls back to 0.
	KindFlag
	// KindTrend falls back to 0. Trends are directional; a neutral value is
	// the only honest default.
	KindTrend
)

// Column is one feature in the schema.
type Column struct {
	Name     string
	Kind     ColumnKind
	BaseStat string // raw log stat backing a rolling column, "" when none
}

// LeakageDenylist names the raw current-game columns that must never appear
// as features. The schema below is built without them; the list exists so
// tests can assert the invariant directly.
var LeakageDenylist = []string{
	"points", "rebounds_total", "assists", "steals", "blocks",
	"turnovers", "three_pointers_made", "three_pointers_attempted",
	"field_goals_made", "field_goals_attempted",
	"free_throws_made", "free_throws_attempted",
	"minutes_played", "is_starter",
	"usage_rate", "true_shooting_pct", "offensive_rating", "defensive_rating",
}

var schema []Column

func init() {
	schema = buildSchema()
}

// Schema returns the ordered feature columns. The slice is shared; callers
// must not mutate it.
func Schema() []Column {
	return schema
}

// ColumnNames returns the ordered feature names.
func ColumnNames() []string {
	names := make([]string, len(schema))
	for i, c := range schema {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns a name-to-position lookup for the schema.
func ColumnIndex() map[string]int {
	idx := make(map[string]int, len(schema))
	for i, c := range schema {
		idx[c.Name] = i
	}
	return idx
}

func buildSchema() []Column {
	var cols []Column

	add := func(name string, kind ColumnKind, base string) {
		cols = append(cols, Column{Name: name, Kind: kind, BaseStat: base})
	}

	// Rolling production: plain and recency-weighted means per stat per window.
	for _, stat := range Stats {
		for _, w := range Windows {
			add(fmt.Sprintf("%s_l%d", stat, w), KindRolling, stat)
			add(fmt.Sprintf("%s_l%d_weighted", stat, w), KindRolling, stat)
		}
	}

	// Per-36 production.
	for _, stat := range Stats {
		for _, w := range Windows {
			add(fmt.Sprintf("%s_per36_l%d", stat, w), KindRolling, stat)
		}
	}

	// Playing time and usage.
	for _, w := range Windows {
		add(fmt.Sprintf("minutes_played_l%d", w), KindRolling, "minutes_played")
		add(fmt.Sprintf("minutes_played_l%d_weighted", w), KindRolling, "minutes_played")
	}
	for _, w := range Windows {
		add(fmt.Sprintf("usage_rate_l%d", w), KindRolling, "usage_rate")
		add(fmt.Sprintf("usage_rate_l%d_weighted", w), KindRolling, "usage_rate")
	}

	// Shooting efficiency.
	for _, w := range Windows {
		add(fmt.Sprintf("fg_pct_l%d", w), KindRolling, "")
		add(fmt.Sprintf("three_pct_l%d", w), KindRolling, "")
		add(fmt.Sprintf("ft_pct_l%d", w), KindRolling, "")
		add(fmt.Sprintf("true_shooting_pct_l%d", w), KindRolling, "true_shooting_pct")
	}

	// Scoring and playmaking ratios.
	for _, w := range Windows {
		add(fmt.Sprintf("ast_to_ratio_l%d", w), KindRolling, "")
		add(fmt.Sprintf("pts_per_fga_l%d", w), KindRolling, "")
		add(fmt.Sprintf("pts_per_ast_l%d", w), KindRolling, "")
		add(fmt.Sprintf("reb_rate_l%d", w), KindRolling, "")
	}

	// On-court impact.
	for _, w := range Windows {
		add(fmt.Sprintf("offensive_rating_l%d", w), KindRolling, "offensive_rating")
		add(fmt.Sprintf("defensive_rating_l%d", w), KindRolling, "defensive_rating")
		add(fmt.Sprintf("net_rating_l%d", w), KindRolling, "")
	}

	// Role.
	add("is_starter_l5", KindFlag, "")
	add("is_starter_l10", KindFlag, "")
	add("minutes_trend", KindTrend, "")

	// Position one-hot.
	add("position_guard", KindFlag, "")
	add("position_forward", KindFlag, "")
	add("position_center", KindFlag, "")

	// Game context.
	add("is_home", KindFlag, "")

	// Team and opponent context.
	add("team_off_rating", KindMean, "")
	add("team_def_rating", KindMean, "")
	add("team_pace", KindMean, "")
	add("opp_off_rating", KindMean, "")
	add("opp_def_rating", KindMean, "")
	add("opp_pace", KindMean, "")

	// Opponent defensive profile.
	add("opp_fg_pct_allowed", KindMean, "")
	add("opp_three_pct_allowed", KindMean, "")
	add("opp_turnovers_per_game", KindMean, "")
	add("opp_steals_per_game", KindMean, "")

	// Opponent defense versus the player's position.
	add("opp_pts_allowed_to_position", KindMean, "")
	add("opp_reb_allowed_to_position", KindMean, "")
	add("opp_ast_allowed_to_position", KindMean, "")
	add("opp_blk_allowed_to_position", KindMean, "")
	add("opp_three_allowed_to_position", KindMean, "")
	add("opp_tov_forced_from_position", KindMean, "")
	add("opp_stl_allowed_to_position", KindMean, "")

	// Own team's positional ball security.
	add("team_position_turnovers", KindMean, "")
	add("team_position_steals", KindMean, "")

	// Star teammate availability.
	add("star_teammate_out", KindFlag, "")
	add("star_teammate_ppg", KindMean, "")
	add("games_without_star", KindMean, "")

	// Playoffs.
	add("is_playoff", KindFlag, "")
	add("playoff_games_career", KindMean, "")
	add("playoff_performance_boost", KindMean, "")

	// Schedule density.
	add("days_rest", KindMean, "")
	add("is_back_to_back", KindFlag, "")
	add("games_in_last_3_days", KindMean, "")
	add("games_in_last_7_days", KindMean, "")
	add("is_heavy_schedule", KindFlag, "")
	add("is_well_rested", KindFlag, "")
	add("consecutive_games", KindMean, "")

	// Season phase.
	add("season_progress", KindMean, "")
	add("games_played_season", KindMean, "")
	add("is_early_season", KindFlag, "")
	add("is_mid_season", KindFlag, "")
	add("is_late_season", KindFlag, "")
	add("games_remaining", KindMean, "")

	// Travel.
	add("tz_difference", KindMean, "")
	add("west_to_east_travel", KindTrend, "")
	add("east_to_west_travel", KindTrend, "")

	// All-Star break.
	add("days_since_allstar_break", KindMean, "")
	add("post_allstar_bounce", KindTrend, "")

	// Venue.
	add("arena_altitude", KindMean, "")
	add("altitude_away_game", KindFlag, "")

	return cols
}
