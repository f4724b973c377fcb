package features

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/modules/history"
	"github.com/hoopsight/hoopsight/internal/modules/teamcontext"
)

const testSeason = "2024-25"

func setupStatsDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

// seedLeague inserts two teams and 20 completed daily games in January 2025,
// with player 100 (a guard on team 1) scoring i points in game i, plus a
// scheduled game 21. Player 200 anchors team 2 so both sides have context.
func seedLeague(t *testing.T, db *database.DB) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO teams (team_id, name, abbreviation, timezone, arena_altitude) VALUES
		(1, 'Harbor', 'HRB', 'America/New_York', NULL),
		(2, 'Summit', 'SMT', 'America/Denver', 5280)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO players (player_id, full_name, position, team_id, is_active) VALUES
		(100, 'Test Guard', 'Guard', 1, 1),
		(200, 'Rival Center', 'Center', 2, 1)`)
	require.NoError(t, err)

	for i := 1; i <= 20; i++ {
		home, away := int64(1), int64(2)
		if i%2 == 0 {
			home, away = 2, 1
		}
		gameDate := fmt.Sprintf("2025-01-%02d", i)
		_, err = db.Exec(`INSERT INTO games (game_id, game_date, season, game_type, game_status, home_team_id, away_team_id)
			VALUES (?, ?, ?, 'regular_season', 'completed', ?, ?)`, i, gameDate, testSeason, home, away)
		require.NoError(t, err)

		insertLine(t, db, 100, int64(i), 1, float64(i), 5, 4, 1, 0, 2, 2, 5, 8, 16, 2, 2, 30)
		insertLine(t, db, 200, int64(i), 2, 15, 10, 2, 1, 2, 3, 0, 1, 7, 14, 1, 2, 32)
	}

	_, err = db.Exec(`INSERT INTO games (game_id, game_date, season, game_type, game_status, home_team_id, away_team_id)
		VALUES (21, '2025-01-21', ?, 'regular_season', 'scheduled', 1, 2)`, testSeason)
	require.NoError(t, err)
}

func insertLine(t *testing.T, db *database.DB, playerID, gameID, teamID int64,
	pts, reb, ast, stl, blk, tov, tpm, tpa, fgm, fga, ftm, fta, minutes float64) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO player_game_stats (
			player_id, game_id, team_id, points, rebounds_total, assists, steals, blocks,
			turnovers, three_pointers_made, three_pointers_attempted, field_goals_made,
			field_goals_attempted, free_throws_made, free_throws_attempted, minutes_played,
			is_starter, usage_rate, true_shooting_pct, offensive_rating, defensive_rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 25, 0.55, 110, 105)`,
		playerID, gameID, teamID, pts, reb, ast, stl, blk, tov, tpm, tpa, fgm, fga, ftm, fta, minutes)
	require.NoError(t, err)
}

func newRepos(db *database.DB) (*history.GameLogRepository, *history.GameRepository,
	*history.PlayerRepository, *history.TeamRepository, *history.InjuryRepository) {
	log := zerolog.Nop()
	return history.NewGameLogRepository(db, log),
		history.NewGameRepository(db, log),
		history.NewPlayerRepository(db, log),
		history.NewTeamRepository(db, log),
		history.NewInjuryRepository(db, log)
}

func TestBatchBuilder_Build(t *testing.T) {
	db := setupStatsDB(t)
	seedLeague(t, db)
	logs, games, players, teams, _ := newRepos(db)

	batch := NewBatchBuilder(logs, games, players, teams, zerolog.Nop())
	rows, means, err := batch.Build()
	require.NoError(t, err)
	require.NotNil(t, means)

	// Each player's first five season games are history only, games 6-20
	// featurize. Two players, 15 rows each.
	assert.Len(t, rows, 30)

	idx := ColumnIndex()
	for _, row := range rows {
		require.Len(t, row.Features, len(Schema()))
		for i, val := range row.Features {
			assert.False(t, math.IsNaN(val), "row for player %d game %d has NaN at %s",
				row.PlayerID, row.GameID, Schema()[i].Name)
		}
	}

	var last *TrainingRow
	for i := range rows {
		if rows[i].PlayerID == 100 && rows[i].GameID == 20 {
			last = &rows[i]
		}
		assert.GreaterOrEqual(t, rows[i].GameID, int64(6), "thin-history rows must be skipped")
	}
	require.NotNil(t, last)

	// As of game 20 the last five games scored 15..19.
	assert.InDelta(t, 17, last.Features[idx["points_l5"]], 1e-9)
	assert.Greater(t, last.Features[idx["points_l5_weighted"]], 17.0, "rising scorer rewards recency")
	assert.Equal(t, 20.0, last.Targets.Points, "the current game is the target, never a feature")

	// Game 20 has team 2 at home.
	assert.Equal(t, 0.0, last.Features[idx["is_home"]])
	assert.Equal(t, 1.0, last.Features[idx["position_guard"]])
	assert.Equal(t, 1.0, last.Features[idx["is_back_to_back"]])
	assert.Equal(t, 19.0, last.Features[idx["games_played_season"]])
	assert.Equal(t, 63.0, last.Features[idx["games_remaining"]])

	// League means carry the schema version for drift detection.
	assert.Equal(t, SchemaVersion, means.SchemaVersion)
	assert.Zero(t, means.Value("is_home"), "flags stay neutral in the means")
}

func TestBuilder_Build_UpcomingGame(t *testing.T) {
	db := setupStatsDB(t)
	seedLeague(t, db)
	logs, games, players, teams, injuries := newRepos(db)
	calc := teamcontext.NewCalculator(db, zerolog.Nop())

	builder := NewBuilder(logs, games, players, teams, injuries, calc, zerolog.Nop())

	game, err := games.Get(21)
	require.NoError(t, err)
	require.NotNil(t, game)

	result, err := builder.Build(100, *game)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Recent, 20)

	v := result.Vector
	get := func(name string) float64 {
		val, ok := v.Value(name)
		require.True(t, ok, "column %s should be set", name)
		return val
	}

	// Last five games scored 16..20.
	assert.InDelta(t, 18, get("points_l5"), 1e-9)
	assert.Greater(t, get("points_l5_weighted"), 18.0)

	assert.Equal(t, 1.0, get("is_home"))
	assert.Equal(t, 1.0, get("days_rest"))
	assert.Equal(t, 1.0, get("is_back_to_back"))
	assert.Equal(t, 0.0, get("is_well_rested"))
	assert.Equal(t, 7.0, get("games_in_last_7_days"))
	assert.Equal(t, 20.0, get("consecutive_games"))

	assert.Equal(t, 20.0, get("games_played_season"))
	assert.Equal(t, 1.0, get("is_early_season"))
	assert.Equal(t, 62.0, get("games_remaining"))
	assert.InDelta(t, 20.0/180.0, get("season_progress"), 1e-9)

	// Denver visits New York: no altitude concern, opponent sits two zones west.
	assert.Equal(t, -2.0, get("tz_difference"))
	assert.Equal(t, 0.0, get("west_to_east_travel"))
	assert.Equal(t, 0.0, get("east_to_west_travel"))
	assert.Equal(t, 5280.0, get("arena_altitude"))
	assert.Equal(t, 0.0, get("altitude_away_game"))

	assert.Equal(t, 0.0, get("star_teammate_out"))
}

func TestBuilder_Build_ThinHistory(t *testing.T) {
	db := setupStatsDB(t)
	seedLeague(t, db)

	_, err := db.Exec(`INSERT INTO players (player_id, full_name, position, team_id, is_active)
		VALUES (300, 'Bench Guard', 'Guard', 1, 1)`)
	require.NoError(t, err)
	insertLine(t, db, 300, 19, 1, 6, 2, 1, 0, 0, 1, 0, 1, 3, 6, 0, 0, 12)
	insertLine(t, db, 300, 20, 1, 4, 1, 2, 0, 0, 0, 0, 0, 2, 5, 0, 0, 10)

	logs, games, players, teams, injuries := newRepos(db)
	calc := teamcontext.NewCalculator(db, zerolog.Nop())
	builder := NewBuilder(logs, games, players, teams, injuries, calc, zerolog.Nop())

	game, err := games.Get(21)
	require.NoError(t, err)

	result, err := builder.Build(300, *game)
	require.NoError(t, err)
	assert.Nil(t, result, "two games of history is not enough to project from")
}

// The batch and online paths must agree column for column when fed the same
// as-of date, or models train on one distribution and serve another.
func TestBatchOnlineParity(t *testing.T) {
	db := setupStatsDB(t)
	seedLeague(t, db)
	logs, games, players, teams, injuries := newRepos(db)

	batch := NewBatchBuilder(logs, games, players, teams, zerolog.Nop())
	rows, _, err := batch.Build()
	require.NoError(t, err)

	var batchRow *TrainingRow
	for i := range rows {
		if rows[i].PlayerID == 100 && rows[i].GameID == 20 {
			batchRow = &rows[i]
		}
	}
	require.NotNil(t, batchRow)

	calc := teamcontext.NewCalculator(db, zerolog.Nop())
	builder := NewBuilder(logs, games, players, teams, injuries, calc, zerolog.Nop())
	game, err := games.Get(20)
	require.NoError(t, err)
	result, err := builder.Build(100, *game)
	require.NoError(t, err)
	require.NotNil(t, result)

	for i, col := range Schema() {
		online, ok := result.Vector.Value(col.Name)
		require.True(t, ok, "online path left %s unset", col.Name)
		assert.InDelta(t, batchRow.Features[i], online, 1e-9, col.Name)
	}
}

func TestBuilder_Build_IgnoresLaterGames(t *testing.T) {
	db := setupStatsDB(t)
	seedLeague(t, db)
	logs, games, players, teams, injuries := newRepos(db)
	calc := teamcontext.NewCalculator(db, zerolog.Nop())
	builder := NewBuilder(logs, games, players, teams, injuries, calc, zerolog.Nop())

	game, err := games.Get(21)
	require.NoError(t, err)
	require.NotNil(t, game)

	before, err := builder.Build(100, *game)
	require.NoError(t, err)
	require.NotNil(t, before)

	// Completed outlier games on and after the target date. Nothing from
	// them may reach the vector.
	_, err = db.Exec(`INSERT INTO games (game_id, game_date, season, game_type, game_status, home_team_id, away_team_id) VALUES
		(22, '2025-01-21', ?, 'regular_season', 'completed', 1, 2),
		(23, '2025-01-25', ?, 'regular_season', 'completed', 2, 1)`, testSeason, testSeason)
	require.NoError(t, err)
	insertLine(t, db, 100, 22, 1, 61, 14, 12, 5, 3, 1, 9, 14, 22, 30, 8, 8, 44)
	insertLine(t, db, 200, 22, 2, 40, 20, 2, 1, 6, 4, 0, 2, 18, 28, 4, 6, 40)
	insertLine(t, db, 100, 23, 1, 55, 11, 10, 4, 2, 2, 7, 12, 20, 28, 8, 9, 42)
	insertLine(t, db, 200, 23, 2, 38, 18, 3, 2, 5, 3, 1, 3, 16, 26, 6, 7, 38)

	after, err := builder.Build(100, *game)
	require.NoError(t, err)
	require.NotNil(t, after)

	assert.Equal(t, len(before.Recent), len(after.Recent))
	for _, name := range ColumnNames() {
		wantVal, wantOK := before.Vector.Value(name)
		gotVal, gotOK := after.Vector.Value(name)
		require.Equal(t, wantOK, gotOK, name)
		if wantOK {
			assert.InDelta(t, wantVal, gotVal, 1e-9, name)
		}
	}
}
