package confidence

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/features"
	"github.com/hoopsight/hoopsight/internal/modules/history"
)

func setupEngine(t *testing.T) (*Engine, *database.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	log := zerolog.Nop()
	engine := NewEngine(
		history.NewGameLogRepository(db, log),
		history.NewInjuryRepository(db, log),
		history.NewTransactionRepository(db, log),
		log,
	)
	return engine, db
}

// seedHistory builds a two-season history: a veteran (100) with 30 games in
// 2023-24 and 25 steady 20-point games in 2024-25, a rookie (300) with only
// the last two games, and an upcoming game on 2025-02-01.
func seedHistory(t *testing.T, db *database.DB) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO teams (team_id, name) VALUES (1, 'Harbor'), (2, 'Summit')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO players (player_id, full_name, position, team_id, is_active) VALUES
		(100, 'Steady Veteran', 'Guard', 1, 1),
		(300, 'Raw Rookie', 'Forward', 1, 1)`)
	require.NoError(t, err)

	insertSeason := func(baseID int64, season string, year int, month time.Month, n int) {
		for i := 0; i < n; i++ {
			gameID := baseID + int64(i)
			date := time.Date(year, month, 1+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
			_, err := db.Exec(`INSERT INTO games (game_id, game_date, season, game_type, game_status, home_team_id, away_team_id)
				VALUES (?, ?, ?, 'regular_season', 'completed', 1, 2)`, gameID, date, season)
			require.NoError(t, err)
			_, err = db.Exec(`INSERT INTO player_game_stats (player_id, game_id, team_id, points, minutes_played)
				VALUES (100, ?, 1, 20, 32)`, gameID)
			require.NoError(t, err)
		}
	}
	insertSeason(1000, "2023-24", 2024, time.January, 30)
	insertSeason(2000, "2024-25", 2025, time.January, 25)

	// The rookie only appears in the season's last two games.
	for _, gameID := range []int64{2023, 2024} {
		_, err = db.Exec(`INSERT INTO player_game_stats (player_id, game_id, team_id, points, minutes_played)
			VALUES (300, ?, 1, 6, 12)`, gameID)
		require.NoError(t, err)
	}

	_, err = db.Exec(`INSERT INTO games (game_id, game_date, season, game_type, game_status, home_team_id, away_team_id)
		VALUES (3000, '2025-02-01', '2024-25', 'regular_season', 'scheduled', 1, 2)`)
	require.NoError(t, err)
}

func upcomingGame() domain.Game {
	return domain.Game{
		GameID:     3000,
		GameDate:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Season:     "2024-25",
		GameType:   domain.GameTypeRegularSeason,
		Status:     domain.GameStatusScheduled,
		HomeTeamID: 1,
		AwayTeamID: 2,
	}
}

func fullVector() *features.Vector {
	v := features.NewVector()
	for _, name := range features.ColumnNames() {
		v.Set(name, 1)
	}
	return v
}

func steadyRecent(n int) []domain.PlayerGameLog {
	logs := make([]domain.PlayerGameLog, n)
	for i := range logs {
		logs[i] = domain.PlayerGameLog{PlayerID: 100, Points: 20, MinutesPlayed: 32}
	}
	return logs
}

func TestScore_SteadyVeteran(t *testing.T) {
	engine, db := setupEngine(t)
	seedHistory(t, db)

	score := engine.Score(100, 1, upcomingGame(), steadyRecent(20), fullVector())

	// Zero scoring variance, a complete vector, a deep season, and a quiet
	// roster situation max every component.
	assert.Equal(t, 100, score)
}

func TestScore_RawRookie(t *testing.T) {
	engine, db := setupEngine(t)
	seedHistory(t, db)

	recent := []domain.PlayerGameLog{
		{PlayerID: 300, Points: 6, MinutesPlayed: 12},
		{PlayerID: 300, Points: 6, MinutesPlayed: 12},
	}

	score := engine.Score(300, 1, upcomingGame(), recent, features.NewVector())

	assert.LessOrEqual(t, score, 40, "two career games deserve little trust")
	assert.GreaterOrEqual(t, score, 0)
}

func TestScore_MidseasonMoverTenureDeduction(t *testing.T) {
	engine, db := setupEngine(t)
	seedHistory(t, db)

	// Player 400 has eight season games, the first six logged for Summit and
	// only the last two for Harbor.
	_, err := db.Exec(`INSERT INTO players (player_id, full_name, position, team_id, is_active)
		VALUES (400, 'Deadline Addition', 'Guard', 1, 1)`)
	require.NoError(t, err)
	for i, gameID := range []int64{2015, 2016, 2017, 2018, 2019, 2020, 2021, 2022} {
		teamID := 2
		if i >= 6 {
			teamID = 1
		}
		_, err = db.Exec(`INSERT INTO player_game_stats (player_id, game_id, team_id, points, minutes_played)
			VALUES (400, ?, ?, 20, 30)`, gameID, teamID)
		require.NoError(t, err)
	}

	// Only the roster component sees the team, so the score gap is exactly
	// the short-tenure deduction.
	settled := engine.Score(400, 2, upcomingGame(), steadyRecent(8), fullVector())
	justMoved := engine.Score(400, 1, upcomingGame(), steadyRecent(8), fullVector())
	assert.Equal(t, 8, settled-justMoved, "two games with the new team costs the tenure deduction")
}

func TestScore_RecentTradeCostsConfidence(t *testing.T) {
	engine, db := setupEngine(t)
	seedHistory(t, db)

	baseline := engine.Score(100, 1, upcomingGame(), steadyRecent(20), fullVector())

	_, err := db.Exec(`INSERT INTO player_transactions (player_id, transaction_type, transaction_date, from_team_id, to_team_id)
		VALUES (100, 'trade', '2025-01-29', 2, 1)`)
	require.NoError(t, err)

	traded := engine.Score(100, 1, upcomingGame(), steadyRecent(20), fullVector())
	assert.Equal(t, baseline-15, traded, "a trade inside a week costs the full roster deduction")
}

func TestScore_InjuryReturnDeduction(t *testing.T) {
	engine, db := setupEngine(t)
	seedHistory(t, db)

	// A rookie freshly back from a 22-game absence takes the heavier
	// deduction than a merely thin season.
	fresh := engine.Score(300, 1, upcomingGame(), nil, features.NewVector())

	_, err := db.Exec(`INSERT INTO injuries (player_id, injury_status, report_date, return_date, games_missed)
		VALUES (300, 'Healthy', '2024-12-01', '2025-01-24', 22)`)
	require.NoError(t, err)

	returned := engine.Score(300, 1, upcomingGame(), nil, features.NewVector())
	assert.LessOrEqual(t, returned, fresh, "a long absence never raises confidence")
}

func TestVariationScore(t *testing.T) {
	tests := []struct {
		name   string
		points []float64
		want   float64
	}{
		{name: "no variance earns the ceiling", points: []float64{20, 20, 20, 20, 20}, want: 30},
		{name: "zero mean is neutral", points: []float64{0, 0, 0}, want: 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, variationScore(tt.points), 1e-9)
		})
	}

	// High variance floors at zero.
	assert.Zero(t, variationScore([]float64{0, 40, 0, 40, 0, 40}))

	// More volatile scoring always rates lower.
	steady := variationScore([]float64{18, 20, 22, 20, 18})
	wild := variationScore([]float64{5, 35, 8, 30, 12})
	assert.Greater(t, steady, wild)
}

func TestCompleteness(t *testing.T) {
	assert.Zero(t, completeness(nil))
	assert.Zero(t, completeness(features.NewVector()))
	assert.InDelta(t, 20, completeness(fullVector()), 1e-9)

	half := features.NewVector()
	names := features.ColumnNames()
	for i := 0; i < len(names)/2; i++ {
		half.Set(names[i], 1)
	}
	got := completeness(half)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 20.0)
}

func TestTransactionDeduction(t *testing.T) {
	tests := []struct {
		txType    domain.TransactionType
		daysSince int
		want      float64
	}{
		{domain.TransactionTrade, 3, 15},
		{domain.TransactionTrade, 10, 10},
		{domain.TransactionTrade, 20, 5},
		{domain.TransactionTrade, 25, 0},
		{domain.TransactionSigning, 3, 12},
		{domain.TransactionSigning, 10, 8},
		{domain.TransactionSigning, 20, 4},
		{domain.TransactionSigning, 29, 0},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s_%dd", tt.txType, tt.daysSince)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, transactionDeduction(tt.txType, tt.daysSince))
		})
	}
}
