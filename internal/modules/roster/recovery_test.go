package roster

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/history"
)

func newSweeper(t *testing.T, db *database.DB) (*RecoverySweeper, *history.InjuryRepository) {
	t.Helper()
	log := zerolog.Nop()
	injuries := history.NewInjuryRepository(db, log)
	return NewRecoverySweeper(injuries, history.NewGameLogRepository(db, log),
		history.NewGameRepository(db, log), log), injuries
}

func TestSweep_ClosesReportOnReturn(t *testing.T) {
	db := setupDB(t)

	// League plays daily Jan 1-10; player 2 goes down after Jan 2 and returns
	// on Jan 10, sitting out seven league dates.
	for i := int64(1); i <= 10; i++ {
		insertGame(t, db, i, fmt.Sprintf("2025-01-%02d", i))
	}
	insertLine(t, db, 2, 1, 15, 4, 6, 32)
	insertLine(t, db, 2, 2, 18, 5, 4, 34)
	insertLine(t, db, 2, 10, 12, 3, 5, 28)

	_, err := db.Exec(`INSERT INTO injuries (player_id, injury_status, report_date)
		VALUES (2, 'Out', '2025-01-02')`)
	require.NoError(t, err)

	sweeper, injuries := newSweeper(t, db)

	returnDate := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	closed, err := sweeper.Sweep(returnDate)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	open, err := injuries.OpenReports()
	require.NoError(t, err)
	assert.Empty(t, open)

	out, err := injuries.IsOut(2, returnDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, out)

	ret, err := injuries.LatestReturn(2, returnDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.NotNil(t, ret)
	require.NotNil(t, ret.ReturnDate)
	assert.Equal(t, "2025-01-10", ret.ReturnDate.Format("2006-01-02"))
	require.NotNil(t, ret.GamesMissed)
	assert.Equal(t, 7, *ret.GamesMissed, "distinct league dates between report and return")
	assert.Equal(t, domain.InjuryStatusHealthy, ret.Status)
}

func TestSweep_LeavesAbsentPlayersOpen(t *testing.T) {
	db := setupDB(t)

	for i := int64(1); i <= 5; i++ {
		insertGame(t, db, i, fmt.Sprintf("2025-01-%02d", i))
	}

	// No game line on the sweep date: the player is still out.
	_, err := db.Exec(`INSERT INTO injuries (player_id, injury_status, report_date)
		VALUES (2, 'Day-To-Day', '2025-01-02')`)
	require.NoError(t, err)

	sweeper, injuries := newSweeper(t, db)
	closed, err := sweeper.Sweep(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, closed)

	open, err := injuries.OpenReports()
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestSweep_OnlyLatestReportPerPlayer(t *testing.T) {
	db := setupDB(t)

	for i := int64(1); i <= 6; i++ {
		insertGame(t, db, i, fmt.Sprintf("2025-01-%02d", i))
	}
	insertLine(t, db, 2, 6, 10, 3, 2, 20)

	// Two reports for the same player; the sweep works off the latest.
	_, err := db.Exec(`INSERT INTO injuries (player_id, injury_status, report_date) VALUES
		(2, 'Questionable', '2025-01-01'),
		(2, 'Out', '2025-01-03')`)
	require.NoError(t, err)

	sweeper, injuries := newSweeper(t, db)

	open, err := injuries.OpenReports()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, domain.InjuryStatusOut, open[0].Status)

	closed, err := sweeper.Sweep(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
}
