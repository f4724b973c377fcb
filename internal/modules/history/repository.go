// Package history provides read access to the historical stats store: game
// logs, schedules, rosters, injuries, and transactions. All as-of-date
// queries filter on date strictly before the supplied cutoff.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
)

// DateLayout is the storage format for all dates in the stats store.
const DateLayout = "2006-01-02"

const gameLogColumns = `
	pgs.player_id, pgs.game_id, pgs.team_id,
	g.game_date, g.season, g.game_type,
	pgs.points, pgs.rebounds_total, pgs.assists, pgs.steals, pgs.blocks,
	pgs.turnovers, pgs.three_pointers_made, pgs.three_pointers_attempted,
	pgs.field_goals_made, pgs.field_goals_attempted,
	pgs.free_throws_made, pgs.free_throws_attempted,
	pgs.minutes_played, pgs.is_starter,
	pgs.usage_rate, pgs.true_shooting_pct, pgs.offensive_rating, pgs.defensive_rating`

// GameLogRepository reads completed player game lines.
type GameLogRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewGameLogRepository creates a game log repository
func NewGameLogRepository(db *database.DB, log zerolog.Logger) *GameLogRepository {
	return &GameLogRepository{
		db:  db,
		log: log.With().Str("component", "gamelog_repo").Logger(),
	}
}

// RecentLogs returns the player's most recent completed game lines strictly
// before the cutoff date within the given season, newest first, limited to
// limit rows.
func (r *GameLogRepository) RecentLogs(playerID int64, season string, before time.Time, limit int) ([]domain.PlayerGameLog, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.player_id = ?
		  AND g.season = ?
		  AND g.game_date < ?
		  AND g.game_status = 'completed'
		ORDER BY g.game_date DESC
		LIMIT ?`, gameLogColumns)

	rows, err := r.db.Query(query, playerID, season, before.Format(DateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent logs: %w", err)
	}
	defer rows.Close()

	return scanGameLogs(rows)
}

// AllCompleted returns every completed game line, ordered by player then game
// date ascending. This is the batch feature builder's input ordering.
func (r *GameLogRepository) AllCompleted() ([]domain.PlayerGameLog, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE g.game_status = 'completed'
		ORDER BY pgs.player_id, g.game_date`, gameLogColumns)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed logs: %w", err)
	}
	defer rows.Close()

	return scanGameLogs(rows)
}

// SeasonCompleted returns every completed game line in a season, ordered by
// game date ascending.
func (r *GameLogRepository) SeasonCompleted(season string) ([]domain.PlayerGameLog, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE g.season = ?
		  AND g.game_status = 'completed'
		ORDER BY g.game_date`, gameLogColumns)

	rows, err := r.db.Query(query, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query season logs: %w", err)
	}
	defer rows.Close()

	return scanGameLogs(rows)
}

// CareerPoints returns up to limit of the player's most recent completed-game
// point totals strictly before the cutoff, across all seasons, newest first.
func (r *GameLogRepository) CareerPoints(playerID int64, before time.Time, limit int) ([]float64, error) {
	rows, err := r.db.Query(`
		SELECT pgs.points
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.player_id = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?
		ORDER BY g.game_date DESC
		LIMIT ?`, playerID, before.Format(DateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query career points: %w", err)
	}
	defer rows.Close()

	var points []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan career points: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CareerGameCount counts the player's completed games strictly before the cutoff.
func (r *GameLogRepository) CareerGameCount(playerID int64, before time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.player_id = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?`, playerID, before.Format(DateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count career games: %w", err)
	}
	return count, nil
}

// SeasonGameCount counts the player's completed games in a season strictly
// before the cutoff.
func (r *GameLogRepository) SeasonGameCount(playerID int64, season string, before time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.player_id = ?
		  AND g.season = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?`, playerID, season, before.Format(DateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count season games: %w", err)
	}
	return count, nil
}

// SeasonGameCountWithTeam counts the player's completed games logged for one
// team in a season strictly before the cutoff. A mid-season mover's count
// resets with the new team while SeasonGameCount keeps the full season.
func (r *GameLogRepository) SeasonGameCountWithTeam(playerID, teamID int64, season string, before time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.player_id = ?
		  AND pgs.team_id = ?
		  AND g.season = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?`, playerID, teamID, season, before.Format(DateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count season games with team: %w", err)
	}
	return count, nil
}

// SeasonGameDates returns the dates of the player's completed games in the
// season strictly before the cutoff, ascending.
func (r *GameLogRepository) SeasonGameDates(playerID int64, season string, before time.Time) ([]time.Time, error) {
	rows, err := r.db.Query(`
		SELECT g.game_date
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.player_id = ?
		  AND g.season = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?
		ORDER BY g.game_date`, playerID, season, before.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query season game dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan game date: %w", err)
		}
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("malformed game date %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// GameTypeAverages returns the player's career points average and game count
// for one game type over completed games strictly before the cutoff.
func (r *GameLogRepository) GameTypeAverages(playerID int64, gameType domain.GameType, before time.Time) (avg float64, games int, err error) {
	var avgNull sql.NullFloat64
	err = r.db.QueryRow(`
		SELECT AVG(pgs.points), COUNT(*)
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.player_id = ?
		  AND g.game_type = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?`, playerID, string(gameType), before.Format(DateLayout)).Scan(&avgNull, &games)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query game type averages: %w", err)
	}
	if avgNull.Valid {
		avg = avgNull.Float64
	}
	return avg, games, nil
}

// StarTeammate is a teammate averaging star-level scoring.
type StarTeammate struct {
	PlayerID int64
	PPG      float64
}

// TeamStars returns teammates (excluding playerID) averaging at least minPPG
// points over games with at least minMinutes minutes in the season strictly
// before the cutoff.
func (r *GameLogRepository) TeamStars(teamID int64, season string, before time.Time, excludePlayerID int64, minMinutes, minPPG float64) ([]StarTeammate, error) {
	rows, err := r.db.Query(`
		SELECT pgs.player_id, AVG(pgs.points) AS ppg
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.team_id = ?
		  AND g.season = ?
		  AND g.game_date < ?
		  AND g.game_status = 'completed'
		  AND pgs.player_id != ?
		  AND pgs.minutes_played >= ?
		GROUP BY pgs.player_id
		HAVING AVG(pgs.points) >= ?`,
		teamID, season, before.Format(DateLayout), excludePlayerID, minMinutes, minPPG)
	if err != nil {
		return nil, fmt.Errorf("failed to query team stars: %w", err)
	}
	defer rows.Close()

	var stars []StarTeammate
	for rows.Next() {
		var s StarTeammate
		if err := rows.Scan(&s.PlayerID, &s.PPG); err != nil {
			return nil, fmt.Errorf("failed to scan star teammate: %w", err)
		}
		stars = append(stars, s)
	}
	return stars, rows.Err()
}

// GamesWithoutStar counts the player's completed season games before the
// cutoff where the star did not log at least minMinutes minutes.
func (r *GameLogRepository) GamesWithoutStar(playerID, teamID, starID int64, season string, before time.Time, minMinutes float64) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.player_id = ?
		  AND pgs.team_id = ?
		  AND g.season = ?
		  AND g.game_date < ?
		  AND g.game_status = 'completed'
		  AND NOT EXISTS (
			SELECT 1 FROM player_game_stats pgs2
			WHERE pgs2.game_id = pgs.game_id
			  AND pgs2.player_id = ?
			  AND pgs2.minutes_played >= ?
		  )`,
		playerID, teamID, season, before.Format(DateLayout), starID, minMinutes).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games without star: %w", err)
	}
	return count, nil
}

// PlayedOn reports whether the player has a completed game line on the date.
func (r *GameLogRepository) PlayedOn(playerID int64, date time.Time) (bool, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE pgs.player_id = ?
		  AND g.game_date = ?
		  AND g.game_status = 'completed'`, playerID, date.Format(DateLayout)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check played on date: %w", err)
	}
	return count > 0, nil
}

// ActualLine returns the player's completed stat line for a game, if present.
func (r *GameLogRepository) ActualLine(playerID, gameID int64) (*domain.StatLine, error) {
	var line domain.StatLine
	err := r.db.QueryRow(`
		SELECT points, rebounds_total, assists, steals, blocks, turnovers, three_pointers_made
		FROM player_game_stats
		WHERE player_id = ? AND game_id = ?`, playerID, gameID).
		Scan(&line.Points, &line.Rebounds, &line.Assists, &line.Steals,
			&line.Blocks, &line.Turnovers, &line.ThreePointersMade)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query actual line: %w", err)
	}
	return &line, nil
}

func scanGameLogs(rows *sql.Rows) ([]domain.PlayerGameLog, error) {
	var logs []domain.PlayerGameLog
	for rows.Next() {
		var (
			l         domain.PlayerGameLog
			rawDate   string
			gameType  string
			isStarter int
		)
		err := rows.Scan(
			&l.PlayerID, &l.GameID, &l.TeamID,
			&rawDate, &l.Season, &gameType,
			&l.Points, &l.Rebounds, &l.Assists, &l.Steals, &l.Blocks,
			&l.Turnovers, &l.ThreePointersMade, &l.ThreePointersAttempted,
			&l.FieldGoalsMade, &l.FieldGoalsAttempted,
			&l.FreeThrowsMade, &l.FreeThrowsAttempted,
			&l.MinutesPlayed, &isStarter,
			&l.UsageRate, &l.TrueShootingPct, &l.OffensiveRating, &l.DefensiveRating,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game log: %w", err)
		}

		l.GameDate, err = time.Parse(DateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("malformed game date %q: %w", rawDate, err)
		}
		l.GameType = domain.GameType(gameType)
		l.IsStarter = isStarter != 0

		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game logs: %w", err)
	}
	return logs, nil
}
