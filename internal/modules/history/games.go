package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
)

// GameRepository reads the game schedule.
type GameRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewGameRepository creates a game repository
func NewGameRepository(db *database.DB, log zerolog.Logger) *GameRepository {
	return &GameRepository{
		db:  db,
		log: log.With().Str("component", "game_repo").Logger(),
	}
}

const gameColumns = `game_id, game_date, season, game_type, game_status, home_team_id, away_team_id`

// ScheduledOn returns the games scheduled on a date.
func (r *GameRepository) ScheduledOn(date time.Time) ([]domain.Game, error) {
	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT %s FROM games
		WHERE game_date = ? AND game_status = 'scheduled'
		ORDER BY game_id`, gameColumns), date.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// AllCompleted returns every completed game, ordered by date ascending.
func (r *GameRepository) AllCompleted() ([]domain.Game, error) {
	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT %s FROM games
		WHERE game_status = 'completed'
		ORDER BY game_date, game_id`, gameColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to query completed games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// Get returns one game by id.
func (r *GameRepository) Get(gameID int64) (*domain.Game, error) {
	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT %s FROM games WHERE game_id = ?`, gameColumns), gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query game: %w", err)
	}
	defer rows.Close()

	games, err := scanGames(rows)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}
	return &games[0], nil
}

// CompletedWithoutActuals returns completed games that still have prediction
// rows with no actuals filled in.
func (r *GameRepository) CompletedWithoutActuals() ([]domain.Game, error) {
	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT DISTINCT %s FROM games g
		JOIN predictions p ON p.game_id = g.game_id
		WHERE g.game_status = 'completed'
		  AND p.actual_points IS NULL
		ORDER BY g.game_date`, prefixGameColumns("g")))
	if err != nil {
		return nil, fmt.Errorf("failed to query games pending evaluation: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// Seasons returns the seasons with at least one completed game, ascending.
func (r *GameRepository) Seasons() ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT season FROM games
		WHERE game_status = 'completed'
		ORDER BY season`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	var seasons []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}

// SeasonStart returns the earliest game date in a season.
// ok is false when the season has no games.
func (r *GameRepository) SeasonStart(season string) (time.Time, bool, error) {
	var raw sql.NullString
	err := r.db.QueryRow(`SELECT MIN(game_date) FROM games WHERE season = ?`, season).Scan(&raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query season start: %w", err)
	}
	if !raw.Valid {
		return time.Time{}, false, nil
	}
	d, err := time.Parse(DateLayout, raw.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed season start %q: %w", raw.String, err)
	}
	return d, true, nil
}

// TeamGamesPlayed counts a team's completed games in the season strictly
// before the cutoff.
func (r *GameRepository) TeamGamesPlayed(teamID int64, season string, before time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM games
		WHERE season = ?
		  AND game_status = 'completed'
		  AND game_date < ?
		  AND (home_team_id = ? OR away_team_id = ?)`,
		season, before.Format(DateLayout), teamID, teamID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count team games: %w", err)
	}
	return count, nil
}

// RecentTeamGameIDs returns the ids of the team's last n completed season
// games strictly before the cutoff.
func (r *GameRepository) RecentTeamGameIDs(teamID int64, season string, before time.Time, n int) ([]int64, error) {
	rows, err := r.db.Query(`
		SELECT game_id FROM games
		WHERE season = ?
		  AND game_status = 'completed'
		  AND game_date < ?
		  AND (home_team_id = ? OR away_team_id = ?)
		ORDER BY game_date DESC
		LIMIT ?`, season, before.Format(DateLayout), teamID, teamID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent team games: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CompletedLeagueDatesBetween counts distinct completed league game dates in
// the open interval (after, before).
func (r *GameRepository) CompletedLeagueDatesBetween(after, before time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(DISTINCT game_date) FROM games
		WHERE game_status = 'completed'
		  AND game_date > ?
		  AND game_date < ?`,
		after.Format(DateLayout), before.Format(DateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count league game dates: %w", err)
	}
	return count, nil
}

func prefixGameColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.game_id, %[1]s.game_date, %[1]s.season, %[1]s.game_type, %[1]s.game_status, %[1]s.home_team_id, %[1]s.away_team_id`, alias)
}

func scanGames(rows *sql.Rows) ([]domain.Game, error) {
	var games []domain.Game
	for rows.Next() {
		var (
			g        domain.Game
			rawDate  string
			gameType string
			status   string
		)
		if err := rows.Scan(&g.GameID, &rawDate, &g.Season, &gameType, &status, &g.HomeTeamID, &g.AwayTeamID); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		var err error
		g.GameDate, err = time.Parse(DateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("malformed game date %q: %w", rawDate, err)
		}
		g.GameType = domain.GameType(gameType)
		g.Status = domain.GameStatus(status)
		games = append(games, g)
	}
	return games, rows.Err()
}
