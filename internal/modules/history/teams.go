package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
)

// TeamRepository reads team metadata.
type TeamRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewTeamRepository creates a team repository
func NewTeamRepository(db *database.DB, log zerolog.Logger) *TeamRepository {
	return &TeamRepository{
		db:  db,
		log: log.With().Str("component", "team_repo").Logger(),
	}
}

// Get returns one team by id, or nil when absent.
func (r *TeamRepository) Get(teamID int64) (*domain.Team, error) {
	var (
		t        domain.Team
		tz       sql.NullString
		altitude sql.NullFloat64
	)
	err := r.db.QueryRow(`
		SELECT team_id, name, abbreviation, timezone, arena_altitude
		FROM teams WHERE team_id = ?`, teamID).
		Scan(&t.TeamID, &t.Name, &t.Abbreviation, &tz, &altitude)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query team: %w", err)
	}
	if tz.Valid {
		t.Timezone = tz.String
	}
	if altitude.Valid {
		t.ArenaAltitude = &altitude.Float64
	}
	return &t, nil
}

// All returns every team keyed by id.
func (r *TeamRepository) All() (map[int64]domain.Team, error) {
	rows, err := r.db.Query(`SELECT team_id, name, abbreviation, timezone, arena_altitude FROM teams`)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := make(map[int64]domain.Team)
	for rows.Next() {
		var (
			t        domain.Team
			tz       sql.NullString
			altitude sql.NullFloat64
		)
		if err := rows.Scan(&t.TeamID, &t.Name, &t.Abbreviation, &tz, &altitude); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		if tz.Valid {
			t.Timezone = tz.String
		}
		if altitude.Valid {
			alt := altitude.Float64
			t.ArenaAltitude = &alt
		}
		teams[t.TeamID] = t
	}
	return teams, rows.Err()
}

// PlayerRepository reads player metadata and roster membership.
type PlayerRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewPlayerRepository creates a player repository
func NewPlayerRepository(db *database.DB, log zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		db:  db,
		log: log.With().Str("component", "player_repo").Logger(),
	}
}

// Get returns one player by id, or nil when absent.
func (r *PlayerRepository) Get(playerID int64) (*domain.Player, error) {
	var (
		p        domain.Player
		position sql.NullString
		isActive int
	)
	err := r.db.QueryRow(`
		SELECT player_id, full_name, position, team_id, is_active
		FROM players WHERE player_id = ?`, playerID).
		Scan(&p.PlayerID, &p.FullName, &position, &p.TeamID, &isActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query player: %w", err)
	}
	if position.Valid {
		p.Position = position.String
	}
	p.IsActive = isActive != 0
	return &p, nil
}

// All returns every player keyed by id.
func (r *PlayerRepository) All() (map[int64]domain.Player, error) {
	rows, err := r.db.Query(`SELECT player_id, full_name, position, team_id, is_active FROM players`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make(map[int64]domain.Player)
	for rows.Next() {
		var (
			p        domain.Player
			position sql.NullString
			isActive int
		)
		if err := rows.Scan(&p.PlayerID, &p.FullName, &position, &p.TeamID, &isActive); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		if position.Valid {
			p.Position = position.String
		}
		p.IsActive = isActive != 0
		players[p.PlayerID] = p
	}
	return players, rows.Err()
}

// RecentRoster returns the ids of players who logged stats for the team in
// the team's last 10 completed season games before the cutoff and are not
// currently ruled Out. Active players listed on the team with no appearance
// in those games but at least 5 completed season games are included too: they
// are the newly-traded cases whose history lives with their former team.
func (r *PlayerRepository) RecentRoster(teamID int64, season string, date time.Time) ([]int64, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT pgs.player_id
		FROM player_game_stats pgs
		WHERE pgs.team_id = ?
		  AND pgs.game_id IN (
			SELECT game_id FROM games
			WHERE season = ?
			  AND game_status = 'completed'
			  AND game_date < ?
			  AND (home_team_id = ? OR away_team_id = ?)
			ORDER BY game_date DESC
			LIMIT 10
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM injuries i
			WHERE i.player_id = pgs.player_id
			  AND i.injury_status = 'Out'
			  AND i.report_date <= ?
			  AND (i.return_date IS NULL OR i.return_date > ?)
		  )`,
		teamID, season, date.Format(DateLayout), teamID, teamID,
		date.Format(DateLayout), date.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query recent roster: %w", err)
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	newcomers, err := r.newlyTraded(teamID, season, date, ids)
	if err != nil {
		return nil, err
	}
	return append(ids, newcomers...), nil
}

// newlyTraded finds active players listed on the team who are missing from
// the recent-appearance set but carry enough completed season games elsewhere
// to be predictable.
func (r *PlayerRepository) newlyTraded(teamID int64, season string, date time.Time, seen []int64) ([]int64, error) {
	seenSet := make(map[int64]struct{}, len(seen))
	for _, id := range seen {
		seenSet[id] = struct{}{}
	}

	rows, err := r.db.Query(`
		SELECT p.player_id
		FROM players p
		WHERE p.team_id = ?
		  AND p.is_active = 1
		  AND (
			SELECT COUNT(*)
			FROM player_game_stats pgs
			JOIN games g ON pgs.game_id = g.game_id
			WHERE pgs.player_id = p.player_id
			  AND g.season = ?
			  AND g.game_status = 'completed'
			  AND g.game_date < ?
		  ) >= 5`,
		teamID, season, date.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query newly traded players: %w", err)
	}
	defer rows.Close()

	candidates, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	var out []int64
	for _, id := range candidates {
		if _, ok := seenSet[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
