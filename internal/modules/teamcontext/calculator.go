// Package teamcontext derives team-level pace, efficiency, and positional
// defense profiles from completed game lines. Every calculation is as-of a
// date: only games strictly before the date contribute.
package teamcontext

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/history"
)

// Defaults used when a team has no qualifying games yet.
const (
	DefaultTurnoversPerGame = 14.0
	DefaultStealsPerGame    = 7.0
)

// Ratings is a team's efficiency and tempo profile.
type Ratings struct {
	OffensiveRating float64 // points per 100 possessions
	DefensiveRating float64 // opponent points per 100 possessions
	Pace            float64 // possessions per game, averaged with opponents
	Games           int
}

// Defense is a team's aggregate defensive profile.
type Defense struct {
	OppFieldGoalPct   float64 // FG% allowed
	OppThreePointPct  float64 // 3P% allowed
	TurnoversPerGame  float64 // own turnovers committed
	StealsPerGame     float64 // own steals
	Games             int
}

// PositionDefense is what a team allows to opposing players of one position
// bucket, per game.
type PositionDefense struct {
	PointsAllowed       float64
	ReboundsAllowed     float64
	AssistsAllowed      float64
	BlocksAllowed       float64
	ThreePointersAllowed float64
	TurnoversForced     float64
	StealsAllowed       float64
	Games               int
}

// PositionProfile is a team's own per-game production from one position
// bucket: the ball-security side of the positional matchup.
type PositionProfile struct {
	TurnoversPerGame float64
	StealsPerGame    float64
	Games            int
}

// Calculator computes team context as of a date.
type Calculator struct {
	db  *database.DB
	log zerolog.Logger
}

// NewCalculator creates a team context calculator
func NewCalculator(db *database.DB, log zerolog.Logger) *Calculator {
	return &Calculator{
		db:  db,
		log: log.With().Str("component", "team_context").Logger(),
	}
}

// teamGameTotals is one completed game's own/opponent aggregates for a team.
type teamGameTotals struct {
	ownPoints, ownPossessions float64
	oppPoints, oppPossessions float64
}

// Ratings computes offensive/defensive rating and pace for a team over its
// completed season games strictly before the date. ok is false when the team
// has no qualifying games; callers fall back to league means.
func (c *Calculator) Ratings(teamID int64, season string, before time.Time) (Ratings, bool, error) {
	rows, err := c.db.Query(`
		SELECT
			SUM(CASE WHEN pgs.team_id = ? THEN pgs.points ELSE 0 END),
			SUM(CASE WHEN pgs.team_id = ? THEN pgs.field_goals_attempted + 0.44 * pgs.free_throws_attempted + pgs.turnovers ELSE 0 END),
			SUM(CASE WHEN pgs.team_id != ? THEN pgs.points ELSE 0 END),
			SUM(CASE WHEN pgs.team_id != ? THEN pgs.field_goals_attempted + 0.44 * pgs.free_throws_attempted + pgs.turnovers ELSE 0 END)
		FROM games g
		JOIN player_game_stats pgs ON pgs.game_id = g.game_id
		WHERE g.season = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?
		  AND (g.home_team_id = ? OR g.away_team_id = ?)
		GROUP BY g.game_id`,
		teamID, teamID, teamID, teamID,
		season, before.Format(history.DateLayout), teamID, teamID)
	if err != nil {
		return Ratings{}, false, fmt.Errorf("failed to query team game totals: %w", err)
	}
	defer rows.Close()

	var games []teamGameTotals
	for rows.Next() {
		var t teamGameTotals
		if err := rows.Scan(&t.ownPoints, &t.ownPossessions, &t.oppPoints, &t.oppPossessions); err != nil {
			return Ratings{}, false, fmt.Errorf("failed to scan team game totals: %w", err)
		}
		games = append(games, t)
	}
	if err := rows.Err(); err != nil {
		return Ratings{}, false, fmt.Errorf("error iterating team game totals: %w", err)
	}
	if len(games) == 0 {
		return Ratings{}, false, nil
	}

	var pts, poss, oppPts, oppPoss, pace float64
	for _, g := range games {
		pts += g.ownPoints
		poss += g.ownPossessions
		oppPts += g.oppPoints
		oppPoss += g.oppPossessions
		pace += (g.ownPossessions + g.oppPossessions) / 2
	}

	r := Ratings{
		Pace:  pace / float64(len(games)),
		Games: len(games),
	}
	if poss > 0 {
		r.OffensiveRating = 100 * pts / poss
	}
	if oppPoss > 0 {
		r.DefensiveRating = 100 * oppPts / oppPoss
	}
	return r, true, nil
}

// Defense computes the team's defensive profile over its completed season
// games strictly before the date. When the team has no games, per-game rates
// fall back to league-typical defaults.
func (c *Calculator) Defense(teamID int64, season string, before time.Time) (Defense, error) {
	var (
		gameCount                              int
		oppFGM, oppFGA, opp3PM, opp3PA         float64
		ownTurnovers, ownSteals                float64
	)
	err := c.db.QueryRow(`
		SELECT
			COUNT(DISTINCT g.game_id),
			SUM(CASE WHEN pgs.team_id != ? THEN pgs.field_goals_made ELSE 0 END),
			SUM(CASE WHEN pgs.team_id != ? THEN pgs.field_goals_attempted ELSE 0 END),
			SUM(CASE WHEN pgs.team_id != ? THEN pgs.three_pointers_made ELSE 0 END),
			SUM(CASE WHEN pgs.team_id != ? THEN pgs.three_pointers_attempted ELSE 0 END),
			SUM(CASE WHEN pgs.team_id = ? THEN pgs.turnovers ELSE 0 END),
			SUM(CASE WHEN pgs.team_id = ? THEN pgs.steals ELSE 0 END)
		FROM games g
		JOIN player_game_stats pgs ON pgs.game_id = g.game_id
		WHERE g.season = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?
		  AND (g.home_team_id = ? OR g.away_team_id = ?)`,
		teamID, teamID, teamID, teamID, teamID, teamID,
		season, before.Format(history.DateLayout), teamID, teamID).
		Scan(&gameCount, &oppFGM, &oppFGA, &opp3PM, &opp3PA, &ownTurnovers, &ownSteals)
	if err != nil {
		return Defense{}, fmt.Errorf("failed to query team defense: %w", err)
	}

	d := Defense{
		TurnoversPerGame: DefaultTurnoversPerGame,
		StealsPerGame:    DefaultStealsPerGame,
		Games:            gameCount,
	}
	if gameCount == 0 {
		return d, nil
	}
	if oppFGA > 0 {
		d.OppFieldGoalPct = oppFGM / oppFGA
	}
	if opp3PA > 0 {
		d.OppThreePointPct = opp3PM / opp3PA
	}
	d.TurnoversPerGame = ownTurnovers / float64(gameCount)
	d.StealsPerGame = ownSteals / float64(gameCount)
	return d, nil
}

// positionLine is one player line with the listed position, used for
// Go-side position bucketing.
type positionLine struct {
	gameID    int64
	position  string
	points    float64
	rebounds  float64
	assists   float64
	blocks    float64
	threes    float64
	turnovers float64
	steals    float64
}

// VersusPosition computes what opposing players of one position bucket have
// produced per game against the team, over its completed season games
// strictly before the date.
func (c *Calculator) VersusPosition(teamID int64, pos domain.Position, season string, before time.Time) (PositionDefense, error) {
	lines, gameIDs, err := c.opponentLines(teamID, season, before)
	if err != nil {
		return PositionDefense{}, err
	}

	var d PositionDefense
	d.Games = len(gameIDs)
	if d.Games == 0 {
		return d, nil
	}

	for _, l := range lines {
		if domain.ClassifyPosition(l.position) != pos {
			continue
		}
		d.PointsAllowed += l.points
		d.ReboundsAllowed += l.rebounds
		d.AssistsAllowed += l.assists
		d.BlocksAllowed += l.blocks
		d.ThreePointersAllowed += l.threes
		d.TurnoversForced += l.turnovers
		d.StealsAllowed += l.steals
	}

	n := float64(d.Games)
	d.PointsAllowed /= n
	d.ReboundsAllowed /= n
	d.AssistsAllowed /= n
	d.BlocksAllowed /= n
	d.ThreePointersAllowed /= n
	d.TurnoversForced /= n
	d.StealsAllowed /= n
	return d, nil
}

// OwnPosition computes the team's own per-game turnovers and steals from
// players of one position bucket.
func (c *Calculator) OwnPosition(teamID int64, pos domain.Position, season string, before time.Time) (PositionProfile, error) {
	rows, err := c.db.Query(`
		SELECT pgs.game_id, COALESCE(p.position, ''), pgs.turnovers, pgs.steals
		FROM player_game_stats pgs
		JOIN players p ON p.player_id = pgs.player_id
		JOIN games g ON g.game_id = pgs.game_id
		WHERE pgs.team_id = ?
		  AND g.season = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?`,
		teamID, season, before.Format(history.DateLayout))
	if err != nil {
		return PositionProfile{}, fmt.Errorf("failed to query own position lines: %w", err)
	}
	defer rows.Close()

	var profile PositionProfile
	gameIDs := make(map[int64]struct{})
	for rows.Next() {
		var (
			gameID             int64
			position           string
			turnovers, steals  float64
		)
		if err := rows.Scan(&gameID, &position, &turnovers, &steals); err != nil {
			return PositionProfile{}, fmt.Errorf("failed to scan own position line: %w", err)
		}
		gameIDs[gameID] = struct{}{}
		if domain.ClassifyPosition(position) != pos {
			continue
		}
		profile.TurnoversPerGame += turnovers
		profile.StealsPerGame += steals
	}
	if err := rows.Err(); err != nil {
		return PositionProfile{}, fmt.Errorf("error iterating own position lines: %w", err)
	}

	profile.Games = len(gameIDs)
	if profile.Games > 0 {
		profile.TurnoversPerGame /= float64(profile.Games)
		profile.StealsPerGame /= float64(profile.Games)
	}
	return profile, nil
}

func (c *Calculator) opponentLines(teamID int64, season string, before time.Time) ([]positionLine, map[int64]struct{}, error) {
	rows, err := c.db.Query(`
		SELECT pgs.game_id, COALESCE(p.position, ''),
			pgs.points, pgs.rebounds_total, pgs.assists, pgs.blocks,
			pgs.three_pointers_made, pgs.turnovers, pgs.steals
		FROM games g
		JOIN player_game_stats pgs ON pgs.game_id = g.game_id
		JOIN players p ON p.player_id = pgs.player_id
		WHERE g.season = ?
		  AND g.game_status = 'completed'
		  AND g.game_date < ?
		  AND (g.home_team_id = ? OR g.away_team_id = ?)
		  AND pgs.team_id != ?`,
		season, before.Format(history.DateLayout), teamID, teamID, teamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query opponent lines: %w", err)
	}
	defer rows.Close()

	var lines []positionLine
	gameIDs := make(map[int64]struct{})
	for rows.Next() {
		var l positionLine
		err := rows.Scan(&l.gameID, &l.position,
			&l.points, &l.rebounds, &l.assists, &l.blocks,
			&l.threes, &l.turnovers, &l.steals)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan opponent line: %w", err)
		}
		gameIDs[l.gameID] = struct{}{}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating opponent lines: %w", err)
	}
	return lines, gameIDs, nil
}
