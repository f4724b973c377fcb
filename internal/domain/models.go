// Package domain holds the core types shared across modules. The domain layer
// is pure: no database or transport dependencies.
package domain

import "time"

// GameType tags a game within a season.
type GameType string

const (
	GameTypeRegularSeason GameType = "regular_season"
	GameTypePlayoff       GameType = "playoff"
	GameTypePlayIn        GameType = "play_in"
)

// GameStatus tracks a game's lifecycle.
type GameStatus string

const (
	GameStatusScheduled GameStatus = "scheduled"
	GameStatusCompleted GameStatus = "completed"
)

// Team represents league team metadata, including venue context used by the
// travel and altitude features.
type Team struct {
	TeamID        int64
	Name          string
	Abbreviation  string
	Timezone      string   // IANA name, e.g. "America/Denver"
	ArenaAltitude *float64 // feet above sea level, nil when unknown
}

// Player represents a league player.
type Player struct {
	PlayerID int64
	FullName string
	Position string // raw listing, e.g. "Guard-Forward"; see ClassifyPosition
	TeamID   int64
	IsActive bool
}

// Game represents one scheduled or completed game.
type Game struct {
	GameID     int64
	GameDate   time.Time
	Season     string
	GameType   GameType
	Status     GameStatus
	HomeTeamID int64
	AwayTeamID int64
}

// PlayerGameLog is one player's statistical line in one completed game.
// Immutable once the game is marked completed.
type PlayerGameLog struct {
	PlayerID int64
	GameID   int64
	TeamID   int64
	GameDate time.Time
	Season   string
	GameType GameType

	Points                 float64
	Rebounds               float64
	Assists                float64
	Steals                 float64
	Blocks                 float64
	Turnovers              float64
	ThreePointersMade      float64
	ThreePointersAttempted float64
	FieldGoalsMade         float64
	FieldGoalsAttempted    float64
	FreeThrowsMade         float64
	FreeThrowsAttempted    float64
	MinutesPlayed          float64
	IsStarter              bool

	UsageRate       float64
	TrueShootingPct float64
	OffensiveRating float64
	DefensiveRating float64
}

// InjuryStatus is the lifecycle state of an injury report.
// {Out, Day-To-Day, Questionable} transition to Healthy when the player is
// observed in a completed game log on or after the report date; Healthy is
// terminal until a new report creates a new record.
type InjuryStatus string

const (
	InjuryStatusOut          InjuryStatus = "Out"
	InjuryStatusDayToDay     InjuryStatus = "Day-To-Day"
	InjuryStatusQuestionable InjuryStatus = "Questionable"
	InjuryStatusHealthy      InjuryStatus = "Healthy"
)

// InjuryRecord is one injury report for a player.
type InjuryRecord struct {
	InjuryID    int64
	PlayerID    int64
	Status      InjuryStatus
	ReportDate  time.Time
	ReturnDate  *time.Time
	GamesMissed *int
}

// TransactionType classifies a roster move.
type TransactionType string

const (
	TransactionTrade   TransactionType = "trade"
	TransactionSigning TransactionType = "signing"
)

// Transaction is one roster move for a player.
type Transaction struct {
	TransactionID int64
	PlayerID      int64
	Type          TransactionType
	Date          time.Time
	FromTeamID    *int64
	ToTeamID      *int64
}

// TeammateDependency records the observed production shift for a player in
// games their star teammate missed, per season. Only written when the player
// has at least MinGamesWithoutStar qualifying games without the star and the
// points delta is material.
type TeammateDependency struct {
	PlayerID   int64 // the dependent teammate
	TeammateID int64 // the star
	Season     string

	GamesWith    int
	GamesWithout int

	PPGWith  float64
	PPGBoost float64
	PPGAway  float64 // average in games the star missed

	RPGWith  float64
	RPGBoost float64
	RPGAway  float64

	APGWith  float64
	APGBoost float64
	APGAway  float64
}

// StatLine holds the seven projected statistics.
type StatLine struct {
	Points            float64
	Rebounds          float64
	Assists           float64
	Steals            float64
	Blocks            float64
	Turnovers         float64
	ThreePointersMade float64
}

// Value returns one stat by its storage column name.
func (s StatLine) Value(stat string) float64 {
	switch stat {
	case "points":
		return s.Points
	case "rebounds_total":
		return s.Rebounds
	case "assists":
		return s.Assists
	case "steals":
		return s.Steals
	case "blocks":
		return s.Blocks
	case "turnovers":
		return s.Turnovers
	case "three_pointers_made":
		return s.ThreePointersMade
	}
	return 0
}

// SetValue assigns one stat by its storage column name.
func (s *StatLine) SetValue(stat string, v float64) {
	switch stat {
	case "points":
		s.Points = v
	case "rebounds_total":
		s.Rebounds = v
	case "assists":
		s.Assists = v
	case "steals":
		s.Steals = v
	case "blocks":
		s.Blocks = v
	case "turnovers":
		s.Turnovers = v
	case "three_pointers_made":
		s.ThreePointersMade = v
	}
}

// Prediction is one projection for a (player, game, model version).
// Actuals and the error are filled in after the game completes.
type Prediction struct {
	PredictionID   int64
	RunID          string
	GameID         int64
	PlayerID       int64
	PredictionDate time.Time

	Predicted    StatLine
	Confidence   int // [0, 100]
	ModelVersion string
	Explanations string // JSON: per-stat ranked feature impacts

	Actual *StatLine
	Error  *float64 // mean absolute error across the seven stats
}
