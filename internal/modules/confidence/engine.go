// Package confidence scores how much trust a prediction deserves, on a 0-100
// scale built from four components: performance stability, feature
// completeness, experience, and roster stability. Every lookup degrades
// gracefully; a failed query costs precision, never the prediction.
package confidence

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/features"
	"github.com/hoopsight/hoopsight/internal/modules/history"
	"github.com/hoopsight/hoopsight/pkg/formulas"
)

// Component ceilings. The four sum to 100.
const (
	maxStability    = 30.0
	maxCompleteness = 20.0
	maxExperience   = 25.0
	maxRoster       = 25.0
)

// careerSampleSize is how many recent career games feed the long-horizon
// stability estimate.
const careerSampleSize = 100

// transactionWindowDays bounds how far back a roster move still matters.
const transactionWindowDays = 30

// Engine computes confidence scores.
type Engine struct {
	logs         *history.GameLogRepository
	injuries     *history.InjuryRepository
	transactions *history.TransactionRepository
	log          zerolog.Logger
}

// NewEngine creates a confidence engine
func NewEngine(logs *history.GameLogRepository, injuries *history.InjuryRepository,
	transactions *history.TransactionRepository, log zerolog.Logger) *Engine {
	return &Engine{
		logs:         logs,
		injuries:     injuries,
		transactions: transactions,
		log:          log.With().Str("component", "confidence").Logger(),
	}
}

// Score rates a prediction for a player in an upcoming game. recent is the
// player's recent season games, newest first; vector is the feature vector
// the models will consume.
func (e *Engine) Score(playerID, teamID int64, game domain.Game,
	recent []domain.PlayerGameLog, vector *features.Vector) int {

	score := e.stability(playerID, game.GameDate, recent) +
		completeness(vector) +
		e.experience(playerID, game.Season, game.GameDate) +
		e.roster(playerID, teamID, game.Season, game.GameDate)

	final := int(score)
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}
	return final
}

// stability blends season-level and career-level scoring consistency,
// weighted toward the current season.
func (e *Engine) stability(playerID int64, date time.Time, recent []domain.PlayerGameLog) float64 {
	season := seasonStability(recent)

	career := season
	careerPoints, err := e.logs.CareerPoints(playerID, date, careerSampleSize)
	if err != nil {
		e.log.Warn().Err(err).Int64("player_id", playerID).Msg("Career points lookup failed, using season stability")
	} else if len(careerPoints) >= 20 {
		career = variationScore(careerPoints)
	}

	return season*0.75 + career*0.25
}

func seasonStability(recent []domain.PlayerGameLog) float64 {
	if len(recent) < 5 {
		return 10
	}
	points := make([]float64, len(recent))
	for i, l := range recent {
		points[i] = l.Points
	}
	return variationScore(points)
}

// variationScore maps scoring variation to [0, maxStability]: a coefficient
// of variation of 0 earns the full 30, 0.5 or worse earns 0.
func variationScore(points []float64) float64 {
	mean := formulas.Mean(points)
	if mean <= 0 {
		return 15
	}
	cv := formulas.StdDev(points) / mean
	score := maxStability - 60*cv
	if score < 0 {
		return 0
	}
	return score
}

// completeness rewards vectors with more of the schema actually computed
// rather than filled by fallbacks.
func completeness(vector *features.Vector) float64 {
	total := len(features.Schema())
	if total == 0 || vector == nil {
		return 0
	}
	return maxCompleteness * float64(vector.Len()) / float64(total)
}

// experience scores how much track record backs the prediction, with
// deductions for thin careers and recent injury returns.
func (e *Engine) experience(playerID int64, season string, date time.Time) float64 {
	seasonGames, err := e.logs.SeasonGameCount(playerID, season, date)
	if err != nil {
		e.log.Warn().Err(err).Int64("player_id", playerID).Msg("Season game count lookup failed")
		seasonGames = 0
	}
	careerGames, err := e.logs.CareerGameCount(playerID, date)
	if err != nil {
		e.log.Warn().Err(err).Int64("player_id", playerID).Msg("Career game count lookup failed")
		careerGames = 0
	}

	var base float64
	switch {
	case seasonGames >= 20:
		base = 25
	case seasonGames >= 10:
		base = 20
	case seasonGames >= 5:
		base = 15
	default:
		base = 10
	}

	var deductions float64
	if careerGames < 20 {
		deductions += 10
	} else if careerGames < 50 {
		deductions += 5
	}

	switch {
	case seasonGames < 5:
		deductions += e.injuryDeduction(playerID, date, 8, 5, 3, 2)
	case seasonGames < 10:
		deductions += e.injuryDeduction(playerID, date, 3, 3, 3, 1)
	}

	score := base - deductions
	if score < 0 {
		return 0
	}
	return score
}

// injuryDeduction sizes the experience penalty for a player early in a
// season: heavier when they are freshly back from a long absence, light when
// the thin season has no injury behind it.
func (e *Engine) injuryDeduction(playerID int64, date time.Time, long, medium, short, healthy float64) float64 {
	ret, err := e.injuries.LatestReturn(playerID, date)
	if err != nil {
		e.log.Warn().Err(err).Int64("player_id", playerID).Msg("Injury return lookup failed")
		return healthy
	}
	if ret == nil || ret.ReturnDate == nil {
		return healthy
	}

	daysSinceReturn := int(date.Sub(*ret.ReturnDate) / (24 * time.Hour))
	missed := 0
	if ret.GamesMissed != nil {
		missed = *ret.GamesMissed
	}
	if daysSinceReturn < 0 || daysSinceReturn > 30 || missed < 5 {
		return healthy
	}

	switch {
	case missed >= 20:
		return long
	case missed >= 10:
		return medium
	default:
		return short
	}
}

// roster scores situational stability: recent trades and signings, and
// players who are rostered but barely playing.
func (e *Engine) roster(playerID, teamID int64, season string, date time.Time) float64 {
	score := maxRoster

	tx, err := e.transactions.LatestWithin(playerID, date, transactionWindowDays)
	if err != nil {
		e.log.Warn().Err(err).Int64("player_id", playerID).Msg("Transaction lookup failed")
	} else if tx != nil {
		daysSince := int(date.Sub(tx.Date) / (24 * time.Hour))
		score -= transactionDeduction(tx.Type, daysSince)
	}

	seasonGames, err := e.logs.SeasonGameCount(playerID, season, date)
	if err == nil && seasonGames >= 5 {
		teamGames, terr := e.logs.SeasonGameCountWithTeam(playerID, teamID, season, date)
		if terr == nil && teamGames < 3 {
			score -= 8
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

func transactionDeduction(txType domain.TransactionType, daysSince int) float64 {
	if txType == domain.TransactionTrade {
		switch {
		case daysSince <= 7:
			return 15
		case daysSince <= 14:
			return 10
		case daysSince <= 21:
			return 5
		}
		return 0
	}
	switch {
	case daysSince <= 7:
		return 12
	case daysSince <= 14:
		return 8
	case daysSince <= 21:
		return 4
	}
	return 0
}
