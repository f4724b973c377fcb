package predictions

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/history"
)

// Evaluator back-fills actuals onto predictions once games complete and
// reports per-model accuracy.
type Evaluator struct {
	games *history.GameRepository
	logs  *history.GameLogRepository
	repo  *Repository
	log   zerolog.Logger
}

// NewEvaluator creates a prediction evaluator
func NewEvaluator(games *history.GameRepository, logs *history.GameLogRepository,
	repo *Repository, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		games: games,
		logs:  logs,
		repo:  repo,
		log:   log.With().Str("component", "evaluator").Logger(),
	}
}

// EvaluateCompleted fills actuals and errors for every prediction whose game
// has completed since the last sweep. Returns the number of rows evaluated.
func (e *Evaluator) EvaluateCompleted() (int, error) {
	pending, err := e.games.CompletedWithoutActuals()
	if err != nil {
		return 0, fmt.Errorf("failed to find games pending evaluation: %w", err)
	}

	evaluated := 0
	for _, game := range pending {
		preds, err := e.repo.ForGame(game.GameID)
		if err != nil {
			return evaluated, err
		}

		actuals := make(map[int64]*domain.StatLine)
		for _, p := range preds {
			if p.Actual != nil {
				continue
			}

			actual, ok := actuals[p.PlayerID]
			if !ok {
				actual, err = e.logs.ActualLine(p.PlayerID, game.GameID)
				if err != nil {
					return evaluated, err
				}
				actuals[p.PlayerID] = actual
			}
			if actual == nil {
				// Predicted but never played; leave the row for honesty.
				continue
			}

			if err := e.repo.FillActuals(p.PredictionID, *actual, meanAbsoluteError(p.Predicted, *actual)); err != nil {
				return evaluated, err
			}
			evaluated++
		}
	}

	if evaluated > 0 {
		e.log.Info().Int("rows", evaluated).Int("games", len(pending)).Msg("Predictions evaluated")
	}
	return evaluated, nil
}

// meanAbsoluteError averages the absolute error across the seven stats,
// rounded to two decimals.
func meanAbsoluteError(predicted, actual domain.StatLine) float64 {
	sum := math.Abs(predicted.Points-actual.Points) +
		math.Abs(predicted.Rebounds-actual.Rebounds) +
		math.Abs(predicted.Assists-actual.Assists) +
		math.Abs(predicted.Steals-actual.Steals) +
		math.Abs(predicted.Blocks-actual.Blocks) +
		math.Abs(predicted.Turnovers-actual.Turnovers) +
		math.Abs(predicted.ThreePointersMade-actual.ThreePointersMade)
	return math.Round(sum/7*100) / 100
}
