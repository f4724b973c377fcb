package predictions

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/confidence"
	"github.com/hoopsight/hoopsight/internal/modules/features"
	"github.com/hoopsight/hoopsight/internal/modules/history"
	"github.com/hoopsight/hoopsight/internal/modules/modelbank"
)

// Service assembles predictions for upcoming games: one row per model family
// and one ensemble row per player-game.
type Service struct {
	builder    *features.Builder
	bank       *modelbank.Bank
	means      *features.Means
	confidence *confidence.Engine

	games        *history.GameRepository
	players      *history.PlayerRepository
	logs         *history.GameLogRepository
	injuries     *history.InjuryRepository
	dependencies *history.DependencyRepository
	repo         *Repository

	log zerolog.Logger
}

// NewService creates a prediction service
func NewService(builder *features.Builder, bank *modelbank.Bank, means *features.Means,
	conf *confidence.Engine, games *history.GameRepository, players *history.PlayerRepository,
	logs *history.GameLogRepository, injuries *history.InjuryRepository,
	dependencies *history.DependencyRepository, repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		builder:      builder,
		bank:         bank,
		means:        means,
		confidence:   conf,
		games:        games,
		players:      players,
		logs:         logs,
		injuries:     injuries,
		dependencies: dependencies,
		repo:         repo,
		log:          log.With().Str("component", "prediction_service").Logger(),
	}
}

// PredictDate produces and stores predictions for every rosterable player in
// every game scheduled on the date. Returns the number of player-games
// predicted.
func (s *Service) PredictDate(date time.Time) (int, error) {
	games, err := s.games.ScheduledOn(date)
	if err != nil {
		return 0, fmt.Errorf("failed to load schedule: %w", err)
	}
	if len(games) == 0 {
		s.log.Info().Str("date", date.Format(history.DateLayout)).Msg("No games scheduled")
		return 0, nil
	}

	runID := uuid.NewString()
	predicted := 0

	for _, game := range games {
		for _, teamID := range []int64{game.HomeTeamID, game.AwayTeamID} {
			boosts, err := s.starAbsenceBoosts(teamID, game.Season, game.GameDate)
			if err != nil {
				s.log.Warn().Err(err).Int64("team_id", teamID).Msg("Star absence boosts unavailable")
				boosts = nil
			}

			roster, err := s.players.RecentRoster(teamID, game.Season, game.GameDate)
			if err != nil {
				return predicted, fmt.Errorf("failed to load roster for team %d: %w", teamID, err)
			}

			for _, playerID := range roster {
				ok, err := s.predictPlayer(runID, playerID, teamID, game, boosts[playerID])
				if err != nil {
					s.log.Warn().Err(err).
						Int64("player_id", playerID).
						Int64("game_id", game.GameID).
						Msg("Player prediction failed")
					continue
				}
				if ok {
					predicted++
				}
			}
		}
	}

	s.log.Info().
		Str("run_id", runID).
		Str("date", date.Format(history.DateLayout)).
		Int("games", len(games)).
		Int("players", predicted).
		Msg("Prediction run complete")
	return predicted, nil
}

// predictPlayer builds one player's feature vector and writes one prediction
// row per model family plus the ensemble row. Returns false when the player
// lacks enough history to predict.
func (s *Service) predictPlayer(runID string, playerID, teamID int64, game domain.Game, boost domain.StatLine) (bool, error) {
	result, err := s.builder.Build(playerID, game)
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}

	fallback := features.FallbackFunc(result.Recent, s.means)
	conf := s.confidence.Score(playerID, teamID, game, result.Recent, result.Vector)

	var familyLines []domain.StatLine
	var familyNames []string
	var familyWeights []float64
	var rows []domain.Prediction

	for _, family := range modelbank.Families {
		line, explanations, ok := s.predictFamily(family, result, fallback)
		if !ok {
			continue
		}
		applyBoost(&line, boost)

		rows = append(rows, domain.Prediction{
			RunID:          runID,
			GameID:         game.GameID,
			PlayerID:       playerID,
			PredictionDate: game.GameDate,
			Predicted:      roundLine(line),
			Confidence:     conf,
			ModelVersion:   string(family),
			Explanations:   explanations,
		})
		familyLines = append(familyLines, line)
		familyNames = append(familyNames, string(family))
		familyWeights = append(familyWeights, s.familyWeight(family))
	}

	if len(familyLines) == 0 {
		return false, nil
	}

	ensemble := weightedEnsembleLine(familyLines, familyWeights)
	rows = append(rows, domain.Prediction{
		RunID:          runID,
		GameID:         game.GameID,
		PlayerID:       playerID,
		PredictionDate: game.GameDate,
		Predicted:      roundLine(ensemble),
		Confidence:     conf,
		ModelVersion:   ensembleVersion(familyNames),
		Explanations:   "{}",
	})
	if err := s.repo.UpsertBatch(rows); err != nil {
		return false, err
	}
	return true, nil
}

// predictFamily scores all seven stats with one family's models. Stats with
// no trained artifact stay zero; a family with no artifacts at all is
// skipped.
func (s *Service) predictFamily(family modelbank.Family, result *features.Result,
	fallback func(string) float64) (domain.StatLine, string, bool) {

	var line domain.StatLine
	explanations := make(map[string][]FeatureImpact)
	any := false

	for _, target := range features.Stats {
		artifact := s.bank.Get(family, target)
		if artifact == nil {
			continue
		}
		any = true

		row := result.Vector.OrderedFor(artifact.FeatureNames, fallback)
		pred := artifact.Model.Predict(artifact.Scaler.Transform(row))
		if pred < 0 {
			pred = 0
		}
		line.SetValue(target, pred)
		explanations[target] = explain(result.Vector, fallback, artifact.Importance, s.means)
	}

	if !any {
		return line, "{}", false
	}
	return line, encodeExplanations(explanations), true
}

// familyWeight is the inverse of the family's mean validation MAE across its
// trained targets, so more accurate families pull the ensemble harder. A
// family with no recorded error weighs as an equal vote.
func (s *Service) familyWeight(family modelbank.Family) float64 {
	total := 0.0
	n := 0
	for _, target := range features.Stats {
		artifact := s.bank.Get(family, target)
		if artifact == nil || artifact.MAE <= 0 {
			continue
		}
		total += artifact.MAE
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(n) / total
}

func applyBoost(line *domain.StatLine, boost domain.StatLine) {
	line.Points += boost.Points
	line.Rebounds += boost.Rebounds
	line.Assists += boost.Assists
	if line.Points < 0 {
		line.Points = 0
	}
	if line.Rebounds < 0 {
		line.Rebounds = 0
	}
	if line.Assists < 0 {
		line.Assists = 0
	}
}

func roundLine(l domain.StatLine) domain.StatLine {
	return domain.StatLine{
		Points:            round1(l.Points),
		Rebounds:          round1(l.Rebounds),
		Assists:           round1(l.Assists),
		Steals:            round1(l.Steals),
		Blocks:            round1(l.Blocks),
		Turnovers:         round1(l.Turnovers),
		ThreePointersMade: round1(l.ThreePointersMade),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
