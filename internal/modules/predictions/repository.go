// Package predictions assembles, stores, and evaluates per-player stat
// projections: one row per model family plus an ensemble row, boosted for
// star absences, scored for confidence, and back-filled with actuals once
// games complete.
package predictions

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/history"
)

// Repository persists predictions.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a predictions repository
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "prediction_repo").Logger(),
	}
}

const upsertPredictionSQL = `
	INSERT INTO predictions (
		run_id, game_id, player_id, prediction_date,
		predicted_points, predicted_rebounds, predicted_assists,
		predicted_steals, predicted_blocks, predicted_turnovers,
		predicted_three_pointers_made,
		confidence_score, model_version, feature_explanations
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (player_id, game_id, model_version) DO UPDATE SET
		run_id = excluded.run_id,
		prediction_date = excluded.prediction_date,
		predicted_points = excluded.predicted_points,
		predicted_rebounds = excluded.predicted_rebounds,
		predicted_assists = excluded.predicted_assists,
		predicted_steals = excluded.predicted_steals,
		predicted_blocks = excluded.predicted_blocks,
		predicted_turnovers = excluded.predicted_turnovers,
		predicted_three_pointers_made = excluded.predicted_three_pointers_made,
		confidence_score = excluded.confidence_score,
		feature_explanations = excluded.feature_explanations`

func upsertArgs(p domain.Prediction) []interface{} {
	return []interface{}{
		p.RunID, p.GameID, p.PlayerID, p.PredictionDate.Format(history.DateLayout),
		p.Predicted.Points, p.Predicted.Rebounds, p.Predicted.Assists,
		p.Predicted.Steals, p.Predicted.Blocks, p.Predicted.Turnovers,
		p.Predicted.ThreePointersMade,
		p.Confidence, p.ModelVersion, p.Explanations,
	}
}

// Upsert writes one prediction, replacing any prior row for the same
// (player, game, model version).
func (r *Repository) Upsert(p domain.Prediction) error {
	if _, err := r.db.Exec(upsertPredictionSQL, upsertArgs(p)...); err != nil {
		return fmt.Errorf("failed to upsert prediction: %w", err)
	}
	return nil
}

// UpsertBatch writes a player's prediction rows in one transaction, so the
// per-family rows and the ensemble row land together or not at all.
func (r *Repository) UpsertBatch(preds []domain.Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(upsertPredictionSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare prediction upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range preds {
			if _, err := stmt.Exec(upsertArgs(p)...); err != nil {
				return fmt.Errorf("failed to upsert prediction: %w", err)
			}
		}
		return nil
	})
}

const predictionColumns = `
	prediction_id, run_id, game_id, player_id, prediction_date,
	predicted_points, predicted_rebounds, predicted_assists,
	predicted_steals, predicted_blocks, predicted_turnovers,
	predicted_three_pointers_made,
	confidence_score, model_version, feature_explanations,
	actual_points, actual_rebounds, actual_assists,
	actual_steals, actual_blocks, actual_turnovers,
	actual_three_pointers_made, prediction_error`

// ForDate returns every prediction dated on a day, optionally filtered to one
// model version. Pass "" for all versions.
func (r *Repository) ForDate(date time.Time, modelVersion string) ([]domain.Prediction, error) {
	query := fmt.Sprintf(`SELECT %s FROM predictions WHERE prediction_date = ?`, predictionColumns)
	args := []interface{}{date.Format(history.DateLayout)}
	if modelVersion != "" {
		query += ` AND model_version = ?`
		args = append(args, modelVersion)
	}
	query += ` ORDER BY game_id, player_id, model_version`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// ForGame returns every prediction row for a game.
func (r *Repository) ForGame(gameID int64) ([]domain.Prediction, error) {
	rows, err := r.db.Query(
		fmt.Sprintf(`SELECT %s FROM predictions WHERE game_id = ? ORDER BY player_id, model_version`, predictionColumns),
		gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query game predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// FillActuals records the observed stat line and error for one prediction
// row. Each model version carries its own error.
func (r *Repository) FillActuals(predictionID int64, actual domain.StatLine, predictionError float64) error {
	_, err := r.db.Exec(`
		UPDATE predictions SET
			actual_points = ?, actual_rebounds = ?, actual_assists = ?,
			actual_steals = ?, actual_blocks = ?, actual_turnovers = ?,
			actual_three_pointers_made = ?, prediction_error = ?
		WHERE prediction_id = ?`,
		actual.Points, actual.Rebounds, actual.Assists,
		actual.Steals, actual.Blocks, actual.Turnovers,
		actual.ThreePointersMade, predictionError,
		predictionID)
	if err != nil {
		return fmt.Errorf("failed to fill actuals: %w", err)
	}
	return nil
}

// AccuracySummary is aggregate error per model version.
type AccuracySummary struct {
	ModelVersion string  `json:"model_version"`
	Predictions  int     `json:"predictions"`
	MAE          float64 `json:"mae"`
}

// Accuracy aggregates evaluated predictions per model version.
func (r *Repository) Accuracy() ([]AccuracySummary, error) {
	rows, err := r.db.Query(`
		SELECT model_version, COUNT(*), AVG(prediction_error)
		FROM predictions
		WHERE prediction_error IS NOT NULL
		GROUP BY model_version
		ORDER BY model_version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accuracy: %w", err)
	}
	defer rows.Close()

	var out []AccuracySummary
	for rows.Next() {
		var s AccuracySummary
		if err := rows.Scan(&s.ModelVersion, &s.Predictions, &s.MAE); err != nil {
			return nil, fmt.Errorf("failed to scan accuracy row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanPredictions(rows *sql.Rows) ([]domain.Prediction, error) {
	var out []domain.Prediction
	for rows.Next() {
		var (
			p       domain.Prediction
			rawDate string
			actuals [7]sql.NullFloat64
			perr    sql.NullFloat64
		)
		err := rows.Scan(
			&p.PredictionID, &p.RunID, &p.GameID, &p.PlayerID, &rawDate,
			&p.Predicted.Points, &p.Predicted.Rebounds, &p.Predicted.Assists,
			&p.Predicted.Steals, &p.Predicted.Blocks, &p.Predicted.Turnovers,
			&p.Predicted.ThreePointersMade,
			&p.Confidence, &p.ModelVersion, &p.Explanations,
			&actuals[0], &actuals[1], &actuals[2],
			&actuals[3], &actuals[4], &actuals[5],
			&actuals[6], &perr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}

		p.PredictionDate, err = time.Parse(history.DateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("malformed prediction date %q: %w", rawDate, err)
		}

		if actuals[0].Valid {
			p.Actual = &domain.StatLine{
				Points:            actuals[0].Float64,
				Rebounds:          actuals[1].Float64,
				Assists:           actuals[2].Float64,
				Steals:            actuals[3].Float64,
				Blocks:            actuals[4].Float64,
				Turnovers:         actuals[5].Float64,
				ThreePointersMade: actuals[6].Float64,
			}
		}
		if perr.Valid {
			p.Error = &perr.Float64
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
