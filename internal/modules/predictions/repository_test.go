package predictions

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/domain"
	"github.com/hoopsight/hoopsight/internal/modules/history"
)

func setupRepo(t *testing.T) (*Repository, *database.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	_, err = db.Exec(`INSERT INTO teams (team_id, name) VALUES (1, 'Harbor'), (2, 'Summit')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO players (player_id, full_name, position, team_id, is_active)
		VALUES (100, 'Test Guard', 'Guard', 1, 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO games (game_id, game_date, season, game_type, game_status, home_team_id, away_team_id)
		VALUES (10, '2025-01-15', '2024-25', 'regular_season', 'completed', 1, 2)`)
	require.NoError(t, err)

	return NewRepository(db, zerolog.Nop()), db
}

func samplePrediction(version string, points float64) domain.Prediction {
	return domain.Prediction{
		RunID:          "run-1",
		GameID:         10,
		PlayerID:       100,
		PredictionDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Predicted:      domain.StatLine{Points: points, Rebounds: 5, Assists: 4, Steals: 1, Blocks: 0.5, Turnovers: 2, ThreePointersMade: 2},
		Confidence:     72,
		ModelVersion:   version,
		Explanations:   "{}",
	}
}

func TestRepository_UpsertAndQuery(t *testing.T) {
	repo, _ := setupRepo(t)

	require.NoError(t, repo.Upsert(samplePrediction("depthwise_gbt", 21.5)))
	require.NoError(t, repo.Upsert(samplePrediction("random_forest", 19.0)))

	// A second run replaces, never duplicates.
	updated := samplePrediction("depthwise_gbt", 23.0)
	updated.RunID = "run-2"
	require.NoError(t, repo.Upsert(updated))

	preds, err := repo.ForDate(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	require.Len(t, preds, 2)

	assert.Equal(t, "depthwise_gbt", preds[0].ModelVersion)
	assert.Equal(t, 23.0, preds[0].Predicted.Points)
	assert.Equal(t, "run-2", preds[0].RunID)
	assert.Equal(t, 72, preds[0].Confidence)
	assert.Nil(t, preds[0].Actual)
	assert.Nil(t, preds[0].Error)

	only, err := repo.ForDate(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), "random_forest")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, 19.0, only[0].Predicted.Points)

	none, err := repo.ForDate(time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_FillActualsAndAccuracy(t *testing.T) {
	repo, _ := setupRepo(t)

	require.NoError(t, repo.Upsert(samplePrediction("depthwise_gbt", 20)))
	require.NoError(t, repo.Upsert(samplePrediction("random_forest", 26)))

	preds, err := repo.ForGame(10)
	require.NoError(t, err)
	require.Len(t, preds, 2)

	actual := domain.StatLine{Points: 23, Rebounds: 5, Assists: 4, Steals: 1, Blocks: 0.5, Turnovers: 2, ThreePointersMade: 2}
	for _, p := range preds {
		require.NoError(t, repo.FillActuals(p.PredictionID, actual, meanAbsoluteError(p.Predicted, actual)))
	}

	filled, err := repo.ForGame(10)
	require.NoError(t, err)
	for _, p := range filled {
		require.NotNil(t, p.Actual)
		assert.Equal(t, 23.0, p.Actual.Points)
		require.NotNil(t, p.Error)
	}

	// Each model version carries its own error.
	summaries, err := repo.Accuracy()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "depthwise_gbt", summaries[0].ModelVersion)
	assert.Equal(t, 1, summaries[0].Predictions)
	assert.InDelta(t, 0.43, summaries[0].MAE, 1e-9)
	assert.Equal(t, "random_forest", summaries[1].ModelVersion)
	assert.InDelta(t, 0.43, summaries[1].MAE, 1e-9)
}

func TestEvaluator_EvaluateCompleted(t *testing.T) {
	repo, db := setupRepo(t)

	require.NoError(t, repo.Upsert(samplePrediction("depthwise_gbt", 20)))

	// A second player predicted but scratched before tipoff.
	_, err := db.Exec(`INSERT INTO players (player_id, full_name, position, team_id, is_active)
		VALUES (200, 'Scratched Wing', 'Forward', 1, 1)`)
	require.NoError(t, err)
	scratched := samplePrediction("depthwise_gbt", 12)
	scratched.PlayerID = 200
	require.NoError(t, repo.Upsert(scratched))

	// Only player 100 actually played.
	_, err = db.Exec(`INSERT INTO player_game_stats (player_id, game_id, team_id, points, rebounds_total,
			assists, steals, blocks, turnovers, three_pointers_made, minutes_played)
		VALUES (100, 10, 1, 27, 5, 4, 1, 0.5, 2, 2, 34)`)
	require.NoError(t, err)

	log := zerolog.Nop()
	evaluator := NewEvaluator(history.NewGameRepository(db, log), history.NewGameLogRepository(db, log), repo, log)

	evaluated, err := evaluator.EvaluateCompleted()
	require.NoError(t, err)
	assert.Equal(t, 1, evaluated)

	preds, err := repo.ForGame(10)
	require.NoError(t, err)
	for _, p := range preds {
		if p.PlayerID == 100 {
			require.NotNil(t, p.Actual)
			assert.Equal(t, 27.0, p.Actual.Points)
			require.NotNil(t, p.Error)
			assert.Equal(t, 1.0, *p.Error)
		} else {
			assert.Nil(t, p.Actual, "a scratch stays unevaluated")
		}
	}

	// A second sweep finds nothing new for the played rows.
	again, err := evaluator.EvaluateCompleted()
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestRepository_UpsertBatch(t *testing.T) {
	repo, _ := setupRepo(t)

	require.NoError(t, repo.UpsertBatch(nil))

	batch := []domain.Prediction{
		samplePrediction("depthwise_gbt", 21),
		samplePrediction("random_forest", 19),
		samplePrediction("ensemble_v2", 20),
	}
	require.NoError(t, repo.UpsertBatch(batch))

	preds, err := repo.ForGame(10)
	require.NoError(t, err)
	require.Len(t, preds, 3)

	// Re-running the batch replaces rows in place.
	batch[0].Predicted.Points = 25
	batch[0].RunID = "run-2"
	require.NoError(t, repo.UpsertBatch(batch))

	preds, err = repo.ForGame(10)
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.Equal(t, "depthwise_gbt", preds[0].ModelVersion)
	assert.Equal(t, 25.0, preds[0].Predicted.Points)
	assert.Equal(t, "run-2", preds[0].RunID)
}

func TestRepository_UpsertBatchRollsBackOnFailure(t *testing.T) {
	repo, _ := setupRepo(t)

	bad := samplePrediction("random_forest", 18)
	bad.GameID = 999 // no such game

	err := repo.UpsertBatch([]domain.Prediction{
		samplePrediction("depthwise_gbt", 21),
		bad,
	})
	require.Error(t, err)

	preds, err := repo.ForGame(10)
	require.NoError(t, err)
	assert.Empty(t, preds, "a failed batch leaves no partial rows")
}
