package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/config"
	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/modules/features"
	"github.com/hoopsight/hoopsight/internal/modules/history"
	"github.com/hoopsight/hoopsight/internal/modules/modelbank"
	"github.com/hoopsight/hoopsight/internal/modules/roster"
	"github.com/hoopsight/hoopsight/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{Level: "info"})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	log.Info().Str("database", cfg.DatabasePath).Str("models_dir", cfg.ModelsDir).Msg("Starting training run")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	gameLogRepo := history.NewGameLogRepository(db, log)
	gameRepo := history.NewGameRepository(db, log)
	playerRepo := history.NewPlayerRepository(db, log)
	teamRepo := history.NewTeamRepository(db, log)
	dependencyRepo := history.NewDependencyRepository(db, log)

	started := time.Now()

	batch := features.NewBatchBuilder(gameLogRepo, gameRepo, playerRepo, teamRepo, log)
	rows, means, err := batch.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build training set")
	}
	log.Info().
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(started)).
		Msg("Training set built")

	tuning := modelbank.NewTuning(filepath.Join(cfg.ModelsDir, "best_params"), log)
	trainer := modelbank.NewTrainer(cfg.ModelsDir, tuning, log)
	reports, err := trainer.TrainAll(rows, means)
	if err != nil {
		log.Fatal().Err(err).Msg("Training failed")
	}
	for _, report := range reports {
		log.Info().
			Str("family", string(report.Family)).
			Str("target", report.Target).
			Float64("mae", report.MAE).
			Float64("rmse", report.RMSE).
			Int("folds", report.Folds).
			Msg("Model trained")
	}

	if err := refreshDependencies(gameRepo, gameLogRepo, dependencyRepo, log); err != nil {
		log.Error().Err(err).Msg("Failed to refresh teammate dependencies")
		os.Exit(1)
	}

	log.Info().Dur("elapsed", time.Since(started)).Msg("Training run complete")
}

// refreshDependencies recomputes star teammate splits for every season with
// completed games, so the prediction service has current absence boosts.
func refreshDependencies(games *history.GameRepository, logs *history.GameLogRepository,
	deps *history.DependencyRepository, log zerolog.Logger) error {
	seasons, err := games.Seasons()
	if err != nil {
		return err
	}

	analyzer := roster.NewAnalyzer(logs, deps, log)
	for _, season := range seasons {
		stored, err := analyzer.ComputeSeason(season)
		if err != nil {
			return err
		}
		log.Info().Str("season", season).Int("dependencies", stored).Msg("Teammate dependencies refreshed")
	}
	return nil
}
