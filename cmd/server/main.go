package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/backup"
	"github.com/hoopsight/hoopsight/internal/config"
	"github.com/hoopsight/hoopsight/internal/database"
	"github.com/hoopsight/hoopsight/internal/modules/confidence"
	"github.com/hoopsight/hoopsight/internal/modules/features"
	"github.com/hoopsight/hoopsight/internal/modules/history"
	"github.com/hoopsight/hoopsight/internal/modules/modelbank"
	"github.com/hoopsight/hoopsight/internal/modules/predictions"
	"github.com/hoopsight/hoopsight/internal/modules/roster"
	"github.com/hoopsight/hoopsight/internal/modules/teamcontext"
	"github.com/hoopsight/hoopsight/internal/scheduler"
	"github.com/hoopsight/hoopsight/internal/server"
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

	log.Info().Msg("Starting HoopSight")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	gameLogs := history.NewGameLogRepository(db, log)
	games := history.NewGameRepository(db, log)
	players := history.NewPlayerRepository(db, log)
	teams := history.NewTeamRepository(db, log)
	injuries := history.NewInjuryRepository(db, log)
	transactions := history.NewTransactionRepository(db, log)
	dependencies := history.NewDependencyRepository(db, log)
	predictionRepo := predictions.NewRepository(db, log)

	// Serving stack
	contextCalc := teamcontext.NewCalculator(db, log)
	builder := features.NewBuilder(gameLogs, games, players, teams, injuries, contextCalc, log)
	confidenceEngine := confidence.NewEngine(gameLogs, injuries, transactions, log)

	bank := modelbank.NewBank(cfg.ModelsDir, log)
	if err := bank.Load(features.Stats); err != nil {
		log.Fatal().Err(err).Msg("Failed to load model bank")
	}

	means, err := features.LoadMeans(cfg.ModelsDir)
	if err != nil {
		log.Warn().Err(err).Msg("League means unavailable, fallbacks degrade to zero until training runs")
		means = &features.Means{Values: map[string]float64{}}
	}

	predictionService := predictions.NewService(builder, bank, means, confidenceEngine,
		games, players, gameLogs, injuries, dependencies, predictionRepo, log)
	evaluator := predictions.NewEvaluator(games, gameLogs, predictionRepo, log)
	sweeper := roster.NewRecoverySweeper(injuries, gameLogs, games, log)
	uploader := backup.NewUploader(cfg.Backup, db, cfg.ModelsDir, log)

	// Background jobs
	sched := scheduler.New(log)
	registerJobs(sched, cfg, log, predictionService, evaluator, sweeper, uploader)
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		Log:         log,
		DB:          db,
		Predictions: predictionService,
		Repo:        predictionRepo,
		Evaluator:   evaluator,
		Sweeper:     sweeper,
		Bank:        bank,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(sched *scheduler.Scheduler, cfg *config.Config, log zerolog.Logger,
	service *predictions.Service, evaluator *predictions.Evaluator,
	sweeper *roster.RecoverySweeper, uploader *backup.Uploader) {

	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.PredictionSchedule, &scheduler.PredictionJob{Service: service}},
		{cfg.RecoverySchedule, &scheduler.RecoveryJob{Sweeper: sweeper}},
		{cfg.EvaluationSchedule, &scheduler.EvaluationJob{Evaluator: evaluator}},
	}
	if uploader.Enabled() {
		jobs = append(jobs, struct {
			schedule string
			job      scheduler.Job
		}{cfg.BackupSchedule, &scheduler.BackupJob{Uploader: uploader}})
	}

	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Msg("Failed to register job")
		}
	}
}
