package scheduler

import (
	"time"

	"github.com/hoopsight/hoopsight/internal/backup"
	"github.com/hoopsight/hoopsight/internal/modules/predictions"
	"github.com/hoopsight/hoopsight/internal/modules/roster"
)

// PredictionJob runs today's prediction pass.
type PredictionJob struct {
	Service *predictions.Service
}

func (j *PredictionJob) Name() string { return "daily_predictions" }

func (j *PredictionJob) Run() error {
	_, err := j.Service.PredictDate(today())
	return err
}

// RecoveryJob sweeps open injury reports against today's completed games.
type RecoveryJob struct {
	Sweeper *roster.RecoverySweeper
}

func (j *RecoveryJob) Name() string { return "injury_recovery" }

func (j *RecoveryJob) Run() error {
	_, err := j.Sweeper.Sweep(today())
	return err
}

// EvaluationJob fills actuals onto predictions for completed games.
type EvaluationJob struct {
	Evaluator *predictions.Evaluator
}

func (j *EvaluationJob) Name() string { return "prediction_evaluation" }

func (j *EvaluationJob) Run() error {
	_, err := j.Evaluator.EvaluateCompleted()
	return err
}

// BackupJob uploads the database and model artifacts to object storage.
type BackupJob struct {
	Uploader *backup.Uploader
}

func (j *BackupJob) Name() string { return "s3_backup" }

func (j *BackupJob) Run() error {
	return j.Uploader.Run()
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
