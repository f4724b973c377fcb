// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for the stats database and model artifacts
	DatabasePath string // SQLite database file (derived from DataDir)
	ModelsDir    string // Directory holding trained model artifacts (derived from DataDir)
	Port         int
	LogLevel     string
	DevMode      bool

	// Background job schedules (cron expressions, with seconds field)
	PredictionSchedule string
	RecoverySchedule   string
	EvaluationSchedule string
	BackupSchedule     string

	Backup BackupConfig
}

// BackupConfig holds S3 backup configuration. Backups are disabled when
// Bucket is empty.
type BackupConfig struct {
	Bucket string
	Region string
	Prefix string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("HOOPSIGHT_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir to absolute path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	modelsDir := filepath.Join(absDataDir, "models")
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create models dir: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		DatabasePath: filepath.Join(absDataDir, "stats.db"),
		ModelsDir:    modelsDir,
		Port:         getEnvInt("HOOPSIGHT_PORT", 8090),
		LogLevel:     getEnv("HOOPSIGHT_LOG_LEVEL", "info"),
		DevMode:      getEnvBool("HOOPSIGHT_DEV_MODE", false),

		PredictionSchedule: getEnv("HOOPSIGHT_PREDICTION_SCHEDULE", "0 0 8 * * *"),
		RecoverySchedule:   getEnv("HOOPSIGHT_RECOVERY_SCHEDULE", "0 0 6 * * *"),
		EvaluationSchedule: getEnv("HOOPSIGHT_EVALUATION_SCHEDULE", "0 30 6 * * *"),
		BackupSchedule:     getEnv("HOOPSIGHT_BACKUP_SCHEDULE", "0 0 7 * * SUN"),

		Backup: BackupConfig{
			Bucket: getEnv("HOOPSIGHT_BACKUP_BUCKET", ""),
			Region: getEnv("HOOPSIGHT_BACKUP_REGION", "us-east-1"),
			Prefix: getEnv("HOOPSIGHT_BACKUP_PREFIX", "hoopsight"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
