// Package backup uploads the stats database and trained model artifacts to
// S3. Backups are a no-op when no bucket is configured.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/config"
	"github.com/hoopsight/hoopsight/internal/database"
)

// Uploader mirrors local state into an S3 bucket under a date-stamped prefix.
type Uploader struct {
	cfg       config.BackupConfig
	db        *database.DB
	modelsDir string
	log       zerolog.Logger
}

// NewUploader creates a backup uploader
func NewUploader(cfg config.BackupConfig, db *database.DB, modelsDir string, log zerolog.Logger) *Uploader {
	return &Uploader{
		cfg:       cfg,
		db:        db,
		modelsDir: modelsDir,
		log:       log.With().Str("component", "backup").Logger(),
	}
}

// Enabled reports whether a bucket is configured.
func (u *Uploader) Enabled() bool {
	return u.cfg.Bucket != ""
}

// Run uploads the database file and every model artifact.
func (u *Uploader) Run() error {
	if !u.Enabled() {
		u.log.Debug().Msg("Backup disabled, no bucket configured")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(u.cfg.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg))

	// Checkpoint the WAL so the database file on disk holds every committed
	// write before it is copied.
	if _, err := u.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		u.log.Warn().Err(err).Msg("WAL checkpoint before backup failed")
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	uploaded := 0

	dbPath := u.db.Path()
	if err := u.uploadFile(ctx, uploader, dbPath,
		fmt.Sprintf("%s/%s/%s", u.cfg.Prefix, stamp, filepath.Base(dbPath))); err != nil {
		return err
	}
	uploaded++

	entries, err := os.ReadDir(u.modelsDir)
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return fmt.Errorf("failed to list models dir: %w", err)
		}
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key := fmt.Sprintf("%s/%s/models/%s", u.cfg.Prefix, stamp, entry.Name())
		if err := u.uploadFile(ctx, uploader, filepath.Join(u.modelsDir, entry.Name()), key); err != nil {
			return err
		}
		uploaded++
	}

	u.log.Info().
		Int("files", uploaded).
		Str("bucket", u.cfg.Bucket).
		Str("stamp", stamp).
		Msg("Backup uploaded")
	return nil
}

func (u *Uploader) uploadFile(ctx context.Context, uploader *manager.Uploader, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for backup: %w", path, err)
	}
	defer f.Close()

	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &u.cfg.Bucket,
		Key:    &key,
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
