// seed-tool populates PostgreSQL and the object store with portal data.
//
// It reads a YAML file of employees and documents, upserts the employees,
// uploads each document's local file to S3 and records its metadata.
// Documents already present are skipped, so it can run as an init
// container on every start.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/config"
	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/metadata/postgres"
	s3storage "github.com/fruitsalade/docportal/internal/storage/s3"
	"github.com/fruitsalade/docportal/pkg/models"
	"github.com/fruitsalade/docportal/pkg/retry"
)

func main() {
	seedPath := flag.String("seed", "/testdata/seed.yaml", "YAML file with employees and documents")
	migrationsDir := flag.String("migrations", "/app/migrations", "Migrations directory")
	flag.Parse()

	if err := logging.Init(logging.Config{Level: "info", Format: "console"}); err != nil {
		panic("logging init: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("docportal seed-tool starting...")

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("config error", zap.Error(err))
	}

	sf, err := loadSeed(*seedPath)
	if err != nil {
		logging.Fatal("invalid seed file", zap.Error(err))
	}

	ctx := context.Background()

	// Connect to PostgreSQL with retries
	store, err := retry.Do(ctx, retry.Config{
		MaxAttempts: 15,
		InitialWait: 2 * time.Second,
		MaxWait:     2 * time.Second,
		Multiplier:  1,
	}, func() (*postgres.Store, error) {
		s, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			logging.Info("waiting for PostgreSQL", zap.Error(err))
			return nil, retry.Retryable(err)
		}
		return s, nil
	})
	if err != nil {
		logging.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer store.Close()

	logging.Info("running migrations...", zap.String("dir", *migrationsDir))
	if err := store.Migrate(*migrationsDir); err != nil {
		logging.Fatal("migration failed", zap.Error(err))
	}

	uploader, err := s3storage.NewUploader(ctx, s3storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		logging.Fatal("S3 init failed", zap.Error(err))
	}

	n, err := seed(ctx, store, uploader, sf, filepath.Dir(*seedPath))
	if err != nil {
		logging.Fatal("seeding failed", zap.Error(err))
	}
	logging.Info("seed complete",
		zap.Int("employees", len(sf.Employees)),
		zap.Int("documents_added", n))
}

type recordStore interface {
	UpsertEmployee(ctx context.Context, e models.Employee, isAdmin bool) error
	FetchDocuments(ctx context.Context) ([]models.Document, error)
	InsertDocument(ctx context.Context, d models.Document) error
}

type contentStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// seed writes sf to the stores and returns how many documents it added.
// Local files are resolved against baseDir.
func seed(ctx context.Context, rs recordStore, cs contentStore, sf *seedFile, baseDir string) (int, error) {
	for _, e := range sf.Employees {
		if err := rs.UpsertEmployee(ctx, e.employee(), e.Admin); err != nil {
			return 0, fmt.Errorf("employee %s: %w", e.ID, err)
		}
	}

	existing, err := rs.FetchDocuments(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d.ID] = true
	}

	added := 0
	for _, sd := range sf.Documents {
		if have[sd.ID] {
			logging.Debug("document already seeded", zap.String("id", sd.ID))
			continue
		}
		doc, err := sd.document()
		if err != nil {
			return added, err
		}
		if sd.File != "" {
			size, err := upload(ctx, cs, doc, filepath.Join(baseDir, sd.File))
			if err != nil {
				return added, err
			}
			doc.Size = size
		}
		if err := rs.InsertDocument(ctx, doc); err != nil {
			return added, fmt.Errorf("document %s: %w", sd.ID, err)
		}
		added++
		logging.Info("seeded document",
			zap.String("id", doc.ID),
			zap.String("owner", doc.OwnerID),
			zap.String("key", doc.StorageKey))
	}
	return added, nil
}

func upload(ctx context.Context, cs contentStore, doc models.Document, p string) (int64, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	if err := cs.Put(ctx, doc.StorageKey, f, info.Size(), contentType(doc.Name)); err != nil {
		return 0, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	return info.Size(), nil
}
