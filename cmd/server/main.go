// Document portal server
//
// Features:
// - Employee and document records from PostgreSQL, revalidated on change
// - Server-side navigator sessions for the organization, employee and
//   embedded explorers
// - Document PIN with attempt counting and lockout
// - Presigned S3 URLs for view and download
// - Prometheus metrics & structured logging (zap)
// - Per-user rate limiting
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/api"
	"github.com/fruitsalade/docportal/internal/auth"
	"github.com/fruitsalade/docportal/internal/config"
	"github.com/fruitsalade/docportal/internal/events"
	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/metadata/postgres"
	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/internal/navigator"
	"github.com/fruitsalade/docportal/internal/pin"
	"github.com/fruitsalade/docportal/internal/quota"
	"github.com/fruitsalade/docportal/internal/records"
	s3storage "github.com/fruitsalade/docportal/internal/storage/s3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("document portal starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logging.Info("connecting to PostgreSQL...")
	store, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	if dir := findMigrationsDir(); dir != "" {
		logging.Info("running migrations...", zap.String("dir", dir))
		if err := store.Migrate(dir); err != nil {
			logging.Fatal("migration failed", zap.Error(err))
		}
	}

	// Record snapshot, refreshed whenever a mutation is published
	loader := records.NewLoader(store)
	if _, err := loader.Revalidate(ctx); err != nil {
		logging.Fatal("initial record load failed", zap.Error(err))
	}
	broadcaster := events.NewBroadcaster()
	sub := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(sub)
	go loader.Watch(ctx, sub)

	profiles := navigator.DefaultProfiles()
	if cfg.ExplorerProfiles != "" {
		if profiles, err = navigator.LoadProfiles(cfg.ExplorerProfiles); err != nil {
			logging.Fatal("explorer profiles", zap.String("path", cfg.ExplorerProfiles), zap.Error(err))
		}
	}
	logging.Info("explorer profiles loaded", zap.Strings("explorers", profiles.Names()))

	resolver, err := s3storage.New(ctx, s3storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
		TTL:       cfg.URLTTL,
	})
	if err != nil {
		logging.Fatal("S3 init failed", zap.Error(err))
	}

	pins := pin.NewService(store, pin.Config{
		MaxAttempts:  cfg.PinMaxAttempts,
		LockDuration: cfg.PinLockDuration,
	})

	var limiter *quota.RateLimiter
	if cfg.RequestsPerMinute > 0 {
		limiter = quota.NewRateLimiter(cfg.RequestsPerMinute)
		logging.Info("rate limiter enabled", zap.Int("requests_per_minute", cfg.RequestsPerMinute))
	}

	srv := api.NewServer(api.Config{
		Records:            loader,
		Deleter:            store,
		Pins:               pins,
		Resolver:           resolver,
		Settings:           store.Settings(),
		Profiles:           profiles,
		Events:             broadcaster,
		Auth:               auth.New(cfg.JWTSecret),
		Limiter:            limiter,
		SessionIdleTimeout: cfg.SessionIdleTimeout,
	})

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		httpServer.Shutdown(shutdownCtx)
		metricsServer.Close()
	}()

	// Connection pool gauges
	go every(ctx, 15*time.Second, store.UpdateConnectionMetrics)

	// Idle navigator sessions and stale rate limiter buckets
	go every(ctx, time.Minute, func() {
		srv.SweepSessions()
		if limiter != nil {
			limiter.Cleanup(time.Hour)
		}
	})

	// Changes made outside the portal (HR imports, uploads) show up within
	// five minutes.
	go every(ctx, 5*time.Minute, func() {
		if _, err := loader.Revalidate(ctx); err != nil && ctx.Err() == nil {
			logging.Warn("periodic revalidation failed", zap.Error(err))
		}
	})

	logging.Info("server listening (HTTP)", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func findMigrationsDir() string {
	candidates := []string{
		"migrations",
		"../migrations",
	}

	exe, _ := os.Executable()
	if exe != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "migrations"))
	}

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}
