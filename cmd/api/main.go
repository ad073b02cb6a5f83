package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/api"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/audit"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/blobstore"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/config"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/database"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/face"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/frame"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/gallery"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/kiosk"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/ledger"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/repository"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/service"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/webhook"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env file is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting Rollcall API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("extractor", cfg.Extractor),
		slog.Float64("match_threshold", cfg.MatchThreshold),
	)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	policy, err := frame.ParsePolicy(cfg.DisplayPolicy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer pool.Close()

	images, err := openBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	extractor, err := face.NewExtractor(cfg)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	enrollments := repository.NewEnrollmentRepository(pool)
	attendance := repository.NewAttendanceRepository(pool)

	processor := frame.NewProcessor(cfg.MatchThreshold, ledger.New(attendance, logger), logger)
	holder := gallery.NewHolder(nil)
	loader := gallery.NewLoader(enrollments, images, extractor, logger).
		WithConcurrency(cfg.GalleryLoadConcurrency)

	hub := ws.NewHub()
	go hub.Run(ctx)

	notifier := webhook.NewWorker(webhook.NewService(cfg.WebhookURL, cfg.WebhookSecret), logger)
	go notifier.Run(ctx)

	svc := service.NewAttendanceService(
		enrollments,
		attendance,
		images,
		extractor,
		processor,
		holder,
		loader,
		logger,
	).
		WithPolicy(policy).
		WithLocation(loc).
		WithAudit(audit.NewSlogLogger(logger), cfg.Extractor).
		WithNotifier(notifier).
		WithBroadcaster(hub)

	entries, err := svc.ReloadGallery(ctx)
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}
	logger.Info("gallery ready", slog.Int("entries", entries))

	if cfg.KioskEnabled() {
		source := kiosk.NewHTTPSource(cfg.CameraSnapshotURL, cfg.CameraInterval*5)
		worker := kiosk.NewWorker(source, svc, cfg.CameraStation, cfg.CameraInterval, logger)
		go worker.Run(ctx)
	}

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Service:            svc,
		DB:                 pool,
		Hub:                hub,
		APIKeyHash:         cfg.APIKeyHash,
		DefaultStation:     cfg.CameraStation,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blobstore.NewS3StoreFromEnv(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	case "memory":
		return blobstore.NewMemoryStore(), nil
	default:
		return blobstore.NewLocalStore(cfg.BlobDir)
	}
}
