package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/toolkeepr/internal/blobstore"
	"github.com/vbonduro/toolkeepr/internal/blobstore/local"
	"github.com/vbonduro/toolkeepr/internal/blobstore/s3"
	"github.com/vbonduro/toolkeepr/internal/config"
	"github.com/vbonduro/toolkeepr/internal/db"
	"github.com/vbonduro/toolkeepr/internal/logging"
	"github.com/vbonduro/toolkeepr/internal/metrics"
	"github.com/vbonduro/toolkeepr/internal/seed"
	"github.com/vbonduro/toolkeepr/internal/service"
	"github.com/vbonduro/toolkeepr/internal/store"
	"github.com/vbonduro/toolkeepr/internal/vision"
	claudevision "github.com/vbonduro/toolkeepr/internal/vision/claude"
	ollamavision "github.com/vbonduro/toolkeepr/internal/vision/ollama"
	"github.com/vbonduro/toolkeepr/internal/web"
)

// app holds everything a command needs: configuration, the logger, the open
// database and the wired services.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *sql.DB
	metrics  *metrics.Metrics
	services web.Services
	cleanup  func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		_ = database.Close()
		closeLog()
		return nil, err
	}

	m := metrics.New()
	tools := store.NewToolStore(database)
	types := store.NewToolTypeStore(database)
	activities := store.NewActivityStore(database)
	checkouts := store.NewCheckoutStore(database)
	reports := store.NewReportStore(database)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      database,
		metrics: m,
		services: web.Services{
			Tools:       service.NewToolService(tools, types, checkouts, activities, logger),
			ToolTypes:   service.NewToolTypeService(types, tools, logger),
			Categories:  service.NewCategoryService(store.NewCategoryStore(database), tools, types, logger),
			Locations:   service.NewLocationService(store.NewLocationStore(database), store.NewPhotoStore(database), tools, newVisionAnalyzer(cfg, logger), blobs, logger),
			Circulation: service.NewCirculationService(checkouts, tools, types, activities, m, logger),
			Reports:     service.NewReportService(reports, tools, types, checkouts, activities, blobs, m, logger),
			Settings:    service.NewSettingsService(store.NewSettingsStore(database), tools, reports, blobs, m, cfg.LogFile, logger),
		},
	}
	a.cleanup = func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
		closeLog()
	}
	return a, nil
}

func (a *app) Close() { a.cleanup() }

func (a *app) seedServices() seed.Services {
	return seed.Services{
		Tools:      a.services.Tools,
		ToolTypes:  a.services.ToolTypes,
		Categories: a.services.Categories,
		Locations:  a.services.Locations,
		Reports:    a.services.Reports,
	}
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		logger.Info("using S3 blob store", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		st, err := s3.New(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 blob store: %w", err)
		}
		return st, nil
	case "local", "":
		st, err := local.New(cfg.BlobPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q", cfg.BlobBackend)
	}
}

// newVisionAnalyzer returns nil when photo intake is off; the location
// service then answers uploads with ErrVisionUnavailable.
func newVisionAnalyzer(cfg *config.Config, logger *slog.Logger) vision.VisionAnalyzer {
	if cfg.TestMode {
		logger.Info("test mode: vision backend disabled")
		return nil
	}
	switch cfg.VisionBackend {
	case "none":
		logger.Info("vision backend disabled")
		return nil
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
			return nil
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	default:
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaAnalyzer(cfg.OllamaHost, cfg.OllamaModel)
	}
}
