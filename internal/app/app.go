// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sariahshoe/coldcase-ingest/internal/config"
	"github.com/sariahshoe/coldcase-ingest/internal/detect"
	"github.com/sariahshoe/coldcase-ingest/internal/extract"
	"github.com/sariahshoe/coldcase-ingest/internal/fetch"
	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
	"github.com/sariahshoe/coldcase-ingest/internal/listing"
	"github.com/sariahshoe/coldcase-ingest/internal/logging"
	"github.com/sariahshoe/coldcase-ingest/internal/metrics"
	"github.com/sariahshoe/coldcase-ingest/internal/pipeline"
	"github.com/sariahshoe/coldcase-ingest/internal/recognize"
	"github.com/sariahshoe/coldcase-ingest/internal/store"
)

// App holds the shared services every command needs: configuration, the
// logger, and the record store provider selected by config.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	store  ingest.RecordStore
}

// New loads configuration and initializes services. It fails fast when any
// critical service cannot be built.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	metrics.Init()

	recordStore, err := newRecordStore(ctx, cfg.DB, logger)
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, logger: logger, store: recordStore}, nil
}

func newRecordStore(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (ingest.RecordStore, error) {
	switch cfg.Provider {
	case "postgres":
		logger.Info("connecting to postgres record store")
		pg, err := store.NewPostgres(ctx, store.PostgresConfig{DSN: cfg.DSN})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		return pg, nil
	case "sqlite":
		logger.Info("opening sqlite record store", zap.String("path", cfg.Path))
		db, err := store.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		return db, nil
	case "memory":
		logger.Info("using in-memory record store; records will not survive the process")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown db.provider %q", cfg.Provider)
	}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the configured record store.
func (a *App) Store() ingest.RecordStore { return a.store }

// BuildPipeline assembles the full pipeline from the app's services.
func (a *App) BuildPipeline() *pipeline.Pipeline {
	detector := detect.New(a.store, a.cfg.Source.DocumentExt)

	crawler := listing.New(listing.Config{
		ListingURL:  a.cfg.Source.ListingURL,
		UserAgent:   a.cfg.Source.UserAgent,
		DocumentExt: a.cfg.Source.DocumentExt,
		Timeout:     a.cfg.RequestTimeout(),
	}, detector, a.logger)

	fetcher := fetch.New(fetch.Config{
		CacheDir:    a.cfg.Fetch.CacheDir,
		UserAgent:   a.cfg.Source.UserAgent,
		ContentType: a.cfg.Fetch.ContentType,
		Timeout:     a.cfg.RequestTimeout(),
		Delay:       a.cfg.PolitenessDelay(),
	}, a.logger)

	recognizer := recognize.New(recognize.Config{
		OCR: recognize.OCRConfig{
			RasterBinary: a.cfg.Extract.RasterBinary,
			OCRBinary:    a.cfg.Extract.OCRBinary,
			Languages:    a.cfg.Extract.OCRLanguages,
		},
		MinTextChars: a.cfg.Extract.MinTextChars,
	}, a.logger)

	engine := extract.New(recognizer, a.logger)

	return pipeline.New(pipeline.Config{
		QueuePath:   a.cfg.Queue.Path,
		Concurrency: a.cfg.Extract.Concurrency,
	}, crawler, fetcher, engine, a.store, a.logger)
}

// Close shuts down the app's services.
func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("record store close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
