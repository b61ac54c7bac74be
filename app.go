package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"forestnav/internal/config"
	"forestnav/internal/domain"
	"forestnav/internal/schema"
	"forestnav/internal/secret"
	"forestnav/internal/service"
	"forestnav/internal/storage"
)

// App wires the stores and services behind the commands. The dataset
// store is opened on first use so commands that only read a file never
// touch it.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	loader *service.Loader

	db       *storage.DB
	datasets *storage.DatasetStore
	ingest   *service.IngestService
	analysis *service.AnalysisService
	export   *service.ExportService
}

func newApp(cfg *config.Config, logger *zap.Logger) *App {
	loader := service.NewLoader(schema.NewResolver(cfg.SchemaCandidates()), logger)
	return &App{
		cfg:      cfg,
		logger:   logger,
		loader:   loader,
		analysis: service.NewAnalysisService(nil, loader, cfg.BinParams()),
	}
}

// Open opens the dataset store and builds the services on top of it.
func (a *App) Open() error {
	if a.db != nil {
		return nil
	}
	db, err := storage.New(a.cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store %s: %w", a.cfg.Storage.DatabasePath, err)
	}
	a.db = db
	a.datasets = storage.NewDatasetStore(db)

	emitter := cliEmitter(a.logger)
	a.ingest = service.NewIngestService(a.datasets, a.loader, emitter, a.logger)
	a.analysis = service.NewAnalysisService(a.datasets, a.loader, a.cfg.BinParams())
	a.export = service.NewExportService(storage.NewETLStore(db), a.cfg, secret.Default(), emitter, a.logger)

	service.UseSources(a.datasets, a.loader)
	if err := a.export.SyncJobs(); err != nil {
		return fmt.Errorf("sync jobs: %w", err)
	}

	a.logger.Debug("store opened", zap.String("path", a.cfg.Storage.DatabasePath))
	return nil
}

// Dataset opens ref as a file when one exists at that path, and as a
// stored dataset ID otherwise.
func (a *App) Dataset(ctx context.Context, ref string) (*domain.Dataset, error) {
	if _, err := os.Stat(ref); err != nil {
		if ref, err = a.ResolveID(ref); err != nil {
			return nil, err
		}
	}
	return a.analysis.Open(ctx, ref)
}

// ResolveID expands a unique prefix of a stored dataset ID, as printed by
// the listing commands, to the full ID.
func (a *App) ResolveID(prefix string) (string, error) {
	if err := a.Open(); err != nil {
		return "", err
	}
	list, err := a.datasets.ListDatasets()
	if err != nil {
		return "", err
	}
	var match string
	for _, d := range list {
		if d.ID == prefix {
			return d.ID, nil
		}
		if strings.HasPrefix(d.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("dataset id %q is ambiguous", prefix)
			}
			match = d.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("dataset %q: %w", prefix, storage.ErrNotFound)
	}
	return match, nil
}

// Close stops background work and closes the store.
func (a *App) Close() {
	if a.ingest != nil {
		a.ingest.Stop()
	}
	if a.export != nil {
		a.export.Stop()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
		a.db = nil
	}
}

// cliEmitter draws parse progress on a terminal and logs every other event.
func cliEmitter(logger *zap.Logger) service.EventEmitter {
	logs := &service.LogEmitter{Logger: logger}
	if !isTerminal(os.Stderr) {
		return logs
	}
	return service.EmitterFunc(func(ctx context.Context, event string, data any) {
		if p, ok := data.(service.ParseProgress); ok && event == service.EventParseProgress {
			progressPrinter(filepath.Base(p.Path))(p.Percent)
			return
		}
		logs.Emit(ctx, event, data)
	})
}
