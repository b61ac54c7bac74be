package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"forestnav/internal/config"
	"forestnav/internal/domain"
	"forestnav/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Ingest Service: parse, store and announce PRI files
// ─────────────────────────────────────────────────────────────

// ErrInFlight is returned when the same file is already being ingested.
var ErrInFlight = errors.New("ingest already in progress")

// LoadedHook runs after a dataset has been stored.
type LoadedHook func(ctx context.Context, ds *domain.Dataset)

// IngestService loads PRI files into the dataset store and watches an
// inbox directory for new ones.
type IngestService struct {
	store    domain.DatasetStore
	loader   *Loader
	emitter  EventEmitter
	logger   *zap.Logger
	inflight runGuard

	// SkipDuplicates returns the stored dataset for a file whose bytes were
	// ingested before instead of storing it again.
	SkipDuplicates bool

	hooksMu sync.RWMutex
	hooks   []LoadedHook

	// watcher / cron lifecycle
	mu          sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewIngestService creates an IngestService ready for use.
func NewIngestService(store domain.DatasetStore, loader *Loader, emitter EventEmitter, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = &LogEmitter{Logger: logger}
	}
	return &IngestService{
		store:          store,
		loader:         loader,
		emitter:        emitter,
		logger:         logger,
		SkipDuplicates: true,
	}
}

// OnLoaded registers a hook run after every stored dataset.
func (s *IngestService) OnLoaded(h LoadedHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, h)
}

// IngestResult is the outcome of ingesting one file.
type IngestResult struct {
	Path      string          `json:"path"`
	ID        string          `json:"id,omitempty"`
	Info      domain.FileInfo `json:"info"`
	Warnings  []string        `json:"warnings,omitempty"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// ParseProgress is the payload of EventParseProgress.
type ParseProgress struct {
	Path    string  `json:"path"`
	Percent float64 `json:"percent"`
}

// ── Ingest ─────────────────────────────────────────────────

// Ingest parses the file at path, stores the dataset and emits
// EventDatasetLoaded. Progress is emitted while the file is parsed.
func (s *IngestService) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if !s.inflight.TryLock(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrInFlight)
	}
	defer s.inflight.Unlock(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pri file: %w", err)
	}

	if s.SkipDuplicates {
		prev, err := s.store.FindDatasetByHash(ContentHash(raw))
		switch {
		case err == nil:
			s.logger.Info("dataset already ingested", zap.String("path", path), zap.String("id", prev.ID))
			s.emitter.Emit(ctx, EventDatasetSkip, *prev)
			return &IngestResult{Path: path, ID: prev.ID, Info: prev.Info, Duplicate: true}, nil
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("lookup dataset: %w", err)
		}
	}

	ds, err := s.loader.Load(raw, path, func(p float64) {
		s.emitter.Emit(ctx, EventParseProgress, ParseProgress{Path: path, Percent: p})
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveDataset(ds); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}

	s.logger.Info("dataset ingested",
		zap.String("path", path),
		zap.String("id", ds.ID),
		zap.Int("trees", ds.Info.TreeCount),
		zap.Int("logs", ds.Info.LogCount),
		zap.Int("resolved", len(ds.Resolution)))
	s.emitter.Emit(ctx, EventDatasetLoaded, domain.DatasetSummary{
		ID:         ds.ID,
		SourcePath: ds.SourcePath,
		Info:       ds.Info,
		CreatedAt:  ds.CreatedAt,
	})

	s.hooksMu.RLock()
	hooks := slices.Clone(s.hooks)
	s.hooksMu.RUnlock()
	for _, h := range hooks {
		h(ctx, ds)
	}

	return &IngestResult{Path: path, ID: ds.ID, Info: ds.Info, Warnings: ds.Warnings}, nil
}

// IngestMany ingests paths with at most limit files in flight. Every path
// gets a result; failures are reported in it and joined into the error.
func (s *IngestService) IngestMany(ctx context.Context, paths []string, limit int) ([]*IngestResult, error) {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	results := make([]*IngestResult, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, p := range paths {
		g.Go(func() error {
			res, err := s.Ingest(ctx, p)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", p, err)
				res = &IngestResult{Path: p, Error: err.Error()}
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()
	return results, errors.Join(errs...)
}

// ScanDir ingests every file in dir matching pattern, in name order.
func (s *IngestService) ScanDir(ctx context.Context, dir, pattern string) ([]*IngestResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan inbox: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && matchName(pattern, e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return s.IngestMany(ctx, paths, 0)
}

// matchName matches a file name against a glob, ignoring case. An empty
// pattern matches everything.
func matchName(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := filepath.Match(strings.ToLower(pattern), strings.ToLower(name))
	return err == nil && ok
}

// ── Watcher (fsnotify + cron) ─────────────────────────────

// Watch starts watching the inbox. Files matching the pattern are ingested
// once they have been quiet for the debounce period. A cron schedule, when
// set, rescans the whole inbox. Watch replaces any running watcher.
func (s *IngestService) Watch(ctx context.Context, cfg config.WatchConfig, debounce time.Duration) error {
	if cfg.Inbox == "" {
		return fmt.Errorf("watch: inbox directory not configured")
	}
	s.Stop()

	if err := os.MkdirAll(cfg.Inbox, 0755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(cfg.Inbox); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %q: %w", cfg.Inbox, err)
	}

	var sched *cron.Cron
	if cfg.Schedule != "" {
		sched = cron.New()
		_, err := sched.AddFunc(cfg.Schedule, func() {
			s.logger.Info("inbox rescan", zap.String("inbox", cfg.Inbox))
			if _, err := s.ScanDir(ctx, cfg.Inbox, cfg.Pattern); err != nil {
				s.logger.Warn("inbox rescan failed", zap.Error(err))
			}
		})
		if err != nil {
			watcher.Close()
			return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
		}
		sched.Start()
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.watcher, s.cronSched = watcher, sched
	s.watchCancel, s.watchDone = cancel, done
	s.mu.Unlock()

	go s.watchLoop(watchCtx, watcher, cfg.Pattern, debounce, done)

	s.logger.Info("watching inbox",
		zap.String("inbox", cfg.Inbox),
		zap.String("pattern", cfg.Pattern),
		zap.Duration("debounce", debounce),
		zap.String("schedule", cfg.Schedule))
	return nil
}

func (s *IngestService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pattern string, debounce time.Duration, done chan struct{}) {
	defer close(done)

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !matchName(pattern, filepath.Base(event.Name)) {
				continue
			}
			path := event.Name
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(debounce, func() {
				s.ingestSettled(ctx, path, debounce)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}

// ingestSettled ingests a file whose writes have stopped. While an earlier
// ingest of the same path is still running it waits retry and tries again,
// so the newest contents are always loaded.
func (s *IngestService) ingestSettled(ctx context.Context, path string, retry time.Duration) {
	for ctx.Err() == nil {
		s.logger.Debug("inbox file settled", zap.String("path", path))
		_, err := s.Ingest(ctx, path)
		if !errors.Is(err, ErrInFlight) {
			if err != nil {
				s.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
			}
			return
		}
		select {
		case <-ctx.Done():
		case <-time.After(retry):
		}
	}
}

// WaitRunning blocks until all running ingests finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *IngestService) WaitRunning(ctx context.Context) {
	s.inflight.WaitAll(ctx)
}

// Stop tears down the watcher and the rescan schedule.
func (s *IngestService) Stop() {
	s.mu.Lock()
	cancel, done := s.watchCancel, s.watchDone
	watcher, sched := s.watcher, s.cronSched
	s.watchCancel, s.watchDone, s.watcher, s.cronSched = nil, nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		watcher.Close()
	}
	if done != nil {
		<-done
	}
	if sched != nil {
		<-sched.Stop().Done()
	}
}
