package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"forestnav/internal/config"
	"forestnav/internal/dbclient"
	"forestnav/internal/domain"
	"forestnav/internal/etl"
	"forestnav/internal/etl/sources"
	"forestnav/internal/secret"
	"forestnav/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Export Service: business logic for export jobs
// ─────────────────────────────────────────────────────────────

// ExportService runs the export jobs declared in the configuration and
// keeps their run history.
type ExportService struct {
	store       *storage.ETLStore
	cfg         *config.Config
	secrets     secret.SecretStore
	emitter     EventEmitter
	logger      *zap.Logger
	runningJobs runGuard

	// OpenWriter opens a named export target. Defaults to the configured
	// targets; tests replace it.
	OpenWriter etl.OpenWriterFunc

	mu        sync.Mutex
	cronSched *cron.Cron
}

// NewExportService creates an ExportService ready for use.
func NewExportService(
	store *storage.ETLStore,
	cfg *config.Config,
	secrets secret.SecretStore,
	emitter EventEmitter,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = &LogEmitter{Logger: logger}
	}
	s := &ExportService{
		store:   store,
		cfg:     cfg,
		secrets: secrets,
		emitter: emitter,
		logger:  logger,
	}
	s.OpenWriter = s.openTarget
	return s
}

// UseSources points the pri_file and dataset sources at the loader and
// the dataset store.
func UseSources(store domain.DatasetStore, loader *Loader) {
	sources.SetParser(loader.Parser())
	sources.SetResolver(loader.Resolver())
	sources.SetDatasetProvider(store)
}

// openTarget opens the configured export target called name.
func (s *ExportService) openTarget(ctx context.Context, name string) (dbclient.Writer, error) {
	target, configured, err := s.cfg.ExportTarget(name)
	if err != nil {
		return nil, err
	}
	password, err := secret.Password(s.secrets, name, configured)
	if err != nil {
		return nil, fmt.Errorf("target %q password: %w", name, err)
	}
	return dbclient.NewWriter(target, password, s.logger)
}

// ── Job definitions ────────────────────────────────────────

// jobFromConfig converts a configured job to its stored form.
func jobFromConfig(jc config.JobConfig) *etl.SyncJob {
	job := &etl.SyncJob{
		Name:          jc.Name,
		SourceType:    jc.Source,
		SourceCfg:     etl.SourceConfig(jc.SourceConfig),
		Target:        etl.Target{Name: jc.Target, Table: jc.Table},
		SyncMode:      etl.SyncMode(jc.Mode),
		DedupeKey:     jc.DedupeKey,
		TriggerType:   jc.Trigger,
		TriggerConfig: jc.Schedule,
		Enabled:       !jc.Disabled,
	}
	for _, t := range jc.Transforms {
		job.Transforms = append(job.Transforms, etl.TransformConfig{Type: t.Type, Config: t.Config})
	}
	if job.SyncMode == "" {
		job.SyncMode = etl.SyncReplace
	}
	if job.TriggerType == "" {
		job.TriggerType = etl.TriggerManual
	}
	if job.Target.Name == "" {
		job.Target.Name = config.DefaultTarget
	}
	return job
}

// SyncJobs stores the configured jobs. Stored jobs that are no longer
// configured are disabled, keeping their run history.
func (s *ExportService) SyncJobs() error {
	configured := make(map[string]bool, len(s.cfg.Jobs))
	for _, jc := range s.cfg.Jobs {
		if _, err := etl.GetSource(jc.Source); err != nil {
			return fmt.Errorf("job %q: %w", jc.Name, err)
		}
		if err := s.store.SaveJob(jobFromConfig(jc)); err != nil {
			return fmt.Errorf("save job %q: %w", jc.Name, err)
		}
		configured[jc.Name] = true
	}

	stored, err := s.store.ListJobs()
	if err != nil {
		return err
	}
	for _, job := range stored {
		if configured[job.Name] || !job.Enabled {
			continue
		}
		job.Enabled = false
		if err := s.store.SaveJob(&job); err != nil {
			return fmt.Errorf("disable job %q: %w", job.Name, err)
		}
		s.logger.Info("export job no longer configured", zap.String("job", job.Name))
	}
	return nil
}

// ListJobs returns the stored jobs with their last run status.
func (s *ExportService) ListJobs() ([]etl.SyncJob, error) {
	return s.store.ListJobs()
}

// ListRunLogs returns the last 50 run logs of the named job.
func (s *ExportService) ListRunLogs(name string) ([]etl.SyncRunLog, error) {
	job, err := s.store.GetJobByName(name)
	if err != nil {
		return nil, err
	}
	return s.store.ListRunLogs(job.ID, 50)
}

// ListSources returns the available source descriptors.
func (s *ExportService) ListSources() []etl.SourceSpec {
	return etl.ListSources()
}

// ── Run ────────────────────────────────────────────────────

// RunJob executes the named job synchronously. overrides are merged over
// the job's source configuration for this run only.
func (s *ExportService) RunJob(ctx context.Context, name string, overrides etl.SourceConfig) (*etl.SyncResult, error) {
	// Prevent concurrent execution of the same job.
	if !s.runningJobs.TryLock(name) {
		return nil, fmt.Errorf("job %s is already running", name)
	}
	defer s.runningJobs.Unlock(name)

	job, err := s.store.GetJobByName(name)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		cfg := maps.Clone(job.SourceCfg)
		if cfg == nil {
			cfg = etl.SourceConfig{}
		}
		maps.Copy(cfg, overrides)
		job.SourceCfg = cfg
	}

	s.store.UpdateJobStatus(job.ID, "running", "")

	engine := &etl.Engine{
		Dest: &etl.DBWriter{Open: s.OpenWriter},
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	start := time.Now()
	result, runErr := engine.RunSync(runCtx, job)

	runLog := &etl.SyncRunLog{
		JobID:       job.ID,
		StartedAt:   start,
		FinishedAt:  time.Now(),
		Status:      result.Status,
		RowsRead:    result.RowsRead,
		RowsWritten: result.RowsWritten,
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		runLog.Error = errMsg
	}
	if err := s.store.CreateRunLog(runLog); err != nil {
		s.logger.Warn("record run log failed", zap.String("job", name), zap.Error(err))
	}
	s.store.UpdateJobStatus(job.ID, result.Status, errMsg)

	s.logger.Info("export job finished",
		zap.String("job", name),
		zap.String("status", result.Status),
		zap.Int("read", result.RowsRead),
		zap.Int("written", result.RowsWritten),
		zap.Duration("took", result.Duration))
	s.emitter.Emit(ctx, EventJobCompleted, map[string]any{
		"job":    name,
		"status": result.Status,
		"target": job.Target,
	})

	return result, runErr
}

// DatasetLoaded runs the enabled dataset_loaded jobs against a freshly
// stored dataset. It is registered as an IngestService hook.
func (s *ExportService) DatasetLoaded(ctx context.Context, ds *domain.Dataset) {
	jobs, err := s.store.ListEnabledJobs(etl.TriggerDatasetLoaded)
	if err != nil {
		s.logger.Warn("list dataset jobs failed", zap.Error(err))
		return
	}
	for _, job := range jobs {
		var overrides etl.SourceConfig
		switch job.SourceType {
		case "dataset":
			overrides = etl.SourceConfig{"datasetId": ds.ID}
		case "pri_file":
			overrides = etl.SourceConfig{"filePath": ds.SourcePath}
		}
		if _, err := s.RunJob(ctx, job.Name, overrides); err != nil {
			s.logger.Warn("export job failed",
				zap.String("job", job.Name),
				zap.String("dataset", ds.ID),
				zap.Error(err))
		}
	}
}

// ── Preview / Schema Discovery ─────────────────────────────

// PreviewResult is the response from Preview.
type PreviewResult struct {
	Schema  *etl.Schema  `json:"schema"`
	Records []etl.Record `json:"records"`
}

// Preview reads up to limit records of a source without writing them.
func (s *ExportService) Preview(ctx context.Context, sourceType string, cfg etl.SourceConfig, limit int) (*PreviewResult, error) {
	previewCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	records, schema, err := (&etl.Engine{}).Preview(previewCtx, sourceType, cfg, limit)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Schema: schema, Records: records}, nil
}

// ── Schedules (cron) ───────────────────────────────────────

// StartSchedules (re)builds the cron schedule from the enabled schedule
// jobs and returns how many were scheduled.
func (s *ExportService) StartSchedules(ctx context.Context) (int, error) {
	s.Stop()

	jobs, err := s.store.ListEnabledJobs(etl.TriggerSchedule)
	if err != nil {
		return 0, fmt.Errorf("list scheduled jobs: %w", err)
	}

	c := cron.New()
	var errs []error
	scheduled := 0
	for _, j := range jobs {
		name := j.Name
		_, err := c.AddFunc(j.TriggerConfig, func() {
			s.logger.Info("export cron: running job", zap.String("job", name))
			if _, err := s.RunJob(ctx, name, nil); err != nil {
				s.logger.Warn("export cron: job failed", zap.String("job", name), zap.Error(err))
			}
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("job %q: invalid schedule %q: %w", name, j.TriggerConfig, err))
			continue
		}
		scheduled++
	}
	if scheduled == 0 {
		return 0, errors.Join(errs...)
	}

	c.Start()
	s.mu.Lock()
	s.cronSched = c
	s.mu.Unlock()
	s.logger.Info("export cron: scheduled", zap.Int("jobs", scheduled))
	return scheduled, errors.Join(errs...)
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *ExportService) WaitRunning(ctx context.Context) {
	s.runningJobs.WaitAll(ctx)
}

// Stop tears down the schedule.
func (s *ExportService) Stop() {
	s.mu.Lock()
	c := s.cronSched
	s.cronSched = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
