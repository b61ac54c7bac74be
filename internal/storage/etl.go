package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forestnav/internal/etl"

	"github.com/google/uuid"
)

// ETLStore implements persistence for export jobs and run logs.
type ETLStore struct {
	db *DB
}

// NewETLStore creates a new ETLStore.
func NewETLStore(db *DB) *ETLStore {
	return &ETLStore{db: db}
}

const jobColumns = `id, name, source_type, source_config, transforms, target_name, target_table,
	sync_mode, dedupe_key, trigger_type, trigger_config, enabled,
	last_run_at, last_status, last_error, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*etl.SyncJob, error) {
	job := &etl.SyncJob{}
	var srcCfg, transforms string
	var lastRun sql.NullTime
	if err := row.Scan(
		&job.ID, &job.Name, &job.SourceType, &srcCfg, &transforms,
		&job.Target.Name, &job.Target.Table, &job.SyncMode, &job.DedupeKey,
		&job.TriggerType, &job.TriggerConfig, &job.Enabled,
		&lastRun, &job.LastStatus, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastRun.Valid {
		job.LastRunAt = lastRun.Time
	}
	json.Unmarshal([]byte(srcCfg), &job.SourceCfg)
	json.Unmarshal([]byte(transforms), &job.Transforms)
	return job, nil
}

// ── SyncJob CRUD ───────────────────────────────────────────

// SaveJob inserts the job, or updates the definition of the job with the
// same name. Run status and identity are preserved on update.
func (s *ETLStore) SaveJob(job *etl.SyncJob) error {
	now := time.Now()
	srcCfg, _ := json.Marshal(job.SourceCfg)
	transforms, _ := json.Marshal(job.Transforms)

	existing, err := s.GetJobByName(job.Name)
	switch {
	case errors.Is(err, ErrNotFound):
		job.ID = uuid.New().String()
		job.CreatedAt = now
		job.UpdatedAt = now
		_, err = s.db.conn.Exec(
			`INSERT INTO etl_jobs (id, name, source_type, source_config, transforms, target_name, target_table,
			 sync_mode, dedupe_key, trigger_type, trigger_config, enabled, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.Name, job.SourceType, string(srcCfg), string(transforms),
			job.Target.Name, job.Target.Table, job.SyncMode, job.DedupeKey,
			job.TriggerType, job.TriggerConfig, job.Enabled,
			job.CreatedAt, job.UpdatedAt,
		)
		return err
	case err != nil:
		return err
	}

	job.ID = existing.ID
	job.CreatedAt = existing.CreatedAt
	job.LastRunAt = existing.LastRunAt
	job.LastStatus = existing.LastStatus
	job.LastError = existing.LastError
	job.UpdatedAt = now
	_, err = s.db.conn.Exec(
		`UPDATE etl_jobs SET source_type=?, source_config=?, transforms=?,
		 target_name=?, target_table=?, sync_mode=?, dedupe_key=?, trigger_type=?, trigger_config=?,
		 enabled=?, updated_at=? WHERE id=?`,
		job.SourceType, string(srcCfg), string(transforms),
		job.Target.Name, job.Target.Table, job.SyncMode, job.DedupeKey,
		job.TriggerType, job.TriggerConfig, job.Enabled,
		job.UpdatedAt, job.ID,
	)
	return err
}

func (s *ETLStore) GetJob(id string) (*etl.SyncJob, error) {
	job, err := scanJob(s.db.conn.QueryRow(`SELECT `+jobColumns+` FROM etl_jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("etl job %s: %w", id, ErrNotFound)
	}
	return job, err
}

func (s *ETLStore) GetJobByName(name string) (*etl.SyncJob, error) {
	job, err := scanJob(s.db.conn.QueryRow(`SELECT `+jobColumns+` FROM etl_jobs WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("etl job %q: %w", name, ErrNotFound)
	}
	return job, err
}

func (s *ETLStore) UpdateJobStatus(id, status, errMsg string) error {
	_, err := s.db.conn.Exec(
		`UPDATE etl_jobs SET last_run_at=?, last_status=?, last_error=?, updated_at=? WHERE id=?`,
		time.Now(), status, errMsg, time.Now(), id,
	)
	return err
}

func (s *ETLStore) DeleteJob(id string) error {
	// Delete run logs first.
	if _, err := s.db.conn.Exec(`DELETE FROM etl_run_logs WHERE job_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.conn.Exec(`DELETE FROM etl_jobs WHERE id = ?`, id)
	return err
}

func (s *ETLStore) ListJobs() ([]etl.SyncJob, error) {
	return s.queryJobs(`SELECT ` + jobColumns + ` FROM etl_jobs ORDER BY created_at ASC, name ASC`)
}

// ListEnabledJobs returns enabled jobs with the given trigger type.
func (s *ETLStore) ListEnabledJobs(triggerType string) ([]etl.SyncJob, error) {
	return s.queryJobs(
		`SELECT `+jobColumns+` FROM etl_jobs WHERE enabled = 1 AND trigger_type = ?
		 ORDER BY created_at ASC, name ASC`, triggerType,
	)
}

func (s *ETLStore) queryJobs(query string, args ...any) ([]etl.SyncJob, error) {
	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []etl.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ── Run Logs ───────────────────────────────────────────────

func (s *ETLStore) CreateRunLog(log *etl.SyncRunLog) error {
	log.ID = uuid.New().String()
	_, err := s.db.conn.Exec(
		`INSERT INTO etl_run_logs (id, job_id, started_at, finished_at, status, rows_read, rows_written, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.JobID, log.StartedAt, log.FinishedAt, log.Status, log.RowsRead, log.RowsWritten, log.Error,
	)
	return err
}

func (s *ETLStore) ListRunLogs(jobID string, limit int) ([]etl.SyncRunLog, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, job_id, started_at, finished_at, status, rows_read, rows_written, error
		 FROM etl_run_logs WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []etl.SyncRunLog
	for rows.Next() {
		var l etl.SyncRunLog
		if err := rows.Scan(&l.ID, &l.JobID, &l.StartedAt, &l.FinishedAt, &l.Status, &l.RowsRead, &l.RowsWritten, &l.Error); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
