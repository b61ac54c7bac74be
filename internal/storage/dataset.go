package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forestnav/internal/domain"
)

// DatasetStore implements domain.DatasetStore. Tables and the resolution
// are stored as JSON next to the file info columns.
type DatasetStore struct {
	db *DB
}

// NewDatasetStore creates a new DatasetStore.
func NewDatasetStore(db *DB) *DatasetStore {
	return &DatasetStore{db: db}
}

func (s *DatasetStore) SaveDataset(d *domain.Dataset) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	resolution, err := json.Marshal(d.Resolution)
	if err != nil {
		return fmt.Errorf("encode resolution: %w", err)
	}
	tree, err := json.Marshal(d.Tree)
	if err != nil {
		return fmt.Errorf("encode tree table: %w", err)
	}
	log, err := json.Marshal(d.Log)
	if err != nil {
		return fmt.Errorf("encode log table: %w", err)
	}
	warnings, _ := json.Marshal(d.Warnings)

	_, err = s.db.conn.Exec(
		`INSERT OR REPLACE INTO datasets (id, source_path, content_hash, name, size, encoding, software,
		 tree_count, log_count, resolution_json, tree_json, log_json, warnings_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SourcePath, d.ContentHash, d.Info.Name, d.Info.Size, d.Info.Encoding, d.Info.Software,
		d.Info.TreeCount, d.Info.LogCount,
		string(resolution), string(tree), string(log), string(warnings), d.CreatedAt,
	)
	return err
}

func (s *DatasetStore) GetDataset(id string) (*domain.Dataset, error) {
	d := &domain.Dataset{}
	var resolution, tree, log, warnings string

	err := s.db.conn.QueryRow(
		`SELECT id, source_path, content_hash, name, size, encoding, software, tree_count, log_count,
		 resolution_json, tree_json, log_json, warnings_json, created_at
		 FROM datasets WHERE id = ?`, id,
	).Scan(
		&d.ID, &d.SourcePath, &d.ContentHash, &d.Info.Name, &d.Info.Size, &d.Info.Encoding, &d.Info.Software,
		&d.Info.TreeCount, &d.Info.LogCount,
		&resolution, &tree, &log, &warnings, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(resolution), &d.Resolution); err != nil {
		return nil, fmt.Errorf("decode resolution: %w", err)
	}
	if err := json.Unmarshal([]byte(tree), &d.Tree); err != nil {
		return nil, fmt.Errorf("decode tree table: %w", err)
	}
	if err := json.Unmarshal([]byte(log), &d.Log); err != nil {
		return nil, fmt.Errorf("decode log table: %w", err)
	}
	json.Unmarshal([]byte(warnings), &d.Warnings)
	if d.Resolution == nil {
		d.Resolution = domain.Resolution{}
	}
	return d, nil
}

const summaryColumns = `id, source_path, name, size, encoding, software, tree_count, log_count, created_at`

func scanSummary(row interface{ Scan(...any) error }) (domain.DatasetSummary, error) {
	var sum domain.DatasetSummary
	err := row.Scan(
		&sum.ID, &sum.SourcePath, &sum.Info.Name, &sum.Info.Size, &sum.Info.Encoding, &sum.Info.Software,
		&sum.Info.TreeCount, &sum.Info.LogCount, &sum.CreatedAt,
	)
	return sum, err
}

// ListDatasets returns every dataset, newest first.
func (s *DatasetStore) ListDatasets() ([]domain.DatasetSummary, error) {
	rows, err := s.db.conn.Query(`SELECT ` + summaryColumns + ` FROM datasets ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DatasetSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// FindDatasetByHash returns the newest dataset ingested from identical bytes.
func (s *DatasetStore) FindDatasetByHash(hash string) (*domain.DatasetSummary, error) {
	if hash == "" {
		return nil, fmt.Errorf("dataset hash: %w", ErrNotFound)
	}
	sum, err := scanSummary(s.db.conn.QueryRow(
		`SELECT `+summaryColumns+` FROM datasets WHERE content_hash = ? ORDER BY created_at DESC LIMIT 1`, hash,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset hash %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *DatasetStore) DeleteDataset(id string) error {
	res, err := s.db.conn.Exec(`DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	return nil
}
