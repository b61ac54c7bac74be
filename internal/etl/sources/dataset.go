package sources

import (
	"context"
	"fmt"

	"forestnav/internal/domain"
	"forestnav/internal/etl"
)

// ── Dataset Source ─────────────────────────────────────────
// Reads a table of a dataset that was already ingested and stored.
// Reuses the dataset store via a provider interface.

// DatasetProvider abstracts access to stored datasets.
// The app layer injects it at startup.
type DatasetProvider interface {
	GetDataset(id string) (*domain.Dataset, error)
}

var datasetProvider DatasetProvider

// SetDatasetProvider is called by the app at startup.
func SetDatasetProvider(p DatasetProvider) { datasetProvider = p }

type datasetSource struct{}

func init() { etl.RegisterSource(&datasetSource{}) }

func (s *datasetSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "dataset",
		Label: "Stored Dataset",
		ConfigFields: []etl.ConfigField{
			{Key: "datasetId", Label: "Dataset", Type: "string", Required: true, Help: "ID of an ingested dataset"},
			entityField,
		},
	}
}

func (s *datasetSource) load(cfg etl.SourceConfig) (*domain.Table, error) {
	id := cfg.String("datasetId")
	if id == "" {
		return nil, fmt.Errorf("datasetId is required")
	}
	kind, err := entityOf(cfg)
	if err != nil {
		return nil, err
	}
	if datasetProvider == nil {
		return nil, fmt.Errorf("dataset provider not initialized")
	}
	ds, err := datasetProvider.GetDataset(id)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}
	return ds.Table(kind), nil
}

func (s *datasetSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	t, err := s.load(cfg)
	if err != nil {
		return nil, err
	}
	return etl.SchemaOf(t), nil
}

func (s *datasetSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	return etl.EmitRecords(ctx, func() ([]etl.Record, error) {
		t, err := s.load(cfg)
		if err != nil {
			return nil, err
		}
		return etl.RecordsOf(t), nil
	})
}
