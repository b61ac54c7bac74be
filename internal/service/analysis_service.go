package service

import (
	"context"
	"fmt"
	"os"

	"forestnav/internal/domain"
	"forestnav/internal/stats"
)

// ─────────────────────────────────────────────────────────────
// Analysis Service: statistics over loaded datasets
// ─────────────────────────────────────────────────────────────

// AnalysisService opens datasets by file path or stored ID and computes
// summaries and distributions with configured binning defaults.
type AnalysisService struct {
	store    domain.DatasetStore
	loader   *Loader
	defaults stats.BinParams
}

// NewAnalysisService creates an AnalysisService. store may be nil when only
// files are analysed.
func NewAnalysisService(store domain.DatasetStore, loader *Loader, defaults stats.BinParams) *AnalysisService {
	return &AnalysisService{store: store, loader: loader, defaults: defaults}
}

// Open loads ref as a PRI file when such a file exists, otherwise as the ID
// of a stored dataset.
func (a *AnalysisService) Open(ctx context.Context, ref string) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fi, err := os.Stat(ref); err == nil && !fi.IsDir() {
		return a.loader.LoadFile(ref, nil)
	}
	if a.store == nil {
		return nil, fmt.Errorf("no such file: %s", ref)
	}
	ds, err := a.store.GetDataset(ref)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", ref, err)
	}
	return ds, nil
}

// Params merges p over the configured defaults.
func (a *AnalysisService) Params(p stats.BinParams) stats.BinParams {
	out := a.defaults
	if p.Range != nil {
		out.Range = p.Range
	}
	if p.Bins > 0 {
		out.Bins = p.Bins
	}
	return out
}

// Summary describes the resolved measures of ds.
func (a *AnalysisService) Summary(ds *domain.Dataset) stats.DatasetStats {
	return stats.Summarize(ds)
}

// Histogram bins a named distribution. "log_diameter" and "species" are
// answered by LogDiameter and Species.
func (a *AnalysisService) Histogram(ds *domain.Dataset, name string, p stats.BinParams) (*stats.Distribution, error) {
	return stats.Distribute(ds, name, a.Params(p))
}

// LogDiameter bins top and butt log diameters on shared edges.
func (a *AnalysisService) LogDiameter(ds *domain.Dataset, p stats.BinParams) ([]stats.DiameterBucket, error) {
	return stats.LogDiameter(ds, a.Params(p))
}

// Species counts trees per species code, most frequent first.
func (a *AnalysisService) Species(ds *domain.Dataset) ([]stats.ValueCount, error) {
	return stats.Species(ds)
}

// Available lists the distributions ds has data for.
func (a *AnalysisService) Available(ds *domain.Dataset) []string {
	var out []string
	for _, name := range stats.DistributionNames() {
		if _, err := stats.Distribute(ds, name, stats.BinParams{Bins: 1}); err == nil {
			out = append(out, name)
		}
	}
	if _, err := stats.LogDiameter(ds, stats.BinParams{Bins: 1}); err == nil {
		out = append(out, "log_diameter")
	}
	if _, err := stats.Species(ds); err == nil {
		out = append(out, "species")
	}
	return out
}
