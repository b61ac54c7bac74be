package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forestnav/internal/service"
	"forestnav/internal/stats"
	"forestnav/internal/storage"
)

func TestAnalysisService_Open(t *testing.T) {
	store := newMemStore()
	loader := service.NewLoader(nil, nil)
	a := service.NewAnalysisService(store, loader, stats.BinParams{Bins: 5})
	path := writeFile(t, t.TempDir(), "harvest.pri", harvestPRI)

	fromFile, err := a.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, fromFile.ID)
	assert.Equal(t, 2, fromFile.Info.TreeCount)

	require.NoError(t, store.SaveDataset(fromFile))
	byID, err := a.Open(context.Background(), fromFile.ID)
	require.NoError(t, err)
	assert.Same(t, fromFile, byID)

	_, err = a.Open(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	fileOnly := service.NewAnalysisService(nil, loader, stats.BinParams{})
	_, err = fileOnly.Open(context.Background(), filepath.Join(t.TempDir(), "x.pri"))
	assert.ErrorContains(t, err, "no such file")
}

func TestAnalysisService_ParamsMergeDefaults(t *testing.T) {
	rng := &stats.Range{Min: 0, Max: 500}
	a := service.NewAnalysisService(nil, nil, stats.BinParams{Bins: 5, Range: rng})

	assert.Equal(t, stats.BinParams{Bins: 5, Range: rng}, a.Params(stats.BinParams{}))
	assert.Equal(t, 8, a.Params(stats.BinParams{Bins: 8}).Bins)

	other := &stats.Range{Min: 100, Max: 200}
	assert.Same(t, other, a.Params(stats.BinParams{Range: other}).Range)
}

func TestAnalysisService_Distributions(t *testing.T) {
	a := service.NewAnalysisService(nil, service.NewLoader(nil, nil), stats.BinParams{Bins: 4})
	ds, err := a.Open(context.Background(), writeFile(t, t.TempDir(), "harvest.pri", harvestPRI))
	require.NoError(t, err)

	d, err := a.Histogram(ds, "dbh", stats.BinParams{})
	require.NoError(t, err)
	assert.Len(t, d.Bins, 4)
	assert.Equal(t, 2, stats.Total(d.Bins))

	_, err = a.LogDiameter(ds, stats.BinParams{})
	assert.ErrorIs(t, err, stats.ErrNoData)

	species, err := a.Species(ds)
	require.NoError(t, err)
	assert.Len(t, species, 2)

	sum := a.Summary(ds)
	require.NotEmpty(t, sum.Tree)
	assert.Equal(t, "DBH (mm)", sum.Tree[0].Column)

	assert.Equal(t, []string{"dbh", "log_length", "diameter_ob_top", "species"}, a.Available(ds))
}
