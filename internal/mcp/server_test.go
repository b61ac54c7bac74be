package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"forestnav/internal/config"
	"forestnav/internal/domain"
	"forestnav/internal/secret"
	"forestnav/internal/service"
	"forestnav/internal/stats"
	"forestnav/internal/storage"
)

const harvestPRI = `1 1 PRI~
266 1 2 740 500~
267 1 1 301 7 2 254 8 1 180 9~
256 1 500 301 201~
257 1 7 410 180 7 380 150 8 500 120~
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()

	db, err := storage.New(filepath.Join(dir, "forestnav.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.DefaultConfig()
	cfg.Targets["files"] = config.TargetConfig{Driver: "csv", Host: filepath.Join(dir, "out")}
	cfg.Jobs = []config.JobConfig{{Name: "trees", Source: "dataset", Target: "files", Table: "trees"}}

	datasets := storage.NewDatasetStore(db)
	loader := service.NewLoader(nil, logger)
	service.UseSources(datasets, loader)
	export := service.NewExportService(storage.NewETLStore(db), cfg, secret.Chain{}, nil, logger)
	require.NoError(t, export.SyncJobs())

	s := New(Deps{
		Logger:   logger,
		Datasets: datasets,
		Ingest:   service.NewIngestService(datasets, loader, nil, logger),
		Analysis: service.NewAnalysisService(datasets, loader, cfg.BinParams()),
		Export:   export,
	})

	path := filepath.Join(dir, "harvest.pri")
	require.NoError(t, os.WriteFile(path, []byte(harvestPRI), 0o644))
	return s, path
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var out T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestTools_IngestListSummary(t *testing.T) {
	s, path := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleIngestPRIFile(ctx, call(map[string]any{"path": path}))
	require.NoError(t, err)
	ingested := decode[service.IngestResult](t, res)
	require.NotEmpty(t, ingested.ID)
	assert.Equal(t, 3, ingested.Info.TreeCount)

	res, err = s.handleListDatasets(ctx, call(nil))
	require.NoError(t, err)
	list := decode[[]domain.DatasetSummary](t, res)
	require.Len(t, list, 1)
	assert.Equal(t, ingested.ID, list[0].ID)

	res, err = s.handleDatasetSummary(ctx, call(map[string]any{"dataset": ingested.ID}))
	require.NoError(t, err)
	sum := decode[datasetSummary](t, res)
	assert.Equal(t, "DBH (mm)", sum.Resolution[domain.KeyDBH].Column)
	assert.Contains(t, sum.Distributions, "dbh")
	require.NotEmpty(t, sum.Stats.Tree)
	assert.Equal(t, 3, sum.Stats.Tree[0].Count)

	_, err = s.handleDatasetSummary(ctx, call(nil))
	assert.ErrorContains(t, err, "dataset is required")
}

func TestTools_HistogramAndSpecies(t *testing.T) {
	s, path := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleHistogram(ctx, call(map[string]any{"dataset": path, "name": "dbh", "start": "150", "end": "350", "width": "50"}))
	require.NoError(t, err)
	dist := decode[stats.Distribution](t, res)
	require.Len(t, dist.Bins, 4)
	assert.Equal(t, 150.0, dist.Bins[0].Start)
	assert.Equal(t, 3, stats.Total(dist.Bins))

	res, err = s.handleHistogram(ctx, call(map[string]any{"dataset": path, "name": "dbh", "width": "1e15"}))
	require.NoError(t, err)
	assert.Len(t, decode[stats.Distribution](t, res).Bins, stats.DefaultBins, "oversized width falls back to the default")

	_, err = s.handleHistogram(ctx, call(map[string]any{"dataset": path, "name": "log_diameter"}))
	assert.ErrorIs(t, err, stats.ErrNoData)

	_, err = s.handleHistogram(ctx, call(map[string]any{"dataset": path, "name": "girth"}))
	assert.ErrorIs(t, err, stats.ErrUnknownDistribution)

	res, err = s.handleSpeciesDistribution(ctx, call(map[string]any{"dataset": path}))
	require.NoError(t, err)
	counts := decode[[]stats.ValueCount](t, res)
	assert.Equal(t, []stats.ValueCount{{Value: "1", Count: 2}, {Value: "2", Count: 1}}, counts)
}

func TestTools_Export(t *testing.T) {
	s, path := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleIngestPRIFile(ctx, call(map[string]any{"path": path}))
	require.NoError(t, err)
	id := decode[service.IngestResult](t, res).ID

	res, err = s.handleListETLSources(ctx, call(nil))
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, `"pri_file"`)

	res, err = s.handlePreviewETLSource(ctx, call(map[string]any{
		"sourceType":       "dataset",
		"sourceConfigJSON": map[string]any{"datasetId": id},
		"limit":            2.0,
	}))
	require.NoError(t, err)
	preview := decode[service.PreviewResult](t, res)
	assert.Len(t, preview.Records, 2)

	res, err = s.handleRunExportJob(ctx, call(map[string]any{"job": "trees", "sourceConfigJSON": `{"datasetId":"` + id + `"}`}))
	require.NoError(t, err)
	result := decode[map[string]any](t, res)
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, 3.0, result["rowsWritten"])

	_, err = s.handleRunExportJob(ctx, call(map[string]any{"job": "trees", "sourceConfigJSON": "{not json"}))
	assert.ErrorContains(t, err, "parse sourceConfigJSON")
}

func TestDatasetIDFromURI(t *testing.T) {
	assert.Equal(t, "abc-123", datasetIDFromURI("forestnav://dataset/abc-123/summary"))
	assert.Empty(t, datasetIDFromURI("forestnav://dataset/abc/123/summary"))
	assert.Empty(t, datasetIDFromURI("forestnav://datasets"))
}
