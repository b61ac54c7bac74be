package service_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"forestnav/internal/config"
	"forestnav/internal/domain"
	"forestnav/internal/service"
	"forestnav/internal/storage"
)

const harvestPRI = `1 1 PRI~
5 1 HarvestControl 2.1~
266 1 2 740 500~
267 1 1 301 7 2 254 8~
256 1 500 301 201~
257 1 7 410 180 7 380 150 8 500 120~
`

// memStore is an in-memory domain.DatasetStore.
type memStore struct {
	mu       sync.Mutex
	datasets map[string]*domain.Dataset
	order    []string
}

func newMemStore() *memStore { return &memStore{datasets: map[string]*domain.Dataset{}} }

func (m *memStore) SaveDataset(d *domain.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	m.datasets[d.ID] = d
	m.order = append(m.order, d.ID)
	return nil
}

func (m *memStore) GetDataset(id string) (*domain.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.datasets[id]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", id, storage.ErrNotFound)
	}
	return d, nil
}

func (m *memStore) FindDatasetByHash(hash string) (*domain.DatasetSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range slices.Backward(m.order) {
		if d := m.datasets[id]; d != nil && d.ContentHash == hash {
			return &domain.DatasetSummary{ID: d.ID, SourcePath: d.SourcePath, Info: d.Info, CreatedAt: d.CreatedAt}, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) ListDatasets() ([]domain.DatasetSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DatasetSummary
	for _, id := range slices.Backward(m.order) {
		if d := m.datasets[id]; d != nil {
			out = append(out, domain.DatasetSummary{ID: d.ID, SourcePath: d.SourcePath, Info: d.Info, CreatedAt: d.CreatedAt})
		}
	}
	return out, nil
}

func (m *memStore) DeleteDataset(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.datasets, id)
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.datasets)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newIngest(t *testing.T) (*service.IngestService, *memStore, *service.MockEmitter) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := newMemStore()
	emitter := &service.MockEmitter{}
	return service.NewIngestService(store, service.NewLoader(nil, logger), emitter, logger), store, emitter
}

func TestLoader_Load(t *testing.T) {
	ds, err := service.NewLoader(nil, nil).Load([]byte(harvestPRI), "harvest.pri", nil)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(ds.SourcePath))
	assert.Equal(t, service.ContentHash([]byte(harvestPRI)), ds.ContentHash)
	assert.Len(t, ds.ContentHash, 64)
	assert.Equal(t, "HarvestControl 2.1", ds.Info.Software)
	assert.Equal(t, 2, ds.Info.TreeCount)
	assert.Equal(t, 3, ds.Info.LogCount)

	ref, ok := ds.Resolution.Lookup(domain.KeyDBH)
	require.True(t, ok)
	assert.Equal(t, "DBH (mm)", ref.Column)
	_, ok = ds.Resolution.Lookup(domain.KeyDiameterButt)
	assert.False(t, ok)
}

func TestIngest_StoresAndEmits(t *testing.T) {
	svc, store, emitter := newIngest(t)
	path := writeFile(t, t.TempDir(), "harvest.pri", harvestPRI)

	var hooked []string
	svc.OnLoaded(func(_ context.Context, ds *domain.Dataset) { hooked = append(hooked, ds.ID) })

	res, err := svc.Ingest(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	assert.False(t, res.Duplicate)
	assert.Equal(t, []string{res.ID}, hooked)

	ds, err := store.GetDataset(res.ID)
	require.NoError(t, err)
	assert.Equal(t, path, ds.SourcePath)

	loaded := emitter.Named(service.EventDatasetLoaded)
	require.Len(t, loaded, 1)
	assert.Equal(t, res.ID, loaded[0].Data.(domain.DatasetSummary).ID)

	progress := emitter.Named(service.EventParseProgress)
	require.NotEmpty(t, progress)
	assert.Equal(t, 100.0, progress[len(progress)-1].Data.(service.ParseProgress).Percent)
}

func TestIngest_SkipsDuplicates(t *testing.T) {
	svc, store, emitter := newIngest(t)
	dir := t.TempDir()
	first := writeFile(t, dir, "a.pri", harvestPRI)
	copyOf := writeFile(t, dir, "b.pri", harvestPRI)

	a, err := svc.Ingest(context.Background(), first)
	require.NoError(t, err)
	b, err := svc.Ingest(context.Background(), copyOf)
	require.NoError(t, err)

	assert.True(t, b.Duplicate)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 1, store.len())
	assert.Len(t, emitter.Named(service.EventDatasetSkip), 1)

	svc.SkipDuplicates = false
	c, err := svc.Ingest(context.Background(), copyOf)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, 2, store.len())
}

func TestIngest_Errors(t *testing.T) {
	svc, _, _ := newIngest(t)

	_, err := svc.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.pri"))
	assert.ErrorContains(t, err, "read pri file")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Ingest(ctx, "whatever.pri")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestMany_ReportsEveryFile(t *testing.T) {
	svc, store, _ := newIngest(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "good.pri", harvestPRI)
	other := writeFile(t, dir, "other.pri", harvestPRI+"267 1 3 199 9~")
	missing := filepath.Join(dir, "missing.pri")

	results, err := svc.IngestMany(context.Background(), []string{good, missing, other}, 2)
	require.Error(t, err)
	assert.ErrorContains(t, err, "missing.pri")

	require.Len(t, results, 3)
	assert.NotEmpty(t, results[0].ID)
	assert.NotEmpty(t, results[1].Error)
	assert.Empty(t, results[1].ID)
	assert.Equal(t, 3, results[2].Info.TreeCount)
	assert.Equal(t, 2, store.len())
}

func TestScanDir_MatchesPatternIgnoringCase(t *testing.T) {
	svc, store, _ := newIngest(t)
	dir := t.TempDir()
	writeFile(t, dir, "HARVEST.PRI", harvestPRI)
	writeFile(t, dir, "notes.txt", "not a pri file")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pri"), 0o755))

	results, err := svc.ScanDir(context.Background(), dir, "*.pri")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(dir, "HARVEST.PRI"), results[0].Path)
	assert.Equal(t, 1, store.len())

	_, err = svc.ScanDir(context.Background(), filepath.Join(dir, "absent"), "*.pri")
	assert.Error(t, err)
}

func TestWatch_IngestsNewFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc, store, emitter := newIngest(t)
	inbox := filepath.Join(t.TempDir(), "inbox")

	err := svc.Watch(context.Background(), config.WatchConfig{Inbox: inbox, Pattern: "*.pri", Schedule: "@every 1h"}, 20*time.Millisecond)
	require.NoError(t, err)

	writeFile(t, inbox, "ignored.txt", "x")
	writeFile(t, inbox, "harvest.pri", harvestPRI)

	require.Eventually(t, func() bool {
		return len(emitter.Named(service.EventDatasetLoaded)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	svc.Stop()
	svc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.WaitRunning(ctx)
	assert.Equal(t, 1, store.len())
}

func TestIngestSettled_RetriesWhileInFlight(t *testing.T) {
	svc, store, _ := newIngest(t)
	path := writeFile(t, t.TempDir(), "harvest.pri", harvestPRI)

	release, ok := svc.HoldPath(path)
	require.True(t, ok)

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.IngestSettled(context.Background(), path, 5*time.Millisecond)
	}()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, store.len(), "nothing stored while the path is held")
	release()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("settled ingest never retried")
	}
	assert.Equal(t, 1, store.len())
}

func TestIngestSettled_StopsOnCancel(t *testing.T) {
	svc, store, _ := newIngest(t)
	path := writeFile(t, t.TempDir(), "harvest.pri", harvestPRI)
	release, ok := svc.HoldPath(path)
	require.True(t, ok)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	svc.IngestSettled(ctx, path, 5*time.Millisecond)
	assert.Zero(t, store.len())
}

func TestWatch_Validation(t *testing.T) {
	svc, _, _ := newIngest(t)
	assert.ErrorContains(t, svc.Watch(context.Background(), config.WatchConfig{}, time.Millisecond), "inbox")

	err := svc.Watch(context.Background(), config.WatchConfig{Inbox: t.TempDir(), Schedule: "not a schedule"}, time.Millisecond)
	assert.ErrorContains(t, err, "invalid schedule")
	svc.Stop()
}
