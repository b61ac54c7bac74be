package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forestnav/internal/domain"
	"forestnav/internal/stats"
)

const harvestPRI = `1 1 PRI~
5 1 HarvestControl 2.1~
266 1 2 740 500~
267 1 1 301 7 2 254 8~
256 1 500 301 201~
257 1 7 410 180 7 380 150 8 500 120~
`

type cliEnv struct {
	dir    string
	config string
	pri    string
	out    string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	e := &cliEnv{
		dir:    dir,
		config: filepath.Join(dir, "forestnav.yaml"),
		pri:    filepath.Join(dir, "harvest.pri"),
		out:    filepath.Join(dir, "out"),
	}
	require.NoError(t, os.WriteFile(e.pri, []byte(harvestPRI), 0644))

	cfg := `storage:
  database_path: ` + filepath.Join(dir, "data", "forestnav.db") + `
logging:
  level: error
  format: text
targets:
  files:
    driver: csv
    host: ` + e.out + `
jobs:
  - name: trees
    source: pri_file
    transforms:
      - type: select
        config:
          fields: ["Stem Number", "DBH (mm)"]
    target: files
    table: trees
`
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0644))
	return e
}

// run executes the command line against the env's config and returns
// what the command wrote to stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "forestnav %s", strings.Join(args, " "))
	return out
}

// resetFlags restores every flag to its default so commands can run
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestParseCommand(t *testing.T) {
	e := newCLIEnv(t)

	out := e.mustRun(t, "parse", e.pri)
	assert.Contains(t, out, "HarvestControl 2.1")
	assert.Contains(t, out, "Trees:     2")
	assert.Contains(t, out, "DBH (mm)")

	out = e.mustRun(t, "parse", "--json", e.pri)
	var report parseReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Info.TreeCount)
	assert.Equal(t, 3, report.Info.LogCount)
	assert.Equal(t, domain.ColumnRef{Kind: domain.EntityTree, Column: "DBH (mm)"}, report.Resolution[domain.KeyDBH])

	assert.NoFileExists(t, filepath.Join(e.dir, "data", "forestnav.db"), "decoding a file never opens the store")
}

func TestParseCommand_MissingFile(t *testing.T) {
	e := newCLIEnv(t)
	_, err := e.run(t, "parse", filepath.Join(e.dir, "nope.pri"))
	assert.Error(t, err)
}

func TestRawCommand(t *testing.T) {
	e := newCLIEnv(t)
	out := e.mustRun(t, "raw", e.pri)
	assert.Contains(t, out, "HarvestControl 2.1")

	out = e.mustRun(t, "raw", "--matrix", "--limit", "1", e.pri)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3, "header, rule and one row")
	assert.Contains(t, lines[0], "267")
}

func TestShowCommand(t *testing.T) {
	e := newCLIEnv(t)

	out := e.mustRun(t, "show", "--json", "--columns", "DBH (mm)", e.pri)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Len(t, r, 1)
		assert.Contains(t, r, "DBH (mm)")
	}

	out = e.mustRun(t, "show", "--table", "log", "--limit", "1", e.pri)
	assert.Contains(t, out, "Length (cm)")
	assert.Contains(t, out, "1 of 3 rows")

	_, err := e.run(t, "show", "--table", "stem", e.pri)
	assert.ErrorContains(t, err, "unknown table")
	_, err = e.run(t, "show", "--columns", "Height", e.pri)
	assert.ErrorContains(t, err, `no column "Height"`)
}

func TestStatsCommand(t *testing.T) {
	e := newCLIEnv(t)
	out := e.mustRun(t, "stats", "--json", e.pri)

	var got stats.DatasetStats
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got.Tree)
	assert.Equal(t, domain.KeyDBH, got.Tree[0].Key)
	assert.Equal(t, 2, got.Tree[0].Count)
	assert.Equal(t, domain.Some(277.5), got.Tree[0].Mean)
}

func TestHistCommand(t *testing.T) {
	e := newCLIEnv(t)

	out := e.mustRun(t, "hist", "--json", "--start", "250", "--end", "350", "--width", "50", e.pri, "dbh")
	var dist stats.Distribution
	require.NoError(t, json.Unmarshal([]byte(out), &dist))
	assert.Equal(t, []stats.Bucket{
		{Start: 250, End: 300, Count: 1},
		{Start: 300, End: 350, Count: 1},
	}, dist.Bins)

	out = e.mustRun(t, "hist", e.pri)
	assert.Contains(t, out, "dbh\n")
	assert.Contains(t, out, "species\n")

	_, err := e.run(t, "hist", e.pri, "height")
	assert.ErrorIs(t, err, stats.ErrUnknownDistribution)
}

func TestSpeciesCommand(t *testing.T) {
	e := newCLIEnv(t)
	out := e.mustRun(t, "species", "--json", e.pri)
	var got []stats.ValueCount
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []stats.ValueCount{{Value: "1", Count: 1}, {Value: "2", Count: 1}}, got)
}

func TestIngestAndDatasets(t *testing.T) {
	e := newCLIEnv(t)

	out := e.mustRun(t, "ingest", e.pri)
	assert.Contains(t, out, "1 of 1 files stored")

	out = e.mustRun(t, "ingest", e.dir)
	assert.Contains(t, out, "duplicate")
	assert.Contains(t, out, "0 of 1 files stored")

	out = e.mustRun(t, "datasets", "list", "--json")
	var list []domain.DatasetSummary
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	id := list[0].ID
	assert.Equal(t, "harvest.pri", list[0].Info.Name)

	// Stored datasets open by ID prefix.
	out = e.mustRun(t, "species", "--json", id[:8])
	assert.Contains(t, out, `"count": 1`)

	out = e.mustRun(t, "datasets", "rm", id[:8])
	assert.Contains(t, out, "Deleted "+id)

	out = e.mustRun(t, "datasets", "list")
	assert.Contains(t, out, "No datasets")

	_, err := e.run(t, "stats", "missing-id")
	assert.Error(t, err)
}

func TestExportCommands(t *testing.T) {
	e := newCLIEnv(t)

	out := e.mustRun(t, "export", "run", "trees", "--set", "filePath="+e.pri)
	assert.Contains(t, out, "wrote 2 rows")

	data, err := os.ReadFile(filepath.Join(e.out, "trees.csv"))
	require.NoError(t, err)
	assert.Equal(t, "DBH (mm),Stem Number\n301,7\n254,8\n", string(data))

	out = e.mustRun(t, "export", "jobs")
	assert.Contains(t, out, "trees")
	assert.Contains(t, out, "files/trees")
	assert.Contains(t, out, "success")

	out = e.mustRun(t, "export", "logs", "trees")
	assert.Contains(t, out, "success")

	out = e.mustRun(t, "export", "sources")
	assert.Contains(t, out, "pri_file")
	assert.Contains(t, out, "datasetId")

	out = e.mustRun(t, "export", "preview", "pri_file", "--set", "filePath="+e.pri, "--set", "entity=log", "--limit", "2")
	assert.Contains(t, out, "Length (cm)")

	_, err = e.run(t, "export", "run", "nope")
	assert.Error(t, err)
	_, err = e.run(t, "export", "run", "trees", "--set", "bad")
	assert.ErrorContains(t, err, "want key=value")
}

func TestInvalidConfig(t *testing.T) {
	e := newCLIEnv(t)
	require.NoError(t, os.WriteFile(e.config, []byte("logging:\n  level: loud\n"), 0644))
	_, err := e.run(t, "parse", e.pri)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestParseSettings(t *testing.T) {
	got, err := parseSettings([]string{"filePath=a=b.pri", "entity=log"})
	require.NoError(t, err)
	assert.Equal(t, "a=b.pri", got.String("filePath"))
	assert.Equal(t, "log", got.String("entity"))

	_, err = parseSettings([]string{"=x"})
	assert.Error(t, err)
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"A", "B"}, [][]string{{"樹", "1"}, {"xx", "10"}})
	assert.Equal(t, "A   B\n──  ──\n樹   1\nxx  10\n", buf.String())

	buf.Reset()
	long := strings.Repeat("x", 40)
	printTable(&buf, []string{"A", "B"}, [][]string{{long, long}})
	lines := strings.Split(buf.String(), "\n")
	assert.Contains(t, lines[2], "…", "inner columns are truncated")
	assert.True(t, strings.HasSuffix(lines[2], long), "the last column is not")
}

func TestBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("█", 20), bar(5, 10, 40))
	assert.Equal(t, "█", bar(1, 100, 10))
	assert.Empty(t, bar(0, 10, 40))
	assert.Empty(t, bar(3, 0, 40))
}
