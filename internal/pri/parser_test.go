package pri

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"forestnav/internal/domain"
)

const samplePRI = `1 1 PRI~
5 1 Ponsse Opti 4G~
266 1 2 740 760 761~
267 1
1 1500 4212345 1
2 1620 4305000 2~
256 1 2 301 201 205 501~
257 1 1 410 180 230 1 1 380 150 175 2 2~
999 3 metadata we do not use~
`

func TestParse_TreeTable(t *testing.T) {
	res, err := NewParser().Parse([]byte(samplePRI), "sample.pri")
	require.NoError(t, err)

	tree := res.Tree
	assert.Equal(t, domain.EntityTree, tree.Kind)
	assert.Equal(t, []string{"Species Number", "DBH (mm)", "Latitude", "North/South Flag"}, tree.Columns)
	require.Equal(t, 2, tree.Len())
	assert.Equal(t, map[string]string{
		"Species Number": "1", "DBH (mm)": "1500", "Latitude": "42.12345", "North/South Flag": "1",
	}, tree.Row(0))
	assert.Equal(t, map[string]string{
		"Species Number": "2", "DBH (mm)": "1620", "Latitude": "-43.05000", "North/South Flag": "2",
	}, tree.Row(1))

	require.True(t, tree.IsNumeric("DBH (mm)"))
	assert.Equal(t, []domain.Value{domain.Some(1500), domain.Some(1620)}, tree.Numeric["DBH (mm)"])
	assert.False(t, tree.IsNumeric("Latitude"), "coordinates stay text")
}

func TestParse_LogTable(t *testing.T) {
	res, err := NewParser().Parse([]byte(samplePRI), "sample.pri")
	require.NoError(t, err)

	log := res.Log
	assert.Equal(t, []string{"Species Number", "Length (cm)", "Diameter (Top mm ob)", "Diameter (Root mm ob)", "Stem Log number"}, log.Columns)
	require.Equal(t, 3, log.Len())
	assert.Equal(t, []string{"2", "", "", "", ""}, log.Rows[2], "short trailing row is padded")
	assert.Equal(t, []domain.Value{domain.Some(410), domain.Some(380), domain.Missing}, log.Numeric["Length (cm)"])
}

func TestParse_FileInfo(t *testing.T) {
	res, err := NewParser().Parse([]byte(samplePRI), "sample.pri")
	require.NoError(t, err)

	assert.Equal(t, "sample.pri", res.Info.Name)
	assert.Equal(t, int64(len(samplePRI)), res.Info.Size)
	assert.Equal(t, "Ponsse Opti 4G", res.Info.Software)
	assert.Equal(t, 2, res.Info.TreeCount)
	assert.Equal(t, 3, res.Info.LogCount)
	assert.NotEmpty(t, res.Info.Encoding)
	assert.Empty(t, res.Warnings)
	assert.Nil(t, res.Raw, "raw records are opt-in")
}

func TestParse_RawRecords(t *testing.T) {
	res, err := NewParser(WithRawRecords()).Parse([]byte(samplePRI), "sample.pri")
	require.NoError(t, err)
	require.Len(t, res.Raw, 7)
	assert.Equal(t, "999", res.Raw[6].Var)
	assert.Equal(t, "1 1500 4212345 1\n2 1620 4305000 2", res.Raw[3].Value)
}

func TestParse_DataWithoutHeader(t *testing.T) {
	res, err := NewParser().Parse([]byte("267 1 1 2 3 4~257 1 5 6~"), "x.pri")
	require.NoError(t, err)
	assert.True(t, res.Tree.Empty())
	assert.True(t, res.Log.Empty())
	assert.Empty(t, res.Tree.Columns)
}

func TestParse_MalformedRecordIgnored(t *testing.T) {
	base := "266 1 2 740~267 1 1 1500~"
	withJunk := "266 1 2 740~267~267 1 1 1500~abc def~"

	a, err := NewParser().Parse([]byte(base), "a.pri")
	require.NoError(t, err)
	b, err := NewParser().Parse([]byte(withJunk), "b.pri")
	require.NoError(t, err)
	assert.Equal(t, a.Tree.Rows, b.Tree.Rows)
}

func TestParse_EmptyInput(t *testing.T) {
	res, err := NewParser().Parse(nil, "empty.pri")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Info.TreeCount)
	assert.Equal(t, 0, res.Info.LogCount)
}

func TestParse_StructuralFailureDiscardsPartialResult(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	var seen []float64
	p := NewParser(WithLogger(zap.New(core)), WithProgress(func(pct float64) {
		seen = append(seen, pct)
		if pct >= 50 {
			panic("boom")
		}
	}))

	res, err := p.Parse([]byte(samplePRI), "broken.pri")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseFailed))
	assert.ErrorContains(t, err, "broken.pri")
	assert.Nil(t, res, "rows built before the failure are not returned")
	assert.Greater(t, len(seen), 1, "failure happened mid-parse")
	assert.Equal(t, 1, logs.FilterMessage("pri parse aborted").Len())

	// The parser stays usable after a failed run.
	res, err = NewParser().Parse([]byte(samplePRI), "sample.pri")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tree.Len())
}

func TestParse_MultipleHeadersLastWinsAndWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	in := "266 1 2 740~267 1 1 1500~266 1 2 740 764~267 1 2 1600 210~"

	res, err := NewParser(WithLogger(zap.New(core))).Parse([]byte(in), "multi.pri")
	require.NoError(t, err)

	assert.Equal(t, []string{"Species Number", "DBH (mm)", "Altitude"}, res.Tree.Columns)
	// The 2-token row from the first header is folded into the 3-wide layout.
	assert.Equal(t, [][]string{{"1", "1500", "2"}, {"1600", "210", ""}}, res.Tree.Rows)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "tree")
	assert.Equal(t, 1, logs.FilterMessage("pri structure").Len())
}

func TestParse_RepeatedIdenticalHeaderDoesNotWarn(t *testing.T) {
	in := "266 1 2 740~267 1 1 1500~266 1 2 740~267 1 2 1600~"
	res, err := NewParser().Parse([]byte(in), "same.pri")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 2, res.Tree.Len())
}

func TestParse_Progress(t *testing.T) {
	var got []float64
	_, err := NewParser(WithProgress(func(p float64) { got = append(got, p) })).
		Parse([]byte(samplePRI), "sample.pri")
	require.NoError(t, err)

	require.NotEmpty(t, got)
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 100.0, got[len(got)-1])
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

func TestParse_ProgressChanNeverBlocks(t *testing.T) {
	ch := make(chan float64) // unbuffered, nobody reading
	_, err := NewParser(WithProgress(ProgressChan(ch))).Parse([]byte(samplePRI), "sample.pri")
	require.NoError(t, err)
}

func TestParse_ConcurrentSessionsAreIndependent(t *testing.T) {
	p := NewParser()
	inputs := []string{
		"266 1 2~267 1 1 2 3~",
		"266 1 2 740~267 1 1 1500 2 1600 3 1700~",
	}
	var wg sync.WaitGroup
	results := make([]*Result, 40)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Parse([]byte(inputs[i%2]), "c.pri")
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()
	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, 3, res.Tree.Len(), "i=%d", i)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.pri")
	require.NoError(t, os.WriteFile(path, []byte(samplePRI), 0o644))

	res, err := NewParser().ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "harvest.pri", res.Info.Name)

	_, err = NewParser().ParseFile(filepath.Join(t.TempDir(), "missing.pri"))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	text, enc := Decode(nil)
	assert.Equal(t, "", text)
	assert.Equal(t, "UTF-8", enc)

	text, _ = Decode([]byte("266 1 2 740~"))
	assert.Equal(t, "266 1 2 740~", text)

	text, _ = Decode([]byte("5 1 H\xe4rk\xf6nen \xff\xfe\xfd~"))
	assert.True(t, utf8.ValidString(text))
	assert.Contains(t, text, "5 1 H")
}

func TestDecode_UTF16WithBOM(t *testing.T) {
	src := "266 1 2 740~"
	raw := []byte{0xFF, 0xFE}
	for _, r := range src {
		raw = append(raw, byte(r), 0)
	}
	text, _ := Decode(raw)
	assert.Equal(t, src, text)
}
