package pri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRecords_DropsEmptyAndTrims(t *testing.T) {
	got := SplitRecords("  1 2 a ~~ \n ~266 1 2 740 ~")
	assert.Equal(t, []string{"1 2 a", "266 1 2 740"}, got)
}

func TestSplitRecords_NewlineHandling(t *testing.T) {
	got := SplitRecords("267 1 1 1500\n2 1620~266 1 2\n740~5 1 Harvester\r\nSoft")
	require.Len(t, got, 3)
	assert.Equal(t, "267 1 1 1500\n2 1620", got[0], "data records keep newlines")
	assert.Equal(t, "266 1 2 740", got[1])
	assert.Equal(t, "5 1 Harvester Soft", got[2])
}

func TestSplitRecords_BareCarriageReturn(t *testing.T) {
	got := SplitRecords("5 1 Ponsse\rOpti~3 1 line one\r\rline two~")
	assert.Equal(t, []string{"5 1 Ponsse Opti", "3 1 line one  line two"}, got)

	r, ok := ParseRecord(got[0])
	require.True(t, ok)
	assert.NotContains(t, r.Value, "\r")
}

func TestParseRecord(t *testing.T) {
	r, ok := ParseRecord("267 1 1 1500\n2 1620")
	require.True(t, ok)
	assert.Equal(t, 267, r.Var)
	assert.Equal(t, 1, r.Type)
	assert.Equal(t, []string{"1", "1500", "2", "1620"}, r.Payload)
	assert.Equal(t, "1 1500\n2 1620", r.Value)
}

func TestParseRecord_Rejects(t *testing.T) {
	for _, s := range []string{"", "267", "abc 1 2", "267 x 1 2"} {
		_, ok := ParseRecord(s)
		assert.False(t, ok, "%q", s)
	}
}

func TestParseRecord_HeaderOnlyTagAndType(t *testing.T) {
	r, ok := ParseRecord("266 1")
	require.True(t, ok)
	assert.Empty(t, r.Payload)
	assert.Equal(t, "", r.Value)
}

func TestRecordRaw(t *testing.T) {
	r, ok := ParseRecord("5 1 Ponsse Opti")
	require.True(t, ok)
	raw := r.Raw()
	assert.Equal(t, "5", raw.Var)
	assert.Equal(t, "1", raw.Type)
	assert.Equal(t, "Ponsse Opti", raw.Value)
	assert.Equal(t, []string{"1", "Ponsse", "Opti"}, raw.Tokens)
}

func TestRawMatrix(t *testing.T) {
	recs := []RawRecord{
		{Var: "5", Tokens: []string{"1", "Ponsse"}},
		{Var: "266", Tokens: []string{"1", "2", "740", "760"}},
	}
	cols, rows := RawMatrix(recs)
	assert.Equal(t, []string{"5", "266"}, cols)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"1", "1"}, rows[0])
	assert.Equal(t, []string{"Ponsse", "2"}, rows[1])
	assert.Equal(t, []string{"", "760"}, rows[3])
}
