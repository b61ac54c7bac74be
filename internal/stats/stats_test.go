package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forestnav/internal/domain"
)

func values(xs ...float64) []domain.Value {
	out := make([]domain.Value, len(xs))
	for i, x := range xs {
		out[i] = domain.Some(x)
	}
	return out
}

func counts(buckets []Bucket) []int {
	out := make([]int, len(buckets))
	for i, b := range buckets {
		out[i] = b.Count
	}
	return out
}

// ── Histogram ──────────────────────────────────────────────

func TestHistogram_ObservedRange(t *testing.T) {
	h := Histogram(values(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10), 5, nil)
	require.Len(t, h, 5)
	assert.Equal(t, []int{2, 2, 2, 2, 3}, counts(h), "last bin takes its upper edge")
	assert.Equal(t, Bucket{Start: 0, End: 2, Count: 2}, h[0])
	assert.Equal(t, 10.0, h[4].End)
}

func TestHistogram_ExplicitRangeDropsOutside(t *testing.T) {
	h := Histogram(values(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10), 2, &Range{Min: 2, Max: 6})
	assert.Equal(t, []int{2, 3}, counts(h))
	assert.Equal(t, 5, Total(h))
}

func TestHistogram_MissingExcluded(t *testing.T) {
	vals := append(values(1, 2, 3), domain.Missing, domain.Missing)
	h := Histogram(vals, 3, nil)
	assert.Equal(t, 3, Total(h))
}

func TestHistogram_DefaultBins(t *testing.T) {
	h := Histogram(values(1, 2, 3), 0, nil)
	assert.Len(t, h, DefaultBins)
}

func TestHistogram_SingleValueWidens(t *testing.T) {
	h := Histogram(values(5, 5), 2, nil)
	require.Len(t, h, 2)
	assert.Equal(t, Bucket{Start: 4.5, End: 5, Count: 0}, h[0])
	assert.Equal(t, Bucket{Start: 5, End: 5.5, Count: 2}, h[1])
}

func TestHistogram_EdgesRounded(t *testing.T) {
	h := Histogram(values(0, 1), 3, nil)
	assert.Equal(t, []float64{0, 0.33, 0.67}, []float64{h[0].Start, h[1].Start, h[2].Start})
	assert.Equal(t, 1.0, h[2].End)
}

func TestHistogram_NothingToBin(t *testing.T) {
	assert.Nil(t, Histogram(nil, 5, nil))
	assert.Nil(t, Histogram([]domain.Value{domain.Missing}, 5, nil))
	assert.Nil(t, Histogram(values(1), 5, &Range{Min: 3, Max: 1}))

	h := Histogram(nil, 4, &Range{Min: 0, Max: 4})
	assert.Equal(t, []int{0, 0, 0, 0}, counts(h))
}

func TestHistogram_CountsSumToValuesInRange(t *testing.T) {
	vals := values(0.1, 0.2, 0.3, 0.7, 1.1, 2.9, 3.0, 3.3, 7.5, -1)
	rng := &Range{Min: 0.2, Max: 3.0}
	for bins := 1; bins <= 17; bins++ {
		assert.Equal(t, 6, Total(Histogram(vals, bins, rng)), "bins=%d", bins)
	}
}

// ── Bin parameters ─────────────────────────────────────────

func TestResolveBins(t *testing.T) {
	assert.Equal(t, 7, ResolveBins(7.4, nil))
	assert.Equal(t, 8, ResolveBins(7.5, nil))
	assert.Equal(t, 1, ResolveBins(0.2, nil))
	assert.Equal(t, 10, ResolveBins(10, &Range{Min: 0, Max: 95}))
	assert.Equal(t, 1, ResolveBins(500, &Range{Min: 0, Max: 100}))
}

func TestParseBinParams(t *testing.T) {
	tests := []struct {
		name             string
		start, end, wide string
		want             BinParams
	}{
		{"nothing", "", "", "", BinParams{}},
		{"range and width", "0", "100", "10", BinParams{Range: &Range{Min: 0, Max: 100}, Bins: 10}},
		{"width only", "", "", " 12 ", BinParams{Bins: 12}},
		{"inverted range ignored", "100", "0", "10", BinParams{Bins: 10}},
		{"equal bounds ignored", "5", "5", "", BinParams{}},
		{"half range ignored", "5", "", "", BinParams{}},
		{"negative width ignored", "0", "10", "-3", BinParams{Range: &Range{Min: 0, Max: 10}}},
		{"garbage discards all", "a", "100", "5", BinParams{}},
		{"garbage width discards all", "0", "100", "wide", BinParams{}},
		{"nan discards all", "NaN", "1", "", BinParams{}},
		{"huge count ignored", "", "", "1e15", BinParams{}},
		{"tiny width ignored", "0", "1000", "1e-12", BinParams{Range: &Range{Min: 0, Max: 1000}}},
		{"count at cap kept", "0", "1000", "0.1", BinParams{Range: &Range{Min: 0, Max: 1000}, Bins: MaxBins}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBinParams(tt.start, tt.end, tt.wide))
		})
	}
}

func TestResolveBins_Bounds(t *testing.T) {
	rng := &Range{Min: 0, Max: 100}
	assert.Equal(t, 1, ResolveBins(0, rng))
	assert.Equal(t, 1, ResolveBins(-5, rng))
	assert.Equal(t, 1, ResolveBins(0, nil))
	assert.Equal(t, MaxBins, ResolveBins(1e-12, rng))
	assert.Equal(t, MaxBins, ResolveBins(1e15, nil))
	assert.Equal(t, 10, ResolveBins(10, rng))
}

func TestHistogram_ClampsBins(t *testing.T) {
	h := Histogram(values(1, 2), 1e9, nil)
	assert.Len(t, h, MaxBins)
}

func TestBinsOr(t *testing.T) {
	assert.Equal(t, 20, BinParams{}.BinsOr(20))
	assert.Equal(t, 4, BinParams{Bins: 4}.BinsOr(20))
}

// ── Describe ───────────────────────────────────────────────

func TestDescribe(t *testing.T) {
	s := Describe(append(values(4, 1, 3, 2), domain.Missing))
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, domain.Some(2.5), s.Mean)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std.V, 1e-12)
	assert.Equal(t, domain.Some(1), s.Min)
	assert.Equal(t, domain.Some(1.75), s.Q1)
	assert.Equal(t, domain.Some(2.5), s.Median)
	assert.Equal(t, domain.Some(3.25), s.Q3)
	assert.Equal(t, domain.Some(4), s.Max)
}

func TestDescribe_SmallSamples(t *testing.T) {
	empty := Describe(nil)
	assert.Equal(t, Summary{}, empty)

	one := Describe(values(7))
	assert.Equal(t, 1, one.Count)
	assert.Equal(t, domain.Some(7), one.Median)
	assert.False(t, one.Std.Valid)
}

// ── Dataset views ──────────────────────────────────────────

func sampleDataset() *domain.Dataset {
	tree := domain.NewTable(domain.EntityTree, []string{"Species Number", "DBH (mm)", "Volume (m3)", "Latitude", "Longitude"})
	tree.Rows = [][]string{
		{"1", "150", "0.21", "60.00000", "24.00000"},
		{"2", "250", "0.35", "60.00002", "24.00004"},
		{"1", "", "x", "", ""},
		{"1", "350", "0.50", "", ""},
	}
	log := domain.NewTable(domain.EntityLog, []string{"Length (cm)", "Diameter (Top mm ob)", "Diameter (Root mm ob)"})
	log.Rows = [][]string{
		{"410", "100", "200"},
		{"380", "150", "300"},
	}
	return &domain.Dataset{
		Tree: tree,
		Log:  log,
		Resolution: domain.Resolution{
			domain.KeyDBH:          {Kind: domain.EntityTree, Column: "DBH (mm)"},
			domain.KeySpecies:      {Kind: domain.EntityTree, Column: "Species Number"},
			domain.KeyLength:       {Kind: domain.EntityLog, Column: "Length (cm)"},
			domain.KeyDiameterTop:  {Kind: domain.EntityLog, Column: "Diameter (Top mm ob)"},
			domain.KeyDiameterButt: {Kind: domain.EntityLog, Column: "Diameter (Root mm ob)"},
		},
	}
}

func TestDistribute(t *testing.T) {
	ds := sampleDataset()

	d, err := Distribute(ds, "dbh", BinParams{Bins: 2})
	require.NoError(t, err)
	assert.Equal(t, "DBH (mm)", d.Column)
	assert.Equal(t, 3, d.Count)
	assert.Equal(t, []int{1, 2}, counts(d.Bins))

	d, err = Distribute(ds, "volume_m3", BinParams{Range: &Range{Min: 0, Max: 1}, Bins: 4})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 0}, counts(d.Bins))
}

func TestDistribute_Errors(t *testing.T) {
	ds := sampleDataset()

	_, err := Distribute(ds, "girth", BinParams{})
	assert.ErrorIs(t, err, ErrUnknownDistribution)

	_, err = Distribute(ds, "volume", BinParams{})
	assert.ErrorIs(t, err, ErrNoData, "volume did not resolve")

	_, err = Distribute(ds, "diameter_ub_mid", BinParams{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLogDiameter_SharedRange(t *testing.T) {
	rows, err := LogDiameter(sampleDataset(), BinParams{Range: &Range{Min: 100, Max: 300}, Bins: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 100.0, rows[0].Start)
	assert.Equal(t, 2, *rows[0].Top)
	assert.Equal(t, 0, *rows[0].Butt)
	assert.Equal(t, 0, *rows[1].Top)
	assert.Equal(t, 2, *rows[1].Butt)
}

func TestLogDiameter_OwnRangesAreJoined(t *testing.T) {
	rows, err := LogDiameter(sampleDataset(), BinParams{Bins: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, DiameterBucket{Start: 100, End: 150, Top: ptr(2)}, rows[0])
	assert.Equal(t, DiameterBucket{Start: 200, End: 300, Butt: ptr(2)}, rows[1])
}

func ptr(n int) *int { return &n }

func TestValueCounts(t *testing.T) {
	got := ValueCounts([]string{"2", "1", "", "3", "1", " 2 ", "1"})
	assert.Equal(t, []ValueCount{{"1", 3}, {"2", 2}, {"3", 1}}, got)
	assert.Empty(t, ValueCounts([]string{"", " "}))
}

func TestSpecies(t *testing.T) {
	got, err := Species(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{{"1", 3}, {"2", 1}}, got)

	_, err = Species(&domain.Dataset{Resolution: domain.Resolution{}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSummarize(t *testing.T) {
	st := Summarize(sampleDataset())

	require.Len(t, st.Tree, 1)
	assert.Equal(t, domain.KeyDBH, st.Tree[0].Key)
	assert.Equal(t, 3, st.Tree[0].Count)
	assert.Equal(t, domain.Some(250), st.Tree[0].Mean)

	require.Len(t, st.Log, 3)
	assert.Equal(t, []domain.SemanticKey{domain.KeyLength, domain.KeyDiameterTop, domain.KeyDiameterButt},
		[]domain.SemanticKey{st.Log[0].Key, st.Log[1].Key, st.Log[2].Key})

	require.NotNil(t, st.Center)
	assert.InDelta(t, 60.00001, st.Center.Lat.V, 1e-9)
	assert.InDelta(t, 24.00002, st.Center.Lon.V, 1e-9)
}
