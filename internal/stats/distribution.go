package stats

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"forestnav/internal/domain"
)

var (
	// ErrUnknownDistribution is returned for a name not in the catalogue.
	ErrUnknownDistribution = errors.New("unknown distribution")
	// ErrNoData means the dataset lacks the column or has no present values.
	ErrNoData = errors.New("no data for distribution")
)

// Distribution is a named histogram over one dataset column.
type Distribution struct {
	Name   string   `json:"name"`
	Title  string   `json:"title"`
	Column string   `json:"column"`
	Unit   string   `json:"unit"`
	Count  int      `json:"count"`
	Bins   []Bucket `json:"bins"`
}

// source locates the values of a distribution inside a dataset.
type source struct {
	key  domain.SemanticKey
	kind domain.EntityKind
	col  string
}

func (s source) values(ds *domain.Dataset) (string, []domain.Value, bool) {
	if s.key != "" {
		ref, ok := ds.Resolution.Lookup(s.key)
		if !ok {
			return "", nil, false
		}
		vals, _ := ds.KeyValues(s.key)
		return ref.Column, vals, true
	}
	t := ds.Table(s.kind)
	if !t.HasColumn(s.col) {
		return "", nil, false
	}
	return s.col, t.Values(s.col), true
}

type catalogEntry struct {
	name, title, unit string
	src               source
}

// catalog is kept in listing order.
var catalog = []catalogEntry{
	{"dbh", "Tree Diameter (DBH) Distribution", "mm", source{key: domain.KeyDBH}},
	{"volume", "Tree Volume Distribution", "dm3", source{key: domain.KeyVolume}},
	{"volume_m3", "Tree Volume Distribution (m3)", "m3", source{kind: domain.EntityTree, col: "Volume (m3)"}},
	{"volume_dl", "Tree Volume Distribution (dl)", "dl", source{kind: domain.EntityTree, col: "Volume (dm3)"}},
	{"log_length", "Log Length Distribution", "cm", source{key: domain.KeyLength}},
	{"diameter_ob_top", "Log Diameter ob Top Distribution", "mm", source{kind: domain.EntityLog, col: "Diameter (Top mm ob)"}},
	{"diameter_ob_mid", "Log Diameter ob Mid Distribution", "mm", source{kind: domain.EntityLog, col: "Diameter (Mid mm ob)"}},
	{"diameter_ub_top", "Log Diameter ub Top Distribution", "mm", source{kind: domain.EntityLog, col: "Diameter (Top mm ub)"}},
	{"diameter_ub_mid", "Log Diameter ub Mid Distribution", "mm", source{kind: domain.EntityLog, col: "Diameter (Mid mm ub)"}},
}

// DistributionNames lists the single-column distributions. The merged log
// diameter and species views have their own functions.
func DistributionNames() []string {
	names := make([]string, len(catalog))
	for i, e := range catalog {
		names[i] = e.name
	}
	return names
}

// Distribute bins the named distribution of ds with the given overrides.
// A zero BinParams gives DefaultBins over the observed range.
func Distribute(ds *domain.Dataset, name string, p BinParams) (*Distribution, error) {
	i := slices.IndexFunc(catalog, func(e catalogEntry) bool { return e.name == name })
	if i < 0 {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownDistribution, name, strings.Join(DistributionNames(), ", "))
	}
	e := catalog[i]

	col, vals, ok := e.src.values(ds)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNoData)
	}
	n := len(domain.Present(vals))
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoData)
	}
	return &Distribution{
		Name:   e.name,
		Title:  e.title,
		Column: col,
		Unit:   e.unit,
		Count:  n,
		Bins:   Histogram(vals, p.BinsOr(DefaultBins), p.Range),
	}, nil
}

// ── Log diameter (top and butt merged) ─────────────────────

// DiameterBucket is one row of the merged top/butt diameter histogram.
// A side is nil when its histogram has no bin with these edges.
type DiameterBucket struct {
	Start float64 `json:"binStart"`
	End   float64 `json:"binEnd"`
	Top   *int    `json:"topCount"`
	Butt  *int    `json:"buttCount"`
}

// LogDiameter bins top and butt diameters separately with the same
// settings and joins the two histograms on their edges. With an explicit
// range both sides share edges; without one each side spans its own data
// and the join keeps every edge pair of either side, ordered by edges.
func LogDiameter(ds *domain.Dataset, p BinParams) ([]DiameterBucket, error) {
	top, okTop := ds.KeyValues(domain.KeyDiameterTop)
	butt, okButt := ds.KeyValues(domain.KeyDiameterButt)
	if !okTop || !okButt {
		return nil, fmt.Errorf("log_diameter: %w", ErrNoData)
	}
	if len(domain.Present(top)) == 0 && len(domain.Present(butt)) == 0 {
		return nil, fmt.Errorf("log_diameter: %w", ErrNoData)
	}
	bins := p.BinsOr(DefaultBins)
	return mergeOnEdges(Histogram(top, bins, p.Range), Histogram(butt, bins, p.Range)), nil
}

func mergeOnEdges(top, butt []Bucket) []DiameterBucket {
	type edge struct{ start, end float64 }
	rows := make(map[edge]*DiameterBucket)
	var order []edge
	add := func(buckets []Bucket, set func(*DiameterBucket, *int)) {
		for _, b := range buckets {
			k := edge{b.Start, b.End}
			row, ok := rows[k]
			if !ok {
				row = &DiameterBucket{Start: b.Start, End: b.End}
				rows[k] = row
				order = append(order, k)
			}
			c := b.Count
			set(row, &c)
		}
	}
	add(top, func(r *DiameterBucket, c *int) { r.Top = c })
	add(butt, func(r *DiameterBucket, c *int) { r.Butt = c })

	slices.SortStableFunc(order, func(a, b edge) int {
		if a.start != b.start {
			return cmpFloat(a.start, b.start)
		}
		return cmpFloat(a.end, b.end)
	})
	out := make([]DiameterBucket, len(order))
	for i, k := range order {
		out[i] = *rows[k]
	}
	return out
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ── Species ────────────────────────────────────────────────

// ValueCount is one distinct value and how often it occurs.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts tallies non-empty cells, most frequent first. Ties keep the
// order of first appearance.
func ValueCounts(cells []string) []ValueCount {
	idx := make(map[string]int)
	var out []ValueCount
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if i, ok := idx[c]; ok {
			out[i].Count++
			continue
		}
		idx[c] = len(out)
		out = append(out, ValueCount{Value: c, Count: 1})
	}
	slices.SortStableFunc(out, func(a, b ValueCount) int { return b.Count - a.Count })
	return out
}

// Species counts trees per species code.
func Species(ds *domain.Dataset) ([]ValueCount, error) {
	cells, ok := ds.KeyCells(domain.KeySpecies)
	if !ok {
		return nil, fmt.Errorf("species: %w", ErrNoData)
	}
	counts := ValueCounts(cells)
	if len(counts) == 0 {
		return nil, fmt.Errorf("species: %w", ErrNoData)
	}
	return counts, nil
}
