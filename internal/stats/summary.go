package stats

import (
	"forestnav/internal/domain"
)

var (
	treeSummaryKeys = []domain.SemanticKey{domain.KeyDBH, domain.KeyHeight, domain.KeyVolume, domain.KeyLogCount}
	logSummaryKeys  = []domain.SemanticKey{domain.KeyLength, domain.KeyDiameterTop, domain.KeyDiameterButt}
)

// ColumnSummary is the Summary of one resolved column.
type ColumnSummary struct {
	Key    domain.SemanticKey `json:"key"`
	Column string             `json:"column"`
	Summary
}

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat domain.Value `json:"lat"`
	Lon domain.Value `json:"lon"`
}

// DatasetStats is the summary view of a dataset.
type DatasetStats struct {
	Tree []ColumnSummary `json:"treeStats"`
	Log  []ColumnSummary `json:"logStats"`
	// Center is the mean tree position, nil without decoded coordinates.
	Center *Point `json:"center,omitempty"`
}

// Summarize describes the resolved tree and log measures of ds. Keys that
// did not resolve are left out.
func Summarize(ds *domain.Dataset) DatasetStats {
	return DatasetStats{
		Tree:   describeKeys(ds, treeSummaryKeys),
		Log:    describeKeys(ds, logSummaryKeys),
		Center: center(ds.Tree),
	}
}

func describeKeys(ds *domain.Dataset, keys []domain.SemanticKey) []ColumnSummary {
	var out []ColumnSummary
	for _, k := range keys {
		ref, ok := ds.Resolution.Lookup(k)
		if !ok {
			continue
		}
		vals, _ := ds.KeyValues(k)
		out = append(out, ColumnSummary{Key: k, Column: ref.Column, Summary: Describe(vals)})
	}
	return out
}

func center(tree *domain.Table) *Point {
	if !tree.HasColumn("Latitude") && !tree.HasColumn("Longitude") {
		return nil
	}
	lat := Describe(tree.Values("Latitude")).Mean
	lon := Describe(tree.Values("Longitude")).Mean
	if !lat.Valid && !lon.Valid {
		return nil
	}
	return &Point{Lat: lat, Lon: lon}
}
