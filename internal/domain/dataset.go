package domain

import "time"

// SemanticKey names an abstract quantity that different producer versions
// store under different column names.
type SemanticKey string

const (
	KeyDBH          SemanticKey = "dbh"
	KeyHeight       SemanticKey = "height"
	KeyVolume       SemanticKey = "volume"
	KeyLogCount     SemanticKey = "log_count"
	KeyLength       SemanticKey = "length"
	KeyDiameterTop  SemanticKey = "diameter_top"
	KeyDiameterButt SemanticKey = "diameter_butt"
	KeyTreeNumber   SemanticKey = "tree_number"
	KeyLogNumber    SemanticKey = "log_number"
	KeySpecies      SemanticKey = "species"
)

// AllKeys lists the semantic keys in display order.
var AllKeys = []SemanticKey{
	KeyDBH, KeyHeight, KeyVolume, KeyLogCount, KeyLength,
	KeyDiameterTop, KeyDiameterButt, KeyTreeNumber, KeyLogNumber, KeySpecies,
}

// ColumnRef points at a concrete column of one of the two tables.
type ColumnRef struct {
	Kind   EntityKind `json:"kind"`
	Column string     `json:"column"`
}

// Resolution maps each resolved semantic key to its column. Unresolved keys
// are simply absent from the map.
type Resolution map[SemanticKey]ColumnRef

// Lookup returns the column for key and whether it resolved.
func (r Resolution) Lookup(key SemanticKey) (ColumnRef, bool) {
	ref, ok := r[key]
	return ref, ok
}

// FileInfo is the diagnostic metadata of one parsed file.
type FileInfo struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Encoding  string `json:"encoding"`
	Software  string `json:"software,omitempty"`
	TreeCount int    `json:"treeCount"`
	LogCount  int    `json:"logCount"`
}

// Dataset is a loaded (tree, log) pair with its key resolution.
type Dataset struct {
	ID          string     `json:"id"`
	SourcePath  string     `json:"sourcePath"`
	ContentHash string     `json:"contentHash,omitempty"` // sha256 of the raw file
	Info        FileInfo   `json:"info"`
	Tree        *Table     `json:"tree"`
	Log         *Table     `json:"log"`
	Resolution  Resolution `json:"resolution"`
	Warnings    []string   `json:"warnings,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Table returns the table of the given kind.
func (d *Dataset) Table(kind EntityKind) *Table {
	if kind == EntityLog {
		return d.Log
	}
	return d.Tree
}

// KeyValues returns the numeric values behind a semantic key, or false when
// the key did not resolve for this dataset.
func (d *Dataset) KeyValues(key SemanticKey) ([]Value, bool) {
	ref, ok := d.Resolution.Lookup(key)
	if !ok {
		return nil, false
	}
	return d.Table(ref.Kind).Values(ref.Column), true
}

// KeyCells returns the text cells behind a semantic key.
func (d *Dataset) KeyCells(key SemanticKey) ([]string, bool) {
	ref, ok := d.Resolution.Lookup(key)
	if !ok {
		return nil, false
	}
	return d.Table(ref.Kind).Column(ref.Column), true
}

// DatasetSummary is the listing form of a stored dataset.
type DatasetSummary struct {
	ID         string    `json:"id"`
	SourcePath string    `json:"sourcePath"`
	Info       FileInfo  `json:"info"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DatasetStore persists parsed datasets.
type DatasetStore interface {
	SaveDataset(d *Dataset) error
	GetDataset(id string) (*Dataset, error)
	FindDatasetByHash(hash string) (*DatasetSummary, error)
	ListDatasets() ([]DatasetSummary, error)
	DeleteDataset(id string) error
}
