// Package schema maps producer-specific column names onto a fixed set of
// semantic keys. Different harvester software versions name the same
// quantity differently; the candidate lists below absorb that variation.
package schema

import (
	"forestnav/internal/domain"
)

// Rule lists, in priority order, the column names a semantic key may take
// in one table. The first candidate present in the table wins.
type Rule struct {
	Key        domain.SemanticKey
	Kind       domain.EntityKind
	Candidates []string
	// Numeric columns are coerced once resolved.
	Numeric bool
}

// DefaultRules is the built-in resolution table. A key may appear in more
// than one rule; earlier rules take precedence.
var DefaultRules = []Rule{
	{Key: domain.KeyDBH, Kind: domain.EntityTree, Candidates: []string{"DBH", "DBH (mm)"}, Numeric: true},
	{Key: domain.KeyHeight, Kind: domain.EntityTree, Candidates: []string{"Height", "Height (dm)"}, Numeric: true},
	{Key: domain.KeyVolume, Kind: domain.EntityTree, Candidates: []string{"Volume", "Volume (dm3)", "Volume (Var161)"}, Numeric: true},
	{Key: domain.KeyLogCount, Kind: domain.EntityTree, Candidates: []string{"Log Count", "Number of Log"}, Numeric: true},
	{Key: domain.KeyTreeNumber, Kind: domain.EntityTree, Candidates: []string{"Tree Number", "Stem Number"}},
	{Key: domain.KeySpecies, Kind: domain.EntityTree, Candidates: []string{"Species", "Species Number"}},

	{Key: domain.KeyLength, Kind: domain.EntityLog, Candidates: []string{"Length (cm)", "Physical Length"}, Numeric: true},
	{Key: domain.KeyDiameterTop, Kind: domain.EntityLog, Candidates: []string{"Diameter Top (mm)", "Diameter (Top mm ob)"}, Numeric: true},
	{Key: domain.KeyDiameterButt, Kind: domain.EntityLog, Candidates: []string{"Diameter Butt (mm)", "Diameter (Root mm ob)"}, Numeric: true},
	{Key: domain.KeyTreeNumber, Kind: domain.EntityLog, Candidates: []string{"Tree Number", "Stem Number"}},
	{Key: domain.KeyLogNumber, Kind: domain.EntityLog, Candidates: []string{"Log Number", "Stem Log number"}},
}

// FirstPresent returns the first candidate that is a column of t.
func FirstPresent(t *domain.Table, candidates []string) (string, bool) {
	for _, c := range candidates {
		if t.HasColumn(c) {
			return c, true
		}
	}
	return "", false
}

// Resolver resolves semantic keys with a fixed rule set. It holds no
// per-dataset state and is safe for concurrent use.
type Resolver struct {
	rules []Rule
}

// NewResolver builds a resolver from DefaultRules. extra candidate names go
// in front of the built-in ones in the first rule of each key, so a
// configured column wins when a file carries both.
func NewResolver(extra map[domain.SemanticKey][]string) *Resolver {
	rules := make([]Rule, len(DefaultRules))
	seen := make(map[domain.SemanticKey]bool)
	for i, r := range DefaultRules {
		if seen[r.Key] {
			r.Candidates = append([]string(nil), r.Candidates...)
		} else {
			r.Candidates = append(append([]string(nil), extra[r.Key]...), r.Candidates...)
			seen[r.Key] = true
		}
		rules[i] = r
	}
	return &Resolver{rules: rules}
}

// Rules returns a copy of the resolver's rule set.
func (r *Resolver) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Resolve maps every key it can to a present column. Empty tables resolve
// nothing. The result depends only on the column sets passed in.
func (r *Resolver) Resolve(tree, log *domain.Table) domain.Resolution {
	res := make(domain.Resolution)
	for _, rule := range r.rules {
		if _, done := res[rule.Key]; done {
			continue
		}
		t := pick(rule.Kind, tree, log)
		if t.Empty() {
			continue
		}
		if col, ok := FirstPresent(t, rule.Candidates); ok {
			res[rule.Key] = domain.ColumnRef{Kind: rule.Kind, Column: col}
		}
	}
	return res
}

// Normalize resolves the keys and coerces every resolved numeric column.
func (r *Resolver) Normalize(tree, log *domain.Table) domain.Resolution {
	res := r.Resolve(tree, log)
	for _, rule := range r.rules {
		if !rule.Numeric {
			continue
		}
		ref, ok := res[rule.Key]
		if !ok || ref.Kind != rule.Kind {
			continue
		}
		t := pick(ref.Kind, tree, log)
		if !t.IsNumeric(ref.Column) {
			t.Coerce(ref.Column)
		}
	}
	return res
}

var defaultResolver = NewResolver(nil)

// Resolve resolves with the default rules.
func Resolve(tree, log *domain.Table) domain.Resolution {
	return defaultResolver.Resolve(tree, log)
}

// Normalize resolves and coerces with the default rules.
func Normalize(tree, log *domain.Table) domain.Resolution {
	return defaultResolver.Normalize(tree, log)
}

func pick(kind domain.EntityKind, tree, log *domain.Table) *domain.Table {
	if kind == domain.EntityLog {
		return log
	}
	return tree
}
