package pri

import (
	"strconv"
	"strings"
)

// Record tags (StanForD var numbers) that carry table structure.
const (
	TagLogHeader  = 256
	TagLogData    = 257
	TagTreeHeader = 266
	TagTreeData   = 267
)

// recordSep delimits records in a PRI file.
const recordSep = "~"

// Record is one tagged record: (var, type) followed by payload tokens.
type Record struct {
	Var     int
	Type    int
	Payload []string
	// Value is the payload as text. Data records keep their line breaks.
	Value string
}

// RawRecord is the untyped view of a record, kept for inspection.
type RawRecord struct {
	Var    string   `json:"var"`
	Type   string   `json:"type"`
	Value  string   `json:"value"`
	Tokens []string `json:"tokens"`
}

func isDataTag(tag string) bool {
	return tag == strconv.Itoa(TagLogData) || tag == strconv.Itoa(TagTreeData)
}

// lineBreaks folds CRLF, LF and bare CR line endings into spaces.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// SplitRecords splits decoded text on the record separator and cleans each
// record. Empty records are dropped. Data records (257/267) keep their
// internal newlines; all other records are folded onto one line.
func SplitRecords(text string) []string {
	parts := strings.Split(text, recordSep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !isDataTag(leadingToken(p)) {
			p = lineBreaks.Replace(p)
		}
		out = append(out, p)
	}
	return out
}

// ParseRecord extracts (var, type, payload) from a cleaned record.
// Records with fewer than two tokens or a non-numeric var/type are rejected.
func ParseRecord(s string) (Record, bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return Record{}, false
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, false
	}
	typ, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, false
	}
	return Record{
		Var:     v,
		Type:    typ,
		Payload: fields[2:],
		Value:   strings.TrimSpace(afterTokens(s, 2)),
	}, true
}

// Raw converts a record to its inspection form.
func (r Record) Raw() RawRecord {
	tokens := make([]string, 0, len(r.Payload)+1)
	tokens = append(tokens, strconv.Itoa(r.Type))
	tokens = append(tokens, r.Payload...)
	return RawRecord{
		Var:    strconv.Itoa(r.Var),
		Type:   strconv.Itoa(r.Type),
		Value:  r.Value,
		Tokens: tokens,
	}
}

func leadingToken(s string) string {
	end := strings.IndexFunc(s, isSpace)
	if end < 0 {
		return s
	}
	return s[:end]
}

// afterTokens returns what follows the first n whitespace-separated tokens.
func afterTokens(s string, n int) string {
	rest := s
	for i := 0; i < n; i++ {
		rest = strings.TrimLeftFunc(rest, isSpace)
		end := strings.IndexFunc(rest, isSpace)
		if end < 0 {
			return ""
		}
		rest = rest[end:]
	}
	return rest
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// RawMatrix lays raw records out side by side: one column per record, named
// by its var number, with tokens running down the rows. Shorter records are
// padded with empty cells. Repeated var numbers stay separate columns.
func RawMatrix(recs []RawRecord) ([]string, [][]string) {
	height := 0
	for _, r := range recs {
		height = max(height, len(r.Tokens))
	}
	cols := make([]string, len(recs))
	rows := make([][]string, height)
	for i := range rows {
		rows[i] = make([]string, len(recs))
	}
	for j, r := range recs {
		cols[j] = r.Var
		for i, tok := range r.Tokens {
			rows[i][j] = tok
		}
	}
	return cols, rows
}
