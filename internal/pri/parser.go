package pri

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"forestnav/internal/domain"
)

// ErrParseFailed is returned when a parse aborts on an unexpected failure.
// No partial result accompanies it.
var ErrParseFailed = errors.New("pri: parse failed")

// softwareVar is the StanForD var carrying the producing software name.
const softwareVar = 5

// Result is the outcome of parsing one PRI file.
type Result struct {
	Info domain.FileInfo
	Tree *domain.Table
	Log  *domain.Table
	// Raw holds every well-formed record when WithRawRecords is set.
	Raw []RawRecord
	// Warnings lists structural oddities that did not stop the parse.
	Warnings []string
}

// Parser turns PRI bytes into tree and log tables. A Parser only holds
// configuration; all accumulation state lives in a per-call session, so one
// Parser may be used from several goroutines at once.
type Parser struct {
	logger   *zap.Logger
	progress ProgressFunc
	keepRaw  bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithProgress installs a progress sink.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Parser) { p.progress = fn }
}

// WithRawRecords keeps the raw record list in the result.
func WithRawRecords() Option {
	return func(p *Parser) { p.keepRaw = true }
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ParseFile reads and parses the file at path.
func (p *Parser) ParseFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pri file: %w", err)
	}
	return p.Parse(data, filepath.Base(path))
}

// Parse decodes raw and rebuilds the tree and log tables. name is only
// used for diagnostics.
func (p *Parser) Parse(raw []byte, name string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pri parse aborted", zap.String("file", name), zap.Any("panic", r))
			res, err = nil, fmt.Errorf("%w: %s: %v", ErrParseFailed, name, r)
		}
	}()

	text, enc := Decode(raw)
	records := SplitRecords(text)

	s := &session{keepRaw: p.keepRaw}
	prog := newProgressTracker(p.progress, len(records))
	prog.emit(0)
	for i, rec := range records {
		prog.step(i)
		r, ok := ParseRecord(rec)
		if !ok {
			continue
		}
		s.consume(r)
	}
	prog.emit(100)

	res = &Result{
		Tree:     s.table(domain.EntityTree),
		Log:      s.table(domain.EntityLog),
		Raw:      s.raw,
		Warnings: s.warnings(),
	}
	DecodeCoordinates(res.Tree)
	CoerceNumeric(res.Tree)
	CoerceNumeric(res.Log)

	res.Info = domain.FileInfo{
		Name:      name,
		Size:      int64(len(raw)),
		Encoding:  enc,
		Software:  s.software,
		TreeCount: res.Tree.Len(),
		LogCount:  res.Log.Len(),
	}
	for _, w := range res.Warnings {
		p.logger.Warn("pri structure", zap.String("file", name), zap.String("warning", w))
	}
	p.logger.Debug("pri parsed",
		zap.String("file", name),
		zap.String("encoding", enc),
		zap.Int("records", len(records)),
		zap.Int("trees", res.Info.TreeCount),
		zap.Int("logs", res.Info.LogCount))
	return res, nil
}

// ── Parse session ──────────────────────────────────────────

// session holds the accumulation buffers of a single parse.
type session struct {
	treeHeader, logHeader []string
	treeData, logData     []string

	// header tags seen, and whether a later header changed the layout
	treeHeaders, logHeaders         int
	treeHeaderMoved, logHeaderMoved bool

	software string
	keepRaw  bool
	raw      []RawRecord
}

func (s *session) consume(r Record) {
	if s.keepRaw {
		s.raw = append(s.raw, r.Raw())
	}
	switch r.Var {
	case TagLogHeader:
		s.logHeaders++
		if s.logHeaders > 1 && !slices.Equal(s.logHeader, r.Payload) {
			s.logHeaderMoved = true
		}
		s.logHeader = r.Payload
	case TagLogData:
		s.logData = append(s.logData, r.Payload...)
	case TagTreeHeader:
		s.treeHeaders++
		if s.treeHeaders > 1 && !slices.Equal(s.treeHeader, r.Payload) {
			s.treeHeaderMoved = true
		}
		s.treeHeader = r.Payload
	case TagTreeData:
		s.treeData = append(s.treeData, r.Payload...)
	case softwareVar:
		if s.software == "" {
			s.software = r.Value
		}
	}
}

// table builds the table of one kind. Without a header the builder is not
// invoked and the table is empty.
func (s *session) table(kind domain.EntityKind) *domain.Table {
	header, data := s.treeHeader, s.treeData
	if kind == domain.EntityLog {
		header, data = s.logHeader, s.logData
	}
	if len(header) == 0 {
		return domain.NewTable(kind, nil)
	}
	t := domain.NewTable(kind, MapHeader(kind, header))
	t.Rows = BuildTable(t.Columns, data)
	return t
}

// warnings reports header layouts that changed mid-file. The last header is
// applied to all data of its kind, so data written under an earlier header
// of a different width is split at the wrong boundaries.
func (s *session) warnings() []string {
	var out []string
	if s.treeHeaderMoved {
		out = append(out, headerWarning(domain.EntityTree, TagTreeHeader, s.treeHeaders, len(s.treeHeader)))
	}
	if s.logHeaderMoved {
		out = append(out, headerWarning(domain.EntityLog, TagLogHeader, s.logHeaders, len(s.logHeader)))
	}
	return out
}

func headerWarning(kind domain.EntityKind, tag, n, width int) string {
	return fmt.Sprintf("%s: %d differing header records (tag %d); all %s data partitioned by the last header (%d columns)",
		kind, n, tag, kind, width)
}
