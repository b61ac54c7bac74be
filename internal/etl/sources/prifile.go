package sources

import (
	"context"
	"fmt"
	"sync"

	"forestnav/internal/domain"
	"forestnav/internal/etl"
	"forestnav/internal/pri"
	"forestnav/internal/schema"
)

// ── PRI File Source ────────────────────────────────────────
// Parses a harvester production file and streams one of its tables.

var (
	priMu       sync.RWMutex
	priParser   = pri.NewParser()
	priResolver = schema.NewResolver(nil)
)

// SetParser replaces the parser used by the pri_file source.
// Called by the app at startup to share its logger.
func SetParser(p *pri.Parser) {
	priMu.Lock()
	defer priMu.Unlock()
	priParser = p
}

// SetResolver replaces the schema resolver used to type the columns.
func SetResolver(r *schema.Resolver) {
	priMu.Lock()
	defer priMu.Unlock()
	priResolver = r
}

type priFileSource struct{}

func init() { etl.RegisterSource(&priFileSource{}) }

func (s *priFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "pri_file",
		Label: "PRI File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "StanForD .pri production file"},
			entityField,
		},
	}
}

var entityField = etl.ConfigField{
	Key:     "entity",
	Label:   "Table",
	Type:    "select",
	Options: []string{string(domain.EntityTree), string(domain.EntityLog)},
	Default: string(domain.EntityTree),
}

// entityOf reads the entity setting, defaulting to the tree table.
func entityOf(cfg etl.SourceConfig) (domain.EntityKind, error) {
	switch e := domain.EntityKind(cfg.String("entity")); e {
	case "":
		return domain.EntityTree, nil
	case domain.EntityTree, domain.EntityLog:
		return e, nil
	default:
		return "", fmt.Errorf("unknown entity %q (want tree or log)", e)
	}
}

func (s *priFileSource) load(cfg etl.SourceConfig) (*domain.Table, error) {
	path := cfg.String("filePath")
	if path == "" {
		return nil, fmt.Errorf("filePath is required")
	}
	kind, err := entityOf(cfg)
	if err != nil {
		return nil, err
	}

	priMu.RLock()
	parser, resolver := priParser, priResolver
	priMu.RUnlock()

	res, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	resolver.Normalize(res.Tree, res.Log)
	if kind == domain.EntityLog {
		return res.Log, nil
	}
	return res.Tree, nil
}

func (s *priFileSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	t, err := s.load(cfg)
	if err != nil {
		return nil, err
	}
	return etl.SchemaOf(t), nil
}

func (s *priFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	return etl.EmitRecords(ctx, func() ([]etl.Record, error) {
		t, err := s.load(cfg)
		if err != nil {
			return nil, err
		}
		return etl.RecordsOf(t), nil
	})
}
