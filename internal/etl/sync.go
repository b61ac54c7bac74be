package etl

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// SyncJob is a stored export definition: which source to read, how to
// reshape its rows and which target table receives them.
type SyncJob struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	SourceType    string            `json:"sourceType"`
	SourceCfg     SourceConfig      `json:"sourceConfig"`
	Transforms    []TransformConfig `json:"transforms,omitempty"`
	Target        Target            `json:"target"`
	SyncMode      SyncMode          `json:"syncMode"`
	DedupeKey     string            `json:"dedupeKey,omitempty"`
	TriggerType   string            `json:"triggerType"`   // "manual" | "schedule" | "dataset_loaded"
	TriggerConfig string            `json:"triggerConfig"` // cron expression
	Enabled       bool              `json:"enabled"`
	LastRunAt     time.Time         `json:"lastRunAt"`
	LastStatus    string            `json:"lastStatus"` // "success" | "error" | "running" | ""
	LastError     string            `json:"lastError"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// TransformConfig names a transform and its settings as found in the
// config file or a job's stored JSON.
type TransformConfig struct {
	Type   string         `json:"type" yaml:"type"` // see transformBuilders
	Config map[string]any `json:"config" yaml:"config"`
}

// Trigger types.
const (
	TriggerManual        = "manual"
	TriggerSchedule      = "schedule"
	TriggerDatasetLoaded = "dataset_loaded"
)

// SyncResult is the outcome of running a sync job.
type SyncResult struct {
	JobID       string        `json:"jobId"`
	Status      string        `json:"status"` // "success" | "error"
	RowsRead    int           `json:"rowsRead"`
	RowsWritten int           `json:"rowsWritten"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// SyncRunLog is a historical record of a sync run.
type SyncRunLog struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Status      string    `json:"status"`
	RowsRead    int       `json:"rowsRead"`
	RowsWritten int       `json:"rowsWritten"`
	Error       string    `json:"error,omitempty"`
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs sync jobs: read from a registered source, push every row
// through the job's transform chain, then hand the survivors to Dest.
type Engine struct {
	Dest Destination
}

// RunSync executes job once. The returned result is never nil; on failure
// its Error names the stage that failed.
func (e *Engine) RunSync(ctx context.Context, job *SyncJob) (*SyncResult, error) {
	start := time.Now()
	result := &SyncResult{JobID: job.ID, Status: "error"}
	fail := func(stage string, err error) (*SyncResult, error) {
		result.Error = err.Error()
		if stage != "" {
			result.Error = stage + ": " + result.Error
		}
		result.Duration = time.Since(start)
		return result, err
	}

	source, err := GetSource(job.SourceType)
	if err != nil {
		return fail("", err)
	}
	schema, err := source.Discover(ctx, job.SourceCfg)
	if err != nil {
		return fail("discover", err)
	}

	chain := buildTransformers(job.Transforms, job.DedupeKey)
	records, read, err := collect(source.Read(ctx, job.SourceCfg), chain)
	result.RowsRead = read
	if err != nil {
		return fail("read", err)
	}
	records = ApplyBatchSort(records, chain)

	written, err := e.Dest.Write(ctx, job.Target, deriveSchemaFromRecords(records, schema), records, job.SyncMode)
	if err != nil {
		return fail("write", err)
	}

	result.Status = "success"
	result.RowsWritten = written
	result.Duration = time.Since(start)
	return result, nil
}

// collect drains a source stream through chain and reports how many rows
// were read before any filtering.
func collect(recCh <-chan Record, errCh <-chan error, chain []Transformer) ([]Record, int, error) {
	var (
		kept []Record
		read int
	)
	for rec := range recCh {
		read++
		if out, keep := ApplyTransformers(rec, chain); keep {
			kept = append(kept, out)
		}
	}
	return kept, read, <-errCh
}

// Preview reads at most maxRows untransformed rows from a source.
func (e *Engine) Preview(ctx context.Context, sourceType string, cfg SourceConfig, maxRows int) ([]Record, *Schema, error) {
	source, err := GetSource(sourceType)
	if err != nil {
		return nil, nil, err
	}
	schema, err := source.Discover(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("discover: %w", err)
	}

	// Read drains fully so the source goroutine never blocks on a full channel.
	recCh, errCh := source.Read(ctx, cfg)
	var records []Record
	for rec := range recCh {
		if len(records) < maxRows {
			records = append(records, rec)
		}
	}
	return records, schema, <-errCh
}

// transformBuilders turn one declarative TransformConfig into a
// Transformer. A nil result means the entry is incomplete and is skipped.
var transformBuilders = map[string]func(cfg map[string]any) Transformer{
	"filter": func(cfg map[string]any) Transformer {
		field, _ := cfg["field"].(string)
		op, _ := cfg["op"].(string)
		if field == "" || op == "" {
			return nil
		}
		return &FilterTransform{Field: field, Op: op, Value: cfg["value"]}
	},
	"rename": func(cfg map[string]any) Transformer {
		raw, ok := cfg["mapping"].(map[string]any)
		if !ok {
			return nil
		}
		m := make(map[string]string, len(raw))
		for k, v := range raw {
			m[k] = fmt.Sprint(v)
		}
		return &RenameTransform{Mapping: m}
	},
	"select": func(cfg map[string]any) Transformer {
		fields := stringList(cfg["fields"])
		if len(fields) == 0 {
			return nil
		}
		return &SelectTransform{Fields: fields}
	},
	"sort": func(cfg map[string]any) Transformer {
		field, _ := cfg["field"].(string)
		if field == "" {
			return nil
		}
		dir, _ := cfg["direction"].(string)
		if dir == "" {
			dir = "asc"
		}
		return &SortTransform{Field: field, Direction: dir}
	},
	"limit": func(cfg map[string]any) Transformer {
		// int from YAML, float64 from JSON.
		count, ok := toFloatSafe(cfg["count"])
		if !ok || count <= 0 {
			return nil
		}
		return NewLimitTransform(int(count))
	},
	"type_cast": func(cfg map[string]any) Transformer {
		field, _ := cfg["field"].(string)
		cast, _ := cfg["castType"].(string)
		if field == "" || cast == "" {
			return nil
		}
		return &TypeCastTransform{Field: field, CastType: cast}
	},
	"scale": func(cfg map[string]any) Transformer {
		field, _ := cfg["field"].(string)
		factor, ok := toFloatSafe(cfg["factor"])
		if field == "" || !ok {
			return nil
		}
		digits, _ := toFloatSafe(cfg["digits"])
		as, _ := cfg["as"].(string)
		return &ScaleTransform{Field: field, Factor: factor, Digits: int(digits), As: as}
	},
}

// buildTransformers instantiates configs in order. A dedupe on dedupeKey,
// when set, always closes the chain.
func buildTransformers(configs []TransformConfig, dedupeKey string) []Transformer {
	var ts []Transformer
	for _, tc := range configs {
		build, ok := transformBuilders[tc.Type]
		if !ok {
			continue
		}
		if t := build(tc.Config); t != nil {
			ts = append(ts, t)
		}
	}
	if dedupeKey != "" {
		ts = append(ts, NewDedupeTransform(dedupeKey))
	}
	return ts
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, f := range list {
			out = append(out, fmt.Sprint(f))
		}
		return out
	default:
		return nil
	}
}

// deriveSchemaFromRecords builds a schema from the actual keys present in transformed records.
// Fields keep the source schema's order and type; fields the transforms
// introduced follow in name order as text unless every value is a number.
func deriveSchemaFromRecords(records []Record, sourceSchema *Schema) *Schema {
	if len(records) == 0 {
		return sourceSchema
	}

	present := make(map[string]bool)
	for _, r := range records {
		for k := range r.Data {
			present[k] = true
		}
	}

	fields := make([]Field, 0, len(present))
	known := make(map[string]bool)
	if sourceSchema != nil {
		for _, f := range sourceSchema.Fields {
			known[f.Name] = true
			if present[f.Name] {
				fields = append(fields, f)
			}
		}
	}

	var extra []string
	for k := range present {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		fields = append(fields, Field{Name: name, Type: inferFieldType(records, name)})
	}

	return &Schema{Fields: fields}
}

func inferFieldType(records []Record, name string) string {
	typ := ""
	for _, r := range records {
		switch r.Data[name].(type) {
		case nil:
			continue
		case float64, int, int64:
			if typ == "" {
				typ = FieldNumber
			}
		case bool:
			if typ == "" {
				typ = FieldBool
			}
		default:
			return FieldText
		}
	}
	if typ == "" {
		return FieldText
	}
	return typ
}
