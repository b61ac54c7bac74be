package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"forestnav/internal/domain"
	"forestnav/internal/stats"
)

// DefaultPath is where the CLI looks for its configuration.
const DefaultPath = "forestnav.yaml"

// DefaultTarget names the export target filled from FORESTNAV_EXPORT_DSN.
const DefaultTarget = "default"

// Config holds all forestnav configuration.
type Config struct {
	// Local dataset store
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Histogram defaults for the stats commands
	Histogram HistogramConfig `yaml:"histogram"`

	// Extra column candidates per semantic key
	Schema SchemaConfig `yaml:"schema"`

	// Inbox watcher
	Watch WatchConfig `yaml:"watch"`

	// Export targets by name, and the jobs that write to them
	Targets map[string]TargetConfig `yaml:"targets"`
	Jobs    []JobConfig             `yaml:"jobs"`
}

// StorageConfig configures the sqlite dataset store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // empty means stderr
}

// HistogramConfig holds histogram defaults. Start, End and Width are free
// text, parsed the same way as the command-line overrides.
type HistogramConfig struct {
	Bins  int    `yaml:"bins"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Width string `yaml:"width"`
}

// SchemaConfig adds column candidates to the built-in resolution rules.
type SchemaConfig struct {
	Candidates map[string][]string `yaml:"candidates"` // semantic key -> column names
}

// WatchConfig configures the inbox watcher.
type WatchConfig struct {
	Inbox    string `yaml:"inbox"`
	Pattern  string `yaml:"pattern"`  // glob matched against file names
	Debounce string `yaml:"debounce"` // quiet period before a changed file is ingested
	Schedule string `yaml:"schedule"` // optional cron expression for a full inbox rescan
}

// TargetConfig describes an export target.
type TargetConfig struct {
	Driver   string            `yaml:"driver"` // sqlite, postgres, mysql, mongodb, csv
	Host     string            `yaml:"host,omitempty"`
	Port     int               `yaml:"port,omitempty"`
	Database string            `yaml:"database,omitempty"`
	Username string            `yaml:"username,omitempty"`
	Password string            `yaml:"password,omitempty"`
	SSLMode  string            `yaml:"ssl_mode,omitempty"`
	DSN      string            `yaml:"dsn,omitempty"`
	Options  map[string]string `yaml:"options,omitempty"`
}

// TransformConfig is one step of a job's transform chain.
type TransformConfig struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// JobConfig declares an export job.
type JobConfig struct {
	Name         string            `yaml:"name"`
	Source       string            `yaml:"source"` // pri_file, dataset
	SourceConfig map[string]any    `yaml:"source_config"`
	Transforms   []TransformConfig `yaml:"transforms"`
	Target       string            `yaml:"target"`
	Table        string            `yaml:"table"`
	Mode         string            `yaml:"mode"` // replace, append
	DedupeKey    string            `yaml:"dedupe_key"`
	Trigger      string            `yaml:"trigger"`  // manual, schedule, dataset_loaded
	Schedule     string            `yaml:"schedule"` // cron expression when trigger is schedule
	Disabled     bool              `yaml:"disabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: "data/forestnav.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Histogram: HistogramConfig{
			Bins: stats.DefaultBins,
		},
		Watch: WatchConfig{
			Pattern:  "*.pri",
			Debounce: "500ms",
		},
		Targets: map[string]TargetConfig{},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults, still subject to the environment
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Targets == nil {
		cfg.Targets = map[string]TargetConfig{}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("FORESTNAV_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if dir := os.Getenv("FORESTNAV_INBOX"); dir != "" {
		c.Watch.Inbox = dir
	}
	if level := os.Getenv("FORESTNAV_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	// Export DSN fills the default target, guessing the driver from its form
	if dsn := os.Getenv("FORESTNAV_EXPORT_DSN"); dsn != "" {
		if c.Targets == nil {
			c.Targets = map[string]TargetConfig{}
		}
		t := c.Targets[DefaultTarget]
		t.DSN = dsn
		if driver := driverFromDSN(dsn); driver != "" {
			t.Driver = driver
		}
		c.Targets[DefaultTarget] = t
	}
}

func driverFromDSN(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return string(domain.DatabaseDriverPostgres)
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return string(domain.DatabaseDriverMongoDB)
	case strings.Contains(dsn, "@tcp("):
		return string(domain.DatabaseDriverMySQL)
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return string(domain.DatabaseDriverSQLite)
	default:
		return ""
	}
}

// GetWatchDebounce returns the watcher debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// BinParams returns the configured histogram overrides. The explicit bin
// count applies when the width does not set one.
func (c *Config) BinParams() stats.BinParams {
	p := stats.ParseBinParams(c.Histogram.Start, c.Histogram.End, c.Histogram.Width)
	if p.Bins == 0 && c.Histogram.Bins > 0 {
		p.Bins = c.Histogram.Bins
	}
	return p
}

// SchemaCandidates returns the extra column candidates keyed by semantic key.
func (c *Config) SchemaCandidates() map[domain.SemanticKey][]string {
	if len(c.Schema.Candidates) == 0 {
		return nil
	}
	out := make(map[domain.SemanticKey][]string, len(c.Schema.Candidates))
	for k, v := range c.Schema.Candidates {
		out[domain.SemanticKey(k)] = v
	}
	return out
}

// ExportTarget converts the named target to its connection form.
func (c *Config) ExportTarget(name string) (*domain.ExportTarget, string, error) {
	t, ok := c.Targets[name]
	if !ok {
		return nil, "", fmt.Errorf("unknown export target: %q", name)
	}
	return &domain.ExportTarget{
		Name:     name,
		Driver:   domain.DatabaseDriver(t.Driver),
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.Username,
		SSLMode:  t.SSLMode,
		DSN:      t.DSN,
		Options:  t.Options,
	}, t.Password, nil
}

// Job returns the job with the given name.
func (c *Config) Job(name string) (JobConfig, bool) {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobConfig{}, false
}

// Valid option values.
var (
	ValidLevels   = []string{"debug", "info", "warn", "error"}
	ValidFormats  = []string{"json", "text"}
	ValidDrivers  = []string{"sqlite", "postgres", "mysql", "mongodb", "csv"}
	ValidModes    = []string{"", "replace", "append"}
	ValidTriggers = []string{"", "manual", "schedule", "dataset_loaded"}
)

// Validate validates the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if !oneOf(c.Logging.Level, ValidLevels) {
		errs = append(errs, fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels))
	}
	if !oneOf(c.Logging.Format, ValidFormats) {
		errs = append(errs, fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidFormats))
	}
	if c.Histogram.Bins < 0 || c.Histogram.Bins > stats.MaxBins {
		errs = append(errs, fmt.Errorf("histogram bins must be between 0 and %d", stats.MaxBins))
	}
	if c.Watch.Pattern != "" {
		if _, err := filepath.Match(c.Watch.Pattern, "x"); err != nil {
			errs = append(errs, fmt.Errorf("watch pattern %q: %w", c.Watch.Pattern, err))
		}
	}
	if c.Watch.Schedule != "" {
		if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("watch schedule: %w", err))
		}
	}

	for name, t := range c.Targets {
		if !oneOf(t.Driver, ValidDrivers) {
			errs = append(errs, fmt.Errorf("target %s: invalid driver %q (valid: %v)", name, t.Driver, ValidDrivers))
		}
	}

	seen := make(map[string]bool)
	for i, j := range c.Jobs {
		label := j.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			errs = append(errs, fmt.Errorf("job %s: name required", label))
		} else if seen[j.Name] {
			errs = append(errs, fmt.Errorf("job %s: duplicate name", label))
		}
		seen[j.Name] = true

		if j.Source == "" {
			errs = append(errs, fmt.Errorf("job %s: source required", label))
		}
		if _, ok := c.Targets[j.Target]; !ok {
			errs = append(errs, fmt.Errorf("job %s: unknown target %q", label, j.Target))
		}
		if j.Table == "" {
			errs = append(errs, fmt.Errorf("job %s: table required", label))
		}
		if !oneOf(j.Mode, ValidModes) {
			errs = append(errs, fmt.Errorf("job %s: invalid mode %q", label, j.Mode))
		}
		if !oneOf(j.Trigger, ValidTriggers) {
			errs = append(errs, fmt.Errorf("job %s: invalid trigger %q", label, j.Trigger))
		}
		if j.Trigger == "schedule" {
			if _, err := cron.ParseStandard(j.Schedule); err != nil {
				errs = append(errs, fmt.Errorf("job %s: schedule: %w", label, err))
			}
		}
	}

	return errors.Join(errs...)
}

func oneOf(v string, valid []string) bool {
	for _, s := range valid {
		if v == s {
			return true
		}
	}
	return false
}
