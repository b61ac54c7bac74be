package mcpserver

import (
	"encoding/json"
	"fmt"

	"forestnav/internal/etl"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// sourceConfigArg reads a source configuration that may arrive as a JSON
// string or as a JSON object.
func sourceConfigArg(args map[string]any, key string) (etl.SourceConfig, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var cfg etl.SourceConfig
		if err := parseJSON(v, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		return cfg, nil
	case map[string]any:
		return etl.SourceConfig(v), nil
	default:
		return nil, fmt.Errorf("%s must be a JSON object", key)
	}
}
