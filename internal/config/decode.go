package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeJSON decodes a JSON-encoded Config document using the standard
// library decoder: Config's field set is fixed and non-recursive-by-key,
// so the map-key-ordering hazard internal/dynamicvalue's token-stream
// decoder exists to avoid does not apply here.
func DecodeJSON(raw []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode json: %w", err)
	}
	return &cfg, nil
}

// DecodeYAML decodes a YAML-encoded Config document, the author-facing
// format the CLI's `check`/`publish`/`generate` subcommands accept
// alongside JSON, using gopkg.in/yaml.v3 the way the teacher decodes its
// own operator manifests.
func DecodeYAML(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return &cfg, nil
}
