package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	DesignsDir string `json:"designs_dir" yaml:"designs_dir" toml:"designs_dir"`

	// Engine host process.
	EngineBin        string   `json:"engine_bin" yaml:"engine_bin" toml:"engine_bin"`
	EngineArgs       []string `json:"engine_args" yaml:"engine_args" toml:"engine_args"`
	StartupTimeoutMs int      `json:"startup_timeout_ms" yaml:"startup_timeout_ms" toml:"startup_timeout_ms"`

	// Quality tiers.
	PreviewTimeoutMs int `json:"preview_timeout_ms" yaml:"preview_timeout_ms" toml:"preview_timeout_ms"`
	FullTimeoutMs    int `json:"full_timeout_ms" yaml:"full_timeout_ms" toml:"full_timeout_ms"`
	PreviewMaxDetail int `json:"preview_max_detail" yaml:"preview_max_detail" toml:"preview_max_detail"`

	// Auto-preview debounce.
	DebounceMs int `json:"debounce_ms" yaml:"debounce_ms" toml:"debounce_ms"`

	// Render cache bounds.
	CacheMaxEntries int   `json:"cache_max_entries" yaml:"cache_max_entries" toml:"cache_max_entries"`
	CacheMaxBytes   int64 `json:"cache_max_bytes" yaml:"cache_max_bytes" toml:"cache_max_bytes"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
