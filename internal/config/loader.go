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

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr           string `json:"addr" yaml:"addr" toml:"addr"`
	ModelPath      string `json:"model_path" yaml:"model_path" toml:"model_path"`
	CtxSize        int    `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads        int    `json:"threads" yaml:"threads" toml:"threads"`
	RemoteURL      string `json:"remote_url" yaml:"remote_url" toml:"remote_url"`
	RemoteModel    string `json:"remote_model" yaml:"remote_model" toml:"remote_model"`
	DefaultBackend string `json:"default_backend" yaml:"default_backend" toml:"default_backend"`
	HistoryLimit   int    `json:"history_limit" yaml:"history_limit" toml:"history_limit"`
	LogLevel       string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat      string `json:"log_format" yaml:"log_format" toml:"log_format"`
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
