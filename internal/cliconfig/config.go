// Package cliconfig loads the desfirectl demo CLI's YAML configuration:
// strict field decoding, path resolution relative to the config file, and
// validation that reports the exact missing/invalid field.
package cliconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level desfirectl configuration document.
type Config struct {
	Runtime RuntimeConfig `yaml:"runtime"`
	Keys    KeysConfig    `yaml:"keys"`
}

// RuntimeConfig selects the reader and carries a log level. desfirectl
// reads only ReaderIndex; its log level comes from the -v flag.
type RuntimeConfig struct {
	ReaderIndex *int   `yaml:"reader_index"`
	LogLevel    string `yaml:"log_level"`
}

// KeysConfig points at the directory of .hex key files (one per slot,
// e.g. key0.hex .. key13.hex) and a default key slot. desfirectl's auth
// command takes the slot as an argument and does not read DefaultKeyNo.
type KeysConfig struct {
	Dir          string `yaml:"dir"`
	DefaultKeyNo *int   `yaml:"default_key_no"`
}

// Load reads, strictly decodes, resolves relative paths, and validates the
// config at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every field needed to drive the CLI is present and
// sane.
func (c *Config) Validate() error {
	if c.Runtime.ReaderIndex == nil {
		return fmt.Errorf("config.runtime.reader_index is required")
	}
	if *c.Runtime.ReaderIndex < 0 {
		return fmt.Errorf("config.runtime.reader_index must be >= 0")
	}

	if strings.TrimSpace(c.Keys.Dir) == "" {
		return fmt.Errorf("config.keys.dir is required")
	}
	info, err := os.Stat(c.Keys.Dir)
	if err != nil {
		return fmt.Errorf("config.keys.dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("config.keys.dir must point to a directory, got a file")
	}

	if c.Keys.DefaultKeyNo == nil {
		return fmt.Errorf("config.keys.default_key_no is required")
	}
	if *c.Keys.DefaultKeyNo < 0 || *c.Keys.DefaultKeyNo > 15 {
		return fmt.Errorf("config.keys.default_key_no must be 0..15")
	}

	return nil
}

func (c *Config) resolvePaths(configPath string) {
	configDir := filepath.Dir(configPath)
	c.Keys.Dir = resolvePath(configDir, c.Keys.Dir)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}
