package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store defines persistence operations for settings.
type Store interface {
	Path() string
	Load() (*Config, error)
	Save(*Config) error
}

// YAMLStore persists settings in a single YAML file on disk.
type YAMLStore struct {
	path string
}

// NewYAMLStore creates a YAML-backed settings store.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Path returns the backing file path.
func (s *YAMLStore) Path() string {
	return s.path
}

// Load reads, expands, and validates the config file.
func (s *YAMLStore) Load() (*Config, error) {
	return Load(s.path)
}

// Save writes cfg as YAML and creates parent directories.
func (s *YAMLStore) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return os.WriteFile(s.path, buf.Bytes(), 0o644)
}

// Load reads and parses a YAML config file. Unknown keys are rejected and
// a leading ~ in paths is expanded to the user's home directory. The
// result is validated before it is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML config bytes.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
