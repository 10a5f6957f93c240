// Package config loads and validates podscribe's YAML settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"

	"podscribe/internal/domain"
	"podscribe/internal/media"
	"podscribe/internal/recognize"
)

// ErrMissingKey is wrapped by every missing-required-key validation error.
var ErrMissingKey = errors.New("missing required key")

// Config is the top-level configuration.
type Config struct {
	Tools       ToolsConfig        `yaml:"tools"`
	Paths       PathsConfig        `yaml:"paths"`
	Audio       domain.AudioFormat `yaml:"audio"`
	Recognition RecognitionConfig  `yaml:"recognition"`
	LogLevel    string             `yaml:"log_level,omitempty"`
}

// ToolsConfig holds executable paths or names resolved through PATH.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	Whisper string `yaml:"whisper"`
}

// PathsConfig holds the directories a run reads from and writes to.
type PathsConfig struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	WorkDir   string `yaml:"work_dir"`
}

// RecognitionConfig selects the recognition backend.
type RecognitionConfig struct {
	Backend  string `yaml:"backend"`
	Model    string `yaml:"model"`
	Language string `yaml:"language,omitempty"`
}

var logLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "podscribe")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Validate reports every missing required key and every invalid value at
// once. No default is substituted for a missing key.
func (c *Config) Validate() error {
	var errs []error
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingKey, key))
		}
	}

	require("tools.ffmpeg", c.Tools.FFmpeg)
	require("tools.whisper", c.Tools.Whisper)
	require("paths.input_dir", c.Paths.InputDir)
	require("paths.output_dir", c.Paths.OutputDir)
	require("paths.work_dir", c.Paths.WorkDir)
	require("audio.codec", c.Audio.Codec)
	if c.Audio.SampleRate == 0 {
		errs = append(errs, fmt.Errorf("%w: audio.sample_rate", ErrMissingKey))
	} else if c.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be > 0, got %d", c.Audio.SampleRate))
	}
	if c.Audio.Channels == 0 {
		errs = append(errs, fmt.Errorf("%w: audio.channels", ErrMissingKey))
	} else if c.Audio.Channels < 0 {
		errs = append(errs, fmt.Errorf("audio.channels must be > 0, got %d", c.Audio.Channels))
	}
	require("recognition.backend", c.Recognition.Backend)
	require("recognition.model", c.Recognition.Model)

	if c.Audio.Codec != "" && c.Audio.SampleRate > 0 && c.Audio.Channels > 0 {
		if err := media.ValidateFormat(c.Audio); err != nil {
			errs = append(errs, fmt.Errorf("audio: %w", err))
		}
	}
	if b := c.Recognition.Backend; b != "" && !slices.Contains(recognize.Names(), b) {
		errs = append(errs, fmt.Errorf("recognition.backend must be one of %s, got %q", strings.Join(recognize.Names(), ", "), b))
	}
	if lvl := c.LogLevel; lvl != "" && !logLevels[lvl] {
		errs = append(errs, fmt.Errorf("log_level must be one of trace, debug, info, warn, error, got %q", lvl))
	}

	return errors.Join(errs...)
}

// Level returns the configured log level, info when unset.
func (c *Config) Level() hclog.Level {
	if c.LogLevel == "" {
		return hclog.Info
	}
	return hclog.LevelFromString(c.LogLevel)
}

// expandPaths expands a leading ~ in every path-like setting.
func (c *Config) expandPaths() {
	c.Tools.FFmpeg = expandTilde(c.Tools.FFmpeg)
	c.Tools.Whisper = expandTilde(c.Tools.Whisper)
	c.Paths.InputDir = expandTilde(c.Paths.InputDir)
	c.Paths.OutputDir = expandTilde(c.Paths.OutputDir)
	c.Paths.WorkDir = expandTilde(c.Paths.WorkDir)
	c.Recognition.Model = expandTilde(c.Recognition.Model)
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
