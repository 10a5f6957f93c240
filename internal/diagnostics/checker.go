// Package diagnostics checks that the configured tools and directories are
// usable before a transcription job starts.
package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/domain"
	"podscribe/internal/media"
	"podscribe/internal/recognize"
)

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(cfg *config.Config) domain.DiagnosticReport {
	usesWhisper := cfg.Recognition.Backend == recognize.BackendWhisper

	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", cfg.Tools.FFmpeg, true),
		c.checkTool("whisper", cfg.Tools.Whisper, usesWhisper),
		c.checkModel(cfg.Recognition.Model, usesWhisper),
		c.checkAudioFormat(cfg.Audio),
		c.checkInputDir(cfg.Paths.InputDir),
		c.checkWritableDir("output_dir", "Output directory", cfg.Paths.OutputDir),
		c.checkWritableDir("work_dir", "Work directory", cfg.Paths.WorkDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a configured executable resolves. Tools the selected
// backend does not need only produce a warning.
func (c *Checker) checkTool(name, configured string, required bool) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "tool_" + name,
		Name: name,
	}
	missing := domain.DiagnosticStatusWarn
	if required {
		missing = domain.DiagnosticStatusFail
	}

	if strings.TrimSpace(configured) == "" {
		item.Status = missing
		item.Message = fmt.Sprintf("No executable configured for %s.", name)
		item.Hint = fmt.Sprintf("Set tools.%s in the config file.", name)
		return item
	}

	path, err := c.lookPath(configured)
	if err != nil {
		item.Status = missing
		item.Message = fmt.Sprintf("Tool not found: %s", configured)
		item.Hint = "Install it and ensure the binary is on PATH or configure an absolute path."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkModel validates the recognition model against the catalog or disk.
func (c *Checker) checkModel(model string, required bool) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model",
		Name: "Recognition model",
	}
	if !required {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "Not used by the subtitles backend."
		return item
	}

	if err := recognize.ValidateModel(model); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		item.Hint = "Use a catalog id such as base, small.en or turbo, or the path to a model file."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	if opt, ok := recognize.LookupModel(model); ok {
		item.Message = fmt.Sprintf("%s (%s)", opt.Name, opt.SizeLabel)
	} else {
		item.Message = fmt.Sprintf("Model file found: %s", model)
	}
	return item
}

// checkAudioFormat validates the configured intermediate audio format.
func (c *Checker) checkAudioFormat(format domain.AudioFormat) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "audio_format",
		Name: "Audio format",
	}
	if err := media.ValidateFormat(format); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		item.Hint = "pcm_s16le at 16000 Hz mono is what whisper reads natively."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = format.String()
	return item
}

// checkInputDir validates the folder relative sources resolve against.
func (c *Checker) checkInputDir(inputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "input_dir",
		Name: "Input directory",
	}

	info, err := c.stat(inputDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("Input directory does not exist: %s", inputDir)
		item.Hint = "Create it before using relative source paths or watch mode."
	case err != nil:
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot access input directory: %s", inputDir)
	case !info.IsDir():
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Input path is not a directory: %s", inputDir)
	default:
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Directory found: %s", inputDir)
	}
	return item
}

// checkWritableDir validates directory existence and write access.
func (c *Checker) checkWritableDir(id, name, dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   id,
		Name: name,
	}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s is empty.", name)
		item.Hint = "Set a directory podscribe can write to."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Choose a writable directory."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
