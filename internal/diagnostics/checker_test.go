package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podscribe/internal/config"
	"podscribe/internal/domain"
)

func testConfig(root string) *config.Config {
	return &config.Config{
		Tools: config.ToolsConfig{FFmpeg: "ffmpeg", Whisper: "whisper"},
		Paths: config.PathsConfig{
			InputDir:  root,
			OutputDir: filepath.Join(root, "output"),
			WorkDir:   filepath.Join(root, "work"),
		},
		Audio:       domain.AudioFormat{Codec: "pcm_s16le", SampleRate: 16000, Channels: 1},
		Recognition: config.RecognitionConfig{Backend: "whisper", Model: "base"},
	}
}

func realChecker(lookPath func(string) (string, error)) *Checker {
	return NewCheckerForTests(lookPath, os.Stat, os.MkdirAll, os.CreateTemp, os.Remove)
}

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	checker := realChecker(func(name string) (string, error) { return "/usr/local/bin/" + name, nil })

	report := checker.Run(testConfig(root))

	assert.False(t, report.HasFailures, "items: %+v", report.Items)
	assert.Empty(t, report.Failures())
	assert.DirExists(t, filepath.Join(root, "work"))
}

// TestCheckerRunMissingToolsAndPaths validates failure reporting.
func TestCheckerRunMissingToolsAndPaths(t *testing.T) {
	checker := realChecker(func(string) (string, error) { return "", errors.New("not found") })
	cfg := testConfig(t.TempDir())
	cfg.Recognition.Model = "/path/that/does/not/exist.pt"
	cfg.Paths.OutputDir = ""
	cfg.Paths.InputDir = "/path/that/does/not/exist"

	report := checker.Run(cfg)

	require.True(t, report.HasFailures)

	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_whisper", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "model", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "input_dir", domain.DiagnosticStatusWarn)
}

// TestCheckerSubtitlesBackendRelaxesWhisperChecks validates backend-aware requirements.
func TestCheckerSubtitlesBackendRelaxesWhisperChecks(t *testing.T) {
	checker := realChecker(func(name string) (string, error) {
		if name == "ffmpeg" {
			return "/usr/bin/ffmpeg", nil
		}
		return "", errors.New("not found")
	})
	cfg := testConfig(t.TempDir())
	cfg.Recognition.Backend = "subtitles"
	cfg.Recognition.Model = "unused"

	report := checker.Run(cfg)

	assert.False(t, report.HasFailures, "failures: %+v", report.Failures())
	assertStatusByID(t, report, "tool_whisper", domain.DiagnosticStatusWarn)
	assertStatusByID(t, report, "model", domain.DiagnosticStatusPass)
}

// TestCheckerRejectsBadAudioFormat validates the format check.
func TestCheckerRejectsBadAudioFormat(t *testing.T) {
	checker := realChecker(func(name string) (string, error) { return name, nil })
	cfg := testConfig(t.TempDir())
	cfg.Audio.SampleRate = 12345

	report := checker.Run(cfg)
	assertStatusByID(t, report, "audio_format", domain.DiagnosticStatusFail)
}

// TestCheckerInputPathIsFile validates input_dir must be a directory.
func TestCheckerInputPathIsFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	checker := realChecker(func(name string) (string, error) { return name, nil })
	cfg := testConfig(root)
	cfg.Paths.InputDir = file

	report := checker.Run(cfg)
	assertStatusByID(t, report, "input_dir", domain.DiagnosticStatusFail)
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			assert.Equal(t, want, item.Status, "item %s", id)
			return
		}
	}
	require.FailNow(t, "diagnostic item not found", id)
}
