package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podscribe/internal/domain"
)

const fullConfig = `tools:
  ffmpeg: /usr/bin/ffmpeg
  whisper: ~/bin/whisper
paths:
  input_dir: ~/inbox
  output_dir: /srv/out
  work_dir: /tmp/podscribe
audio:
  codec: pcm_s16le
  sample_rate: 16000
  channels: 1
recognition:
  backend: whisper
  model: small.en
  language: en
log_level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/ffmpeg", cfg.Tools.FFmpeg)
	assert.Equal(t, filepath.Join(home, "bin", "whisper"), cfg.Tools.Whisper)
	assert.Equal(t, filepath.Join(home, "inbox"), cfg.Paths.InputDir)
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, "small.en", cfg.Recognition.Model)
	assert.Equal(t, hclog.Debug, cfg.Level())
}

// TestLoadListsEveryMissingKey verifies validation fails fast with all missing keys.
func TestLoadListsEveryMissingKey(t *testing.T) {
	_, err := Load(writeConfig(t, "tools:\n  ffmpeg: ffmpeg\naudio:\n  codec: flac\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingKey))

	for _, key := range []string{
		"tools.whisper",
		"paths.input_dir",
		"paths.output_dir",
		"paths.work_dir",
		"audio.sample_rate",
		"audio.channels",
		"recognition.backend",
		"recognition.model",
	} {
		assert.Contains(t, err.Error(), key)
	}
	assert.NotContains(t, err.Error(), "tools.ffmpeg")
	assert.NotContains(t, err.Error(), "audio.codec")
	assert.NotContains(t, err.Error(), "recognition.language")
	assert.NotContains(t, err.Error(), "log_level")
}

func TestLoadEmptyFileReportsAllKeys(t *testing.T) {
	_, err := Load(writeConfig(t, ""))
	require.ErrorIs(t, err, ErrMissingKey)
	assert.Equal(t, 10, strings.Count(err.Error(), ErrMissingKey.Error()))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, fullConfig+"extra_setting: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra_setting")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	content := strings.Replace(fullConfig, "backend: whisper", "backend: cloud", 1)
	content = strings.Replace(content, "log_level: debug", "log_level: loud", 1)

	_, err := Load(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recognition.backend")
	assert.Contains(t, err.Error(), "log_level")
}

// TestLoadRejectsUnusableAudioFormat verifies codec and rate are checked
// at load time, not when a job first runs.
func TestLoadRejectsUnusableAudioFormat(t *testing.T) {
	content := strings.Replace(fullConfig, "codec: pcm_s16le", "codec: foo", 1)
	_, err := Load(writeConfig(t, content))
	require.ErrorIs(t, err, domain.ErrInvalidAudioFormat)
	assert.Contains(t, err.Error(), "foo")

	content = strings.Replace(fullConfig, "sample_rate: 16000", "sample_rate: 12345", 1)
	_, err = Load(writeConfig(t, content))
	require.ErrorIs(t, err, domain.ErrInvalidAudioFormat)
	assert.Contains(t, err.Error(), "12345")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestYAMLStoreSaveTemplateRoundTrip verifies `init` output loads cleanly.
func TestYAMLStoreSaveTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	store := NewYAMLStore(path)
	want := Template()

	assert.Equal(t, path, store.Path())
	require.NoError(t, store.Save(want))
	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, expandTilde("~"))
	assert.Equal(t, filepath.Join(home, "x"), expandTilde("~/x"))
	assert.Equal(t, "~user/x", expandTilde("~user/x"))
	assert.Equal(t, "/abs", expandTilde("/abs"))
}
