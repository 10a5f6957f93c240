package config

import (
	"os"
	"path/filepath"

	"podscribe/internal/domain"
)

// Template returns a complete starting configuration for `podscribe init`.
// It is written to disk for the user to edit and is never used to fill in
// keys missing from a loaded file.
func Template() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	base := filepath.Join(homeDir, "Podscribe")

	return &Config{
		Tools: ToolsConfig{
			FFmpeg:  "ffmpeg",
			Whisper: "whisper",
		},
		Paths: PathsConfig{
			InputDir:  filepath.Join(base, "inbox"),
			OutputDir: filepath.Join(homeDir, "Documents", "Transcripts"),
			WorkDir:   filepath.Join(os.TempDir(), "podscribe"),
		},
		Audio: domain.AudioFormat{
			Codec:      "pcm_s16le",
			SampleRate: 16000,
			Channels:   1,
		},
		Recognition: RecognitionConfig{
			Backend:  "whisper",
			Model:    "base",
			Language: "auto",
		},
		LogLevel: "info",
	}
}
