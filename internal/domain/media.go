package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SourceFile is an absolute path to a video or audio input.
type SourceFile struct {
	Path string
}

// NewSourceFile resolves path against baseDir when relative and checks
// that the result exists and is a regular file.
func NewSourceFile(path, baseDir string) (SourceFile, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return SourceFile{}, fmt.Errorf("%w: empty path", ErrSourceNotFound)
	}
	if !filepath.IsAbs(p) && baseDir != "" {
		p = filepath.Join(baseDir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return SourceFile{}, fmt.Errorf("resolve source path %s: %w", p, err)
	}

	src := SourceFile{Path: abs}
	if err := src.Validate(); err != nil {
		return SourceFile{}, err
	}
	return src, nil
}

// Validate reports ErrSourceNotFound when the file is absent or a directory.
func (s SourceFile) Validate() error {
	info, err := os.Stat(s.Path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, s.Path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, s.Path)
	}
	return nil
}

// BaseName returns the file name without directory and extension.
func (s SourceFile) BaseName() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// AudioFormat is the codec/rate/channel contract between extraction and recognition.
type AudioFormat struct {
	Codec      string `json:"codec" yaml:"codec"`
	SampleRate int    `json:"sampleRate" yaml:"sample_rate"`
	Channels   int    `json:"channels" yaml:"channels"`
}

// String renders the format as codec/rate/channels, e.g. pcm_s16le/16000Hz/1ch.
func (f AudioFormat) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", f.Codec, f.SampleRate, f.Channels)
}

// AudioArtifact is an extracted audio file on disk.
type AudioArtifact struct {
	Path   string
	Format AudioFormat
	Size   int64
}

// Input is what a recognition backend consumes: a SourceFile or an AudioArtifact.
type Input interface {
	InputPath() string
	isInput()
}

// InputPath returns the source path.
func (s SourceFile) InputPath() string { return s.Path }

func (SourceFile) isInput() {}

// InputPath returns the artifact path.
func (a AudioArtifact) InputPath() string { return a.Path }

func (AudioArtifact) isInput() {}

// Outcome distinguishes a produced transcript from an expected absence of text.
type Outcome string

const (
	OutcomeTranscribed Outcome = "transcribed"
	OutcomeNoSubtitles Outcome = "no_subtitles"
)

// TranscriptResult is the immutable output of one recognition call.
type TranscriptResult struct {
	Text             string  `json:"text"`
	Backend          string  `json:"backend"`
	RequiresInternet bool    `json:"requiresInternet"`
	Outcome          Outcome `json:"outcome"`
}

// NoSubtitles reports whether the source carried no subtitle stream.
func (r TranscriptResult) NoSubtitles() bool {
	return r.Outcome == OutcomeNoSubtitles
}
