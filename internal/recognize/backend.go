// Package recognize turns audio or container streams into transcript text.
package recognize

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"podscribe/internal/domain"
	"podscribe/internal/process"
)

// Kind tells the orchestrator what input a backend consumes.
type Kind int

const (
	// KindAudio backends need an extracted audio artifact.
	KindAudio Kind = iota
	// KindContainer backends read the source file directly.
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindContainer:
		return "container"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Configured backend names.
const (
	BackendWhisper   = "whisper"
	BackendSubtitles = "subtitles"
)

// Backend produces transcript text from one Input.
type Backend interface {
	Name() string
	RequiresInternet() bool
	Kind() Kind
	// Accepts reports whether an extracted artifact in format can be
	// consumed. Container backends always return nil.
	Accepts(format domain.AudioFormat) error
	Transcribe(ctx context.Context, in domain.Input, onProgress domain.ProgressFunc) (domain.TranscriptResult, error)
}

// Options carries what any backend may need from configuration.
type Options struct {
	FFmpegPath  string
	WhisperPath string
	Model       string
	Language    string
	WorkDir     string
	Runner      process.Runner
	Logger      hclog.Logger
}

// New builds the backend registered under name.
func New(name string, opts Options) (Backend, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("recognize: runner is required")
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendWhisper:
		if err := ValidateModel(opts.Model); err != nil {
			return nil, err
		}
		return NewWhisper(WhisperConfig{
			Executable: opts.WhisperPath,
			Model:      opts.Model,
			Language:   opts.Language,
			OutputDir:  opts.WorkDir,
		}, opts.Runner, opts.Logger.Named("whisper")), nil
	case BackendSubtitles:
		return NewSubtitles(opts.FFmpegPath, opts.WorkDir, opts.Runner, opts.Logger.Named("subtitles")), nil
	default:
		return nil, fmt.Errorf("unknown recognition backend %q (want %s or %s)", name, BackendWhisper, BackendSubtitles)
	}
}

// Names lists the accepted backend names.
func Names() []string {
	return []string{BackendWhisper, BackendSubtitles}
}
