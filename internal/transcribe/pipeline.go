// Package transcribe chains audio extraction and recognition into one run.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"podscribe/internal/domain"
	"podscribe/internal/media"
	"podscribe/internal/recognize"
)

// Request contains the input media and callbacks for one run.
type Request struct {
	Source  domain.SourceFile
	Backend recognize.Backend
	// AudioPath keeps the extracted audio at a caller-chosen location. When
	// empty the pipeline extracts to a temporary file and removes it.
	AudioPath  string
	OnProgress domain.ProgressFunc
}

// Result is what a completed run produced.
type Result struct {
	Transcript domain.TranscriptResult
	// AudioPath is set only when the caller supplied one.
	AudioPath string
}

// AudioExtractor produces an audio artifact from a source file.
type AudioExtractor interface {
	Extract(ctx context.Context, req media.ExtractRequest) (domain.AudioArtifact, error)
}

// Pipeline orchestrates extraction and recognition for one source.
type Pipeline struct {
	extractor AudioExtractor
	format    domain.AudioFormat
	workDir   string
	logger    hclog.Logger
	newID     func() string
	remove    func(name string) error
}

// NewPipeline constructs the production pipeline. Temporary audio goes to
// workDir in format.
func NewPipeline(extractor AudioExtractor, format domain.AudioFormat, workDir string, logger hclog.Logger) *Pipeline {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Pipeline{
		extractor: extractor,
		format:    format,
		workDir:   workDir,
		logger:    logger,
		newID:     uuid.NewString,
		remove:    os.Remove,
	}
}

// TranscribeVideo runs one source through the backend. Audio backends get a
// freshly extracted artifact; container backends read the source directly.
// A stage failure is returned as is and stops the run.
func (p *Pipeline) TranscribeVideo(ctx context.Context, req Request) (Result, error) {
	if req.Backend == nil {
		return Result{}, fmt.Errorf("transcribe: backend is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}

	if req.Backend.Kind() == recognize.KindContainer {
		return p.recognize(ctx, req, req.Source)
	}

	if err := req.Source.Validate(); err != nil {
		return Result{}, &domain.StageError{
			Stage:   domain.StageExtraction,
			Message: "cannot access input media",
			Err:     err,
		}
	}
	if err := req.Backend.Accepts(p.format); err != nil {
		return Result{}, &domain.StageError{
			Stage:   domain.StageRecognition,
			Message: fmt.Sprintf("%s does not accept %s audio", req.Backend.Name(), p.format),
			Err:     err,
		}
	}

	audioPath := strings.TrimSpace(req.AudioPath)
	owned := audioPath == ""
	if owned {
		var err error
		if audioPath, err = p.tempAudioPath(); err != nil {
			return Result{}, &domain.StageError{
				Stage:   domain.StageExtraction,
				Message: "cannot choose temporary audio path",
				Err:     err,
			}
		}
		defer p.discard(audioPath)
	}

	req.OnProgress.StageStarted(domain.StageExtraction, fmt.Sprintf("extracting %s audio from %s", p.format, filepath.Base(req.Source.Path)))
	artifact, err := p.extractor.Extract(ctx, media.ExtractRequest{
		Source:     req.Source,
		Format:     p.format,
		OutputPath: audioPath,
		OnProgress: req.OnProgress,
	})
	if err != nil {
		return Result{}, cancelled(ctx, err)
	}
	req.OnProgress.StageCompleted(domain.StageExtraction, fmt.Sprintf("extracted %d bytes", artifact.Size))

	result, err := p.recognize(ctx, req, artifact)
	if err != nil {
		return Result{}, err
	}
	if !owned {
		result.AudioPath = artifact.Path
	}
	return result, nil
}

func (p *Pipeline) recognize(ctx context.Context, req Request, in domain.Input) (Result, error) {
	req.OnProgress.StageStarted(domain.StageRecognition, fmt.Sprintf("recognizing with %s", req.Backend.Name()))
	transcript, err := req.Backend.Transcribe(ctx, in, req.OnProgress)
	if err != nil {
		return Result{}, cancelled(ctx, err)
	}

	message := fmt.Sprintf("%d characters", len(transcript.Text))
	if transcript.NoSubtitles() {
		message = "no subtitle stream"
	}
	req.OnProgress.StageCompleted(domain.StageRecognition, message)
	return Result{Transcript: transcript}, nil
}

func (p *Pipeline) tempAudioPath() (string, error) {
	ext, err := media.ExtensionForCodec(p.format.Codec)
	if err != nil {
		return "", err
	}
	dir := p.workDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create work directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "audio_"+p.newID()+ext), nil
}

// discard removes self-created temporary audio.
func (p *Pipeline) discard(path string) {
	if err := p.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("failed to remove temporary audio", "path", path, "error", err)
		return
	}
	p.logger.Debug("removed temporary audio", "path", path)
}

// cancelled makes sure a failure caused by ctx ending matches ErrCancelled.
func cancelled(ctx context.Context, err error) error {
	if ctx.Err() == nil || errors.Is(err, domain.ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
}

// SaveTranscript writes text to path as UTF-8, creating parent directories
// and replacing any existing file.
func SaveTranscript(text, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("transcript output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write transcript %s: %w", path, err)
	}
	return nil
}

// TranscriptPath builds the default output path for source under outputDir.
func TranscriptPath(source domain.SourceFile, outputDir string) string {
	name := strings.TrimSpace(source.BaseName())
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "transcript"
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source.Path)
	}
	return filepath.Join(outputDir, name+".txt")
}

// NewPipelineForTests constructs a pipeline with injectable dependencies.
func NewPipelineForTests(
	extractor AudioExtractor,
	format domain.AudioFormat,
	workDir string,
	newID func() string,
	remove func(name string) error,
) *Pipeline {
	p := NewPipeline(extractor, format, workDir, nil)
	if newID != nil {
		p.newID = newID
	}
	if remove != nil {
		p.remove = remove
	}
	return p
}
