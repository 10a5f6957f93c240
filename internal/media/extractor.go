// Package media extracts audio tracks from media files with ffmpeg.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"podscribe/internal/domain"
	"podscribe/internal/process"
)

// ExtractRequest describes one audio extraction.
type ExtractRequest struct {
	Source     domain.SourceFile
	Format     domain.AudioFormat
	OutputPath string
	OnProgress domain.ProgressFunc
}

// Extractor strips the video stream from a source and re-encodes its audio.
type Extractor struct {
	ffmpegPath string
	runner     process.Runner
	logger     hclog.Logger
	stat       func(name string) (os.FileInfo, error)
	remove     func(name string) error
}

// NewExtractor constructs an extractor that runs ffmpegPath through runner.
func NewExtractor(ffmpegPath string, runner process.Runner, logger hclog.Logger) *Extractor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Extractor{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		logger:     logger,
		stat:       os.Stat,
		remove:     os.Remove,
	}
}

// Extract runs ffmpeg and returns the artifact only when the process exited
// 0 and the output file exists with a non-zero size. WAV output must also
// carry the requested sample rate and channel count in its header.
func (e *Extractor) Extract(ctx context.Context, req ExtractRequest) (domain.AudioArtifact, error) {
	if err := req.Source.Validate(); err != nil {
		return domain.AudioArtifact{}, &domain.StageError{
			Stage:   domain.StageExtraction,
			Message: "cannot access input media",
			Err:     err,
		}
	}
	if err := ValidateFormat(req.Format); err != nil {
		return domain.AudioArtifact{}, &domain.StageError{
			Stage:   domain.StageExtraction,
			Message: "audio format rejected",
			Err:     err,
		}
	}

	outPath := req.OutputPath
	if outPath == "" {
		var err error
		if outPath, err = DefaultOutputPath(req.Source, req.Format.Codec); err != nil {
			return domain.AudioArtifact{}, &domain.StageError{
				Stage:   domain.StageExtraction,
				Message: "cannot derive output path",
				Err:     err,
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return domain.AudioArtifact{}, &domain.StageError{
			Stage:   domain.StageExtraction,
			Message: fmt.Sprintf("cannot create output directory for %s", outPath),
			Err:     err,
		}
	}

	if filepath.Clean(outPath) == filepath.Clean(req.Source.Path) {
		return domain.AudioArtifact{}, &domain.StageError{
			Stage:   domain.StageExtraction,
			Message: "audio output would overwrite the source",
			Err:     fmt.Errorf("output path %s is the source file", outPath),
		}
	}

	before, statErr := e.stat(outPath)
	preexisting := statErr == nil

	args := BuildExtractArgs(req.Source.Path, outPath, req.Format)
	e.logger.Info("extracting audio", "source", req.Source.Path, "output", outPath, "format", req.Format.String())

	inv, runErr := e.runner.Run(ctx, process.Command{
		Name:       e.ffmpegPath,
		Args:       args,
		Stage:      domain.StageExtraction,
		OnProgress: req.OnProgress,
	})

	artifact, err := e.judge(inv, runErr, outPath, req.Format, before)
	if err != nil {
		if !preexisting {
			e.discard(outPath)
		}
		return domain.AudioArtifact{}, err
	}
	return artifact, nil
}

// judge turns a finished ffmpeg invocation into an artifact or a StageError.
// before is the output file's state prior to the run, nil when it was absent;
// a file ffmpeg did not rewrite counts as missing.
func (e *Extractor) judge(inv process.Invocation, runErr error, outPath string, format domain.AudioFormat, before os.FileInfo) (domain.AudioArtifact, error) {
	if runErr != nil {
		return domain.AudioArtifact{}, inv.Failure(domain.StageExtraction, "ffmpeg audio extraction did not finish", runErr)
	}
	if inv.ExitCode != 0 {
		return domain.AudioArtifact{}, inv.Failure(domain.StageExtraction, "ffmpeg audio extraction failed", domain.ErrNonZeroExit)
	}

	info, err := e.stat(outPath)
	if err != nil || info.Size() == 0 {
		return domain.AudioArtifact{}, inv.Failure(domain.StageExtraction,
			"ffmpeg completed but output file is missing or empty",
			fmt.Errorf("%w: %s", domain.ErrOutputMissing, outPath))
	}
	if before != nil && info.Size() == before.Size() && info.ModTime().Equal(before.ModTime()) {
		return domain.AudioArtifact{}, inv.Failure(domain.StageExtraction,
			"ffmpeg completed but did not rewrite the existing output file",
			fmt.Errorf("%w: %s unchanged", domain.ErrOutputMissing, outPath))
	}

	if IsWAV(format.Codec) {
		if err := checkWAVFormat(outPath, format); err != nil {
			return domain.AudioArtifact{}, inv.Failure(domain.StageExtraction, "extracted audio does not match requested format", err)
		}
	}

	return domain.AudioArtifact{Path: outPath, Format: format, Size: info.Size()}, nil
}

// discard removes a partial output file left by a failed run.
func (e *Extractor) discard(path string) {
	if err := e.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("failed to remove partial audio output", "path", path, "error", err)
	}
}

// DefaultOutputPath places the audio next to the source with the codec's
// extension. When that would be the source itself, ".audio" is inserted
// before the extension.
func DefaultOutputPath(source domain.SourceFile, codec string) (string, error) {
	ext, err := ExtensionForCodec(codec)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(source.Path)
	out := filepath.Join(dir, source.BaseName()+ext)
	if out == filepath.Clean(source.Path) {
		out = filepath.Join(dir, source.BaseName()+".audio"+ext)
	}
	return out, nil
}

// BuildExtractArgs builds ffmpeg args that drop video and re-encode audio.
func BuildExtractArgs(inputPath, outPath string, format domain.AudioFormat) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-acodec", format.Codec,
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
		outPath,
	}
}
