package recognize

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
	"podscribe/internal/process"
)

// noStreamMarkers are ffmpeg stderr fragments meaning the container has no
// subtitle track to map.
var noStreamMarkers = []string{
	"matches no streams",
	"does not contain any stream",
}

// Subtitles reads the first embedded subtitle track of the source container.
type Subtitles struct {
	ffmpegPath string
	workDir    string
	runner     process.Runner
	logger     hclog.Logger
	newID      func() string
	readFile   func(name string) ([]byte, error)
	remove     func(name string) error
}

// NewSubtitles constructs the container subtitle backend.
func NewSubtitles(ffmpegPath, workDir string, runner process.Runner, logger hclog.Logger) *Subtitles {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Subtitles{
		ffmpegPath: ffmpegPath,
		workDir:    workDir,
		runner:     runner,
		logger:     logger,
		newID:      uuid.NewString,
		readFile:   os.ReadFile,
		remove:     os.Remove,
	}
}

func (s *Subtitles) Name() string           { return "Subtitle Extraction" }
func (s *Subtitles) RequiresInternet() bool { return false }
func (s *Subtitles) Kind() Kind             { return KindContainer }

// Accepts is a no-op: the backend never sees extracted audio.
func (s *Subtitles) Accepts(domain.AudioFormat) error { return nil }

// Transcribe dumps the first subtitle stream to a scratch .srt file and
// returns its cleaned text. A source without subtitles yields an
// OutcomeNoSubtitles result and no error.
func (s *Subtitles) Transcribe(ctx context.Context, in domain.Input, onProgress domain.ProgressFunc) (domain.TranscriptResult, error) {
	src, ok := in.(domain.SourceFile)
	if !ok {
		return domain.TranscriptResult{}, &domain.StageError{
			Stage:   domain.StageRecognition,
			Message: fmt.Sprintf("%s reads the source container, not extracted audio", s.Name()),
			Err:     fmt.Errorf("%w: %T", domain.ErrUnsupportedInput, in),
		}
	}
	if err := src.Validate(); err != nil {
		return domain.TranscriptResult{}, &domain.StageError{
			Stage:   domain.StageRecognition,
			Message: "cannot access input media",
			Err:     err,
		}
	}

	dir := s.workDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.TranscriptResult{}, &domain.StageError{
			Stage:   domain.StageRecognition,
			Message: fmt.Sprintf("cannot create work directory: %s", dir),
			Err:     err,
		}
	}

	srtPath := filepath.Join(dir, "subtitles_"+s.newID()+".srt")
	defer func() {
		if err := s.remove(srtPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove subtitle scratch file", "path", srtPath, "error", err)
		}
	}()

	s.logger.Info("extracting subtitles", "source", src.Path)
	inv, err := s.runner.Run(ctx, process.Command{
		Name:       s.ffmpegPath,
		Args:       BuildSubtitleArgs(src.Path, srtPath),
		Stage:      domain.StageRecognition,
		OnProgress: onProgress,
	})
	if err != nil {
		return domain.TranscriptResult{}, inv.Failure(domain.StageRecognition, "ffmpeg subtitle extraction did not finish", err)
	}
	if inv.ExitCode != 0 {
		if hasNoSubtitleStream(inv.Stderr) {
			s.logger.Info("source has no subtitle stream", "source", src.Path)
			return s.result("", domain.OutcomeNoSubtitles), nil
		}
		return domain.TranscriptResult{}, inv.Failure(domain.StageRecognition, "ffmpeg subtitle extraction failed", domain.ErrNonZeroExit)
	}

	content, err := s.readFile(srtPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", domain.ErrOutputMissing, srtPath)
		}
		return domain.TranscriptResult{}, inv.Failure(domain.StageRecognition, "ffmpeg completed but subtitle file is missing", err)
	}

	text := CleanSubtitles(string(content))
	if text == "" {
		return s.result("", domain.OutcomeNoSubtitles), nil
	}
	return s.result(text, domain.OutcomeTranscribed), nil
}

func (s *Subtitles) result(text string, outcome domain.Outcome) domain.TranscriptResult {
	return domain.TranscriptResult{
		Text:             text,
		Backend:          s.Name(),
		RequiresInternet: s.RequiresInternet(),
		Outcome:          outcome,
	}
}

func hasNoSubtitleStream(stderr []string) bool {
	for _, line := range stderr {
		lower := strings.ToLower(line)
		for _, marker := range noStreamMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

// BuildSubtitleArgs maps the first subtitle stream of inputPath to srtPath.
func BuildSubtitleArgs(inputPath, srtPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-map", "0:s:0",
		srtPath,
	}
}
