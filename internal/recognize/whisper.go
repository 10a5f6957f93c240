package recognize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"podscribe/internal/domain"
	"podscribe/internal/process"
)

// preferredSampleRate is what whisper resamples to internally.
const preferredSampleRate = 16000

var whisperCodecs = map[string]bool{
	"pcm_s16le":  true,
	"pcm_s24le":  true,
	"pcm_f32le":  true,
	"flac":       true,
	"libmp3lame": true,
	"aac":        true,
	"libopus":    true,
	"libvorbis":  true,
}

// whisperOutputExts are the files the whisper CLI writes per input.
var whisperOutputExts = []string{".txt", ".vtt", ".srt", ".tsv", ".json"}

// WhisperConfig holds the local recognizer settings.
type WhisperConfig struct {
	Executable string
	Model      string
	Language   string
	OutputDir  string
}

// Whisper runs a local whisper CLI over an extracted audio file.
type Whisper struct {
	cfg      WhisperConfig
	runner   process.Runner
	logger   hclog.Logger
	readFile func(name string) ([]byte, error)
	remove   func(name string) error
	mkdirAll func(path string, perm os.FileMode) error
	stat     func(name string) (os.FileInfo, error)
}

// NewWhisper constructs the local recognition backend.
func NewWhisper(cfg WhisperConfig, runner process.Runner, logger hclog.Logger) *Whisper {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Whisper{
		cfg:      cfg,
		runner:   runner,
		logger:   logger,
		readFile: os.ReadFile,
		remove:   os.Remove,
		mkdirAll: os.MkdirAll,
		stat:     os.Stat,
	}
}

func (w *Whisper) Name() string           { return "OpenAI Whisper (Local)" }
func (w *Whisper) RequiresInternet() bool { return false }
func (w *Whisper) Kind() Kind             { return KindAudio }

// Accepts checks codec and channel layout. Sample rates other than 16 kHz
// work but cost an extra resample, so they only log a warning.
func (w *Whisper) Accepts(format domain.AudioFormat) error {
	if !whisperCodecs[format.Codec] {
		return fmt.Errorf("%w: whisper cannot read codec %q", domain.ErrInvalidAudioFormat, format.Codec)
	}
	if format.Channels < 1 || format.Channels > 2 {
		return fmt.Errorf("%w: whisper needs mono or stereo audio, got %d channels", domain.ErrInvalidAudioFormat, format.Channels)
	}
	if format.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive", domain.ErrInvalidAudioFormat)
	}
	if format.SampleRate != preferredSampleRate {
		w.logger.Warn("sample rate differs from whisper's native rate", "sample_rate", format.SampleRate, "preferred", preferredSampleRate)
	}
	return nil
}

// Transcribe runs whisper and returns the text of the .txt file it writes.
// Output files that did not exist before the run are removed afterwards;
// files already present are left alone and a .txt that whisper did not
// rewrite counts as missing.
func (w *Whisper) Transcribe(ctx context.Context, in domain.Input, onProgress domain.ProgressFunc) (domain.TranscriptResult, error) {
	artifact, ok := in.(domain.AudioArtifact)
	if !ok {
		return domain.TranscriptResult{}, &domain.StageError{
			Stage:   domain.StageRecognition,
			Message: fmt.Sprintf("%s needs an extracted audio file", w.Name()),
			Err:     fmt.Errorf("%w: %T", domain.ErrUnsupportedInput, in),
		}
	}

	outDir := w.cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(artifact.Path)
	}
	if err := w.mkdirAll(outDir, 0o755); err != nil {
		return domain.TranscriptResult{}, &domain.StageError{
			Stage:   domain.StageRecognition,
			Message: fmt.Sprintf("cannot create whisper output directory: %s", outDir),
			Err:     err,
		}
	}

	base := strings.TrimSuffix(filepath.Base(artifact.Path), filepath.Ext(artifact.Path))
	existing := w.snapshotOutputs(outDir, base)
	defer w.removeOutputs(outDir, base, existing)

	args := BuildWhisperArgs(artifact.Path, w.cfg.Model, outDir, w.cfg.Language)
	w.logger.Info("running recognition", "audio", artifact.Path, "model", w.cfg.Model)

	inv, err := w.runner.Run(ctx, process.Command{
		Name:       w.cfg.Executable,
		Args:       args,
		Stage:      domain.StageRecognition,
		OnProgress: onProgress,
	})
	if err != nil {
		return domain.TranscriptResult{}, inv.Failure(domain.StageRecognition, "whisper did not finish", err)
	}
	if inv.ExitCode != 0 {
		return domain.TranscriptResult{}, inv.Failure(domain.StageRecognition, "whisper transcription failed", domain.ErrNonZeroExit)
	}

	textPath := filepath.Join(outDir, base+".txt")
	if before, ok := existing[textPath]; ok && !w.rewritten(textPath, before) {
		w.logger.Warn("whisper left a pre-existing transcript untouched", "path", textPath)
		err := fmt.Errorf("%w: %s was not rewritten", domain.ErrOutputMissing, textPath)
		return domain.TranscriptResult{}, inv.Failure(domain.StageRecognition, "whisper completed but did not write a transcript", err)
	}
	content, err := w.readFile(textPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", domain.ErrOutputMissing, textPath)
		}
		return domain.TranscriptResult{}, inv.Failure(domain.StageRecognition, "whisper completed but transcript .txt file is missing", err)
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		return domain.TranscriptResult{}, inv.Failure(domain.StageRecognition, "whisper produced an empty transcript", domain.ErrEmptyTranscript)
	}

	return domain.TranscriptResult{
		Text:             text,
		Backend:          w.Name(),
		RequiresInternet: w.RequiresInternet(),
		Outcome:          domain.OutcomeTranscribed,
	}, nil
}

// snapshotOutputs records the output files already on disk for base.
func (w *Whisper) snapshotOutputs(dir, base string) map[string]os.FileInfo {
	existing := make(map[string]os.FileInfo)
	for _, ext := range whisperOutputExts {
		path := filepath.Join(dir, base+ext)
		if info, err := w.stat(path); err == nil {
			existing[path] = info
		}
	}
	return existing
}

func (w *Whisper) rewritten(path string, before os.FileInfo) bool {
	after, err := w.stat(path)
	if err != nil {
		return false
	}
	return after.Size() != before.Size() || !after.ModTime().Equal(before.ModTime())
}

func (w *Whisper) removeOutputs(dir, base string, existing map[string]os.FileInfo) {
	for _, ext := range whisperOutputExts {
		path := filepath.Join(dir, base+ext)
		if _, ok := existing[path]; ok {
			continue
		}
		if err := w.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("failed to remove whisper output", "path", path, "error", err)
		}
	}
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// BuildWhisperArgs builds the whisper CLI invocation for one audio file.
func BuildWhisperArgs(audioPath, model, outputDir, language string) []string {
	args := []string{
		audioPath,
		"--model", model,
		"-o", outputDir,
	}
	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}
