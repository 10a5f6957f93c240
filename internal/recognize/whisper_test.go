package recognize

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podscribe/internal/domain"
	"podscribe/internal/process"
	"podscribe/internal/testutil"
)

func newTestWhisper(t *testing.T, runner process.Runner, language string) (*Whisper, string) {
	t.Helper()
	outDir := filepath.Join(t.TempDir(), "work")
	w := NewWhisper(WhisperConfig{
		Executable: "whisper-custom",
		Model:      "base",
		Language:   language,
		OutputDir:  outDir,
	}, runner, hclog.NewNullLogger())
	return w, outDir
}

func testArtifact(t *testing.T) domain.AudioArtifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio_1234.wav")
	testutil.MustWriteWAV(t, path, 16000, 1)
	return domain.AudioArtifact{Path: path, Format: domain.AudioFormat{Codec: "pcm_s16le", SampleRate: 16000, Channels: 1}, Size: 1}
}

// TestWhisperTranscribeReadsTextAndCleansSiblings verifies args, result text, and output cleanup.
func TestWhisperTranscribeReadsTextAndCleansSiblings(t *testing.T) {
	artifact := testArtifact(t)
	runner := testutil.NewFakeRunner(func(ctx context.Context, cmd process.Command) (process.Invocation, error) {
		dir := testutil.ArgValue(cmd.Args, "-o")
		for _, ext := range whisperOutputExts {
			testutil.MustWriteFile(t, filepath.Join(dir, "audio_1234"+ext), "  Hello from whisper.\n")
		}
		return testutil.Exited(cmd, 0), nil
	})
	w, outDir := newTestWhisper(t, runner, "en")

	result, err := w.Transcribe(context.Background(), artifact, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello from whisper.", result.Text)
	assert.Equal(t, "OpenAI Whisper (Local)", result.Backend)
	assert.False(t, result.RequiresInternet)
	assert.Equal(t, domain.OutcomeTranscribed, result.Outcome)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "whisper-custom", calls[0].Name)
	assert.Equal(t, artifact.Path, calls[0].Args[0])
	assert.Equal(t, "base", testutil.ArgValue(calls[0].Args, "--model"))
	assert.Equal(t, outDir, testutil.ArgValue(calls[0].Args, "-o"))
	assert.Equal(t, "en", testutil.ArgValue(calls[0].Args, "--language"))
	assert.Equal(t, domain.StageRecognition, calls[0].Stage)

	for _, ext := range whisperOutputExts {
		assert.NoFileExists(t, filepath.Join(outDir, "audio_1234"+ext))
	}
}

// TestWhisperEmptyTranscript verifies exit 0 with whitespace-only output is an error.
func TestWhisperEmptyTranscript(t *testing.T) {
	artifact := testArtifact(t)
	runner := testutil.NewFakeRunner(func(ctx context.Context, cmd process.Command) (process.Invocation, error) {
		testutil.MustWriteFile(t, filepath.Join(testutil.ArgValue(cmd.Args, "-o"), "audio_1234.txt"), " \n\t\n")
		return testutil.Exited(cmd, 0), nil
	})
	w, _ := newTestWhisper(t, runner, "")

	_, err := w.Transcribe(context.Background(), artifact, nil)
	require.ErrorIs(t, err, domain.ErrEmptyTranscript)

	stage, ok := domain.FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, domain.StageRecognition, stage)
}

// TestWhisperExitZeroWithoutText verifies existence is required alongside exit 0.
func TestWhisperExitZeroWithoutText(t *testing.T) {
	w, _ := newTestWhisper(t, testutil.NewFakeRunner(nil), "")

	_, err := w.Transcribe(context.Background(), testArtifact(t), nil)
	require.ErrorIs(t, err, domain.ErrOutputMissing)
}

// TestWhisperNonZeroExit verifies failure carries exit code and stderr tail.
func TestWhisperNonZeroExit(t *testing.T) {
	runner := testutil.NewFakeRunner(func(ctx context.Context, cmd process.Command) (process.Invocation, error) {
		testutil.MustWriteFile(t, filepath.Join(testutil.ArgValue(cmd.Args, "-o"), "audio_1234.txt"), "stale")
		return testutil.Exited(cmd, 2, "RuntimeError: model not found"), nil
	})
	w, outDir := newTestWhisper(t, runner, "")

	_, err := w.Transcribe(context.Background(), testArtifact(t), nil)
	require.ErrorIs(t, err, domain.ErrNonZeroExit)

	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, 2, stageErr.ExitCode)
	assert.Equal(t, []string{"RuntimeError: model not found"}, stageErr.StderrTail)
	assert.NoFileExists(t, filepath.Join(outDir, "audio_1234.txt"))
}

// TestWhisperIgnoresStaleTranscript verifies a .txt left by an earlier run
// is not returned when whisper exits 0 without writing, and that files
// present before the run survive it.
func TestWhisperIgnoresStaleTranscript(t *testing.T) {
	w, outDir := newTestWhisper(t, testutil.NewFakeRunner(nil), "")
	stale := filepath.Join(outDir, "audio_1234.txt")
	subs := filepath.Join(outDir, "audio_1234.srt")
	testutil.MustWriteFile(t, stale, "stale transcript from an earlier run")
	testutil.MustWriteFile(t, subs, "1\n00:00:01,000 --> 00:00:02,000\nkeep me\n")

	_, err := w.Transcribe(context.Background(), testArtifact(t), nil)
	require.ErrorIs(t, err, domain.ErrOutputMissing)
	assert.FileExists(t, stale)
	assert.FileExists(t, subs)
}

// TestWhisperReadsRewrittenTranscript verifies a pre-existing .txt that
// whisper overwrites is read as this run's transcript and kept on disk.
func TestWhisperReadsRewrittenTranscript(t *testing.T) {
	runner := testutil.NewFakeRunner(func(ctx context.Context, cmd process.Command) (process.Invocation, error) {
		dir := testutil.ArgValue(cmd.Args, "-o")
		testutil.MustWriteFile(t, filepath.Join(dir, "audio_1234.txt"), "fresh words")
		testutil.MustWriteFile(t, filepath.Join(dir, "audio_1234.vtt"), "WEBVTT")
		return testutil.Exited(cmd, 0), nil
	})
	w, outDir := newTestWhisper(t, runner, "")
	existing := filepath.Join(outDir, "audio_1234.txt")
	testutil.MustWriteFile(t, existing, "an older and longer transcript")

	result, err := w.Transcribe(context.Background(), testArtifact(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh words", result.Text)
	assert.FileExists(t, existing)
	assert.NoFileExists(t, filepath.Join(outDir, "audio_1234.vtt"))
}

func TestWhisperRejectsSourceInput(t *testing.T) {
	runner := testutil.NewFakeRunner(nil)
	w, _ := newTestWhisper(t, runner, "")

	_, err := w.Transcribe(context.Background(), domain.SourceFile{Path: "/tmp/x.mp4"}, nil)
	require.ErrorIs(t, err, domain.ErrUnsupportedInput)
	assert.Empty(t, runner.Calls())
}

func TestWhisperAccepts(t *testing.T) {
	w, _ := newTestWhisper(t, testutil.NewFakeRunner(nil), "")

	assert.NoError(t, w.Accepts(domain.AudioFormat{Codec: "pcm_s16le", SampleRate: 16000, Channels: 1}))
	assert.NoError(t, w.Accepts(domain.AudioFormat{Codec: "flac", SampleRate: 44100, Channels: 2}))
	assert.ErrorIs(t, w.Accepts(domain.AudioFormat{Codec: "pcm_u8", SampleRate: 16000, Channels: 1}), domain.ErrInvalidAudioFormat)
	assert.ErrorIs(t, w.Accepts(domain.AudioFormat{Codec: "pcm_s16le", SampleRate: 16000, Channels: 6}), domain.ErrInvalidAudioFormat)
}

func TestBuildWhisperArgsAutoLanguage(t *testing.T) {
	args := BuildWhisperArgs("/w/a.wav", "turbo", "/w", "auto")
	assert.Equal(t, []string{"/w/a.wav", "--model", "turbo", "-o", "/w"}, args)
}
