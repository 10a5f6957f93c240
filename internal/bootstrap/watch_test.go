package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podscribe/internal/domain"
	"podscribe/internal/testutil"
	"podscribe/internal/transcribe"
)

// TestWatchTranscribesNewMediaFiles checks a settled media file is processed once
// and non-media files are ignored.
func TestWatchTranscribesNewMediaFiles(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	app, root := newTestApp(t, &fakePipeline{run: func(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
		mu.Lock()
		seen = append(seen, filepath.Base(req.Source.Path))
		mu.Unlock()
		return transcribe.Result{Transcript: domain.TranscriptResult{Text: "watched", Outcome: domain.OutcomeTranscribed}}, nil
	}})
	app.watch = watchOptions{settle: 100 * time.Millisecond, poll: 20 * time.Millisecond}
	inDir := app.Config.Paths.InputDir
	require.NoError(t, os.MkdirAll(inDir, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	testutil.MustWriteFile(t, filepath.Join(inDir, "notes.txt"), "ignore me")
	testutil.MustWriteFile(t, filepath.Join(inDir, "episode.mp3"), "audio bytes")

	want := filepath.Join(root, "out", "episode.txt")
	assert.Eventually(t, func() bool {
		_, err := os.Stat(want)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	assert.FileExists(t, want)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"episode.mp3"}, seen)
	assert.Equal(t, domain.JobStatusIdle, app.CurrentJob().Status)
}

// TestTranscribeWatchedReturnsToIdle checks each watched job leaves the
// manager idle, whether it succeeded or failed.
func TestTranscribeWatchedReturnsToIdle(t *testing.T) {
	fail := false
	app, root := newTestApp(t, &fakePipeline{run: func(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
		if fail {
			return transcribe.Result{}, &domain.StageError{Stage: domain.StageRecognition, Message: "whisper failed", Err: domain.ErrNonZeroExit}
		}
		return transcribe.Result{Transcript: domain.TranscriptResult{Text: "ok", Outcome: domain.OutcomeTranscribed}}, nil
	}})
	src := testutil.MustSource(t, filepath.Join(root, "in", "a.mp4"))
	processed := map[string]time.Time{}

	app.transcribeWatched(context.Background(), src.Path, processed)
	assert.Equal(t, domain.JobStatusIdle, app.CurrentJob().Status)
	assert.Contains(t, processed, src.Path)
	assert.FileExists(t, filepath.Join(root, "out", "a.txt"))

	fail = true
	app.transcribeWatched(context.Background(), src.Path, processed)
	assert.Equal(t, domain.JobStatusIdle, app.CurrentJob().Status)
}

// TestWatchRequiresInputDir checks watch refuses a missing directory.
func TestWatchRequiresInputDir(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})
	assert.Error(t, app.Watch(context.Background()))
}

func TestSettledFilesWaitsForStableSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp4")
	testutil.MustWriteFile(t, path, "12345")
	pending := map[string]*pendingFile{path: {size: -1}}
	processed := map[string]time.Time{}
	start := time.Now()

	assert.Empty(t, settledFiles(pending, processed, start, time.Second), "first poll")
	assert.Empty(t, settledFiles(pending, processed, start.Add(500*time.Millisecond), time.Second), "early poll")
	assert.Equal(t, []string{path}, settledFiles(pending, processed, start.Add(2*time.Second), time.Second))
	assert.Empty(t, pending)
}

func TestIsWatchedMedia(t *testing.T) {
	app, root := newTestApp(t, &fakePipeline{})
	app.Config.Paths.WorkDir = app.Config.Paths.InputDir
	in := app.Config.Paths.InputDir

	cases := map[string]bool{
		filepath.Join(in, "talk.MP4"):               true,
		filepath.Join(in, "song.flac"):              true,
		filepath.Join(in, "notes.txt"):              false,
		filepath.Join(in, ".hidden.mp4"):            false,
		filepath.Join(in, "audio_1234.wav"):         false,
		filepath.Join(in, "subtitles_1.srt"):        false,
		filepath.Join(root, "other", "audio_1.wav"): true,
	}
	for path, want := range cases {
		assert.Equal(t, want, app.isWatchedMedia(path), path)
	}
}
