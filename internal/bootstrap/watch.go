package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// mediaPattern lists the source extensions watch mode picks up.
const mediaPattern = "*.mp4;*.mov;*.mkv;*.avi;*.mp3;*.wav;*.m4a;*.flac;*.aac;*.ogg;*.webm"

var mediaExtensions = parseExtensions(mediaPattern)

type watchOptions struct {
	// settle is how long a file's size must stay unchanged before it is
	// considered fully written.
	settle time.Duration
	poll   time.Duration
}

func defaultWatchOptions() watchOptions {
	return watchOptions{settle: 2 * time.Second, poll: 500 * time.Millisecond}
}

// pendingFile is a media file seen by the watcher but not yet settled.
type pendingFile struct {
	size        int64
	stableSince time.Time
}

// Watch transcribes media files that appear in the input directory, one at
// a time, until ctx is done. A failed file is logged and skipped.
func (a *App) Watch(ctx context.Context) error {
	dir := a.Config.Paths.InputDir
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch input directory: %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	a.logger.Info("watching for media files", "dir", dir, "settle", a.watch.settle)

	pending := make(map[string]*pendingFile)
	processed := make(map[string]time.Time)
	ticker := time.NewTicker(a.watch.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !a.isWatchedMedia(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				if _, seen := pending[event.Name]; !seen {
					a.logger.Debug("media file detected", "path", event.Name)
					pending[event.Name] = &pendingFile{size: -1, stableSince: time.Now()}
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("file watcher error", "error", err)

		case now := <-ticker.C:
			for _, path := range settledFiles(pending, processed, now, a.watch.settle) {
				if ctx.Err() != nil {
					return nil
				}
				a.transcribeWatched(ctx, path, processed)
			}
		}
	}
}

// settledFiles refreshes pending sizes and returns, sorted, the paths whose
// size has not changed for settle. Returned paths leave pending.
func settledFiles(pending map[string]*pendingFile, processed map[string]time.Time, now time.Time, settle time.Duration) []string {
	var ready []string
	for path, p := range pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(pending, path)
			continue
		}
		if info.Size() != p.size {
			p.size = info.Size()
			p.stableSince = now
			continue
		}
		if p.size == 0 || now.Sub(p.stableSince) < settle {
			continue
		}
		delete(pending, path)
		if done, ok := processed[path]; ok && done.Equal(info.ModTime()) {
			continue
		}
		ready = append(ready, path)
	}
	sort.Strings(ready)
	return ready
}

// transcribeWatched runs one job and returns the job manager to idle so
// the next file starts from a clean state.
func (a *App) transcribeWatched(ctx context.Context, path string, processed map[string]time.Time) {
	defer a.Jobs.Reset()
	if info, err := os.Stat(path); err == nil {
		processed[path] = info.ModTime()
	}

	result, err := a.Transcribe(ctx, path, "")
	switch {
	case err == nil && result.Transcript.NoSubtitles():
		a.logger.Info("no subtitle stream", "path", path)
	case err == nil:
		a.logger.Info("transcribed", "path", path, "transcript", result.TextPath)
	case errors.Is(err, context.Canceled):
	default:
		a.logger.Error("transcription failed, skipping file", "path", path, "error", err)
	}
}

// isWatchedMedia filters watcher events down to source media, ignoring the
// pipeline's own scratch files when the work dir is the input dir.
func (a *App) isWatchedMedia(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if _, ok := mediaExtensions[strings.ToLower(filepath.Ext(base))]; !ok {
		return false
	}
	if filepath.Clean(filepath.Dir(path)) == filepath.Clean(a.Config.Paths.WorkDir) &&
		(strings.HasPrefix(base, "audio_") || strings.HasPrefix(base, "subtitles_")) {
		return false
	}
	return true
}

// parseExtensions turns a "*.a;*.b" pattern into a set of ".a", ".b".
func parseExtensions(pattern string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, part := range strings.Split(pattern, ";") {
		ext := strings.TrimPrefix(strings.TrimSpace(part), "*")
		if ext != "" {
			out[strings.ToLower(ext)] = struct{}{}
		}
	}
	return out
}
