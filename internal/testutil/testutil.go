// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"podscribe/internal/domain"
	"podscribe/internal/process"
)

// MustWriteFile creates parent directory and writes file content.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir parent: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

// MustWriteWAV writes 100ms of 16-bit PCM silence in the given format.
func MustWriteWAV(t testing.TB, path string, sampleRate, channels int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir parent: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, sampleRate/10*channels),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
}

// MustSource writes a placeholder media file and returns it as a SourceFile.
func MustSource(t testing.TB, path string) domain.SourceFile {
	t.Helper()
	MustWriteFile(t, path, "media")
	return domain.SourceFile{Path: path}
}

// ArgValue returns the value following key in CLI args.
func ArgValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

// FakeRunner simulates command execution and records every call.
type FakeRunner struct {
	mu    sync.Mutex
	calls []process.Command
	Handle func(ctx context.Context, cmd process.Command) (process.Invocation, error)
}

// NewFakeRunner returns a runner that delegates to fn.
func NewFakeRunner(fn func(ctx context.Context, cmd process.Command) (process.Invocation, error)) *FakeRunner {
	return &FakeRunner{Handle: fn}
}

// Run records cmd and delegates to injected behavior.
func (f *FakeRunner) Run(ctx context.Context, cmd process.Command) (process.Invocation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.Handle == nil {
		return Exited(cmd, 0), nil
	}
	return f.Handle(ctx, cmd)
}

// Calls returns a snapshot of recorded commands.
func (f *FakeRunner) Calls() []process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]process.Command(nil), f.calls...)
}

// Exited builds an invocation that ran to completion with code.
func Exited(cmd process.Command, code int, stderr ...string) process.Invocation {
	return process.Invocation{
		Command: cmd.Name,
		Args:    cmd.Args,
		Stderr:  stderr,
		Outcome: process.Outcome{ExitCode: code, RanToCompletion: true},
	}
}
