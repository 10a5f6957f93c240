package process

import (
	"io"
	"strings"
	"sync"

	"podscribe/internal/domain"
)

// capture splits process output into lines, records them, and forwards
// each one as a progress event. Both streams share one lock, so events are
// emitted in the order lines arrive.
type capture struct {
	mu         sync.Mutex
	stage      domain.Stage
	onProgress domain.ProgressFunc
	maxLines   int
	lines      map[domain.Stream][]string
	partial    map[domain.Stream][]byte
	closed     bool
}

func newCapture(stage domain.Stage, onProgress domain.ProgressFunc, maxLines int) *capture {
	return &capture{
		stage:      stage,
		onProgress: onProgress,
		maxLines:   maxLines,
		lines:      make(map[domain.Stream][]string, 2),
		partial:    make(map[domain.Stream][]byte, 2),
	}
}

// writer returns the io.Writer for one stream.
func (c *capture) writer(stream domain.Stream) io.Writer {
	return &streamWriter{capture: c, stream: stream}
}

// close flushes unterminated lines and stops accepting output.
func (c *capture) close() (stdout, stderr []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stream := range []domain.Stream{domain.StreamStdout, domain.StreamStderr} {
		if rest := c.partial[stream]; len(rest) > 0 {
			c.record(stream, string(rest))
			c.partial[stream] = nil
		}
	}
	c.closed = true
	return c.lines[domain.StreamStdout], c.lines[domain.StreamStderr]
}

func (c *capture) write(stream domain.Stream, p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	buf := append(c.partial[stream], p...)
	start := 0
	for i, b := range buf {
		// ffmpeg redraws its status line with '\r'.
		if b == '\n' || b == '\r' {
			c.record(stream, string(buf[start:i]))
			start = i + 1
		}
	}
	c.partial[stream] = append([]byte(nil), buf[start:]...)
}

// record must be called with mu held.
func (c *capture) record(stream domain.Stream, raw string) {
	line := strings.TrimRight(raw, " \t")
	if strings.TrimSpace(line) == "" {
		return
	}

	lines := append(c.lines[stream], line)
	if c.maxLines > 0 && len(lines) > c.maxLines {
		lines = lines[len(lines)-c.maxLines:]
	}
	c.lines[stream] = lines

	c.onProgress.Emit(domain.ProgressEvent{
		Stage:   c.stage,
		Kind:    domain.EventLine,
		Stream:  stream,
		Message: line,
	})
}

type streamWriter struct {
	capture *capture
	stream  domain.Stream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.capture.write(w.stream, p)
	return len(p), nil
}
