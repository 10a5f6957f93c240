package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceNotFound is returned when the input media file does not exist.
	ErrSourceNotFound = errors.New("source file not found")

	// ErrLaunchFailure is returned when an executable cannot be started.
	ErrLaunchFailure = errors.New("executable could not be started")

	// ErrNonZeroExit is returned when a tool exits with a failure status.
	ErrNonZeroExit = errors.New("process exited with non-zero status")

	// ErrOutputMissing is returned when a tool reports success but wrote nothing.
	ErrOutputMissing = errors.New("output artifact missing")

	// ErrEmptyTranscript is returned when recognition produced an empty file.
	ErrEmptyTranscript = errors.New("transcript is empty")

	// ErrCancelled is returned when the caller's context ends mid-run.
	ErrCancelled = errors.New("cancelled")

	// ErrInvalidAudioFormat is returned for codec/rate/channel settings a stage cannot use.
	ErrInvalidAudioFormat = errors.New("invalid audio format")

	// ErrFormatMismatch is returned when an extracted file differs from the requested format.
	ErrFormatMismatch = errors.New("audio format mismatch")

	// ErrUnsupportedInput is returned when a backend receives the wrong Input variant.
	ErrUnsupportedInput = errors.New("unsupported input for backend")
)

// StageError is a stage-aware error with optional command context.
type StageError struct {
	Stage      Stage    `json:"stage"`
	Message    string   `json:"message"`
	Command    string   `json:"command,omitempty"`
	Args       []string `json:"args,omitempty"`
	ExitCode   int      `json:"exitCode"`
	StderrTail []string `json:"stderrTail,omitempty"`
	Err        error    `json:"-"`
}

// Error formats stage failures for logs and CLI output.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Stage, e.Message)
	if e.Command != "" {
		fmt.Fprintf(&b, " (cmd=%s exit=%d)", e.Command, e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.StderrTail) > 0 {
		fmt.Fprintf(&b, "\n%s", strings.Join(e.StderrTail, "\n"))
	}
	return b.String()
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailedStage returns the stage of the first StageError in err's chain.
func FailedStage(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
