// Package process launches external tools, streams their output as progress
// events, and reports how they finished.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/hashicorp/go-hclog"

	"podscribe/internal/domain"
)

const (
	defaultWaitDelay = 5 * time.Second
	defaultMaxLines  = 2000

	// stderrTailLines is how much tool output a StageError carries.
	stderrTailLines = 20
)

// Command describes one external tool invocation.
type Command struct {
	Name       string
	Args       []string
	Dir        string
	Env        []string
	Stage      domain.Stage
	OnProgress domain.ProgressFunc
}

// Outcome reports how a process finished.
type Outcome struct {
	ExitCode        int  `json:"exitCode"`
	RanToCompletion bool `json:"ranToCompletion"`
}

// Invocation captures one external command invocation result.
type Invocation struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Stdout  []string `json:"stdout"`
	Stderr  []string `json:"stderr"`
	Outcome
}

// StderrTail returns up to n trailing stderr lines.
func (i Invocation) StderrTail(n int) []string {
	return tail(i.Stderr, n)
}

// Failure wraps err in a StageError carrying this invocation's command,
// exit code, and stderr tail.
func (i Invocation) Failure(stage domain.Stage, message string, err error) *domain.StageError {
	return &domain.StageError{
		Stage:      stage,
		Message:    message,
		Command:    i.Command,
		Args:       i.Args,
		ExitCode:   i.ExitCode,
		StderrTail: i.StderrTail(stderrTailLines),
		Err:        err,
	}
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Invocation, error)
}

// Exec runs commands via os/exec without a shell.
type Exec struct {
	logger    hclog.Logger
	waitDelay time.Duration
	maxLines  int
}

// NewExec builds the production runner.
func NewExec(logger hclog.Logger) *Exec {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Exec{
		logger:    logger,
		waitDelay: defaultWaitDelay,
		maxLines:  defaultMaxLines,
	}
}

// Run starts the command, emits one progress event per non-empty output
// line while it runs, and waits for it to exit.
//
// A non-zero exit code is reported in the Invocation, not as an error; the
// caller decides what it means. Errors are returned only when the process
// could not be started (ErrLaunchFailure), when ctx ended first
// (ErrCancelled), or when waiting on it failed.
func (r *Exec) Run(ctx context.Context, c Command) (Invocation, error) {
	inv := Invocation{
		Command: c.Name,
		Args:    append([]string(nil), c.Args...),
		Outcome: Outcome{ExitCode: -1},
	}
	if err := ctx.Err(); err != nil {
		return inv, fmt.Errorf("%w: %s not started: %w", domain.ErrCancelled, c.Name, err)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.WaitDelay = r.waitDelay
	configureProcessGroup(cmd)

	out := newCapture(c.Stage, c.OnProgress, r.maxLines)
	cmd.Stdout = out.writer(domain.StreamStdout)
	cmd.Stderr = out.writer(domain.StreamStderr)

	r.logger.Debug("launching process", "stage", c.Stage, "command", c.Name, "args", c.Args)
	started := time.Now()
	if err := cmd.Start(); err != nil {
		return inv, fmt.Errorf("%w: %s: %w", domain.ErrLaunchFailure, c.Name, err)
	}

	waitErr := cmd.Wait()
	inv.Stdout, inv.Stderr = out.close()
	if cmd.ProcessState != nil {
		inv.ExitCode = cmd.ProcessState.ExitCode()
	}

	if waitErr != nil && ctx.Err() != nil {
		r.logger.Debug("process cancelled", "command", c.Name, "pid", cmd.Process.Pid, "elapsed", time.Since(started))
		return inv, fmt.Errorf("%w: %s: %w", domain.ErrCancelled, c.Name, ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		inv.RanToCompletion = true
	case errors.As(waitErr, &exitErr):
		// -1 means the process was terminated by a signal.
		inv.RanToCompletion = exitErr.ExitCode() >= 0
	case errors.Is(waitErr, exec.ErrWaitDelay):
		r.logger.Warn("process exited but its output pipes stayed open", "command", c.Name)
		inv.RanToCompletion = true
	default:
		return inv, fmt.Errorf("wait for %s: %w", c.Name, waitErr)
	}

	r.logger.Debug("process exited",
		"stage", c.Stage,
		"command", c.Name,
		"exit_code", inv.ExitCode,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return inv, nil
}

// tail returns the last n elements of lines.
func tail(lines []string, n int) []string {
	if n <= 0 || len(lines) == 0 {
		return nil
	}
	if len(lines) <= n {
		return append([]string(nil), lines...)
	}
	return append([]string(nil), lines[len(lines)-n:]...)
}
