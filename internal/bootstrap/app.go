// Package bootstrap wires configuration, the pipeline, and job tracking
// into the operations the command line exposes.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/rs/xid"

	"podscribe/internal/config"
	"podscribe/internal/diagnostics"
	"podscribe/internal/domain"
	"podscribe/internal/jobs"
	"podscribe/internal/media"
	"podscribe/internal/process"
	"podscribe/internal/recognize"
	"podscribe/internal/transcribe"
)

// eventHistory is how many bus events are kept for Since reads.
const eventHistory = 1000

// App wires configuration, jobs, and the pipeline.
type App struct {
	Config   *config.Config
	Jobs     *jobs.Manager
	Pipeline pipelineRunner
	Backend  recognize.Backend
	Events   *jobs.EventBus

	logger   hclog.Logger
	checker  *diagnostics.Checker
	newJobID func() string
	watch    watchOptions

	mu          sync.Mutex
	activeJobID string
	cancel      context.CancelFunc
}

// pipelineRunner isolates the transcription pipeline behind an interface.
type pipelineRunner interface {
	TranscribeVideo(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// JobResult is the outcome of one finished transcription job.
type JobResult struct {
	JobID      string
	Source     domain.SourceFile
	TextPath   string
	Transcript domain.TranscriptResult
}

// New builds the application from a validated config.
func New(cfg *config.Config, logger hclog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	runner := process.NewExec(logger.Named("process"))
	extractor := media.NewExtractor(cfg.Tools.FFmpeg, runner, logger.Named("media"))
	backend, err := recognize.New(cfg.Recognition.Backend, recognize.Options{
		FFmpegPath:  cfg.Tools.FFmpeg,
		WhisperPath: cfg.Tools.Whisper,
		Model:       cfg.Recognition.Model,
		Language:    cfg.Recognition.Language,
		WorkDir:     cfg.Paths.WorkDir,
		Runner:      runner,
		Logger:      logger.Named("recognize"),
	})
	if err != nil {
		return nil, fmt.Errorf("build recognition backend: %w", err)
	}
	if backend.Kind() == recognize.KindAudio {
		if err := backend.Accepts(cfg.Audio); err != nil {
			return nil, fmt.Errorf("audio format for %s: %w", backend.Name(), err)
		}
	}

	return &App{
		Config:   cfg,
		Jobs:     jobs.NewManager(),
		Pipeline: transcribe.NewPipeline(extractor, cfg.Audio, cfg.Paths.WorkDir, logger.Named("transcribe")),
		Backend:  backend,
		Events:   jobs.NewEventBus(eventHistory, logger.Named("events")),
		logger:   logger,
		checker:  diagnostics.NewChecker(),
		newJobID: func() string { return xid.New().String() },
		watch:    defaultWatchOptions(),
	}, nil
}

// Doctor runs the environment checks for the loaded config.
func (a *App) Doctor() domain.DiagnosticReport {
	return a.checker.Run(a.Config)
}

// Transcribe runs one job to completion. A relative sourcePath resolves
// against the configured input directory; an empty outputPath writes
// <output_dir>/<source base>.txt. Only one job runs at a time.
func (a *App) Transcribe(ctx context.Context, sourcePath, outputPath string) (JobResult, error) {
	src, err := domain.NewSourceFile(sourcePath, a.Config.Paths.InputDir)
	if err != nil {
		return JobResult{}, err
	}
	textPath := strings.TrimSpace(outputPath)
	if textPath == "" {
		textPath = transcribe.TranscriptPath(src, a.Config.Paths.OutputDir)
	}

	jobID := a.newJobID()
	if err := a.Jobs.Start(jobID, src.Path); err != nil {
		return JobResult{}, err
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.activeJobID = jobID
	a.cancel = cancel
	a.mu.Unlock()
	defer a.clearActiveJob(jobID)

	a.logger.Info("job started", "job", jobID, "source", src.Path, "backend", a.Backend.Name())
	a.publishStatus(jobID, domain.JobStatusExtracting, "Job started")

	result, err := a.Pipeline.TranscribeVideo(jobCtx, transcribe.Request{
		Source:  src,
		Backend: a.Backend,
		OnProgress: func(e domain.ProgressEvent) {
			a.Events.Publish(jobs.ProgressEvent(jobID, e))
			if e.Kind == domain.EventStageStarted && e.Stage == domain.StageRecognition {
				a.transition(jobID, domain.JobStatusRecognizing, "Running recognition stage")
			}
		},
	})
	if err == nil && jobCtx.Err() != nil {
		err = fmt.Errorf("%w: %w", domain.ErrCancelled, jobCtx.Err())
	}
	if err != nil {
		return JobResult{}, a.fail(jobID, err)
	}

	out := JobResult{JobID: jobID, Source: src, Transcript: result.Transcript}
	if result.Transcript.NoSubtitles() {
		a.transition(jobID, domain.JobStatusDone, "Job completed")
		a.Events.Publish(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeResult,
			Status:  domain.JobStatusDone,
			Message: "Source has no subtitle stream, nothing written",
		})
		return out, nil
	}

	a.transition(jobID, domain.JobStatusSaving, "Saving transcript")
	if err := transcribe.SaveTranscript(result.Transcript.Text, textPath); err != nil {
		return JobResult{}, a.fail(jobID, err)
	}
	out.TextPath = textPath

	a.transition(jobID, domain.JobStatusDone, "Job completed")
	a.Events.Publish(jobs.Event{
		JobID:    jobID,
		Type:     jobs.EventTypeResult,
		Status:   domain.JobStatusDone,
		Message:  "Transcript exported",
		TextPath: textPath,
	})
	a.logger.Info("job completed", "job", jobID, "transcript", textPath, "characters", len(result.Transcript.Text))
	return out, nil
}

// Cancel cancels the currently running job, if any.
func (a *App) Cancel() error {
	a.mu.Lock()
	cancel := a.cancel
	activeJobID := a.activeJobID
	a.mu.Unlock()

	if cancel == nil {
		return jobs.ErrNoRunningJob
	}

	cancel()
	if err := a.Jobs.Cancel(); err != nil && !errors.Is(err, jobs.ErrNoRunningJob) {
		return err
	}

	if activeJobID != "" {
		a.publishStatus(activeJobID, domain.JobStatusCancelled, "Cancellation requested")
	}
	return nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.Events.Since(sinceSeq)
}

// fail maps a pipeline error to the cancelled or failed state and
// publishes it. The error is returned unchanged.
func (a *App) fail(jobID string, err error) error {
	if errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled) {
		a.transition(jobID, domain.JobStatusCancelled, "Job cancelled")
		a.logger.Warn("job cancelled", "job", jobID)
		return err
	}

	a.transition(jobID, domain.JobStatusFailed, "Job failed")
	event := jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeError,
		Status:  domain.JobStatusFailed,
		Message: err.Error(),
	}
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		event.Stage = stageErr.Stage
		event.Command = stageErr.Command
		event.ExitCode = stageErr.ExitCode
		event.StderrTail = stageErr.StderrTail
	}
	a.Events.Publish(event)
	a.logger.Error("job failed", "job", jobID, "stage", event.Stage, "error", err)
	return err
}

// transition moves the job and publishes the new status when it changed.
func (a *App) transition(jobID string, status domain.JobStatus, message string) {
	before := a.Jobs.Current().Status
	if err := a.Jobs.Transition(status); err != nil {
		a.logger.Debug("skipping job transition", "job", jobID, "from", before, "to", status, "error", err)
		return
	}
	if before != status {
		a.publishStatus(jobID, status, message)
	}
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.Events.Publish(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// clearActiveJob clears cancellation handles for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.cancel = nil
	}
}
