package domain

import "time"

// Stage names one step of the orchestrated pipeline.
type Stage string

const (
	StageExtraction  Stage = "extraction"
	StageRecognition Stage = "recognition"
)

// EventKind classifies a progress event.
type EventKind string

const (
	EventLine           EventKind = "line"
	EventStageStarted   EventKind = "stage_started"
	EventStageCompleted EventKind = "stage_completed"
)

// Stream identifies which process pipe produced a line.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// ProgressEvent is an out-of-band status message produced while a stage runs.
type ProgressEvent struct {
	Time    time.Time `json:"time"`
	Stage   Stage     `json:"stage"`
	Kind    EventKind `json:"kind"`
	Stream  Stream    `json:"stream,omitempty"`
	Message string    `json:"message"`
}

// ProgressFunc receives progress events. A nil ProgressFunc discards them.
type ProgressFunc func(ProgressEvent)

// Emit forwards event when fn is set, stamping the time if missing.
func (fn ProgressFunc) Emit(event ProgressEvent) {
	if fn == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	fn(event)
}

// StageStarted emits a stage_started event.
func (fn ProgressFunc) StageStarted(stage Stage, message string) {
	fn.Emit(ProgressEvent{Stage: stage, Kind: EventStageStarted, Message: message})
}

// StageCompleted emits a stage_completed event.
func (fn ProgressFunc) StageCompleted(stage Stage, message string) {
	fn.Emit(ProgressEvent{Stage: stage, Kind: EventStageCompleted, Message: message})
}
