package jobs

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"podscribe/internal/domain"
)

// EventType classifies messages emitted during job execution.
type EventType string

const (
	EventTypeStatus   EventType = "status"
	EventTypeProgress EventType = "progress"
	EventTypeResult   EventType = "result"
	EventTypeError    EventType = "error"
)

// Event is a sequenced payload consumed by subscribers.
type Event struct {
	Seq        int64            `json:"seq"`
	Timestamp  time.Time        `json:"timestamp"`
	JobID      string           `json:"jobId"`
	Type       EventType        `json:"type"`
	Status     domain.JobStatus `json:"status,omitempty"`
	Stage      domain.Stage     `json:"stage,omitempty"`
	Kind       domain.EventKind `json:"kind,omitempty"`
	Stream     domain.Stream    `json:"stream,omitempty"`
	Message    string           `json:"message,omitempty"`
	Command    string           `json:"command,omitempty"`
	ExitCode   int              `json:"exitCode,omitempty"`
	StderrTail []string         `json:"stderrTail,omitempty"`
	TextPath   string           `json:"textPath,omitempty"`
}

// ProgressEvent converts a pipeline progress event into a bus event.
func ProgressEvent(jobID string, e domain.ProgressEvent) Event {
	return Event{
		Timestamp: e.Time,
		JobID:     jobID,
		Type:      EventTypeProgress,
		Stage:     e.Stage,
		Kind:      e.Kind,
		Stream:    e.Stream,
		Message:   e.Message,
	}
}

// EventBus stores recent events, provides incremental reads, and fans
// events out to subscribers.
type EventBus struct {
	mu          sync.RWMutex
	nextSeq     int64
	maxEvents   int
	events      []Event
	subscribers map[string]chan Event
	logger      hclog.Logger
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int, logger hclog.Logger) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &EventBus{
		maxEvents:   maxEvents,
		events:      make([]Event, 0, maxEvents),
		subscribers: make(map[string]chan Event),
		logger:      logger,
	}
}

// Publish appends one event, assigns sequence and timestamp, and delivers
// it to every subscriber without blocking. A subscriber whose buffer is
// full misses the event; it stays available through Since.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("subscriber buffer full, dropping event", "subscriber", id, "seq", event.Seq)
		}
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe registers a subscriber and returns its channel. Subscribing
// again with the same id replaces and closes the previous channel.
func (b *EventBus) Subscribe(id string, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 64
	}
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subscribers[id]; ok {
		close(old)
	}
	b.subscribers[id] = ch
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Close closes every subscriber channel.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
