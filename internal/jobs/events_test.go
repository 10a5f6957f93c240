package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podscribe/internal/domain"
)

// TestEventBusSince verifies incremental event reads by sequence.
func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(3, nil)
	bus.Publish(Event{Type: EventTypeStatus, Message: "1"})
	bus.Publish(Event{Type: EventTypeStatus, Message: "2"})
	bus.Publish(Event{Type: EventTypeStatus, Message: "3"})

	events := bus.Since(1)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Seq)
	assert.Equal(t, int64(3), events[1].Seq)
}

// TestEventBusCapsHistory verifies buffer limit trimming behavior.
func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2, nil)
	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})
	bus.Publish(Event{Message: "3"})

	events := bus.Since(0)
	require.Len(t, events, 2)
	assert.Equal(t, "2", events[0].Message)
	assert.Equal(t, "3", events[1].Message)
}

// TestEventBusSubscribeReceivesInOrder verifies fan-out preserves publish order.
func TestEventBusSubscribeReceivesInOrder(t *testing.T) {
	bus := NewEventBus(10, nil)
	ch := bus.Subscribe("cli", 8)

	for _, msg := range []string{"a", "b", "c"} {
		bus.Publish(Event{Type: EventTypeProgress, Message: msg})
	}
	bus.Unsubscribe("cli")

	var got []string
	for event := range ch {
		got = append(got, event.Message)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

// TestEventBusSlowSubscriberDoesNotBlock verifies full buffers drop instead of blocking.
func TestEventBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewEventBus(10, nil)
	ch := bus.Subscribe("slow", 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			bus.Publish(Event{Message: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, ch, 1)
	assert.Len(t, bus.Since(0), 5)
}

// TestEventBusResubscribeClosesPrevious verifies one channel per subscriber id.
func TestEventBusResubscribeClosesPrevious(t *testing.T) {
	bus := NewEventBus(10, nil)
	first := bus.Subscribe("cli", 1)
	bus.Subscribe("cli", 1)

	_, ok := <-first
	assert.False(t, ok, "expected first channel to be closed")
	bus.Close()
}

func TestProgressEventCarriesStage(t *testing.T) {
	now := time.Now().UTC()
	event := ProgressEvent("job-9", domain.ProgressEvent{
		Time:    now,
		Stage:   domain.StageRecognition,
		Kind:    domain.EventLine,
		Stream:  domain.StreamStdout,
		Message: "[00:01.000] hello",
	})
	assert.Equal(t, "job-9", event.JobID)
	assert.Equal(t, EventTypeProgress, event.Type)
	assert.Equal(t, domain.StageRecognition, event.Stage)
	assert.True(t, event.Timestamp.Equal(now), "timestamp = %v, want %v", event.Timestamp, now)
}
