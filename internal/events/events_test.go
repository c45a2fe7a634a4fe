package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_SnapshotReturnsPublishedEventsInOrder(t *testing.T) {
	r := NewRing(10)
	r.Publish(QueueEvent{Queue: "orders", EventType: Enqueue, MessageID: "m1", At: time.Now()})
	r.Publish(QueueEvent{Queue: "orders", EventType: Peek, MessageID: "m1", At: time.Now()})

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, Enqueue, snap[0].(QueueEvent).EventType)
	assert.Equal(t, Peek, snap[1].(QueueEvent).EventType)
}

func TestRing_PublishErrorIsAlsoRetained(t *testing.T) {
	r := NewRing(10)
	r.PublishError(QueueErrorEvent{Queue: "orders", EventType: Peek, MessageID: "m1", Err: "boom"})

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "boom", snap[0].(QueueErrorEvent).Err)
}

func TestRing_EvictsOldestFractionOnOverflow(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 5; i++ {
		r.Publish(QueueEvent{MessageID: string(rune('a' + i))})
	}

	snap := r.Snapshot()
	assert.LessOrEqual(t, len(snap), 4)
	assert.NotEqual(t, "a", snap[0].(QueueEvent).MessageID)
}

func TestRing_ZeroOrNegativeCapacityDefaults(t *testing.T) {
	r := NewRing(0)
	r.Publish(QueueEvent{MessageID: "m1"})
	assert.Len(t, r.Snapshot(), 1)
}

func TestNoOp_DiscardsEverything(t *testing.T) {
	var sink Sink = NoOp{}
	sink.Publish(QueueEvent{MessageID: "m1"})
	sink.PublishError(QueueErrorEvent{MessageID: "m1"})
}
