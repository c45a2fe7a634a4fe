package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpilat/esbcore/queue"
)

func TestArena_StepsReferenceDefinitionByName(t *testing.T) {
	a := NewArena()
	s1 := a.DefineStep("ship-order", "reserve-stock")
	s2 := a.DefineStep("ship-order", "charge-card", s1)

	steps := a.StepsOf("ship-order")
	require.Len(t, steps, 2)
	assert.Equal(t, "reserve-stock", steps[0].Name)
	assert.Equal(t, []StepID{s1}, steps[1].Dependencies)
	assert.Equal(t, s2, steps[1].ID)
}

func TestSink_ResumesRunningAndExecutingInstances(t *testing.T) {
	events := NewInMemoryEventStore()
	instances := NewInMemoryInstanceStore()
	instances.Put("order-1", []*Instance{
		{Key: "order-1", Status: StatusRunning},
		{Key: "order-1", Status: StatusExecuting},
		{Key: "order-1", Status: StatusCompleted},
	})

	var resumed []InstanceStatus
	sink := NewSink(events, instances, func(instance *Instance, event Event) {
		resumed = append(resumed, instance.Status)
	})

	msg := &queue.QueuedMessage{MessageID: "m1", IDSession: "order-1"}
	result, err := sink.HandleMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, result.Status)
	assert.ElementsMatch(t, []InstanceStatus{StatusRunning, StatusExecuting}, resumed)
}

func TestSink_IsIdempotentPerEventID(t *testing.T) {
	events := NewInMemoryEventStore()
	instances := NewInMemoryInstanceStore()
	var resumeCalls int
	sink := NewSink(events, instances, func(instance *Instance, event Event) {
		resumeCalls++
	})

	msg := &queue.QueuedMessage{MessageID: "m1", IDSession: "order-1"}
	_, err := sink.HandleMessage(msg)
	require.NoError(t, err)
	_, err = sink.HandleMessage(msg)
	require.NoError(t, err)

	created, err := events.SaveNewEventAsync(Event{ID: "m1"})
	require.NoError(t, err)
	assert.False(t, created, "the same event id must not be stored twice")
}
