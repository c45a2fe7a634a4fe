package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpilat/esbcore/transaction"
)

func enqueue(t *testing.T, c Container, msgs ...*QueuedMessage) {
	tx := transaction.New()
	require.NoError(t, c.EnqueueAsync(tx, msgs...))
	require.NoError(t, tx.Commit())
}

func TestFIFOContainer_PreservesEnqueueOrder(t *testing.T) {
	c := NewFIFOContainer("orders")
	m1 := &QueuedMessage{MessageID: "m1"}
	m2 := &QueuedMessage{MessageID: "m2"}
	enqueue(t, c, m1, m2)

	tx := transaction.New()
	head, err := c.TryPeekAsync(tx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "m1", head.MessageID)
}

func TestFIFOContainer_DoesNotSkipDelayedHead(t *testing.T) {
	c := NewFIFOContainer("orders")
	future := time.Now().Add(time.Hour)
	m1 := &QueuedMessage{MessageID: "m1", DelayedToUTC: &future}
	enqueue(t, c, m1)

	tx := transaction.New()
	head, err := c.TryPeekAsync(tx, time.Now())
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, "m1", head.MessageID)
}

func TestDelayableContainer_SkipsUneligibleHead(t *testing.T) {
	c := NewDelayableContainer("orders")
	future := time.Now().Add(time.Hour)
	m1 := &QueuedMessage{MessageID: "m1", DelayedToUTC: &future}
	m2 := &QueuedMessage{MessageID: "m2"}
	enqueue(t, c, m1, m2)

	tx := transaction.New()
	head, err := c.TryPeekAsync(tx, time.Now())
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, "m2", head.MessageID)
}

func TestContainer_RemoveAbsentMessageErrors(t *testing.T) {
	c := NewFIFOContainer("orders")
	tx := transaction.New()
	err := c.TryRemoveAsync(tx, "missing")
	assert.Error(t, err)
}

func TestContainer_UpdateAppliesMetadata(t *testing.T) {
	c := NewFIFOContainer("orders")
	m1 := &QueuedMessage{MessageID: "m1", MessageStatus: StatusDelivered}
	enqueue(t, c, m1)

	tx := transaction.New()
	require.NoError(t, c.UpdateAsync(tx, "m1", MessageMetadataUpdate{MessageStatus: StatusCompleted, Processed: true}))
	require.NoError(t, tx.Commit())

	tx2 := transaction.New()
	head, err := c.TryPeekAsync(tx2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, head.MessageStatus)
	assert.True(t, head.Processed())
}

func TestContainer_GetCount(t *testing.T) {
	c := NewFIFOContainer("orders")
	enqueue(t, c, &QueuedMessage{MessageID: "m1"}, &QueuedMessage{MessageID: "m2"})
	count, err := c.GetCountAsync()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestContainer_DisposedRejectsEveryOperation(t *testing.T) {
	c := NewFIFOContainer("orders")
	c.Dispose()

	tx := transaction.New()
	assert.Error(t, c.EnqueueAsync(tx, &QueuedMessage{MessageID: "m1"}))
	_, peekErr := c.TryPeekAsync(tx, time.Now())
	assert.Error(t, peekErr)
	_, countErr := c.GetCountAsync()
	assert.Error(t, countErr)
}

func TestQueuedMessage_ExpiredAndEligible(t *testing.T) {
	past := time.Now().Add(-time.Second)
	m := &QueuedMessage{TimeToLiveUTC: &past}
	assert.True(t, m.Expired(time.Now()))

	future := time.Now().Add(time.Hour)
	m2 := &QueuedMessage{DelayedToUTC: &future}
	assert.False(t, m2.Eligible(time.Now()))
}

func TestNewQueueID_Deterministic(t *testing.T) {
	assert.Equal(t, NewQueueID("orders"), NewQueueID("orders"))
	assert.NotEqual(t, NewQueueID("orders"), NewQueueID("shipments"))
}
