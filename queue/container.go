package queue

import (
	"sync"
	"time"

	"github.com/tpilat/esbcore/esberrors"
	"github.com/tpilat/esbcore/transaction"
)

// Container is the ordered buffer of queued-message metadata. It is
// dispose-owned by its MessageQueue (package runtime) and never leaks beyond
// that owner.
type Container interface {
	EnqueueAsync(tx transaction.Controller, items ...*QueuedMessage) error
	TryPeekAsync(tx transaction.Controller, now time.Time) (*QueuedMessage, error)
	TryRemoveAsync(tx transaction.Controller, messageID string) error
	UpdateAsync(tx transaction.Controller, messageID string, update MessageMetadataUpdate) error
	GetCountAsync() (int, error)
	Dispose()
}

// fifoContainer preserves strict enqueue order; TryPeek never skips a
// message regardless of DelayedToUTC.
type fifoContainer struct {
	mu       sync.Mutex
	name     string
	items    []*QueuedMessage
	disposed bool
}

// delayableContainer skips a head whose DelayedToUTC has not yet arrived:
// it returns the first eligible message by enqueue order, not necessarily
// the physical head.
type delayableContainer struct {
	mu       sync.Mutex
	name     string
	items    []*QueuedMessage
	disposed bool
}

// NewFIFOContainer builds the container for a Sequential_FIFO queue.
func NewFIFOContainer(queueName string) Container {
	return &fifoContainer{name: queueName}
}

// NewDelayableContainer builds the container for a Sequential_Delayable
// queue.
func NewDelayableContainer(queueName string) Container {
	return &delayableContainer{name: queueName}
}

func (c *fifoContainer) EnqueueAsync(tx transaction.Controller, items ...*QueuedMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	tx.Enroll(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		for _, item := range items {
			c.items = append(c.items, item)
		}
		return nil
	})
	return nil
}

func (c *fifoContainer) TryPeekAsync(tx transaction.Controller, now time.Time) (*QueuedMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	if len(c.items) == 0 {
		return nil, nil
	}
	return c.items[0].Clone(), nil
}

func (c *fifoContainer) TryRemoveAsync(tx transaction.Controller, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	idx := indexOf(c.items, messageID)
	if idx < 0 {
		return esberrors.NewArgumentError("messageID", "message not found: "+messageID)
	}
	tx.Enroll(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		i := indexOf(c.items, messageID)
		if i < 0 {
			return esberrors.NewArgumentError("messageID", "message not found: "+messageID)
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		return nil
	})
	return nil
}

func (c *fifoContainer) UpdateAsync(tx transaction.Controller, messageID string, update MessageMetadataUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	idx := indexOf(c.items, messageID)
	if idx < 0 {
		return esberrors.NewArgumentError("messageID", "message not found: "+messageID)
	}
	tx.Enroll(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		i := indexOf(c.items, messageID)
		if i < 0 {
			return esberrors.NewArgumentError("messageID", "message not found: "+messageID)
		}
		update.Apply(c.items[i])
		return nil
	})
	return nil
}

func (c *fifoContainer) GetCountAsync() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return 0, esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	return len(c.items), nil
}

func (c *fifoContainer) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.items = nil
}

func (c *delayableContainer) EnqueueAsync(tx transaction.Controller, items ...*QueuedMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	tx.Enroll(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.items = append(c.items, items...)
		return nil
	})
	return nil
}

// TryPeekAsync returns the first message whose DelayedToUTC has arrived,
// in enqueue order — not necessarily the physical head.
func (c *delayableContainer) TryPeekAsync(tx transaction.Controller, now time.Time) (*QueuedMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	for _, item := range c.items {
		if item.Eligible(now) {
			return item.Clone(), nil
		}
	}
	return nil, nil
}

func (c *delayableContainer) TryRemoveAsync(tx transaction.Controller, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	idx := indexOf(c.items, messageID)
	if idx < 0 {
		return esberrors.NewArgumentError("messageID", "message not found: "+messageID)
	}
	tx.Enroll(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		i := indexOf(c.items, messageID)
		if i < 0 {
			return esberrors.NewArgumentError("messageID", "message not found: "+messageID)
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		return nil
	})
	return nil
}

func (c *delayableContainer) UpdateAsync(tx transaction.Controller, messageID string, update MessageMetadataUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	idx := indexOf(c.items, messageID)
	if idx < 0 {
		return esberrors.NewArgumentError("messageID", "message not found: "+messageID)
	}
	tx.Enroll(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		i := indexOf(c.items, messageID)
		if i < 0 {
			return esberrors.NewArgumentError("messageID", "message not found: "+messageID)
		}
		update.Apply(c.items[i])
		return nil
	})
	return nil
}

func (c *delayableContainer) GetCountAsync() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return 0, esberrors.NewInvalidStateError(c.name, "disposed-object")
	}
	return len(c.items), nil
}

func (c *delayableContainer) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.items = nil
}

func indexOf(items []*QueuedMessage, messageID string) int {
	for i, item := range items {
		if item.MessageID == messageID {
			return i
		}
	}
	return -1
}
