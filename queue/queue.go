package queue

import (
	"hash/fnv"
	"time"
)

// QueueType selects the container's ordering policy.
type QueueType int

const (
	SequentialFIFO QueueType = iota
	SequentialDelayable
)

func (t QueueType) String() string {
	if t == SequentialDelayable {
		return "Sequential_Delayable"
	}
	return "Sequential_FIFO"
}

// QueueStatus is the lifecycle state of a Queue. Assignment is monotone:
// Running may move to Suspended or Terminated, Terminated never reverts.
type QueueStatus int

const (
	StatusRunning QueueStatus = iota
	StatusSuspendedQueue
	StatusTerminated
)

func (s QueueStatus) String() string {
	switch s {
	case StatusSuspendedQueue:
		return "Suspended"
	case StatusTerminated:
		return "Terminated"
	default:
		return "Running"
	}
}

// QueueID is the deterministic hash of a queue name (invariant 1: equal
// names yield equal ids).
type QueueID uint64

// NewQueueID hashes name with FNV-1a so identical names always collide to
// the same id, independent of process or run.
func NewQueueID(name string) QueueID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return QueueID(h.Sum64())
}

// Queue is the entity identified by Name (stable) and Id (derived).
type Queue struct {
	Name string
	id   QueueID

	Type                     QueueType
	IsPull                   bool
	MaxSize                  *int
	DefaultProcessingTimeout *time.Duration
	FetchInterval            time.Duration
	IsPersistent             bool
	IsFaultQueue             bool

	status QueueStatus

	// HandleMessage is the push-mode handler callback; nil for pull queues.
	HandleMessage HandleMessageFunc
}

// HandleMessageFunc is the push-dispatch callback a Queue owns when it is
// not a pull queue. It is invoked by the runtime, never by the container.
type HandleMessageFunc func(msg *QueuedMessage) (MessageResult, error)

// MessageResult mirrors the handler-result sum type named in the design
// notes: a queue only needs to know the terminal/interim outcome, not the
// handler's own contract.
type MessageResult struct {
	Status        MessageStatus
	Retry         bool
	RetryInterval *time.Duration
}

// NewQueue constructs a Queue with IsPersistent hard-wired to false: this
// in-memory queue type never claims a persistence guarantee it cannot keep
// (see open question in the design notes — persistent queues would need a
// distinct implementation, not a flipped flag).
func NewQueue(name string, qtype QueueType, opts ...QueueOption) *Queue {
	q := &Queue{
		Name:          name,
		id:            NewQueueID(name),
		Type:          qtype,
		IsPersistent:  false,
		status:        StatusRunning,
		FetchInterval: 0,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// QueueOption configures a Queue at construction time.
type QueueOption func(*Queue)

func WithPull(pull bool) QueueOption {
	return func(q *Queue) { q.IsPull = pull }
}

func WithMaxSize(max int) QueueOption {
	return func(q *Queue) { q.MaxSize = &max }
}

func WithDefaultProcessingTimeout(d time.Duration) QueueOption {
	return func(q *Queue) { q.DefaultProcessingTimeout = &d }
}

// WithFetchInterval sets the field but, per the open question recorded in
// DESIGN.md, no dispatch path consumes it; it exists for forward
// compatibility with a poll-based pull loop that callers may build on top
// of GetCountAsync/TryPeekAsync.
func WithFetchInterval(d time.Duration) QueueOption {
	return func(q *Queue) { q.FetchInterval = d }
}

func WithFaultQueue(isFault bool) QueueOption {
	return func(q *Queue) { q.IsFaultQueue = isFault }
}

func WithHandleMessage(fn HandleMessageFunc) QueueOption {
	return func(q *Queue) { q.HandleMessage = fn }
}

func (q *Queue) ID() QueueID { return q.id }

func (q *Queue) Status() QueueStatus { return q.status }

// Suspend moves Running to Suspended. Terminated never moves.
func (q *Queue) Suspend() {
	if q.status == StatusRunning {
		q.status = StatusSuspendedQueue
	}
}

// Resume moves Suspended back to Running; it is the external resumption
// mechanism invariant 3 defers to.
func (q *Queue) Resume() {
	if q.status == StatusSuspendedQueue {
		q.status = StatusRunning
	}
}

// Terminate moves any status to Terminated; it sticks.
func (q *Queue) Terminate() {
	q.status = StatusTerminated
}
