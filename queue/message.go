// Package queue implements the per-logical-queue message container: an
// ordered buffer of queued-message metadata with enqueue/peek/remove/update
// operations. It has no knowledge of handlers, transports, or dispatch —
// that belongs to the runtime built on top of it.
package queue

import "time"

// MessageStatus is the lifecycle state of a QueuedMessage.
type MessageStatus int

const (
	StatusCreated MessageStatus = iota
	StatusDelivered
	StatusCompleted
	StatusSuspended
	StatusDeferred
	StatusAborted
)

func (s MessageStatus) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusDelivered:
		return "Delivered"
	case StatusCompleted:
		return "Completed"
	case StatusSuspended:
		return "Suspended"
	case StatusDeferred:
		return "Deferred"
	case StatusAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// ErrorHandling overrides a queue's default retry policy for a single
// message. CanRetry consults RetryCount and returns whether another retry
// is permitted; RetryInterval is the delay applied before the next attempt.
type ErrorHandling interface {
	CanRetry(retryCount int) bool
	RetryInterval(retryCount int) time.Duration
}

// QueuedMessage wraps an opaque payload with the metadata the queue runtime
// and dispatch loop need, independent of the payload's own shape.
type QueuedMessage struct {
	MessageID       string
	ParentMessageID string
	IDSession       string
	PublisherID     string

	PublishingTimeUTC time.Time
	TimeToLiveUTC     *time.Time
	DelayedToUTC      *time.Time

	ContentType               string
	ContentEncoding           string
	IsCompressedContent       bool
	IsEncryptedContent        bool

	ContainsContent            bool
	HasSelfContent              bool
	DisabledMessagePersistence bool

	Priority   int
	Headers    map[string]string
	RoutingKey string

	Timeout       *time.Duration
	RetryCount    int
	ErrorHandling ErrorHandling

	MessageStatus MessageStatus

	SourceExchangeName string
	QueueName          string
	DisableFaultQueue  bool

	Body []byte
}

// Processed reports invariant 5: Processed == true iff status == Completed.
func (m *QueuedMessage) Processed() bool {
	return m.MessageStatus == StatusCompleted
}

// Expired reports whether the message's TTL has passed as of now.
func (m *QueuedMessage) Expired(now time.Time) bool {
	return m.TimeToLiveUTC != nil && m.TimeToLiveUTC.Before(now)
}

// Eligible reports whether a delayable message is ready for delivery.
func (m *QueuedMessage) Eligible(now time.Time) bool {
	return m.DelayedToUTC == nil || !m.DelayedToUTC.After(now)
}

// Clone returns a deep-enough copy for round-trip semantics: headers are
// copied so a caller mutating the returned message never mutates the
// container's own record.
func (m *QueuedMessage) Clone() *QueuedMessage {
	if m == nil {
		return nil
	}
	clone := *m
	if m.Headers != nil {
		clone.Headers = make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			clone.Headers[k] = v
		}
	}
	if m.Body != nil {
		clone.Body = append([]byte(nil), m.Body...)
	}
	if m.TimeToLiveUTC != nil {
		ttl := *m.TimeToLiveUTC
		clone.TimeToLiveUTC = &ttl
	}
	if m.DelayedToUTC != nil {
		delayed := *m.DelayedToUTC
		clone.DelayedToUTC = &delayed
	}
	if m.Timeout != nil {
		timeout := *m.Timeout
		clone.Timeout = &timeout
	}
	return &clone
}

// ID returns the message identifier used as a dedup/cache/tracing key by
// the generic interceptor chain.
func (m *QueuedMessage) ID() string {
	return m.MessageID
}

// TypeName returns the message's logical type, read from the well-known
// "messageType" header. Interceptors that key behaviour off message type
// (metrics, filtering, rate limiting) use this rather than reflecting on
// the body.
func (m *QueuedMessage) TypeName() string {
	if m.Headers != nil {
		if t, ok := m.Headers["messageType"]; ok {
			return t
		}
	}
	return m.RoutingKey
}

// CorrelationID returns the session identifier correlating this message
// with others in the same conversation or orchestration instance.
func (m *QueuedMessage) CorrelationID() string {
	return m.IDSession
}

// MessageMetadataUpdate is the diff applied to a QueuedMessage after each
// handler attempt.
type MessageMetadataUpdate struct {
	MessageStatus MessageStatus
	RetryCount    int
	DelayedToUTC  *time.Time
	Processed     bool
}

// Apply mutates the target message in place per invariant 6 (RetryCount is
// monotonically non-decreasing) — callers are responsible for only ever
// incrementing it by one per retry, the container does not enforce that
// here since it has no notion of "one handler attempt".
func (u MessageMetadataUpdate) Apply(m *QueuedMessage) {
	m.MessageStatus = u.MessageStatus
	m.RetryCount = u.RetryCount
	m.DelayedToUTC = u.DelayedToUTC
}
