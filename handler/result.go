// Package handler holds the handler-facing contract shared by the bus and
// the interceptor pipeline: the per-invocation Context, the Handler
// interface, and the MessageHandlerResult sum type. It is its own package
// so neither side needs to import the other.
package handler

import (
	"context"
	"time"

	"github.com/tpilat/esbcore/queue"
	"github.com/tpilat/esbcore/trace"
	"github.com/tpilat/esbcore/transaction"
)

// ResultKind is the tag of the MessageHandlerResult sum type.
type ResultKind int

const (
	KindCompleted ResultKind = iota
	KindDeferred
	KindRetry
	KindSuspended
	KindAborted
	KindError
)

func (k ResultKind) String() string {
	switch k {
	case KindCompleted:
		return "Completed"
	case KindDeferred:
		return "Deferred"
	case KindRetry:
		return "Retry"
	case KindSuspended:
		return "Suspended"
	case KindAborted:
		return "Aborted"
	case KindError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ErrorResult carries the user-visible mapping from the error handling
// design: a public ClientMessage, the correlating IDCommandQuery, a
// diagnostic Detail, and whether the enclosing transaction must roll back.
type ErrorResult struct {
	ClientMessage               string
	IDCommandQuery               string
	Detail                       string
	Cause                        error
	HasTransactionRollbackError bool
}

// MessageHandlerResult is the tagged variant a handler returns, modeled as
// a private kind with constructor functions rather than a record of
// mutually-exclusive flags: Completed, Deferred(delay), Retry(interval?),
// Suspended, Aborted, Error(detail).
type MessageHandlerResult struct {
	kind          ResultKind
	retryInterval *time.Duration
	errorResult   *ErrorResult
}

func Completed() MessageHandlerResult {
	return MessageHandlerResult{kind: KindCompleted}
}

func Deferred(delay time.Duration) MessageHandlerResult {
	return MessageHandlerResult{kind: KindDeferred, retryInterval: &delay}
}

func Retry(intervalOverride *time.Duration) MessageHandlerResult {
	return MessageHandlerResult{kind: KindRetry, retryInterval: intervalOverride}
}

func Suspended() MessageHandlerResult {
	return MessageHandlerResult{kind: KindSuspended}
}

func Aborted() MessageHandlerResult {
	return MessageHandlerResult{kind: KindAborted}
}

func Error(result *ErrorResult) MessageHandlerResult {
	return MessageHandlerResult{kind: KindError, errorResult: result}
}

func (r MessageHandlerResult) Kind() ResultKind { return r.kind }

func (r MessageHandlerResult) RetryInterval() *time.Duration { return r.retryInterval }

func (r MessageHandlerResult) ErrorResult() *ErrorResult { return r.errorResult }

// ToQueueResult projects the sum type onto the simpler shape the queue
// runtime consumes (queue.MessageResult), folding the Error variant into a
// Suspended/Retry-less outcome since handler errors are captured by the
// interceptor pipeline before they ever reach the runtime.
func (r MessageHandlerResult) ToQueueResult() queue.MessageResult {
	switch r.kind {
	case KindCompleted:
		return queue.MessageResult{Status: queue.StatusCompleted}
	case KindDeferred:
		return queue.MessageResult{Status: queue.StatusDeferred, RetryInterval: r.retryInterval}
	case KindRetry:
		return queue.MessageResult{Status: queue.StatusDelivered, Retry: true, RetryInterval: r.retryInterval}
	case KindSuspended:
		return queue.MessageResult{Status: queue.StatusSuspended}
	case KindAborted:
		return queue.MessageResult{Status: queue.StatusAborted}
	case KindError:
		return queue.MessageResult{Status: queue.StatusSuspended}
	default:
		return queue.MessageResult{Status: queue.StatusDelivered}
	}
}

// Context is the per-invocation context built fresh for every handler
// call; it is never pooled across handlers.
type Context struct {
	Message *queue.QueuedMessage
	Tx      transaction.Controller
	Trace   trace.Info

	// Reply optionally holds the value a handler produces for a typed
	// Send response; the bus reads it back after a synchronous dispatch.
	Reply any
}

// Handler is the user handler surface.
type Handler interface {
	HandleAsync(ctx context.Context, hctx *Context) (MessageHandlerResult, error)
}

// Func adapts a plain function to Handler.
type Func func(ctx context.Context, hctx *Context) (MessageHandlerResult, error)

func (f Func) HandleAsync(ctx context.Context, hctx *Context) (MessageHandlerResult, error) {
	return f(ctx, hctx)
}
