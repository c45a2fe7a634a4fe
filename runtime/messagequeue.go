// Package runtime implements the message queue runtime: the per-queue
// state machine that drives the dispatch loop described in the handler
// invocation table, coordinates with a transaction controller and a fault
// queue, and applies retry/error policy. It is grounded on the teacher's
// stageflow engine's per-workflow execution loop and the mutation journal
// for diagnostics, generalized from "workflow stage" to "queued message".
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/tpilat/esbcore/esberrors"
	"github.com/tpilat/esbcore/internal/events"
	"github.com/tpilat/esbcore/queue"
	"github.com/tpilat/esbcore/transaction"
)

// DispatchMode selects how enqueue interacts with handler invocation.
type DispatchMode int

const (
	// PushSync invokes the handler inline during EnqueueAsync, in
	// transactions the runtime opens itself (EnqueueAsync takes no caller
	// transaction); the caller observes success or failure immediately.
	PushSync DispatchMode = iota
	// PushAsync stores the message and returns; a background dispatch loop
	// drains it.
	PushAsync
	// Pull only stores the message; consumers drain via TryPeek/TryRemove.
	Pull
)

// Clock is overridable so tests can control "now" without sleeping.
type Clock func() time.Time

// MessageQueue is the runtime wrapping a queue.Queue and its Container
// with dispatch behavior. One instance owns its Container exclusively and
// never leaks it beyond DisposeAsync.
type MessageQueue struct {
	Q         *queue.Queue
	container queue.Container
	mode      DispatchMode

	faultQueue        *MessageQueue
	defaultErrHandling queue.ErrorHandling

	sink   events.Sink
	logger *slog.Logger
	clock  Clock

	lock     dispatchLock
	disposed bool
}

// Option configures a MessageQueue at construction time.
type Option func(*MessageQueue)

func WithMode(mode DispatchMode) Option {
	return func(mq *MessageQueue) { mq.mode = mode }
}

func WithFaultQueue(fq *MessageQueue) Option {
	return func(mq *MessageQueue) { mq.faultQueue = fq }
}

func WithDefaultErrorHandling(eh queue.ErrorHandling) Option {
	return func(mq *MessageQueue) { mq.defaultErrHandling = eh }
}

func WithEventSink(sink events.Sink) Option {
	return func(mq *MessageQueue) { mq.sink = sink }
}

func WithLogger(logger *slog.Logger) Option {
	return func(mq *MessageQueue) { mq.logger = logger }
}

func WithClock(clock Clock) Option {
	return func(mq *MessageQueue) { mq.clock = clock }
}

// New builds a MessageQueue runtime over q and container.
func New(q *queue.Queue, container queue.Container, opts ...Option) *MessageQueue {
	mq := &MessageQueue{
		Q:         q,
		container: container,
		mode:      PushAsync,
		sink:      events.NoOp{},
		logger:    slog.Default(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(mq)
	}
	return mq
}

func (mq *MessageQueue) now() time.Time { return mq.clock() }

// EnqueueAsync appends msg. In PushSync mode it also invokes the handler
// inline, inside a fresh transaction, before returning.
func (mq *MessageQueue) EnqueueAsync(ctx context.Context, msg *queue.QueuedMessage) error {
	if mq.disposed {
		return esberrors.NewInvalidStateError(mq.Q.Name, "disposed-object")
	}
	if mq.Q.Status() == queue.StatusTerminated {
		return esberrors.NewInvalidStateError(mq.Q.Name, "queue terminated")
	}

	tx := transaction.New()
	msg.QueueName = mq.Q.Name
	if err := mq.container.EnqueueAsync(tx, msg); err != nil {
		mq.publishError(events.Enqueue, msg.MessageID, err)
		return err
	}
	if err := tx.Commit(); err != nil {
		mq.publishError(events.Enqueue, msg.MessageID, err)
		return err
	}
	mq.publish(events.Enqueue, msg.MessageID, "enqueued")

	switch mq.mode {
	case PushSync:
		return mq.handleOneSync(ctx, msg)
	case PushAsync:
		mq.OnMessageAsync(ctx)
	}
	return nil
}

// TryPeekAsync exposes the container's peek for pull consumers and tests.
func (mq *MessageQueue) TryPeekAsync(ctx context.Context) (*queue.QueuedMessage, error) {
	if mq.disposed {
		return nil, esberrors.NewInvalidStateError(mq.Q.Name, "disposed-object")
	}
	tx := transaction.New()
	msg, err := mq.container.TryPeekAsync(tx, mq.now())
	if err != nil {
		mq.publishError(events.Peek, "", err)
		return nil, err
	}
	_ = tx.Commit()
	return msg, nil
}

// TryRemoveAsync exposes the container's remove for pull consumers.
func (mq *MessageQueue) TryRemoveAsync(ctx context.Context, messageID string) error {
	if mq.disposed {
		return esberrors.NewInvalidStateError(mq.Q.Name, "disposed-object")
	}
	tx := transaction.New()
	if err := mq.container.TryRemoveAsync(tx, messageID); err != nil {
		mq.publishError(events.Remove, messageID, err)
		return err
	}
	if err := tx.Commit(); err != nil {
		mq.publishError(events.Remove, messageID, err)
		return err
	}
	mq.publish(events.Remove, messageID, "removed")
	return nil
}

func (mq *MessageQueue) GetCountAsync() (int, error) {
	if mq.disposed {
		return 0, esberrors.NewInvalidStateError(mq.Q.Name, "disposed-object")
	}
	return mq.container.GetCountAsync()
}

// DisposeAsync tears the runtime down; every subsequent operation fails
// with an invalid-state (disposed-object) error.
func (mq *MessageQueue) DisposeAsync() {
	mq.disposed = true
	mq.container.Dispose()
}

// OnMessageAsync is the dispatch loop trigger (OnMessageInternalAsync):
// single-instance per queue, guarded by the async mutual-exclusion lock.
// It drains while count > 0, the context is live, and the queue remains
// Running.
func (mq *MessageQueue) OnMessageAsync(ctx context.Context) {
	mq.lock.run(func() {
		for {
			if ctx.Err() != nil {
				return
			}
			if mq.Q.Status() != queue.StatusRunning {
				return
			}
			count, err := mq.container.GetCountAsync()
			if err != nil || count == 0 {
				return
			}
			if !mq.tick(ctx) {
				return
			}
		}
	})
}

// tick runs one pass of the dispatch-loop algorithm. It returns true if
// the loop should continue to the next message.
func (mq *MessageQueue) tick(ctx context.Context) bool {
	tx := transaction.New()
	now := mq.now()

	head, err := mq.container.TryPeekAsync(tx, now)
	if err != nil {
		mq.logger.Error("dispatch.peek failed", "queue", mq.Q.Name, "error", err)
		_ = tx.Rollback()
		mq.publishError(events.Peek, "", err)
		return false
	}
	if head == nil {
		_ = tx.Commit()
		return false
	}
	mq.publish(events.Peek, head.MessageID, "peeked")

	if head.Processed() {
		return mq.removeAndCommit(tx, head.MessageID)
	}

	if head.Expired(now) {
		return mq.handleExpiry(tx, head)
	}

	return mq.handleMessage(ctx, tx, head)
}

func (mq *MessageQueue) removeAndCommit(tx transaction.Controller, messageID string) bool {
	if err := mq.container.TryRemoveAsync(tx, messageID); err != nil {
		_ = tx.Rollback()
		mq.publishError(events.Remove, messageID, err)
		return false
	}
	if err := tx.Commit(); err != nil {
		mq.publishError(events.Remove, messageID, err)
		return false
	}
	mq.publish(events.Remove, messageID, "removed")
	return true
}

func (mq *MessageQueue) handleExpiry(tx transaction.Controller, head *queue.QueuedMessage) bool {
	if !head.DisableFaultQueue && mq.faultQueue != nil {
		faultMsg := head.Clone()
		faultMsg.QueueName = mq.faultQueue.Q.Name
		faultMsg.SourceExchangeName = mq.Q.Name
		faultMsg.MessageStatus = queue.StatusAborted
		if faultMsg.Headers == nil {
			faultMsg.Headers = make(map[string]string)
		}
		faultMsg.Headers["fault_reason"] = "expired"
		faultMsg.Headers["fault_origin_queue"] = mq.Q.Name
		if err := mq.faultQueue.container.EnqueueAsync(tx, faultMsg); err != nil {
			_ = tx.Rollback()
			mq.publishError(events.OnMessage, head.MessageID, esberrors.NewFaultRoutingError(mq.faultQueue.Q.Name, err))
			return true // retried next tick, per fault-routing failure semantics
		}
	}
	// The expired message is terminated: remove it from this container so
	// it is never re-peeked and never double-routed to the fault queue.
	if err := mq.container.TryRemoveAsync(tx, head.MessageID); err != nil {
		_ = tx.Rollback()
		mq.publishError(events.OnMessage, head.MessageID, err)
		return true
	}
	if err := tx.Commit(); err != nil {
		mq.publishError(events.OnMessage, head.MessageID, err)
		return true
	}
	mq.publish(events.OnMessage, head.MessageID, "expired")
	return true
}

func (mq *MessageQueue) handleMessage(ctx context.Context, tx transaction.Controller, head *queue.QueuedMessage) bool {
	if mq.Q.HandleMessage == nil {
		_ = tx.Commit()
		return false
	}

	result, herr := mq.invokeWithTimeout(ctx, head)
	update := mq.interpretResult(head, result, herr)

	// The update is persisted via a fresh transaction that is always
	// committed: a rollback scheduled on the handler's own transaction is
	// not visible here and does not prevent the update.
	utx := transaction.New()
	if err := mq.container.UpdateAsync(utx, head.MessageID, update); err != nil {
		_ = utx.Rollback()
		mq.publishError(events.OnMessage, head.MessageID, err)
		_ = tx.Rollback()
		return false
	}
	if err := utx.Commit(); err != nil {
		mq.publishError(events.OnMessage, head.MessageID, err)
		_ = tx.Rollback()
		return false
	}
	_ = tx.Commit()
	mq.publish(events.OnMessage, head.MessageID, update.MessageStatus.String())

	if update.MessageStatus == queue.StatusSuspended || update.MessageStatus == queue.StatusAborted {
		if mq.Q.Type == queue.SequentialFIFO {
			mq.Q.Suspend()
		}
	}

	if update.Processed {
		return mq.removeAndCommit(transaction.New(), head.MessageID)
	}
	return true
}

// invokeWithTimeout races the handler against the message's own timeout,
// falling back to the queue's DefaultProcessingTimeout. A timeout follows
// the same outcome path as an unhandled handler exception.
func (mq *MessageQueue) invokeWithTimeout(ctx context.Context, head *queue.QueuedMessage) (queue.MessageResult, error) {
	timeout := mq.Q.DefaultProcessingTimeout
	if head.Timeout != nil {
		timeout = head.Timeout
	}
	if timeout == nil {
		return mq.Q.HandleMessage(head)
	}

	type outcome struct {
		result queue.MessageResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := mq.Q.HandleMessage(head)
		done <- outcome{result: r, err: err}
	}()

	timer := time.NewTimer(*timeout)
	defer timer.Stop()
	select {
	case o := <-done:
		return o.result, o.err
	case <-timer.C:
		return queue.MessageResult{}, esberrors.NewHandlerError(
			esberrors.DefaultClientMessage, "handler timed out", context.DeadlineExceeded)
	case <-ctx.Done():
		return queue.MessageResult{}, ctx.Err()
	}
}

// interpretResult applies the handler invocation table.
func (mq *MessageQueue) interpretResult(head *queue.QueuedMessage, result queue.MessageResult, herr error) queue.MessageMetadataUpdate {
	now := mq.now()

	if herr != nil {
		// Unhandled handler exception / timeout: retry logic is not
		// applied, the message remains in its prior status.
		mq.logger.Error("handler failed", "queue", mq.Q.Name, "message_id", head.MessageID, "error", herr)
		return queue.MessageMetadataUpdate{
			MessageStatus: head.MessageStatus,
			RetryCount:    head.RetryCount,
			DelayedToUTC:  head.DelayedToUTC,
			Processed:     false,
		}
	}

	switch {
	case result.Status == queue.StatusCompleted:
		return queue.MessageMetadataUpdate{MessageStatus: queue.StatusCompleted, RetryCount: head.RetryCount, Processed: true}

	case result.Status == queue.StatusDeferred && result.RetryInterval != nil:
		delayed := now.Add(*result.RetryInterval)
		return queue.MessageMetadataUpdate{MessageStatus: queue.StatusDeferred, RetryCount: head.RetryCount, DelayedToUTC: &delayed}

	case result.Retry:
		eh := head.ErrorHandling
		if eh == nil {
			eh = mq.defaultErrHandling
		}
		if eh != nil && eh.CanRetry(head.RetryCount) {
			interval := eh.RetryInterval(head.RetryCount)
			if result.RetryInterval != nil {
				interval = *result.RetryInterval
			}
			delayed := now.Add(interval)
			return queue.MessageMetadataUpdate{
				MessageStatus: queue.StatusDelivered,
				RetryCount:    head.RetryCount + 1,
				DelayedToUTC:  &delayed,
			}
		}
		return queue.MessageMetadataUpdate{MessageStatus: queue.StatusSuspended, RetryCount: head.RetryCount}

	default:
		return queue.MessageMetadataUpdate{
			MessageStatus: result.Status,
			RetryCount:    head.RetryCount,
			Processed:     result.Status == queue.StatusCompleted,
		}
	}
}

func (mq *MessageQueue) handleOneSync(ctx context.Context, msg *queue.QueuedMessage) error {
	if !mq.tick(ctx) {
		return nil
	}
	return nil
}

func (mq *MessageQueue) publish(t events.Type, messageID, result string) {
	mq.sink.Publish(events.QueueEvent{Queue: mq.Q.Name, EventType: t, MessageID: messageID, Result: result, At: mq.now()})
}

func (mq *MessageQueue) publishError(t events.Type, messageID string, err error) {
	mq.sink.PublishError(events.QueueErrorEvent{Queue: mq.Q.Name, EventType: t, MessageID: messageID, Err: err.Error(), At: mq.now()})
}
