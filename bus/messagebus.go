// Package bus assembles the queue runtime, exchange router, and handler
// pipeline behind the producer surface named in the external interfaces
// section: Send and Publish. It is the top-level type a host process
// constructs; everything below it (queue container, dispatch loop,
// interceptor pipeline) is reusable independent of this assembly.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tpilat/esbcore/esberrors"
	"github.com/tpilat/esbcore/exchange"
	"github.com/tpilat/esbcore/handler"
	"github.com/tpilat/esbcore/interceptors"
	"github.com/tpilat/esbcore/queue"
	"github.com/tpilat/esbcore/runtime"
	"github.com/tpilat/esbcore/trace"
	"github.com/tpilat/esbcore/transaction"
)

// SendOptions mirrors the options recognized by Send/Publish.
type SendOptions struct {
	ExchangeName               string
	ContentType                string
	ContentEncoding            string
	DisabledMessagePersistence bool
	IDSession                  string
	RoutingKey                 string
	IsAsynchronousInvocation   bool
	ErrorHandling              queue.ErrorHandling
	Headers                    map[string]string
	Timeout                    *time.Duration
	IsCompressContent          bool
	IsEncryptContent           bool
	Priority                   int
	DisableFaultQueue          bool
	ThrowNoHandlerException    bool
}

// Result is the outcome of Send/Publish: either an id or an error,
// mirroring Result<Guid> from the external interfaces section. For Send,
// MessageID is the enqueued message's id; for Publish, it is the
// correlation id (IDSession) shared by every message the publication
// enqueued.
type Result struct {
	MessageID string
	Err       error
}

func (r Result) IsSuccess() bool { return r.Err == nil }

// SendResponse is the typed counterpart, mirroring Result<SendResponse<TResp>>
// for request-response Send calls.
type SendResponse[T any] struct {
	MessageID string
	Reply     T
	Err       error
}

func (r SendResponse[T]) IsSuccess() bool { return r.Err == nil }

// MessageBus is the top-level assembly: named queues, a router of named
// exchanges, and the handler registry the dispatch loop consults.
type MessageBus struct {
	cfg      *Config
	logger   *slog.Logger
	router   *exchange.Router
	registry *handler.Registry

	mu     sync.RWMutex
	queues map[string]*runtime.MessageQueue

	replies sync.Map // messageID string -> any
}

// New validates cfg and constructs a MessageBus.
func New(cfg *Config) (*MessageBus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bus configuration: %w", err)
	}
	logger := cfg.HostLoggerFactory("bus")
	return &MessageBus{
		cfg:      cfg,
		logger:   logger,
		router:   exchange.NewRouter(),
		registry: handler.NewRegistry(),
		queues:   make(map[string]*runtime.MessageQueue),
	}, nil
}

// RegisterExchange installs e into the bus's router.
func (b *MessageBus) RegisterExchange(e *exchange.Exchange) {
	b.router.Register(e)
}

// RegisterHandler installs factory for requestType.
func (b *MessageBus) RegisterHandler(requestType reflect.Type, factory handler.Factory) {
	b.registry.Register(requestType, factory)
}

// RegisterQueue installs q under its own name, wiring its push callback to
// the handler registry through the interceptor pipeline when requestType
// is non-nil (pull queues pass a nil requestType and are drained
// externally).
func (b *MessageBus) RegisterQueue(q *queue.Queue, container queue.Container, mode runtime.DispatchMode, requestType reflect.Type, opts ...runtime.Option) *runtime.MessageQueue {
	if requestType != nil {
		q.HandleMessage = b.buildHandleMessageFunc(requestType)
	}
	allOpts := append([]runtime.Option{
		runtime.WithMode(mode),
		runtime.WithLogger(b.cfg.HandlerLoggerFactory(q.Name)),
	}, opts...)
	mq := runtime.New(q, container, allOpts...)
	b.mu.Lock()
	b.queues[q.Name] = mq
	b.mu.Unlock()
	return mq
}

// Queue looks up a registered runtime by name.
func (b *MessageBus) Queue(name string) (*runtime.MessageQueue, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	mq, ok := b.queues[name]
	return mq, ok
}

// buildHandleMessageFunc resolves requestType against the registry and
// wraps the resolved handler.Handler with the interceptor pipeline,
// projecting its MessageHandlerResult onto the simpler queue.MessageResult
// the runtime consumes, and capturing any typed reply for Send to collect.
func (b *MessageBus) buildHandleMessageFunc(requestType reflect.Type) queue.HandleMessageFunc {
	return func(msg *queue.QueuedMessage) (queue.MessageResult, error) {
		h, ok := b.registry.Resolve(requestType)
		if !ok {
			return queue.MessageResult{}, esberrors.NewArgumentError("requestType", "no handler registered for "+requestType.String())
		}
		pipeline := interceptors.Wrap(h, interceptors.WithLogger(b.cfg.HandlerLoggerFactory(requestType.String())),
			interceptors.WithDefaultClientMessage(b.cfg.DefaultClientMessage))

		hctx := &handler.Context{
			Message: msg,
			Tx:      transaction.New(),
			Trace:   trace.New(requestType.String()),
		}

		var result handler.MessageHandlerResult
		dispatch := interceptors.MessageHandlerFunc(func(ctx context.Context, _ *queue.QueuedMessage) error {
			var err error
			result, err = pipeline.HandleAsync(ctx, hctx)
			return err
		})

		var err error
		if b.cfg.PreChain != nil {
			err = b.cfg.PreChain.Execute(context.Background(), msg, dispatch)
		} else {
			err = dispatch.Handle(context.Background(), msg)
		}
		if err != nil {
			return queue.MessageResult{}, err
		}

		if hctx.Reply != nil {
			b.replies.Store(msg.MessageID, hctx.Reply)
		}
		if er := result.ErrorResult(); er != nil {
			return queue.MessageResult{Status: queue.StatusSuspended}, esberrors.NewHandlerError(er.ClientMessage, er.Detail, er.Cause)
		}
		return result.ToQueueResult(), nil
	}
}

// Send delivers a request-only message to queueName and returns its
// generated message id.
func (b *MessageBus) Send(ctx context.Context, queueName string, body []byte, opts SendOptions) Result {
	mq, ok := b.Queue(queueName)
	if !ok {
		return Result{Err: esberrors.NewArgumentError("queueName", "unknown queue: "+queueName)}
	}
	msg := b.newQueuedMessage(queueName, body, opts)
	if err := mq.EnqueueAsync(ctx, msg); err != nil {
		return Result{Err: err}
	}
	return Result{MessageID: msg.MessageID}
}

// SendTyped is a package-level function, not a method, because Go methods
// cannot carry their own type parameters: it performs a synchronous Send
// and recovers the reply the handler stored in handler.Context.Reply.
func SendTyped[TResp any](ctx context.Context, b *MessageBus, queueName string, body []byte, opts SendOptions) SendResponse[TResp] {
	res := b.Send(ctx, queueName, body, opts)
	if !res.IsSuccess() {
		return SendResponse[TResp]{Err: res.Err}
	}
	raw, ok := b.replies.LoadAndDelete(res.MessageID)
	if !ok {
		var zero TResp
		return SendResponse[TResp]{MessageID: res.MessageID, Reply: zero}
	}
	reply, ok := raw.(TResp)
	if !ok {
		return SendResponse[TResp]{MessageID: res.MessageID, Err: esberrors.NewInvariantViolationError("reply type mismatch")}
	}
	return SendResponse[TResp]{MessageID: res.MessageID, Reply: reply}
}

// Publish fans an event out to every queue the named exchange routes it
// to, per the exchange router module.
func (b *MessageBus) Publish(ctx context.Context, exchangeName string, body []byte, opts SendOptions) Result {
	targets, ok := b.router.Publish(exchangeName, opts.Headers, opts.RoutingKey)
	if !ok {
		return Result{Err: esberrors.NewArgumentError("exchangeName", "unknown exchange: "+exchangeName)}
	}
	if len(targets) == 0 && opts.ThrowNoHandlerException {
		return Result{Err: esberrors.NewArgumentError("exchangeName", "no bound queue for publication")}
	}

	correlationID := uuid.New().String()
	for _, queueName := range targets {
		mq, ok := b.Queue(queueName)
		if !ok {
			b.logger.Warn("publish target queue not registered", "queue", queueName)
			continue
		}
		msg := b.newQueuedMessage(queueName, body, opts)
		msg.IDSession = correlationID
		msg.SourceExchangeName = exchangeName
		if err := mq.EnqueueAsync(ctx, msg); err != nil {
			b.logger.Error("publish enqueue failed", "queue", queueName, "error", err)
		}
	}
	return Result{MessageID: correlationID}
}

func (b *MessageBus) newQueuedMessage(queueName string, body []byte, opts SendOptions) *queue.QueuedMessage {
	return &queue.QueuedMessage{
		MessageID:                  uuid.New().String(),
		IDSession:                  opts.IDSession,
		PublisherID:                b.cfg.BusName,
		PublishingTimeUTC:          time.Now().UTC(),
		ContentType:                opts.ContentType,
		ContentEncoding:            opts.ContentEncoding,
		IsCompressedContent:        opts.IsCompressContent,
		IsEncryptedContent:         opts.IsEncryptContent,
		ContainsContent:            len(body) > 0,
		DisabledMessagePersistence: opts.DisabledMessagePersistence,
		Priority:                   opts.Priority,
		Headers:                    opts.Headers,
		RoutingKey:                 opts.RoutingKey,
		Timeout:                    opts.Timeout,
		ErrorHandling:              opts.ErrorHandling,
		MessageStatus:              queue.StatusCreated,
		SourceExchangeName:         opts.ExchangeName,
		QueueName:                  queueName,
		DisableFaultQueue:          opts.DisableFaultQueue,
		Body:                       body,
	}
}
