package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/tpilat/esbcore/queue"
)

// MessageHandler is the terminal step a chain dispatches to: the bus's own
// handler-resolution-and-pipeline closure (see bus.buildHandleMessageFunc),
// not a generic message-processing stub.
type MessageHandler interface {
	Handle(ctx context.Context, msg *queue.QueuedMessage) error
}

// MessageHandlerFunc adapts a plain function to MessageHandler.
type MessageHandlerFunc func(ctx context.Context, msg *queue.QueuedMessage) error

func (f MessageHandlerFunc) Handle(ctx context.Context, msg *queue.QueuedMessage) error {
	return f(ctx, msg)
}

// Interceptor wraps a MessageHandler with a cross-cutting concern that
// applies uniformly across every queued message, ahead of handler
// resolution: it runs on the raw *queue.QueuedMessage the runtime is about
// to dispatch, not on the resolved handler.Context Pipeline builds.
type Interceptor interface {
	Intercept(ctx context.Context, msg *queue.QueuedMessage, next MessageHandler) error
	Name() string
}

// InterceptorFunc adapts a plain function to Interceptor.
type InterceptorFunc struct {
	name string
	fn   func(ctx context.Context, msg *queue.QueuedMessage, next MessageHandler) error
}

func NewInterceptorFunc(name string, fn func(ctx context.Context, msg *queue.QueuedMessage, next MessageHandler) error) *InterceptorFunc {
	return &InterceptorFunc{name: name, fn: fn}
}

func (i *InterceptorFunc) Intercept(ctx context.Context, msg *queue.QueuedMessage, next MessageHandler) error {
	return i.fn(ctx, msg, next)
}

func (i *InterceptorFunc) Name() string {
	return i.name
}

// InterceptorChain is the bus's PreChain: it runs ahead of the per-handler
// Pipeline (pipeline.go), against the raw queued message rather than a
// resolved handler.Context.
type InterceptorChain struct {
	interceptors []Interceptor
	logger       *slog.Logger
}

func NewInterceptorChain(logger *slog.Logger) *InterceptorChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &InterceptorChain{logger: logger}
}

func (c *InterceptorChain) Add(interceptor Interceptor) *InterceptorChain {
	c.interceptors = append(c.interceptors, interceptor)
	return c
}

// Execute runs the chain in registration order, each interceptor wrapping
// the next, finally reaching finalHandler — the bus's resolve-and-dispatch
// closure.
func (c *InterceptorChain) Execute(ctx context.Context, msg *queue.QueuedMessage, finalHandler MessageHandler) error {
	handler := finalHandler
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		interceptor := c.interceptors[i]
		next := handler
		handler = MessageHandlerFunc(func(ctx context.Context, msg *queue.QueuedMessage) error {
			return interceptor.Intercept(ctx, msg, next)
		})
	}
	return handler.Handle(ctx, msg)
}

// LoggingInterceptor logs dispatch entry and exit for every queued message
// the bus is about to hand to a resolved handler, using the ESB's own
// queued-message metadata (queue name, retry count, correlation id) rather
// than a generic request/response shape — per the structured-logging
// fields §10 of the design prescribes for the dispatch path.
type LoggingInterceptor struct {
	logger *slog.Logger
}

func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingInterceptor{logger: logger}
}

func (i *LoggingInterceptor) Intercept(ctx context.Context, msg *queue.QueuedMessage, next MessageHandler) error {
	start := time.Now()

	i.logger.Info("dispatch.prechain.enter",
		"queue", msg.QueueName,
		"message_id", msg.ID(),
		"message_type", msg.TypeName(),
		"correlation_id", msg.CorrelationID(),
		"retry_count", msg.RetryCount,
	)

	err := next.Handle(ctx, msg)
	elapsed := time.Since(start)

	if err != nil {
		i.logger.Error("dispatch.prechain.exit",
			"queue", msg.QueueName,
			"message_id", msg.ID(),
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return err
	}

	i.logger.Info("dispatch.prechain.exit",
		"queue", msg.QueueName,
		"message_id", msg.ID(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return nil
}

func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}
