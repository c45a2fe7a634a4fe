// Package interceptors implements the handler interceptor pipeline: trace
// scope, Method_In/Method_Out logging, error capture, client-error message
// mapping, and transaction rollback scheduling. Handler timeouts are raced
// by the queue runtime (runtime.MessageQueue), not by this pipeline. It
// never re-throws — every outcome flows through the handler.MessageHandlerResult
// returned to the caller. Adapted from the teacher's
// interceptors.InterceptorChain/DefaultInterceptorChainBuilder, reduced to
// the fixed pipeline the spec names (no pluggable auth/rate-limit/circuit
// breaker stages — those protect cross-process calls this core doesn't
// make).
package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/tpilat/esbcore/esberrors"
	"github.com/tpilat/esbcore/handler"
)

// Pipeline wraps a handler.Handler with the fixed sequence of steps the
// handler interceptor pipeline module names.
type Pipeline struct {
	next                 handler.Handler
	logger               *slog.Logger
	defaultClientMessage string
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func WithDefaultClientMessage(msg string) Option {
	return func(p *Pipeline) { p.defaultClientMessage = msg }
}

// Wrap builds a Pipeline around next.
func Wrap(next handler.Handler, opts ...Option) *Pipeline {
	p := &Pipeline{
		next:                 next,
		logger:               slog.Default(),
		defaultClientMessage: esberrors.DefaultClientMessage,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleAsync implements handler.Handler, so a Pipeline can itself be
// wrapped or substituted wherever a Handler is expected.
func (p *Pipeline) HandleAsync(ctx context.Context, hctx *handler.Context) (handler.MessageHandlerResult, error) {
	// Step 1: start a method-scoped trace using the incoming trace info.
	hctx.Trace = hctx.Trace.Child("HandleAsync")

	requestType := "unknown"
	if hctx.Message != nil {
		requestType = hctx.Message.QueueName
	}

	// Step 2: log Method_In.
	start := time.Now()
	p.logger.Debug("Method_In", "request_type", requestType, "trace_id", hctx.Trace.TraceID, "span_id", hctx.Trace.SpanID)

	result, err := p.invoke(ctx, hctx)

	// Step 6: always log Method_Out with elapsed time, regardless of outcome.
	defer func() {
		p.logger.Debug("Method_Out", "request_type", requestType, "trace_id", hctx.Trace.TraceID,
			"elapsed_ms", time.Since(start).Milliseconds())
	}()

	return result, err
}

func (p *Pipeline) invoke(ctx context.Context, hctx *handler.Context) (handler.MessageHandlerResult, error) {
	result, err := p.safeInvoke(ctx, hctx)
	if err != nil {
		// Step 5: on thrown exception, schedule rollback and synthesize an
		// error result with exception info and the default client message.
		hctx.Tx.ScheduleRollback(err.Error())
		return handler.Error(&handler.ErrorResult{
			ClientMessage:               p.defaultClientMessage,
			IDCommandQuery:              idOf(hctx),
			Detail:                      err.Error(),
			Cause:                       err,
			HasTransactionRollbackError: true,
		}), nil
	}

	// Step 4: if the handler result carries errors, fill in defaults and
	// schedule rollback when requested.
	if er := result.ErrorResult(); er != nil {
		if er.ClientMessage == "" {
			er.ClientMessage = p.defaultClientMessage
		}
		if er.IDCommandQuery == "" {
			er.IDCommandQuery = idOf(hctx)
		}
		if er.HasTransactionRollbackError {
			hctx.Tx.ScheduleRollback(er.Detail)
		}
	}
	return result, nil
}

// safeInvoke recovers from a handler panic and turns it into a plain
// error, since the pipeline must never let a handler's exception cross
// the boundary uncaptured.
func (p *Pipeline) safeInvoke(ctx context.Context, hctx *handler.Context) (result handler.MessageHandlerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = esberrors.NewHandlerError(p.defaultClientMessage, "handler panicked", panicError{r})
		}
	}()

	// Step 3: invoke next. A nil-equivalent (zero-kind with no fields set
	// at all would be indistinguishable from Completed, so the handler
	// contract requires returning one of the named constructors) result is
	// treated the same as any other handler.Handler outcome.
	result, err = p.next.HandleAsync(ctx, hctx)
	return result, err
}

func idOf(hctx *handler.Context) string {
	if hctx.Message == nil {
		return ""
	}
	return hctx.Message.MessageID
}

type panicError struct{ v any }

func (p panicError) Error() string {
	if err, ok := p.v.(error); ok {
		return err.Error()
	}
	return "panic: " + toString(p.v)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "non-string panic value"
}
