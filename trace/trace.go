// Package trace carries the structured correlation token threaded through
// every core operation: call-site and causal parent identifiers. It is
// grounded on the teacher's interceptors.Tracer/Span shape, reduced to a
// plain value type since the core has no tracing backend of its own to
// integrate with — it only needs something to start a method-scoped scope
// and stamp a trace id onto events and errors.
package trace

import "github.com/google/uuid"

// Info is the trace token passed into every producer and handler call.
type Info struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	CallSite     string
}

// New starts a fresh root trace, used when a producer call carries none.
func New(callSite string) Info {
	return Info{
		TraceID:  uuid.New().String(),
		SpanID:   uuid.New().String(),
		CallSite: callSite,
	}
}

// Child derives a new span from info, preserving TraceID and setting
// ParentSpanID to the current span — the method-scoped trace the
// interceptor pipeline starts for each handler invocation.
func (info Info) Child(callSite string) Info {
	traceID := info.TraceID
	if traceID == "" {
		traceID = uuid.New().String()
	}
	return Info{
		TraceID:      traceID,
		SpanID:       uuid.New().String(),
		ParentSpanID: info.SpanID,
		CallSite:     callSite,
	}
}
