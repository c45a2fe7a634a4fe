// Package interceptors implements the handler interceptor pipeline: a
// per-handler Pipeline (pipeline.go) wrapping trace, timing, panic
// capture, client-error mapping, and rollback scheduling, plus an
// optional message-type-agnostic InterceptorChain (interceptor.go) the
// bus runs ahead of it as Config.PreChain, for concerns that want to see
// every queued message regardless of which handler resolves. Only
// LoggingInterceptor ships today; a host adds its own Interceptor
// implementations to the chain via Add.
package interceptors
