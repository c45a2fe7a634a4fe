package bus

import (
	"errors"
	"log/slog"

	"github.com/tpilat/esbcore/esberrors"
	"github.com/tpilat/esbcore/handler"
	"github.com/tpilat/esbcore/interceptors"
)

// TypeResolver resolves a wire type name to the Go type used to decode a
// message body. The core never implements one — it is supplied externally,
// per the out-of-scope serialization-codec boundary.
type TypeResolver interface {
	Resolve(typeName string) (any, bool)
}

// LoggerFactory builds a component-scoped logger, matching the
// host-logger-factory / handler-logger-factory fields named in the
// configuration surface.
type LoggerFactory func(component string) *slog.Logger

// ResultFactory builds a MessageHandlerResult. Configuration validation
// rejects a bus with none configured; the bus itself does not call it.
type ResultFactory func() handler.MessageHandlerResult

// Config enumerates the top-level bus configuration named in the external
// interfaces section. Persistence layout, DI wiring, and the
// user-facing builder surface are all out of scope — Config is the
// narrowest surface the core itself consumes.
type Config struct {
	BusName              string
	HostInfo             string
	TypeResolver         TypeResolver
	HostLoggerFactory    LoggerFactory
	HandlerLoggerFactory LoggerFactory
	ResultFactory        ResultFactory
	DefaultClientMessage string

	// PreChain runs ahead of the per-handler interceptor pipeline, against
	// the raw queued message rather than the resolved handler.Context: the
	// generic cross-cutting concerns (logging, metrics, authentication,
	// rate limiting, circuit breaking) that don't need the handler sum
	// type belong here instead of duplicating logic in every handler.
	PreChain *interceptors.InterceptorChain

	RegisteredTypes []any
}

// Option configures a Config at construction time.
type Option func(*Config)

func WithHostInfo(info string) Option {
	return func(c *Config) { c.HostInfo = info }
}

func WithTypeResolver(r TypeResolver) Option {
	return func(c *Config) { c.TypeResolver = r }
}

func WithHostLoggerFactory(f LoggerFactory) Option {
	return func(c *Config) { c.HostLoggerFactory = f }
}

func WithHandlerLoggerFactory(f LoggerFactory) Option {
	return func(c *Config) { c.HandlerLoggerFactory = f }
}

func WithResultFactory(f ResultFactory) Option {
	return func(c *Config) { c.ResultFactory = f }
}

func WithDefaultClientMessage(msg string) Option {
	return func(c *Config) { c.DefaultClientMessage = msg }
}

func WithPreChain(chain *interceptors.InterceptorChain) Option {
	return func(c *Config) { c.PreChain = chain }
}

func WithRegisteredTypes(types ...any) Option {
	return func(c *Config) { c.RegisteredTypes = types }
}

// NewConfig builds a Config with sensible defaults, then applies opts.
// The default PreChain runs interceptors.LoggingInterceptor against every
// queued message ahead of handler resolution; WithPreChain overrides it.
func NewConfig(busName string, opts ...Option) *Config {
	base := func(component string) *slog.Logger {
		return slog.Default().With("component", component)
	}
	c := &Config{
		BusName:              busName,
		HostLoggerFactory:    base,
		HandlerLoggerFactory: base,
		DefaultClientMessage: esberrors.DefaultClientMessage,
		PreChain:             interceptors.NewInterceptorChain(base("prechain")).Add(interceptors.NewLoggingInterceptor(base("prechain"))),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate enforces the rules named in the configuration surface: empty
// name, missing loggers, missing result factory, and a registration set
// with no registered types.
func (c *Config) Validate() error {
	var errs []error
	if c.BusName == "" {
		errs = append(errs, errors.New("bus name must not be empty"))
	}
	if c.HostLoggerFactory == nil {
		errs = append(errs, errors.New("host logger factory is required"))
	}
	if c.HandlerLoggerFactory == nil {
		errs = append(errs, errors.New("handler logger factory is required"))
	}
	if c.ResultFactory == nil {
		errs = append(errs, errors.New("result factory is required"))
	}
	if len(c.RegisteredTypes) == 0 {
		errs = append(errs, errors.New("at least one registered handler type is required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
