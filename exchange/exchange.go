// Package exchange implements the exchange-to-queue router: direct,
// fan-out, and header-match routing from a publication to zero or more
// bound queues. It is grounded on the teacher's topology/binding shapes
// (AMQP exchange-type conventions), reduced to pure in-process routing —
// no broker declaration, no wire-level binding.
package exchange

// Type selects an Exchange's routing algorithm.
type Type int

const (
	Direct Type = iota
	FanOut
	Headers
)

// HeadersMatch selects the conjunction/disjunction semantics for a Headers
// exchange.
type HeadersMatch int

const (
	MatchAll HeadersMatch = iota
	MatchAny
)

// Binding pairs a target queue name with a route name (used by Direct) in
// insertion order; a queue bound multiple times is visited once per
// binding, deduplicated by the router before dispatch.
type Binding struct {
	QueueName string
	RouteName string
}

// Exchange is a named routing point consulting its bindings to select
// target queues.
type Exchange struct {
	Name         string
	Type         Type
	Bindings     []Binding
	HeaderRules  map[string]string
	HeadersMatch HeadersMatch
}

// New constructs an Exchange. Headers-exchange callers set HeaderRules and
// HeadersMatch via the With* options.
func New(name string, t Type, opts ...Option) *Exchange {
	e := &Exchange{Name: name, Type: t}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type Option func(*Exchange)

func WithHeaderRules(rules map[string]string, match HeadersMatch) Option {
	return func(e *Exchange) {
		e.HeaderRules = rules
		e.HeadersMatch = match
	}
}

// Bind adds a binding in insertion order.
func (e *Exchange) Bind(queueName, routeName string) {
	e.Bindings = append(e.Bindings, Binding{QueueName: queueName, RouteName: routeName})
}

// Route yields the deduplicated, insertion-ordered set of target queue
// names for a publication.
func (e *Exchange) Route(headers map[string]string, routingKey string) []string {
	seen := make(map[string]bool, len(e.Bindings))
	var result []string
	add := func(queueName string) {
		if !seen[queueName] {
			seen[queueName] = true
			result = append(result, queueName)
		}
	}

	switch e.Type {
	case FanOut:
		for _, b := range e.Bindings {
			add(b.QueueName)
		}
	case Direct:
		for _, b := range e.Bindings {
			if b.RouteName == routingKey {
				add(b.QueueName)
			}
		}
	case Headers:
		if MatchHeaders(headers, e.HeaderRules, e.HeadersMatch) {
			for _, b := range e.Bindings {
				add(b.QueueName)
			}
		}
	}
	return result
}

// MatchHeaders implements the Headers exchange-type matching semantics:
// All is conjunction, Any is disjunction, and empty message headers or
// empty router headers never match.
func MatchHeaders(messageHeaders, routerHeaders map[string]string, match HeadersMatch) bool {
	if len(messageHeaders) == 0 || len(routerHeaders) == 0 {
		return false
	}
	switch match {
	case MatchAll:
		for k, v := range routerHeaders {
			mv, ok := messageHeaders[k]
			if !ok || mv != v {
				return false
			}
		}
		return true
	case MatchAny:
		for k, v := range routerHeaders {
			if mv, ok := messageHeaders[k]; ok && mv == v {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Router resolves exchanges by name and routes a publication through the
// named exchange to its target queues.
type Router struct {
	exchanges map[string]*Exchange
}

func NewRouter() *Router {
	return &Router{exchanges: make(map[string]*Exchange)}
}

func (r *Router) Register(e *Exchange) {
	r.exchanges[e.Name] = e
}

func (r *Router) Get(name string) (*Exchange, bool) {
	e, ok := r.exchanges[name]
	return e, ok
}

// Publish routes headers+routingKey through the named exchange, returning
// the target queue names or false if the exchange is unknown.
func (r *Router) Publish(exchangeName string, headers map[string]string, routingKey string) ([]string, bool) {
	e, ok := r.exchanges[exchangeName]
	if !ok {
		return nil, false
	}
	return e.Route(headers, routingKey), true
}
