// Package bodyprovider defines the body-provider contract the core
// consumes but never implements: persistent storage backends for message
// bodies are an explicit external collaborator, out of scope for this
// module. Only the interface the dispatch loop and producer surface call
// through lives here.
package bodyprovider

import (
	"github.com/tpilat/esbcore/queue"
	"github.com/tpilat/esbcore/trace"
	"github.com/tpilat/esbcore/transaction"
)

// Provider is the body-provider contract: optional persistence of message
// payloads, keyed by message id.
type Provider interface {
	// AllowMessagePersistence reports whether persistence should be
	// attempted at all for msg, honoring a message- or queue-level
	// disable flag.
	AllowMessagePersistence(disabled bool, msg *queue.QueuedMessage) bool

	// SaveToStorage persists body for every message in list, enrolling the
	// write into tx so it commits or rolls back with the rest of the
	// operation.
	SaveToStorage(list []*queue.QueuedMessage, body []byte, tr trace.Info, tx transaction.Controller) error

	// LoadFromStorage reconstitutes the body previously saved for msg.
	LoadFromStorage(msg *queue.QueuedMessage, tr trace.Info, tx transaction.Controller) ([]byte, error)

	// SaveReplyToStorage persists a handler's reply payload, keyed by the
	// originating message id.
	SaveReplyToStorage(messageID string, reply []byte, tr trace.Info, tx transaction.Controller) error
}

// AllowMessagePersistence is invariant 7's predicate: attempt persistence
// iff the provider exists and its own AllowMessagePersistence returns true.
// The disabled flag is passed through to the provider, which decides how
// to honor it; this function does not check it itself.
func AllowMessagePersistence(provider Provider, disabled bool, msg *queue.QueuedMessage) bool {
	if provider == nil {
		return false
	}
	return provider.AllowMessagePersistence(disabled, msg)
}
