package orchestration

import (
	"sync"
	"time"

	"github.com/tpilat/esbcore/queue"
)

// InstanceStatus is the lifecycle state of an OrchestrationInstance.
type InstanceStatus int

const (
	StatusRunning InstanceStatus = iota
	StatusExecuting
	StatusCompleted
	StatusFailed
)

// Instance is a stateful long-running workflow composed of steps, driven
// by orchestration events.
type Instance struct {
	Key            string
	DefinitionName string
	Status         InstanceStatus
	CurrentStepID  StepID
}

// Event is an orchestration event consumed by the sink. ID is the
// caller-supplied event identity the sink uses for idempotent storage;
// OrchestrationKey selects which instances to wake.
type Event struct {
	ID               string
	OrchestrationKey string
	QueuedMessageID  string
	Payload          []byte
	CreatedAt        time.Time
}

// EventStore persists orchestration events. SaveNewEventAsync must be
// idempotent per event id: repeated delivery of the same event must not
// create duplicate stored events.
type EventStore interface {
	SaveNewEventAsync(event Event) (created bool, err error)
}

// InstanceStore resolves orchestration instances by key.
type InstanceStore interface {
	FindByKey(key string) ([]*Instance, error)
}

// InMemoryEventStore is the default EventStore, grounded on the teacher's
// InMemoryStateStore save/load pattern: a mutex-guarded map keyed by the
// identity SaveNewEventAsync must deduplicate on.
type InMemoryEventStore struct {
	mu     sync.Mutex
	events map[string]Event
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string]Event)}
}

func (s *InMemoryEventStore) SaveNewEventAsync(event Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; exists {
		return false, nil
	}
	s.events[event.ID] = event
	return true, nil
}

// InMemoryInstanceStore is the default InstanceStore.
type InMemoryInstanceStore struct {
	mu        sync.RWMutex
	instances map[string][]*Instance
}

func NewInMemoryInstanceStore() *InMemoryInstanceStore {
	return &InMemoryInstanceStore{instances: make(map[string][]*Instance)}
}

func (s *InMemoryInstanceStore) FindByKey(key string) ([]*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instances[key], nil
}

// Put registers or replaces the instance list for key, used by hosts that
// create instances outside the sink's own path.
func (s *InMemoryInstanceStore) Put(key string, instances []*Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[key] = instances
}

// ResumeFunc signals a live instance to resume execution
// (StartOrchestrationWorkerInternal in the design notes' vocabulary).
type ResumeFunc func(instance *Instance, event Event)

// Sink is the queue's push-sync handler for orchestration events: it
// stamps the event with its queued message id, persists it idempotently,
// looks up instances for the event's orchestration key, and signals every
// Running or Executing instance to resume.
type Sink struct {
	events    EventStore
	instances InstanceStore
	resume    ResumeFunc
}

func NewSink(events EventStore, instances InstanceStore, resume ResumeFunc) *Sink {
	return &Sink{events: events, instances: instances, resume: resume}
}

// HandleMessage implements queue.HandleMessageFunc's signature so a Sink
// can be installed directly as a push-sync queue's handler.
func (s *Sink) HandleMessage(msg *queue.QueuedMessage) (queue.MessageResult, error) {
	event := Event{
		ID:               eventIDOf(msg),
		OrchestrationKey: msg.IDSession,
		QueuedMessageID:  msg.MessageID,
		Payload:          msg.Body,
		CreatedAt:        msg.PublishingTimeUTC,
	}

	if _, err := s.events.SaveNewEventAsync(event); err != nil {
		return queue.MessageResult{}, err
	}

	instances, err := s.instances.FindByKey(event.OrchestrationKey)
	if err != nil {
		return queue.MessageResult{}, err
	}
	for _, inst := range instances {
		if inst.Status == StatusRunning || inst.Status == StatusExecuting {
			if s.resume != nil {
				s.resume(inst, event)
			}
		}
	}

	return queue.MessageResult{Status: queue.StatusCompleted}, nil
}

// eventIDOf derives a stable event identity from the queued message when
// the message itself carries no explicit event id header, so repeated
// delivery of the same queued message is always detected as a duplicate.
func eventIDOf(msg *queue.QueuedMessage) string {
	if id, ok := msg.Headers["eventId"]; ok && id != "" {
		return id
	}
	return msg.MessageID
}
