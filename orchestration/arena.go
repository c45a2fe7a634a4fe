// Package orchestration implements the long-running workflow model: step
// definitions composed into orchestrations, live instances, and the event
// sink a queue's push-sync handler uses to persist orchestration events
// and wake resumable instances. Adapted from the teacher's stageflow
// engine (Workflow/Stage/WorkflowState), generalized from a
// transport-coupled workflow runner into the in-process sink the queue
// runtime drives.
package orchestration

import "sync"

// StepID identifies a step within an arena by integer, not by pointer:
// OrchestrationStep and OrchestrationDefinition reference each other
// structurally (a step belongs to a definition, a definition lists its
// steps) without either owning the other's lifetime, so the relationship
// is modeled via lookup through a shared arena rather than mutually-owning
// references.
type StepID int

// OrchestrationStep is one unit of work within a definition.
type OrchestrationStep struct {
	ID             StepID
	DefinitionName string
	Name           string
	Dependencies   []StepID
}

// OrchestrationDefinition is the template a running instance follows.
type OrchestrationDefinition struct {
	Name    string
	StepIDs []StepID
}

// Arena owns every step and definition by value identity (StepID / Name),
// breaking the cyclic step<->definition reference into two flat maps.
type Arena struct {
	mu          sync.RWMutex
	steps       map[StepID]*OrchestrationStep
	definitions map[string]*OrchestrationDefinition
	nextStepID  StepID
}

func NewArena() *Arena {
	return &Arena{
		steps:       make(map[StepID]*OrchestrationStep),
		definitions: make(map[string]*OrchestrationDefinition),
	}
}

// DefineStep allocates a new step within definitionName and returns its id.
func (a *Arena) DefineStep(definitionName, name string, dependencies ...StepID) StepID {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextStepID
	a.nextStepID++
	a.steps[id] = &OrchestrationStep{ID: id, DefinitionName: definitionName, Name: name, Dependencies: dependencies}

	def, ok := a.definitions[definitionName]
	if !ok {
		def = &OrchestrationDefinition{Name: definitionName}
		a.definitions[definitionName] = def
	}
	def.StepIDs = append(def.StepIDs, id)
	return id
}

func (a *Arena) Step(id StepID) (*OrchestrationStep, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.steps[id]
	return s, ok
}

func (a *Arena) Definition(name string) (*OrchestrationDefinition, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	d, ok := a.definitions[name]
	return d, ok
}

// StepsOf resolves every step belonging to a definition, in declaration
// order.
func (a *Arena) StepsOf(definitionName string) []*OrchestrationStep {
	a.mu.RLock()
	defer a.mu.RUnlock()
	def, ok := a.definitions[definitionName]
	if !ok {
		return nil
	}
	steps := make([]*OrchestrationStep, 0, len(def.StepIDs))
	for _, id := range def.StepIDs {
		if s, ok := a.steps[id]; ok {
			steps = append(steps, s)
		}
	}
	return steps
}
