// Package transaction implements the transaction-controller contract every
// queue operation runs inside: ScheduleCommit/ScheduleRollback, running
// enrolled work in enrollment order on commit. Work that already ran is not
// undone when a later item fails. It is adapted from the publish
// transaction in the teacher's messaging package, generalized from
// "wraps a single publish" to "wraps any enrolled side effects".
package transaction

import (
	"fmt"
	"sync"
)

// Work is a side effect enrolled into a transaction: a fault-queue enqueue,
// a body save, a container mutation. It runs at commit time, in enrollment
// order, and its error (if any) is returned from Commit.
type Work func() error

// Controller is the transaction-controller contract named in the
// external-interfaces section: ScheduleCommit/ScheduleRollback, running
// enrolled work in order on commit and stopping at the first failure
// without undoing the work that already ran.
type Controller interface {
	Enroll(w Work)
	ScheduleCommit()
	ScheduleRollback(detail string)
	Commit() error
	Rollback() error
	HasRollbackScheduled() bool
	RollbackDetail() string
}

// InMemory is the in-process Controller implementation. One instance is
// opened per operation scope (one dispatch-loop tick, one handler
// invocation) and is never shared across scopes.
type InMemory struct {
	mu               sync.Mutex
	enrolled         []Work
	committed        bool
	rolledBack       bool
	rollbackSchedule bool
	rollbackDetail   string
}

// New opens a fresh transaction controller.
func New() *InMemory {
	return &InMemory{}
}

func (t *InMemory) Enroll(w Work) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enrolled = append(t.enrolled, w)
}

func (t *InMemory) ScheduleCommit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollbackSchedule = false
}

func (t *InMemory) ScheduleRollback(detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollbackSchedule = true
	t.rollbackDetail = detail
}

func (t *InMemory) HasRollbackScheduled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackSchedule
}

func (t *InMemory) RollbackDetail() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackDetail
}

// Commit runs every enrolled Work in order. If scheduled for rollback
// instead, it rolls back and returns Rollback's result (nil unless the
// transaction was already finalized).
func (t *InMemory) Commit() error {
	t.mu.Lock()
	if t.committed || t.rolledBack {
		t.mu.Unlock()
		return fmt.Errorf("transaction already finalized")
	}
	if t.rollbackSchedule {
		t.mu.Unlock()
		return t.Rollback()
	}
	work := t.enrolled
	t.committed = true
	t.mu.Unlock()

	for _, w := range work {
		if err := w(); err != nil {
			return fmt.Errorf("commit: enrolled work failed: %w", err)
		}
	}
	return nil
}

// Rollback discards enrolled work without running it.
func (t *InMemory) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolledBack {
		return fmt.Errorf("transaction already finalized")
	}
	t.rolledBack = true
	t.enrolled = nil
	return nil
}
