package transaction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory_CommitRunsEnrolledWorkInOrder(t *testing.T) {
	tx := New()
	var order []int
	tx.Enroll(func() error { order = append(order, 1); return nil })
	tx.Enroll(func() error { order = append(order, 2); return nil })
	tx.Enroll(func() error { order = append(order, 3); return nil })

	require.NoError(t, tx.Commit())
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestInMemory_CommitStopsAtFirstFailingWork(t *testing.T) {
	tx := New()
	workErr := errors.New("save failed")
	ran := 0
	tx.Enroll(func() error { ran++; return nil })
	tx.Enroll(func() error { ran++; return workErr })
	tx.Enroll(func() error { ran++; return nil })

	err := tx.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, workErr)
	assert.Equal(t, 2, ran)
}

func TestInMemory_CommitWhenRollbackScheduledRollsBackInstead(t *testing.T) {
	tx := New()
	ran := false
	tx.Enroll(func() error { ran = true; return nil })
	tx.ScheduleRollback("validation failed")

	err := tx.Commit()
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestInMemory_ScheduleCommitClearsRollback(t *testing.T) {
	tx := New()
	tx.ScheduleRollback("temporary")
	require.True(t, tx.HasRollbackScheduled())

	tx.ScheduleCommit()
	assert.False(t, tx.HasRollbackScheduled())
}

func TestInMemory_RollbackDetailIsRetained(t *testing.T) {
	tx := New()
	tx.ScheduleRollback("insert failed")
	assert.Equal(t, "insert failed", tx.RollbackDetail())
}

func TestInMemory_CommitTwiceFails(t *testing.T) {
	tx := New()
	require.NoError(t, tx.Commit())
	err := tx.Commit()
	assert.Error(t, err)
}

func TestInMemory_RollbackThenCommitFails(t *testing.T) {
	tx := New()
	require.NoError(t, tx.Rollback())
	err := tx.Commit()
	assert.Error(t, err)
}

func TestInMemory_RollbackDiscardsEnrolledWork(t *testing.T) {
	tx := New()
	ran := false
	tx.Enroll(func() error { ran = true; return nil })

	require.NoError(t, tx.Rollback())
	assert.False(t, ran)
}
