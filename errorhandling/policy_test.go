package errorhandling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed_CanRetry(t *testing.T) {
	p := NewFixed(2, 50*time.Millisecond)
	assert.True(t, p.CanRetry(0))
	assert.True(t, p.CanRetry(1))
	assert.False(t, p.CanRetry(2))
}

func TestFixed_ConstantInterval(t *testing.T) {
	p := NewFixed(5, 100*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, p.RetryInterval(0))
	assert.Equal(t, 100*time.Millisecond, p.RetryInterval(4))
}

func TestExponentialBackoff_GrowsAndCaps(t *testing.T) {
	p := NewExponentialBackoff(10, 10*time.Millisecond, 100*time.Millisecond)
	p.Jitter = 0

	assert.Equal(t, 10*time.Millisecond, p.RetryInterval(0))
	assert.Equal(t, 20*time.Millisecond, p.RetryInterval(1))
	assert.Equal(t, 40*time.Millisecond, p.RetryInterval(2))
	assert.Equal(t, 100*time.Millisecond, p.RetryInterval(10), "must cap at MaxInterval")
}

func TestExponentialBackoff_CanRetryRespectsMaxRetries(t *testing.T) {
	p := NewExponentialBackoff(1, time.Millisecond, time.Second)
	assert.True(t, p.CanRetry(0))
	assert.False(t, p.CanRetry(1))
}

func TestNever_NeverRetries(t *testing.T) {
	var p Never
	assert.False(t, p.CanRetry(0))
	assert.Equal(t, time.Duration(0), p.RetryInterval(0))
}
