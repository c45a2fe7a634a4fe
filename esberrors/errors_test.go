package esberrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgumentError_WrapsCauseAndUnwraps(t *testing.T) {
	cause := errors.New("nil pointer")
	err := &ArgumentError{Arg: "requestType", Detail: "must not be nil", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "requestType")
	assert.Contains(t, err.Error(), "must not be nil")
}

func TestNewArgumentError_HasNoCause(t *testing.T) {
	err := NewArgumentError("queueName", "unknown queue: orders")
	assert.Nil(t, err.Unwrap())
	assert.Contains(t, err.Error(), "unknown queue: orders")
}

func TestInvalidStateError_MessageNamesQueue(t *testing.T) {
	err := NewInvalidStateError("orders.created", "disposed-object")
	assert.Contains(t, err.Error(), "orders.created")
	assert.Contains(t, err.Error(), "disposed-object")
}

func TestInvariantViolationError_Message(t *testing.T) {
	err := NewInvariantViolationError("handler returned nil result")
	assert.Contains(t, err.Error(), "handler returned nil result")
}

func TestHandlerError_ErrorIncludesCauseWhenPresent(t *testing.T) {
	cause := errors.New("downstream failure")
	err := NewHandlerError("something went wrong", "insert failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert failed")
	assert.Contains(t, err.Error(), "downstream failure")
}

func TestHandlerError_ErrorOmitsCauseWhenNil(t *testing.T) {
	err := NewHandlerError("something went wrong", "validation failed", nil)
	assert.Equal(t, "handler error: validation failed", err.Error())
}

func TestTransportError_WrapsOpAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransportError("container.enqueue", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "container.enqueue")
}

func TestFaultRoutingError_WrapsQueueNameAndCause(t *testing.T) {
	cause := errors.New("capacity exceeded")
	err := NewFaultRoutingError("orders.fault", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "orders.fault")
}
