package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpilat/esbcore/handler"
)

func TestConfig_ValidateRejectsEmptyBusName(t *testing.T) {
	c := NewConfig("", WithResultFactory(func() handler.MessageHandlerResult { return handler.Completed() }),
		WithRegisteredTypes(struct{}{}))
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus name")
}

func TestConfig_ValidateRejectsMissingResultFactory(t *testing.T) {
	c := NewConfig("orders", WithRegisteredTypes(struct{}{}))
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result factory")
}

func TestConfig_ValidateRejectsEmptyRegistrationSet(t *testing.T) {
	c := NewConfig("orders", WithResultFactory(func() handler.MessageHandlerResult { return handler.Completed() }))
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered handler type")
}

func TestConfig_ValidateJoinsMultipleFailures(t *testing.T) {
	c := &Config{}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus name")
	assert.Contains(t, err.Error(), "host logger")
	assert.Contains(t, err.Error(), "handler logger")
	assert.Contains(t, err.Error(), "result factory")
	assert.Contains(t, err.Error(), "registered handler type")
}

func TestConfig_ValidatePassesWithDefaults(t *testing.T) {
	c := NewConfig("orders", WithResultFactory(func() handler.MessageHandlerResult { return handler.Completed() }),
		WithRegisteredTypes(struct{}{}))
	assert.NoError(t, c.Validate())
}

func TestNewConfig_AppliesOptionsInOrder(t *testing.T) {
	c := NewConfig("orders", WithHostInfo("host-1"), WithDefaultClientMessage("something went wrong"))
	assert.Equal(t, "orders", c.BusName)
	assert.Equal(t, "host-1", c.HostInfo)
	assert.Equal(t, "something went wrong", c.DefaultClientMessage)
	assert.NotNil(t, c.HostLoggerFactory)
	assert.NotNil(t, c.HandlerLoggerFactory)
}
