package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_StartsRootSpanWithNoParent(t *testing.T) {
	info := New("MessageBus.Send")

	assert.NotEmpty(t, info.TraceID)
	assert.NotEmpty(t, info.SpanID)
	assert.Empty(t, info.ParentSpanID)
	assert.Equal(t, "MessageBus.Send", info.CallSite)
}

func TestNew_GeneratesDistinctIDsAcrossCalls(t *testing.T) {
	a := New("first")
	b := New("second")

	assert.NotEqual(t, a.TraceID, b.TraceID)
	assert.NotEqual(t, a.SpanID, b.SpanID)
}

func TestChild_PreservesTraceIDAndLinksParentSpan(t *testing.T) {
	root := New("MessageBus.Publish")
	child := root.Child("OrderCreatedHandler.HandleAsync")

	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentSpanID)
	assert.NotEqual(t, root.SpanID, child.SpanID)
	assert.Equal(t, "OrderCreatedHandler.HandleAsync", child.CallSite)
}

func TestChild_OnZeroValueInfoStillProducesATraceID(t *testing.T) {
	var empty Info
	child := empty.Child("first-span")

	assert.NotEmpty(t, child.TraceID)
	assert.Empty(t, child.ParentSpanID)
}

func TestChild_GrandchildChainsThroughSameTraceID(t *testing.T) {
	root := New("root")
	child := root.Child("child")
	grandchild := child.Child("grandchild")

	assert.Equal(t, root.TraceID, grandchild.TraceID)
	assert.Equal(t, child.SpanID, grandchild.ParentSpanID)
}
