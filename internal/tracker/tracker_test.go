package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIDIsMonotonicAndDeterministic(t *testing.T) {
	tr := New()
	assert.Equal(t, "model-1", tr.NextID())
	assert.Equal(t, "model-2", tr.NextID())
	assert.Equal(t, "model-3", tr.NextID())
}

func TestInsertAssignsCounterIDWhenEmpty(t *testing.T) {
	tr := New()
	m := &LoadedModel{}
	id := tr.Insert("", m)
	assert.Equal(t, "model-1", id)
	assert.Same(t, m, tr.Get("model-1"))
}

func TestInsertKeepsCallerSuppliedID(t *testing.T) {
	tr := New()
	id := tr.Insert("my-custom-id", &LoadedModel{})
	assert.Equal(t, "my-custom-id", id)
}

func TestFirstInsertedModelBecomesActive(t *testing.T) {
	tr := New()
	tr.Insert("a", &LoadedModel{})
	tr.Insert("b", &LoadedModel{})
	assert.Equal(t, "a", tr.ActiveID())
}
