package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseairosa/recall-sub001/pkg/memory"
)

func TestContextTypeValid(t *testing.T) {
	for _, ct := range memory.ContextTypes() {
		assert.True(t, ct.Valid(), "expected %q to be valid", ct)
	}
	assert.False(t, memory.ContextType("").Valid())
	assert.False(t, memory.ContextType("note").Valid())
	assert.False(t, memory.ContextType("Decision").Valid())
}

func TestRelationTypeValid(t *testing.T) {
	valid := []memory.RelationType{
		memory.RelationRelatesTo,
		memory.RelationParentOf,
		memory.RelationChildOf,
		memory.RelationReferences,
		memory.RelationSupersedes,
		memory.RelationImplements,
		memory.RelationExampleOf,
	}
	for _, rt := range valid {
		assert.True(t, rt.Valid(), "expected %q to be valid", rt)
	}
	assert.False(t, memory.RelationType("").Valid())
	assert.False(t, memory.RelationType("linked_to").Valid())
}

func TestScopeModeValid(t *testing.T) {
	assert.True(t, memory.ModeIsolated.Valid())
	assert.True(t, memory.ModeGlobal.Valid())
	assert.True(t, memory.ModeHybrid.Valid())
	assert.False(t, memory.ScopeMode("").Valid())
	assert.False(t, memory.ScopeMode("shared").Valid())
}

func TestDirectionValid(t *testing.T) {
	assert.True(t, memory.DirectionOutgoing.Valid())
	assert.True(t, memory.DirectionIncoming.Valid())
	assert.True(t, memory.DirectionBoth.Valid())
	assert.False(t, memory.Direction("up").Valid())
}

func TestValidateImportance(t *testing.T) {
	tests := []struct {
		importance int
		wantErr    bool
	}{
		{0, true},
		{1, false},
		{5, false},
		{10, false},
		{11, true},
		{-3, true},
	}
	for _, tt := range tests {
		err := memory.ValidateImportance(tt.importance)
		if tt.wantErr {
			assert.ErrorIs(t, err, memory.ErrInvalidInput, "importance %d", tt.importance)
		} else {
			assert.NoError(t, err, "importance %d", tt.importance)
		}
	}
}

func TestValidateDepth(t *testing.T) {
	tests := []struct {
		depth   int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{5, false},
		{6, true},
		{-1, true},
	}
	for _, tt := range tests {
		err := memory.ValidateDepth(tt.depth)
		if tt.wantErr {
			assert.ErrorIs(t, err, memory.ErrInvalidDepth, "depth %d", tt.depth)
		} else {
			assert.NoError(t, err, "depth %d", tt.depth)
		}
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	var prev string
	for i := 0; i < 100; i++ {
		id := memory.NewID()
		assert.Len(t, id, 26)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		// Monotonic entropy: ids sort in generation order.
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestMemoryHasEmbedding(t *testing.T) {
	m := &memory.Memory{}
	assert.False(t, m.HasEmbedding())
	m.Embedding = []float64{0.1, 0.2}
	assert.True(t, m.HasEmbedding())
}

func TestMemoryHasTag(t *testing.T) {
	m := &memory.Memory{Tags: []string{"api", "limits"}}
	assert.True(t, m.HasTag("api"))
	assert.False(t, m.HasTag("storage"))
	assert.False(t, (&memory.Memory{}).HasTag("api"))
}

func TestMemoryClone(t *testing.T) {
	m := &memory.Memory{
		ID:          memory.NewID(),
		ContextType: memory.ContextDecision,
		Content:     "original",
		Tags:        []string{"a", "b"},
		Importance:  7,
		Embedding:   []float64{0.5, 0.5},
	}

	c := m.Clone()
	assert.Equal(t, m, c)

	// Mutating the clone must not touch the original.
	c.Tags[0] = "z"
	c.Embedding[0] = 0.9
	c.Content = "changed"
	assert.Equal(t, "a", m.Tags[0])
	assert.Equal(t, 0.5, m.Embedding[0])
	assert.Equal(t, "original", m.Content)
}
