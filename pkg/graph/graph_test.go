package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseairosa/recall-sub001/pkg/graph"
	"github.com/joseairosa/recall-sub001/pkg/memory"
	redisStore "github.com/joseairosa/recall-sub001/pkg/storage/redis"
)

func newTestGraph(t *testing.T) (*graph.Graph, *redisStore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := redisStore.New(context.Background(), &redisStore.Config{
		Addr:          mr.Addr(),
		WorkspacePath: "/home/dev/project",
		Mode:          memory.ModeIsolated,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return graph.New(store), store
}

func storeMemory(t *testing.T, store *redisStore.Store, content string, global bool) *memory.Memory {
	t.Helper()
	m := &memory.Memory{
		ID:          memory.NewID(),
		CreatedAt:   time.Now().UnixMilli(),
		ContextType: memory.ContextInformation,
		Content:     content,
		Importance:  5,
		IsGlobal:    global,
	}
	require.NoError(t, store.CreateMemory(context.Background(), m))
	return m
}

func TestLink(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	a := storeMemory(t, store, "a", false)
	b := storeMemory(t, store, "b", false)

	r, err := g.Link(ctx, a.ID, b.ID, memory.RelationReferences, map[string]string{"note": "ctx"})
	require.NoError(t, err)
	assert.Equal(t, a.ID, r.FromMemoryID)
	assert.Equal(t, b.ID, r.ToMemoryID)
	assert.Equal(t, memory.RelationReferences, r.Type)
	assert.NotEmpty(t, r.ID)
	assert.NotZero(t, r.CreatedAt)
}

func TestLinkSelf(t *testing.T) {
	g, store := newTestGraph(t)
	a := storeMemory(t, store, "a", false)

	_, err := g.Link(context.Background(), a.ID, a.ID, memory.RelationRelatesTo, nil)
	assert.ErrorIs(t, err, memory.ErrSelfLink)
}

func TestLinkInvalidType(t *testing.T) {
	g, store := newTestGraph(t)
	a := storeMemory(t, store, "a", false)
	b := storeMemory(t, store, "b", false)

	_, err := g.Link(context.Background(), a.ID, b.ID, "linked_to", nil)
	assert.ErrorIs(t, err, memory.ErrInvalidInput)
}

func TestLinkMissingEndpoint(t *testing.T) {
	g, store := newTestGraph(t)
	a := storeMemory(t, store, "a", false)
	ctx := context.Background()

	_, err := g.Link(ctx, a.ID, memory.NewID(), memory.RelationRelatesTo, nil)
	assert.ErrorIs(t, err, memory.ErrNotFound)

	_, err = g.Link(ctx, memory.NewID(), a.ID, memory.RelationRelatesTo, nil)
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestLinkCrossScope(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	local := storeMemory(t, store, "workspace", false)
	global := storeMemory(t, store, "global", true)

	_, err := g.Link(ctx, local.ID, global.ID, memory.RelationReferences, nil)
	assert.ErrorIs(t, err, memory.ErrCrossScopeLink)

	_, err = g.Link(ctx, global.ID, local.ID, memory.RelationReferences, nil)
	assert.ErrorIs(t, err, memory.ErrCrossScopeLink)
}

func TestLinkGlobalEndpoints(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	a := storeMemory(t, store, "a", true)
	b := storeMemory(t, store, "b", true)

	r, err := g.Link(ctx, a.ID, b.ID, memory.RelationRelatesTo, nil)
	require.NoError(t, err)

	got, err := store.GetRelationship(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestLinkIdempotent(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	a := storeMemory(t, store, "a", false)
	b := storeMemory(t, store, "b", false)

	first, err := g.Link(ctx, a.ID, b.ID, memory.RelationReferences, nil)
	require.NoError(t, err)

	second, err := g.Link(ctx, a.ID, b.ID, memory.RelationReferences, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different type on the same pair is a distinct edge.
	third, err := g.Link(ctx, a.ID, b.ID, memory.RelationSupersedes, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)

	// So is the reverse direction.
	fourth, err := g.Link(ctx, b.ID, a.ID, memory.RelationReferences, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fourth.ID)

	out, err := store.OutgoingRelationships(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestUnlink(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	a := storeMemory(t, store, "a", false)
	b := storeMemory(t, store, "b", false)
	r, err := g.Link(ctx, a.ID, b.ID, memory.RelationReferences, nil)
	require.NoError(t, err)

	require.NoError(t, g.Unlink(ctx, r.ID))

	related, err := g.RelatedMemories(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, related)

	// Endpoints survive the unlink.
	_, err = store.GetMemory(ctx, a.ID)
	assert.NoError(t, err)
	_, err = store.GetMemory(ctx, b.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, g.Unlink(ctx, r.ID), memory.ErrRelationshipNotFound)
}

func TestRelatedMemoriesDepth(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	// Chain: a -> b -> c -> d
	a := storeMemory(t, store, "a", false)
	b := storeMemory(t, store, "b", false)
	c := storeMemory(t, store, "c", false)
	d := storeMemory(t, store, "d", false)
	for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, c.ID}, {c.ID, d.ID}} {
		_, err := g.Link(ctx, pair[0], pair[1], memory.RelationParentOf, nil)
		require.NoError(t, err)
	}

	related, err := g.RelatedMemories(ctx, a.ID, &graph.TraverseOptions{Depth: 1})
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, b.ID, related[0].Memory.ID)
	assert.Equal(t, 1, related[0].Depth)

	related, err = g.RelatedMemories(ctx, a.ID, &graph.TraverseOptions{Depth: 3})
	require.NoError(t, err)
	require.Len(t, related, 3)
	depths := map[string]int{}
	for _, r := range related {
		depths[r.Memory.ID] = r.Depth
	}
	assert.Equal(t, map[string]int{b.ID: 1, c.ID: 2, d.ID: 3}, depths)

	// Depth defaults to 1 when unset.
	related, err = g.RelatedMemories(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Len(t, related, 1)
}

func TestRelatedMemoriesDepthValidation(t *testing.T) {
	g, store := newTestGraph(t)
	a := storeMemory(t, store, "a", false)
	ctx := context.Background()

	_, err := g.RelatedMemories(ctx, a.ID, &graph.TraverseOptions{Depth: 6})
	assert.ErrorIs(t, err, memory.ErrInvalidDepth)

	_, err = g.RelatedMemories(ctx, a.ID, &graph.TraverseOptions{Depth: -1})
	assert.ErrorIs(t, err, memory.ErrInvalidDepth)

	_, err = g.RelatedMemories(ctx, memory.NewID(), nil)
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestRelatedMemoriesCycle(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	// Cycle: a -> b -> c -> a
	a := storeMemory(t, store, "a", false)
	b := storeMemory(t, store, "b", false)
	c := storeMemory(t, store, "c", false)
	for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, c.ID}, {c.ID, a.ID}} {
		_, err := g.Link(ctx, pair[0], pair[1], memory.RelationRelatesTo, nil)
		require.NoError(t, err)
	}

	related, err := g.RelatedMemories(ctx, a.ID, &graph.TraverseOptions{Depth: 5})
	require.NoError(t, err)
	// The root is never reported, and the cycle terminates.
	require.Len(t, related, 2)
	for _, r := range related {
		assert.NotEqual(t, a.ID, r.Memory.ID)
	}
}

func TestRelatedMemoriesDirection(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	center := storeMemory(t, store, "center", false)
	upstream := storeMemory(t, store, "upstream", false)
	downstream := storeMemory(t, store, "downstream", false)
	_, err := g.Link(ctx, upstream.ID, center.ID, memory.RelationParentOf, nil)
	require.NoError(t, err)
	_, err = g.Link(ctx, center.ID, downstream.ID, memory.RelationParentOf, nil)
	require.NoError(t, err)

	related, err := g.RelatedMemories(ctx, center.ID, &graph.TraverseOptions{Direction: memory.DirectionOutgoing})
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, downstream.ID, related[0].Memory.ID)

	related, err = g.RelatedMemories(ctx, center.ID, &graph.TraverseOptions{Direction: memory.DirectionIncoming})
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, upstream.ID, related[0].Memory.ID)

	related, err = g.RelatedMemories(ctx, center.ID, &graph.TraverseOptions{Direction: memory.DirectionBoth})
	require.NoError(t, err)
	assert.Len(t, related, 2)

	_, err = g.RelatedMemories(ctx, center.ID, &graph.TraverseOptions{Direction: "sideways"})
	assert.ErrorIs(t, err, memory.ErrInvalidInput)
}

func TestRelatedMemoriesTypeFilter(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	a := storeMemory(t, store, "a", false)
	b := storeMemory(t, store, "b", false)
	c := storeMemory(t, store, "c", false)
	_, err := g.Link(ctx, a.ID, b.ID, memory.RelationReferences, nil)
	require.NoError(t, err)
	_, err = g.Link(ctx, a.ID, c.ID, memory.RelationSupersedes, nil)
	require.NoError(t, err)

	related, err := g.RelatedMemories(ctx, a.ID, &graph.TraverseOptions{
		Types: []memory.RelationType{memory.RelationSupersedes},
	})
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, c.ID, related[0].Memory.ID)
}

func TestRelatedMemoriesSkipsDanglingEndpoints(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	a := storeMemory(t, store, "a", false)
	b := storeMemory(t, store, "b", false)
	c := storeMemory(t, store, "c", false)
	_, err := g.Link(ctx, a.ID, b.ID, memory.RelationRelatesTo, nil)
	require.NoError(t, err)
	_, err = g.Link(ctx, a.ID, c.ID, memory.RelationRelatesTo, nil)
	require.NoError(t, err)

	// Deleting a memory leaves its edges behind; traversal must skip them.
	require.NoError(t, store.DeleteMemory(ctx, b.ID))

	related, err := g.RelatedMemories(ctx, a.ID, nil)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, c.ID, related[0].Memory.ID)
}

func TestMemoryGraph(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	a := storeMemory(t, store, "a", false)
	b := storeMemory(t, store, "b", false)
	c := storeMemory(t, store, "c", false)
	_, err := g.Link(ctx, a.ID, b.ID, memory.RelationParentOf, nil)
	require.NoError(t, err)
	_, err = g.Link(ctx, b.ID, c.ID, memory.RelationParentOf, nil)
	require.NoError(t, err)

	result, err := g.MemoryGraph(ctx, a.ID, 5, 0)
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 3)
	assert.Equal(t, 2, result.MaxDepth)
	assert.Equal(t, 0, result.Nodes[a.ID].Depth)
	assert.Equal(t, 1, result.Nodes[b.ID].Depth)
	assert.Equal(t, 2, result.Nodes[c.ID].Depth)
	assert.Len(t, result.Nodes[b.ID].Relationships, 2)
}

func TestMemoryGraphNodeCap(t *testing.T) {
	g, store := newTestGraph(t)
	ctx := context.Background()

	hub := storeMemory(t, store, "hub", false)
	for i := 0; i < 5; i++ {
		spoke := storeMemory(t, store, "spoke", false)
		_, err := g.Link(ctx, hub.ID, spoke.ID, memory.RelationRelatesTo, nil)
		require.NoError(t, err)
	}

	result, err := g.MemoryGraph(ctx, hub.ID, 2, 3)
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 3)
}

func TestMemoryGraphDepthValidation(t *testing.T) {
	g, store := newTestGraph(t)
	a := storeMemory(t, store, "a", false)

	_, err := g.MemoryGraph(context.Background(), a.ID, 6, 10)
	assert.ErrorIs(t, err, memory.ErrInvalidDepth)
}
