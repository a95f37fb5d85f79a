// Package graph maintains typed directed relationships between memories
// and answers graph queries: bounded traversal from a root memory and
// full graph extraction for visualization.
package graph

import (
	"context"
	"errors"
	"time"

	"github.com/joseairosa/recall-sub001/pkg/memory"
	"github.com/joseairosa/recall-sub001/pkg/storage"
)

// DefaultMaxNodes caps graph extraction when the caller gives no cap.
const DefaultMaxNodes = 100

// Graph manages typed directed edges between memories.
type Graph struct {
	store storage.Store
}

// New creates a relationship graph over the given store.
func New(store storage.Store) *Graph {
	return &Graph{store: store}
}

// Link creates a typed directed edge from one memory to another.
//
// Both endpoints must exist. Self-links are rejected, and links between a
// global and a workspace-scoped memory are rejected in either direction;
// the edge's scope is derived from its endpoints (global only when both
// are global). Creating an identical (from, to, type) triple is
// idempotent: the existing edge is returned rather than duplicated.
//
// Returns the created or existing relationship, or a validation error.
func (g *Graph) Link(ctx context.Context, from, to string, relType memory.RelationType, metadata map[string]string) (*memory.Relationship, error) {
	if from == to {
		return nil, memory.ErrSelfLink
	}
	if !relType.Valid() {
		return nil, memory.ErrInvalidInput
	}

	fromMem, err := g.store.GetMemory(ctx, from)
	if err != nil {
		return nil, err
	}
	toMem, err := g.store.GetMemory(ctx, to)
	if err != nil {
		return nil, err
	}

	if fromMem.IsGlobal != toMem.IsGlobal {
		return nil, memory.ErrCrossScopeLink
	}
	global := fromMem.IsGlobal

	// Idempotency check. This read-then-write is racy under concurrent
	// callers; a rare duplicate edge is harmless because traversal
	// terminates on the visited set regardless.
	existing, err := g.store.OutgoingRelationships(ctx, from)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.ToMemoryID == to && e.Type == relType {
			return e, nil
		}
	}

	r := &memory.Relationship{
		ID:           memory.NewID(),
		FromMemoryID: from,
		ToMemoryID:   to,
		Type:         relType,
		CreatedAt:    time.Now().UnixMilli(),
		Metadata:     metadata,
	}
	if err := g.store.CreateRelationship(ctx, r, global); err != nil {
		return nil, err
	}
	return r, nil
}

// Unlink removes a relationship and its index entries. The endpoint
// memories are untouched. Returns memory.ErrRelationshipNotFound if no
// such edge exists.
func (g *Graph) Unlink(ctx context.Context, relationshipID string) error {
	return g.store.DeleteRelationship(ctx, relationshipID)
}

// TraverseOptions configures a RelatedMemories traversal.
type TraverseOptions struct {
	// Depth bounds the traversal, 1-5. Defaults to 1.
	Depth int

	// Direction selects which edges to follow. Defaults to both.
	Direction memory.Direction

	// Types restricts traversal to the given relationship types.
	Types []memory.RelationType
}

// RelatedMemories walks the graph breadth-first from memoryID and returns
// every memory reachable within the depth limit, together with the
// relationship it was reached through and the depth it was found at.
//
// A visited set guarantees termination on cycles; the root itself is never
// reported as related to itself. Re-running with the same graph state and
// arguments yields the same node set.
func (g *Graph) RelatedMemories(ctx context.Context, memoryID string, opts *TraverseOptions) ([]*memory.RelatedMemory, error) {
	if opts == nil {
		opts = &TraverseOptions{}
	}
	depth := opts.Depth
	if depth == 0 {
		depth = 1
	}
	if err := memory.ValidateDepth(depth); err != nil {
		return nil, err
	}
	direction := opts.Direction
	if direction == "" {
		direction = memory.DirectionBoth
	}
	if !direction.Valid() {
		return nil, memory.ErrInvalidInput
	}

	if _, err := g.store.GetMemory(ctx, memoryID); err != nil {
		return nil, err
	}

	visited := map[string]bool{memoryID: true}
	results := make([]*memory.RelatedMemory, 0)

	type frontier struct {
		id    string
		depth int
	}
	queue := []frontier{{id: memoryID, depth: 0}}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if node.depth >= depth {
			continue
		}

		edges, err := g.edgesAt(ctx, node.id, direction)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if !typeAllowed(e.Type, opts.Types) {
				continue
			}
			next := e.ToMemoryID
			if next == node.id {
				next = e.FromMemoryID
			}
			if visited[next] {
				continue
			}

			m, err := g.store.GetMemory(ctx, next)
			if errors.Is(err, memory.ErrNotFound) {
				// Dangling endpoint, e.g. expired by TTL.
				continue
			}
			if err != nil {
				return nil, err
			}

			visited[next] = true
			results = append(results, &memory.RelatedMemory{
				Memory:       m,
				Relationship: e,
				Depth:        node.depth + 1,
			})
			queue = append(queue, frontier{id: next, depth: node.depth + 1})
		}
	}
	return results, nil
}

// MemoryGraph extracts the subgraph around rootID: a node map keyed by
// memory id, each node carrying the memory, the relationships seen at it,
// and its depth, capped at maxNodes entries. Traversal stops early once
// the cap is hit. The returned MaxDepth is the true maximum depth reached,
// which may be less than maxDepth when the graph is smaller.
func (g *Graph) MemoryGraph(ctx context.Context, rootID string, maxDepth, maxNodes int) (*memory.Graph, error) {
	if maxDepth == 0 {
		maxDepth = 1
	}
	if err := memory.ValidateDepth(maxDepth); err != nil {
		return nil, err
	}
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}

	root, err := g.store.GetMemory(ctx, rootID)
	if err != nil {
		return nil, err
	}

	result := &memory.Graph{
		Nodes: map[string]*memory.GraphNode{
			rootID: {Memory: root, Depth: 0},
		},
	}

	type frontier struct {
		id    string
		depth int
	}
	queue := []frontier{{id: rootID, depth: 0}}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		edges, err := g.edgesAt(ctx, node.id, memory.DirectionBoth)
		if err != nil {
			return nil, err
		}
		result.Nodes[node.id].Relationships = edges

		if node.depth >= maxDepth {
			continue
		}
		for _, e := range edges {
			if len(result.Nodes) >= maxNodes {
				return result, nil
			}
			next := e.ToMemoryID
			if next == node.id {
				next = e.FromMemoryID
			}
			if _, ok := result.Nodes[next]; ok {
				continue
			}

			m, err := g.store.GetMemory(ctx, next)
			if errors.Is(err, memory.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}

			result.Nodes[next] = &memory.GraphNode{Memory: m, Depth: node.depth + 1}
			if node.depth+1 > result.MaxDepth {
				result.MaxDepth = node.depth + 1
			}
			queue = append(queue, frontier{id: next, depth: node.depth + 1})
		}
	}
	return result, nil
}

// edgesAt fetches the edges touching a node, filtered by direction and
// de-duplicated by edge id.
func (g *Graph) edgesAt(ctx context.Context, memoryID string, direction memory.Direction) ([]*memory.Relationship, error) {
	var edges []*memory.Relationship
	seen := make(map[string]bool)

	if direction == memory.DirectionOutgoing || direction == memory.DirectionBoth {
		out, err := g.store.OutgoingRelationships(ctx, memoryID)
		if err != nil {
			return nil, err
		}
		for _, e := range out {
			if !seen[e.ID] {
				seen[e.ID] = true
				edges = append(edges, e)
			}
		}
	}
	if direction == memory.DirectionIncoming || direction == memory.DirectionBoth {
		in, err := g.store.IncomingRelationships(ctx, memoryID)
		if err != nil {
			return nil, err
		}
		for _, e := range in {
			if !seen[e.ID] {
				seen[e.ID] = true
				edges = append(edges, e)
			}
		}
	}
	return edges, nil
}

func typeAllowed(t memory.RelationType, allowed []memory.RelationType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}
