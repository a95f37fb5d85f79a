package redis

import (
	"context"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// CreateRelationship writes the edge hash plus its four index memberships:
// the all-edges set, the outgoing set of the source, and the incoming set
// of the target, all under the namespace the derived scope selects.
func (s *Store) CreateRelationship(ctx context.Context, r *memory.Relationship, global bool) error {
	if !r.Type.Valid() {
		return memory.ErrInvalidInput
	}

	ns := s.ws
	if global {
		ns = globalNamespace
	}

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, relationshipKey(ns, r.ID), encodeRelationship(r))
	pipe.SAdd(ctx, relationshipIDsKey(ns), r.ID)
	pipe.SAdd(ctx, outgoingKey(ns, r.FromMemoryID), r.ID)
	pipe.SAdd(ctx, incomingKey(ns, r.ToMemoryID), r.ID)

	_, err := pipe.Exec(ctx)
	return err
}

// GetRelationship retrieves a relationship by id, trying the workspace
// namespace first, then the global namespace.
func (s *Store) GetRelationship(ctx context.Context, id string) (*memory.Relationship, error) {
	r, _, err := s.findRelationship(ctx, id)
	return r, err
}

// DeleteRelationship removes the edge and its index memberships. The
// endpoint memories are untouched.
func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	r, ns, err := s.findRelationship(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, relationshipKey(ns, id))
	pipe.SRem(ctx, relationshipIDsKey(ns), id)
	pipe.SRem(ctx, outgoingKey(ns, r.FromMemoryID), id)
	pipe.SRem(ctx, incomingKey(ns, r.ToMemoryID), id)

	_, err = pipe.Exec(ctx)
	return err
}

// OutgoingRelationships returns the edges whose source is memoryID,
// consulting the namespaces the store's scope mode selects. Results are
// ordered by edge id so repeated traversals visit edges deterministically.
func (s *Store) OutgoingRelationships(ctx context.Context, memoryID string) ([]*memory.Relationship, error) {
	return s.edgesFromSets(ctx, func(ns string) string { return outgoingKey(ns, memoryID) })
}

// IncomingRelationships returns the edges whose target is memoryID,
// consulting the namespaces the store's scope mode selects.
func (s *Store) IncomingRelationships(ctx context.Context, memoryID string) ([]*memory.Relationship, error) {
	return s.edgesFromSets(ctx, func(ns string) string { return incomingKey(ns, memoryID) })
}

// findRelationship locates an edge and reports which namespace holds it.
func (s *Store) findRelationship(ctx context.Context, id string) (*memory.Relationship, string, error) {
	for _, ns := range []string{s.ws, globalNamespace} {
		fields, err := s.rdb.HGetAll(ctx, relationshipKey(ns, id)).Result()
		if err != nil {
			return nil, "", err
		}
		if len(fields) > 0 {
			r, err := decodeRelationship(fields)
			if err != nil {
				return nil, "", err
			}
			return r, ns, nil
		}
	}
	return nil, "", memory.ErrRelationshipNotFound
}

// edgesFromSets collects edge ids per readable namespace and fetches the
// edge hashes, skipping dangling ids.
func (s *Store) edgesFromSets(ctx context.Context, key func(ns string) string) ([]*memory.Relationship, error) {
	var edges []*memory.Relationship
	seen := make(map[string]bool)
	for _, ns := range s.readNamespaces() {
		ids, err := s.rdb.SMembers(ctx, key(ns)).Result()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}

		pipe := s.rdb.Pipeline()
		cmds := make([]*goredis.MapStringStringCmd, len(ids))
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, relationshipKey(ns, id))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
		for _, cmd := range cmds {
			fields := cmd.Val()
			if len(fields) == 0 {
				continue
			}
			r, err := decodeRelationship(fields)
			if err != nil {
				continue
			}
			if !seen[r.ID] {
				seen[r.ID] = true
				edges = append(edges, r)
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges, nil
}
