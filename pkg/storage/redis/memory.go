package redis

import (
	"context"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// CreateMemory writes the primary hash and every index membership the
// memory's fields imply, in one pipelined submission.
//
// Index writes target either the workspace or the global variant of each
// index, never both, matching the memory's scope. A TTL, when present,
// expires only the primary record; stale index entries are skipped on read.
func (s *Store) CreateMemory(ctx context.Context, m *memory.Memory) error {
	if err := memory.ValidateImportance(m.Importance); err != nil {
		return err
	}
	if !m.ContextType.Valid() {
		return memory.ErrInvalidInput
	}
	if m.IsGlobal {
		m.WorkspaceID = ""
	} else if m.WorkspaceID == "" {
		m.WorkspaceID = s.ws
	}

	ns := s.namespaceFor(m)
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, memoryKey(ns, m.ID), encodeMemory(m))
	if m.TTLSeconds > 0 {
		pipe.Expire(ctx, memoryKey(ns, m.ID), time.Duration(m.TTLSeconds)*time.Second)
	}
	pipe.SAdd(ctx, memoryIDsKey(ns), m.ID)
	pipe.ZAdd(ctx, timelineKey(ns), goredis.Z{Score: float64(m.CreatedAt), Member: m.ID})
	pipe.SAdd(ctx, typeKey(ns, m.ContextType), m.ID)
	for _, tag := range m.Tags {
		pipe.SAdd(ctx, tagKey(ns, tag), m.ID)
	}
	if m.Importance >= memory.ImportantThreshold {
		pipe.ZAdd(ctx, importantKey(ns), goredis.Z{Score: float64(m.Importance), Member: m.ID})
	}

	_, err := pipe.Exec(ctx)
	return err
}

// GetMemory retrieves a memory by id. The lookup is scope-unaware: the
// workspace namespace is tried first, then the global namespace.
func (s *Store) GetMemory(ctx context.Context, id string) (*memory.Memory, error) {
	for _, ns := range []string{s.ws, globalNamespace} {
		fields, err := s.rdb.HGetAll(ctx, memoryKey(ns, id)).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			return decodeMemory(fields)
		}
	}
	return nil, memory.ErrNotFound
}

// GetMemories retrieves several memories in a batched best-effort fetch.
// Ids that are missing or expired are dropped from the result.
func (s *Store) GetMemories(ctx context.Context, ids []string) ([]*memory.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found := make(map[string]*memory.Memory, len(ids))
	for _, ns := range []string{s.ws, globalNamespace} {
		pending := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				pending = append(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}

		pipe := s.rdb.Pipeline()
		cmds := make([]*goredis.MapStringStringCmd, len(pending))
		for i, id := range pending {
			cmds[i] = pipe.HGetAll(ctx, memoryKey(ns, id))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
		for i, cmd := range cmds {
			fields := cmd.Val()
			if len(fields) == 0 {
				continue
			}
			m, err := decodeMemory(fields)
			if err != nil {
				continue
			}
			found[pending[i]] = m
		}
	}

	result := make([]*memory.Memory, 0, len(found))
	for _, id := range ids {
		if m, ok := found[id]; ok {
			result = append(result, m)
		}
	}
	return result, nil
}

// UpdateMemory replaces old with updated and adjusts index memberships
// differentially. Scope must not change here; use ConvertScope for that.
func (s *Store) UpdateMemory(ctx context.Context, old, updated *memory.Memory) error {
	if old.ID != updated.ID || old.IsGlobal != updated.IsGlobal {
		return memory.ErrInvalidInput
	}
	if err := memory.ValidateImportance(updated.Importance); err != nil {
		return err
	}
	if !updated.ContextType.Valid() {
		return memory.ErrInvalidInput
	}

	ns := s.namespaceFor(updated)
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, memoryKey(ns, updated.ID), encodeMemory(updated))

	if old.ContextType != updated.ContextType {
		pipe.SRem(ctx, typeKey(ns, old.ContextType), updated.ID)
		pipe.SAdd(ctx, typeKey(ns, updated.ContextType), updated.ID)
	}

	oldTags := tagSet(old.Tags)
	newTags := tagSet(updated.Tags)
	for tag := range oldTags {
		if !newTags[tag] {
			pipe.SRem(ctx, tagKey(ns, tag), updated.ID)
		}
	}
	for tag := range newTags {
		if !oldTags[tag] {
			pipe.SAdd(ctx, tagKey(ns, tag), updated.ID)
		}
	}

	// Importance membership moves across the threshold in either direction.
	if updated.Importance >= memory.ImportantThreshold {
		pipe.ZAdd(ctx, importantKey(ns), goredis.Z{Score: float64(updated.Importance), Member: updated.ID})
	} else if old.Importance >= memory.ImportantThreshold {
		pipe.ZRem(ctx, importantKey(ns), updated.ID)
	}

	if updated.TTLSeconds > 0 {
		pipe.Expire(ctx, memoryKey(ns, updated.ID), time.Duration(updated.TTLSeconds)*time.Second)
	} else if old.TTLSeconds > 0 {
		pipe.Persist(ctx, memoryKey(ns, updated.ID))
	}

	_, err := pipe.Exec(ctx)
	return err
}

// DeleteMemory removes the primary record and every index membership the
// memory's current fields imply.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	m, err := s.GetMemory(ctx, id)
	if err != nil {
		return err
	}

	ns := s.namespaceFor(m)
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, memoryKey(ns, id))
	pipe.SRem(ctx, memoryIDsKey(ns), id)
	pipe.ZRem(ctx, timelineKey(ns), id)
	pipe.SRem(ctx, typeKey(ns, m.ContextType), id)
	for _, tag := range m.Tags {
		pipe.SRem(ctx, tagKey(ns, tag), id)
	}
	if m.Importance >= memory.ImportantThreshold {
		pipe.ZRem(ctx, importantKey(ns), id)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// ConvertScope moves a memory between scopes, removing every index entry
// under the old namespace and re-adding it under the new one in a single
// pipelined submission. Returns the memory unchanged if it already has the
// target scope.
func (s *Store) ConvertScope(ctx context.Context, id string, targetGlobal bool, targetWorkspace string) (*memory.Memory, error) {
	m, err := s.GetMemory(ctx, id)
	if err != nil {
		return nil, err
	}

	if targetWorkspace == "" {
		targetWorkspace = s.ws
	}
	if m.IsGlobal == targetGlobal && (targetGlobal || m.WorkspaceID == targetWorkspace) {
		return m, nil
	}

	oldNS := s.namespaceFor(m)
	converted := m.Clone()
	converted.IsGlobal = targetGlobal
	if targetGlobal {
		converted.WorkspaceID = ""
	} else {
		converted.WorkspaceID = targetWorkspace
	}
	newNS := s.namespaceFor(converted)

	pipe := s.rdb.Pipeline()

	pipe.Del(ctx, memoryKey(oldNS, id))
	pipe.SRem(ctx, memoryIDsKey(oldNS), id)
	pipe.ZRem(ctx, timelineKey(oldNS), id)
	pipe.SRem(ctx, typeKey(oldNS, m.ContextType), id)
	for _, tag := range m.Tags {
		pipe.SRem(ctx, tagKey(oldNS, tag), id)
	}
	if m.Importance >= memory.ImportantThreshold {
		pipe.ZRem(ctx, importantKey(oldNS), id)
	}

	pipe.HSet(ctx, memoryKey(newNS, id), encodeMemory(converted))
	if remaining := converted.ExpiresAt - time.Now().UnixMilli(); converted.TTLSeconds > 0 && remaining > 0 {
		pipe.PExpire(ctx, memoryKey(newNS, id), time.Duration(remaining)*time.Millisecond)
	}
	pipe.SAdd(ctx, memoryIDsKey(newNS), id)
	pipe.ZAdd(ctx, timelineKey(newNS), goredis.Z{Score: float64(converted.CreatedAt), Member: id})
	pipe.SAdd(ctx, typeKey(newNS, converted.ContextType), id)
	for _, tag := range converted.Tags {
		pipe.SAdd(ctx, tagKey(newNS, tag), id)
	}
	if converted.Importance >= memory.ImportantThreshold {
		pipe.ZAdd(ctx, importantKey(newNS), goredis.Z{Score: float64(converted.Importance), Member: id})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return converted, nil
}

// CountMemories returns the total memory count across both scopes.
func (s *Store) CountMemories(ctx context.Context) (int64, error) {
	var total int64
	for _, ns := range []string{s.ws, globalNamespace} {
		n, err := s.rdb.SCard(ctx, memoryIDsKey(ns)).Result()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// ListRecent returns up to limit memories newest-first, respecting the
// store's scope mode.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*memory.Memory, error) {
	merged := make([]*memory.Memory, 0, limit)
	seen := make(map[string]bool)
	for _, ns := range s.readNamespaces() {
		ids, err := s.rdb.ZRevRange(ctx, timelineKey(ns), 0, int64(limit-1)).Result()
		if err != nil {
			return nil, err
		}
		memories, err := s.fetchInNamespace(ctx, ns, ids)
		if err != nil {
			return nil, err
		}
		for _, m := range memories {
			if !seen[m.ID] {
				seen[m.ID] = true
				merged = append(merged, m)
			}
		}
	}
	sortByRecency(merged)
	return truncate(merged, limit), nil
}

// ListRecentInScope returns up to limit memories newest-first from exactly
// one scope, ignoring the store's scope mode.
func (s *Store) ListRecentInScope(ctx context.Context, global bool, limit int) ([]*memory.Memory, error) {
	ns := s.ws
	if global {
		ns = globalNamespace
	}
	ids, err := s.rdb.ZRevRange(ctx, timelineKey(ns), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return s.fetchInNamespace(ctx, ns, ids)
}

// ListByType returns memories of the given context type, newest-first,
// respecting the store's scope mode.
func (s *Store) ListByType(ctx context.Context, t memory.ContextType, limit int) ([]*memory.Memory, error) {
	if !t.Valid() {
		return nil, memory.ErrInvalidInput
	}
	return s.listFromSets(ctx, func(ns string) string { return typeKey(ns, t) }, limit)
}

// ListByTag returns memories carrying the given tag, newest-first,
// respecting the store's scope mode.
func (s *Store) ListByTag(ctx context.Context, tag string, limit int) ([]*memory.Memory, error) {
	return s.listFromSets(ctx, func(ns string) string { return tagKey(ns, tag) }, limit)
}

// ListImportant returns memories whose importance is at least
// minImportance, highest-first, respecting the store's scope mode.
func (s *Store) ListImportant(ctx context.Context, minImportance, limit int) ([]*memory.Memory, error) {
	merged := make([]*memory.Memory, 0, limit)
	seen := make(map[string]bool)
	for _, ns := range s.readNamespaces() {
		ids, err := s.rdb.ZRevRangeByScore(ctx, importantKey(ns), &goredis.ZRangeBy{
			Min: formatScore(minImportance),
			Max: "+inf",
		}).Result()
		if err != nil {
			return nil, err
		}
		memories, err := s.fetchInNamespace(ctx, ns, ids)
		if err != nil {
			return nil, err
		}
		for _, m := range memories {
			if !seen[m.ID] {
				seen[m.ID] = true
				merged = append(merged, m)
			}
		}
	}
	sortByImportance(merged)
	return truncate(merged, limit), nil
}

// CandidateIDs gathers the candidate id set for search: all ids in scope,
// or the union of the per-type sets when types are given.
func (s *Store) CandidateIDs(ctx context.Context, types []memory.ContextType) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, ns := range s.readNamespaces() {
		keys := []string{memoryIDsKey(ns)}
		if len(types) > 0 {
			keys = keys[:0]
			for _, t := range types {
				keys = append(keys, typeKey(ns, t))
			}
		}
		members, err := s.rdb.SUnion(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		for _, id := range members {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// listFromSets collects set members per readable namespace, fetches them,
// de-duplicates workspace-first, and returns them newest-first.
func (s *Store) listFromSets(ctx context.Context, key func(ns string) string, limit int) ([]*memory.Memory, error) {
	merged := make([]*memory.Memory, 0, limit)
	seen := make(map[string]bool)
	for _, ns := range s.readNamespaces() {
		ids, err := s.rdb.SMembers(ctx, key(ns)).Result()
		if err != nil {
			return nil, err
		}
		memories, err := s.fetchInNamespace(ctx, ns, ids)
		if err != nil {
			return nil, err
		}
		for _, m := range memories {
			if !seen[m.ID] {
				seen[m.ID] = true
				merged = append(merged, m)
			}
		}
	}
	sortByRecency(merged)
	return truncate(merged, limit), nil
}

// fetchInNamespace pipelines hash reads for ids within one namespace,
// skipping dangling ids whose primary record has expired.
func (s *Store) fetchInNamespace(ctx context.Context, ns string, ids []string) ([]*memory.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, memoryKey(ns, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	memories := make([]*memory.Memory, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		m, err := decodeMemory(fields)
		if err != nil {
			continue
		}
		memories = append(memories, m)
	}
	return memories, nil
}

func sortByRecency(memories []*memory.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].CreatedAt != memories[j].CreatedAt {
			return memories[i].CreatedAt > memories[j].CreatedAt
		}
		return memories[i].ID > memories[j].ID
	})
}

func sortByImportance(memories []*memory.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].Importance != memories[j].Importance {
			return memories[i].Importance > memories[j].Importance
		}
		return memories[i].CreatedAt > memories[j].CreatedAt
	})
}

func truncate(memories []*memory.Memory, limit int) []*memory.Memory {
	if limit > 0 && len(memories) > limit {
		return memories[:limit]
	}
	return memories
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}

func formatScore(n int) string {
	return strconv.Itoa(n)
}
