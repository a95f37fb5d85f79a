// Package storage defines the interface for the key-value substrate backing
// the Recall knowledge store.
//
// The Store interface covers memory CRUD with multi-index consistency,
// relationship persistence, and consolidation run records. The redis
// sub-package provides the production implementation.
package storage

import (
	"context"

	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// Store defines the interface for the knowledge-store substrate.
//
// Implementations keep every derived index (all-ids, recency, per-type,
// per-tag, importance, scope) consistent with the primary record on each
// mutation, to the extent the substrate allows. Writes touching several
// indexes are batched but not atomic: readers must tolerate dangling ids
// and missing memberships rather than assume indexes are complete.
type Store interface {
	// CreateMemory writes a memory and every index membership its fields
	// imply, under the scope the memory's IsGlobal flag selects.
	CreateMemory(ctx context.Context, m *memory.Memory) error

	// GetMemory retrieves a memory by id, trying workspace scope first and
	// global scope second. Returns memory.ErrNotFound if absent in both.
	GetMemory(ctx context.Context, id string) (*memory.Memory, error)

	// GetMemories retrieves several memories by id. Missing or expired ids
	// are silently dropped from the result, never an error.
	GetMemories(ctx context.Context, ids []string) ([]*memory.Memory, error)

	// UpdateMemory replaces old with updated and performs a differential
	// index update: stale type/tag memberships are removed, new ones added,
	// and importance-index membership moves across the threshold in either
	// direction. Both arguments must describe the same id and scope.
	UpdateMemory(ctx context.Context, old, updated *memory.Memory) error

	// DeleteMemory removes the primary record and every index membership
	// implied by the memory's current fields. Returns memory.ErrNotFound
	// if the memory does not exist.
	DeleteMemory(ctx context.Context, id string) error

	// ConvertScope moves a memory between workspace and global scope,
	// removing every index entry under the old scope and re-adding it under
	// the new one in a single batched submission. targetWorkspace overrides
	// the store's own workspace when converting to workspace scope; leave
	// it empty for the default. No-op if already in the target scope.
	ConvertScope(ctx context.Context, id string, targetGlobal bool, targetWorkspace string) (*memory.Memory, error)

	// CountMemories returns the total number of memories across both the
	// workspace and global scopes.
	CountMemories(ctx context.Context) (int64, error)

	// ListRecent returns up to limit memories ordered newest-first,
	// respecting the store's scope mode.
	ListRecent(ctx context.Context, limit int) ([]*memory.Memory, error)

	// ListRecentInScope returns up to limit memories ordered newest-first
	// from exactly one scope, ignoring the store's scope mode. Used by the
	// consolidation engine, which always samples both scopes.
	ListRecentInScope(ctx context.Context, global bool, limit int) ([]*memory.Memory, error)

	// ListByType returns memories of the given context type, newest-first,
	// respecting the store's scope mode.
	ListByType(ctx context.Context, t memory.ContextType, limit int) ([]*memory.Memory, error)

	// ListByTag returns memories carrying the given tag, newest-first,
	// respecting the store's scope mode.
	ListByTag(ctx context.Context, tag string, limit int) ([]*memory.Memory, error)

	// ListImportant returns memories whose importance is at least
	// minImportance, highest-first, respecting the store's scope mode.
	// Only memories at or above the importance threshold are indexed.
	ListImportant(ctx context.Context, minImportance, limit int) ([]*memory.Memory, error)

	// CandidateIDs gathers the candidate id set for search: all ids in the
	// scopes the store's mode selects, or the union of the per-type sets
	// when types are given.
	CandidateIDs(ctx context.Context, types []memory.ContextType) ([]string, error)

	// CreateRelationship writes a relationship and its four index
	// memberships (edge set, all-edges set, outgoing-of-from,
	// incoming-of-to) under the given scope.
	CreateRelationship(ctx context.Context, r *memory.Relationship, global bool) error

	// GetRelationship retrieves a relationship by id, trying workspace
	// scope first and global scope second. Returns
	// memory.ErrRelationshipNotFound if absent in both.
	GetRelationship(ctx context.Context, id string) (*memory.Relationship, error)

	// DeleteRelationship removes a relationship and its index memberships.
	// Returns memory.ErrRelationshipNotFound if it does not exist. The
	// endpoint memories are untouched.
	DeleteRelationship(ctx context.Context, id string) error

	// OutgoingRelationships returns the edges whose source is memoryID,
	// consulting the index families the store's scope mode selects.
	OutgoingRelationships(ctx context.Context, memoryID string) ([]*memory.Relationship, error)

	// IncomingRelationships returns the edges whose target is memoryID,
	// consulting the index families the store's scope mode selects.
	IncomingRelationships(ctx context.Context, memoryID string) ([]*memory.Relationship, error)

	// RecordRun persists a consolidation run record and advances the
	// last-run timestamp.
	RecordRun(ctx context.Context, run *memory.ConsolidationRun) error

	// LastRunAt returns the timestamp (milliseconds) of the most recent
	// consolidation run, or 0 if none has run.
	LastRunAt(ctx context.Context) (int64, error)

	// RunHistory returns up to limit consolidation runs, newest first.
	RunHistory(ctx context.Context, limit int) ([]*memory.ConsolidationRun, error)

	// Close closes the store and releases resources.
	Close() error
}
