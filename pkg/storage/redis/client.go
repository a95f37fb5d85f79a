// Package redis implements the storage.Store interface on a Redis
// key-value substrate.
//
// Each memory is a hash under its scope namespace, with derived set and
// sorted-set indexes (all-ids, recency timeline, per-type, per-tag,
// importance) kept consistent on every mutation. Multi-index writes are
// batched into one pipelined submission; the pipeline is best-effort, not
// atomic, so read paths skip dangling ids instead of assuming indexes are
// complete.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// Config is the configuration for the Redis store.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string

	// Password is the Redis password (empty for none).
	Password string

	// DB is the Redis database number.
	DB int

	// WorkspacePath is the filesystem path identifying the workspace.
	// Its hash becomes the workspace namespace for scoped keys.
	WorkspacePath string

	// Mode selects which scopes read paths consult.
	Mode memory.ScopeMode
}

// Store is the Redis-backed knowledge store substrate.
//
// A Store is bound to one workspace namespace and one scope mode at
// construction; read behavior is therefore deterministic for a given
// Store value.
type Store struct {
	rdb  *goredis.Client
	ws   string
	mode memory.ScopeMode
}

// New creates a Redis store and verifies connectivity with a ping.
//
// Parameters:
//   - ctx: Context for the connectivity check
//   - cfg: Redis address, workspace path, and scope mode
//
// Returns the store, or memory.ErrConnectionFailed (wrapped) if the
// server is unreachable.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if !cfg.Mode.Valid() {
		return nil, memory.ErrInvalidConfig
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: %v", memory.ErrConnectionFailed, err)
	}

	return &Store{
		rdb:  rdb,
		ws:   WorkspaceID(cfg.WorkspacePath),
		mode: cfg.Mode,
	}, nil
}

// Workspace returns the store's workspace namespace id.
func (s *Store) Workspace() string {
	return s.ws
}

// Mode returns the scope mode the store was constructed with.
func (s *Store) Mode() memory.ScopeMode {
	return s.mode
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// namespaceFor returns the namespace a memory's scope selects.
func (s *Store) namespaceFor(m *memory.Memory) string {
	if m.IsGlobal {
		return globalNamespace
	}
	if m.WorkspaceID != "" {
		return m.WorkspaceID
	}
	return s.ws
}

// readNamespaces returns the namespaces read paths consult, workspace
// first so hybrid merges prefer workspace entries on id collisions.
func (s *Store) readNamespaces() []string {
	switch s.mode {
	case memory.ModeGlobal:
		return []string{globalNamespace}
	case memory.ModeHybrid:
		return []string{s.ws, globalNamespace}
	default:
		return []string{s.ws}
	}
}
