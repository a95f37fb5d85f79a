package core

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/joseairosa/recall-sub001/pkg/embedder"
	openaiEmbedder "github.com/joseairosa/recall-sub001/pkg/embedder/openai"
	"github.com/joseairosa/recall-sub001/pkg/graph"
	"github.com/joseairosa/recall-sub001/pkg/intelligence"
	"github.com/joseairosa/recall-sub001/pkg/memory"
	"github.com/joseairosa/recall-sub001/pkg/search"
	"github.com/joseairosa/recall-sub001/pkg/storage"
	redisStore "github.com/joseairosa/recall-sub001/pkg/storage/redis"
)

// summaryLimit is the maximum number of runes in a summary derived from
// content.
const summaryLimit = 100

// Client is the main Recall client for the memory knowledge store.
//
// It provides a complete interface for storing, retrieving, and managing
// memories with support for:
//   - Multi-index consistency (type, tag, recency, importance, scope)
//   - Semantic similarity search
//   - A typed relationship graph with bounded traversal
//   - Consolidation of near-duplicate memories
//
// The client issues sequential or pipelined calls to the Redis substrate
// and holds no in-process lock across them; multiple independent callers
// may invoke operations concurrently.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(ctx, config)
//	defer client.Close()
//
//	m, _ := client.CreateMemory(ctx, "We use zap for logging",
//	    core.WithContextType(memory.ContextDecision),
//	    core.WithImportance(8),
//	)
type Client struct {
	config       *Config
	store        storage.Store
	embedder     embedder.Provider
	search       *search.Engine
	graph        *graph.Graph
	consolidator *intelligence.Engine
	logger       *zap.Logger
	workspace    string
}

// NewClient creates a new Recall client.
//
// The client is initialized with:
//   - The Redis substrate (connectivity is verified with a ping)
//   - The embedding provider named in the configuration (or one injected
//     with WithEmbedder)
//   - The search, graph, and consolidation engines
//
// Parameters:
//   - ctx: Context for the substrate connectivity check
//   - cfg: Configuration containing substrate and embedder settings
//   - opts: Optional client options (WithLogger, WithEmbedder)
//
// Returns a new Client instance, or an error if initialization fails.
func NewClient(ctx context.Context, cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientOpts := &clientOptions{}
	for _, opt := range opts {
		opt(clientOpts)
	}
	logger := clientOpts.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mode := cfg.Mode
	if mode == "" {
		mode = memory.ModeIsolated
	}

	store, err := redisStore.New(ctx, &redisStore.Config{
		Addr:          cfg.Redis.Addr,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		WorkspacePath: cfg.WorkspacePath,
		Mode:          mode,
	})
	if err != nil {
		return nil, NewStoreError("NewClient", err)
	}

	provider := clientOpts.embedder
	if provider == nil {
		provider, err = initEmbedder(cfg.Embedder)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	g := graph.New(store)
	client := &Client{
		config:       cfg,
		store:        store,
		embedder:     provider,
		search:       search.NewEngine(store, provider, mode),
		graph:        g,
		consolidator: intelligence.NewEngine(store, g, logger),
		logger:       logger,
		workspace:    store.Workspace(),
	}
	return client, nil
}

// Workspace returns the namespace derived from the configured workspace
// path (for example "ws-1a2b3c4d").
func (c *Client) Workspace() string {
	return c.workspace
}

// CreateMemory stores a new memory.
//
// The method assigns a time-sortable id and timestamp, computes an
// embedding from the content, derives a summary when none is given,
// computes the absolute expiry when a TTL is given, and writes the
// primary record together with every index membership the fields imply.
//
// Parameters:
//   - ctx: Context for cancellation
//   - content: The memory's text content
//   - opts: Optional parameters (context type, tags, importance, scope, ...)
//
// Returns the created Memory, or an error if validation or a write fails.
func (c *Client) CreateMemory(ctx context.Context, content string, opts ...CreateOption) (*memory.Memory, error) {
	createOpts := applyCreateOptions(opts)

	if content == "" {
		return nil, NewStoreError("CreateMemory", memory.ErrInvalidInput)
	}
	if err := memory.ValidateImportance(createOpts.Importance); err != nil {
		return nil, NewStoreError("CreateMemory", err)
	}
	if !createOpts.ContextType.Valid() {
		return nil, NewStoreError("CreateMemory", memory.ErrInvalidInput)
	}

	embedding, err := c.embedder.Embed(ctx, content)
	if err != nil {
		return nil, NewStoreError("CreateMemory", err)
	}

	now := time.Now().UnixMilli()
	m := &memory.Memory{
		ID:          memory.NewID(),
		CreatedAt:   now,
		ContextType: createOpts.ContextType,
		Content:     content,
		Summary:     createOpts.Summary,
		Tags:        createOpts.Tags,
		Importance:  createOpts.Importance,
		SessionID:   createOpts.SessionID,
		Embedding:   embedding,
		TTLSeconds:  createOpts.TTLSeconds,
		IsGlobal:    createOpts.Global,
		Category:    createOpts.Category,
	}
	if m.Summary == "" {
		m.Summary = deriveSummary(content)
	}
	if m.TTLSeconds > 0 {
		m.ExpiresAt = now + m.TTLSeconds*1000
	}

	if err := c.store.CreateMemory(ctx, m); err != nil {
		return nil, NewStoreError("CreateMemory", err)
	}

	c.logger.Debug("memory created",
		zap.String("id", m.ID),
		zap.String("context_type", string(m.ContextType)),
		zap.Bool("is_global", m.IsGlobal))
	return m, nil
}

// GetMemory retrieves a memory by id, trying workspace scope first, then
// global. Returns memory.ErrNotFound (wrapped) if absent in both.
func (c *Client) GetMemory(ctx context.Context, id string) (*memory.Memory, error) {
	m, err := c.store.GetMemory(ctx, id)
	if err != nil {
		return nil, NewStoreError("GetMemory", err)
	}
	return m, nil
}

// GetMemories retrieves several memories in one best-effort batch.
// Missing or expired ids are silently dropped from the result.
func (c *Client) GetMemories(ctx context.Context, ids []string) ([]*memory.Memory, error) {
	memories, err := c.store.GetMemories(ctx, ids)
	if err != nil {
		return nil, NewStoreError("GetMemories", err)
	}
	return memories, nil
}

// UpdateMemory applies a partial update to an existing memory.
//
// Fields not named by an option are preserved. The embedding is
// regenerated only when the content changed. Index memberships are
// adjusted differentially, including importance membership moving across
// the threshold in either direction.
//
// Returns the updated Memory, or memory.ErrNotFound (wrapped) if the
// memory does not exist.
func (c *Client) UpdateMemory(ctx context.Context, id string, opts ...UpdateOption) (*memory.Memory, error) {
	updateOpts := applyUpdateOptions(opts)

	old, err := c.store.GetMemory(ctx, id)
	if err != nil {
		return nil, NewStoreError("UpdateMemory", err)
	}

	updated := old.Clone()
	if updateOpts.Content != nil {
		updated.Content = *updateOpts.Content
	}
	if updateOpts.Summary != nil {
		updated.Summary = *updateOpts.Summary
	}
	if updateOpts.Tags != nil {
		updated.Tags = *updateOpts.Tags
	}
	if updateOpts.Importance != nil {
		updated.Importance = *updateOpts.Importance
	}
	if updateOpts.ContextType != nil {
		updated.ContextType = *updateOpts.ContextType
	}
	if updateOpts.Category != nil {
		updated.Category = *updateOpts.Category
	}
	if updateOpts.TTLSeconds != nil {
		updated.TTLSeconds = *updateOpts.TTLSeconds
		updated.ExpiresAt = 0
		if updated.TTLSeconds > 0 {
			updated.ExpiresAt = time.Now().UnixMilli() + updated.TTLSeconds*1000
		}
	}

	if updated.Content != old.Content {
		embedding, err := c.embedder.Embed(ctx, updated.Content)
		if err != nil {
			return nil, NewStoreError("UpdateMemory", err)
		}
		updated.Embedding = embedding
		if updateOpts.Summary == nil && old.Summary == deriveSummary(old.Content) {
			updated.Summary = deriveSummary(updated.Content)
		}
	}

	if err := c.store.UpdateMemory(ctx, old, updated); err != nil {
		return nil, NewStoreError("UpdateMemory", err)
	}
	return updated, nil
}

// DeleteMemory removes a memory and every index membership implied by its
// current fields. Returns memory.ErrNotFound (wrapped) if absent.
func (c *Client) DeleteMemory(ctx context.Context, id string) error {
	if err := c.store.DeleteMemory(ctx, id); err != nil {
		return NewStoreError("DeleteMemory", err)
	}
	return nil
}

// ConvertScope moves a memory between workspace and global scope,
// re-homing every index entry in one batched submission. No-op if the
// memory already has the target scope.
func (c *Client) ConvertScope(ctx context.Context, id string, targetGlobal bool) (*memory.Memory, error) {
	m, err := c.store.ConvertScope(ctx, id, targetGlobal, "")
	if err != nil {
		return nil, NewStoreError("ConvertScope", err)
	}
	return m, nil
}

// Search ranks memories by semantic relevance to the query, applying the
// optional lexical filters. See the search package for the ranking
// pipeline.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) ([]*search.Result, error) {
	searchOpts := applySearchOptions(opts)

	results, err := c.search.Search(ctx, query, &search.Options{
		Limit:         searchOpts.Limit,
		Types:         searchOpts.Types,
		MinImportance: searchOpts.MinImportance,
		Category:      searchOpts.Category,
		Exact:         searchOpts.Exact,
		Fuzzy:         searchOpts.Fuzzy,
		Pattern:       searchOpts.Pattern,
	})
	if err != nil {
		return nil, NewStoreError("Search", err)
	}
	return results, nil
}

// ListRecent returns up to limit memories newest-first, respecting the
// configured scope mode.
func (c *Client) ListRecent(ctx context.Context, limit int) ([]*memory.Memory, error) {
	memories, err := c.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, NewStoreError("ListRecent", err)
	}
	return memories, nil
}

// ListByType returns memories of the given context type, newest-first.
func (c *Client) ListByType(ctx context.Context, t memory.ContextType, limit int) ([]*memory.Memory, error) {
	memories, err := c.store.ListByType(ctx, t, limit)
	if err != nil {
		return nil, NewStoreError("ListByType", err)
	}
	return memories, nil
}

// ListByTag returns memories carrying the given tag, newest-first.
func (c *Client) ListByTag(ctx context.Context, tag string, limit int) ([]*memory.Memory, error) {
	memories, err := c.store.ListByTag(ctx, tag, limit)
	if err != nil {
		return nil, NewStoreError("ListByTag", err)
	}
	return memories, nil
}

// ListImportant returns memories at or above minImportance,
// highest-first.
func (c *Client) ListImportant(ctx context.Context, minImportance, limit int) ([]*memory.Memory, error) {
	memories, err := c.store.ListImportant(ctx, minImportance, limit)
	if err != nil {
		return nil, NewStoreError("ListImportant", err)
	}
	return memories, nil
}

// Link creates a typed directed relationship between two memories.
// Self-links and cross-scope links are rejected; creating an identical
// (from, to, type) triple returns the existing edge.
func (c *Client) Link(ctx context.Context, from, to string, relType memory.RelationType, metadata map[string]string) (*memory.Relationship, error) {
	r, err := c.graph.Link(ctx, from, to, relType, metadata)
	if err != nil {
		return nil, NewStoreError("Link", err)
	}
	return r, nil
}

// Unlink removes a relationship. The endpoint memories are untouched.
func (c *Client) Unlink(ctx context.Context, relationshipID string) error {
	if err := c.graph.Unlink(ctx, relationshipID); err != nil {
		return NewStoreError("Unlink", err)
	}
	return nil
}

// RelatedMemories walks the relationship graph from a memory and returns
// everything reachable within the depth limit (1-5).
func (c *Client) RelatedMemories(ctx context.Context, id string, opts ...RelatedOption) ([]*memory.RelatedMemory, error) {
	relatedOpts := applyRelatedOptions(opts)

	related, err := c.graph.RelatedMemories(ctx, id, &graph.TraverseOptions{
		Depth:     relatedOpts.Depth,
		Direction: relatedOpts.Direction,
		Types:     relatedOpts.Types,
	})
	if err != nil {
		return nil, NewStoreError("RelatedMemories", err)
	}
	return related, nil
}

// MemoryGraph extracts the subgraph around a root memory for
// visualization, capped at maxNodes entries.
func (c *Client) MemoryGraph(ctx context.Context, rootID string, maxDepth, maxNodes int) (*memory.Graph, error) {
	g, err := c.graph.MemoryGraph(ctx, rootID, maxDepth, maxNodes)
	if err != nil {
		return nil, NewStoreError("MemoryGraph", err)
	}
	return g, nil
}

// Consolidate runs one consolidation pass: clusters of near-duplicate
// memories are merged into consolidated memories linked back to their
// sources with supersedes edges. Originals are tagged, not deleted.
func (c *Client) Consolidate(ctx context.Context, opts ...ConsolidateOption) (*memory.ConsolidationRun, error) {
	cfg := c.config.Consolidation
	for _, opt := range opts {
		opt(&cfg)
	}

	run, err := c.consolidator.Run(ctx, cfg, c.embedder.EmbedBatch)
	if err != nil {
		return nil, NewStoreError("Consolidate", err)
	}
	return run, nil
}

// ShouldConsolidate reports whether an automatic consolidation run is
// due: the memory count has reached the configured threshold and no run
// has completed within the last 24 hours.
func (c *Client) ShouldConsolidate(ctx context.Context) (bool, error) {
	threshold := c.config.Consolidation.MemoryCountThreshold
	due, err := c.consolidator.ShouldConsolidate(ctx, threshold)
	if err != nil {
		return false, NewStoreError("ShouldConsolidate", err)
	}
	return due, nil
}

// ConsolidationHistory returns up to limit consolidation runs, newest
// first.
func (c *Client) ConsolidationHistory(ctx context.Context, limit int) ([]*memory.ConsolidationRun, error) {
	runs, err := c.consolidator.History(ctx, limit)
	if err != nil {
		return nil, NewStoreError("ConsolidationHistory", err)
	}
	return runs, nil
}

// Close closes the client and releases all resources.
//
// Returns the first error encountered during cleanup, or nil if all
// resources were closed successfully.
func (c *Client) Close() error {
	var errs []error

	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// initEmbedder initializes the embedding provider.
func initEmbedder(cfg EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, NewStoreError("initEmbedder", memory.ErrInvalidConfig)
	}
}

// deriveSummary produces a short summary from content: the first line,
// truncated to summaryLimit runes. Truncation happens on rune boundaries
// so multi-byte content never yields an invalid UTF-8 summary.
func deriveSummary(content string) string {
	summary := content
	if idx := strings.IndexByte(summary, '\n'); idx >= 0 {
		summary = summary[:idx]
	}
	if utf8.RuneCountInString(summary) > summaryLimit {
		runes := []rune(summary)
		summary = strings.TrimSpace(string(runes[:summaryLimit])) + "..."
	}
	return summary
}
