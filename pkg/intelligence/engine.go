// Package intelligence provides intelligent memory management: detecting
// clusters of near-duplicate memories and consolidating each cluster into
// a single summary memory linked back to its sources.
package intelligence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joseairosa/recall-sub001/pkg/graph"
	"github.com/joseairosa/recall-sub001/pkg/memory"
	"github.com/joseairosa/recall-sub001/pkg/storage"
)

// Default consolidation parameters, applied where a config field is zero.
const (
	DefaultSimilarityThreshold  = 0.75
	DefaultMinClusterSize       = 2
	DefaultMemoryCountThreshold = 100
	DefaultMaxMemories          = 1000
)

// autoRunInterval is the minimum spacing between automatic consolidation
// runs.
const autoRunInterval = 24 * time.Hour

// Engine detects clusters of similar memories and merges each into one
// consolidated memory, recording an audit run for every invocation.
type Engine struct {
	store  storage.Store
	graph  *graph.Graph
	logger *zap.Logger
}

// EmbedFunc produces embedding vectors for a batch of texts. The engine
// uses it to embed the content of newly consolidated memories; on failure
// the consolidated memories are stored without embeddings.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float64, error)

// NewEngine creates a consolidation engine over the given store and
// relationship graph. A nil logger disables logging.
func NewEngine(store storage.Store, g *graph.Graph, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, graph: g, logger: logger}
}

// DefaultConfig returns the default consolidation configuration.
func DefaultConfig() memory.ConsolidationConfig {
	return memory.ConsolidationConfig{
		SimilarityThreshold:  DefaultSimilarityThreshold,
		MinClusterSize:       DefaultMinClusterSize,
		MemoryCountThreshold: DefaultMemoryCountThreshold,
		MaxMemories:          DefaultMaxMemories,
	}
}

// Run executes one consolidation pass.
//
// Up to MaxMemories recent memories are sampled from each scope and
// de-duplicated into one candidate list. Candidates without an embedding
// are skipped and counted. The rest are grouped by greedy seed-similarity
// clustering; each kept cluster is merged into a new consolidated memory
// whose importance is the members' maximum, whose tags are the union of
// member tags plus the "consolidated" tag, and whose scope is the seed's.
// A supersedes edge is created from the consolidated memory to every
// member, and each member gains the "consolidated" tag while remaining in
// the store.
//
// Having nothing to do is not an error: the run record then reports zero
// clusters. Substrate errors propagate to the caller.
func (e *Engine) Run(ctx context.Context, cfg memory.ConsolidationConfig, embed EmbedFunc) (*memory.ConsolidationRun, error) {
	cfg = withDefaults(cfg)

	candidates, err := e.gatherCandidates(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedded := make([]*memory.Memory, 0, len(candidates))
	skipped := 0
	for _, m := range candidates {
		if m.HasEmbedding() {
			embedded = append(embedded, m)
		} else {
			skipped++
		}
	}

	run := &memory.ConsolidationRun{
		ID:              memory.NewID(),
		Timestamp:       time.Now().UnixMilli(),
		Config:          cfg,
		MemoriesSkipped: skipped,
	}

	if len(embedded) < cfg.MinClusterSize {
		run.Report = fmt.Sprintf(
			"consolidation: %d candidate(s) with embeddings (minimum cluster size %d), %d skipped without embeddings; nothing to consolidate",
			len(embedded), cfg.MinClusterSize, skipped)
		if err := e.store.RecordRun(ctx, run); err != nil {
			return nil, err
		}
		return run, nil
	}

	clusters := buildClusters(embedded, cfg.SimilarityThreshold, cfg.MinClusterSize)
	run.ClustersFound = len(clusters)

	if len(clusters) > 0 {
		contents := make([]string, len(clusters))
		for i, cluster := range clusters {
			contents[i] = consolidatedContent(cluster)
		}

		// Best-effort: a failed embedding call leaves the consolidated
		// memories searchable by their indexes, just not by similarity.
		var embeddings [][]float64
		if embed != nil {
			embeddings, err = embed(ctx, contents)
			if err != nil {
				e.logger.Warn("embedding consolidated memories failed",
					zap.Int("clusters", len(clusters)),
					zap.Error(err))
				embeddings = nil
			}
		}

		for i, cluster := range clusters {
			var embedding []float64
			if i < len(embeddings) {
				embedding = embeddings[i]
			}
			consolidated, err := e.consolidateCluster(ctx, cluster, contents[i], embedding)
			if err != nil {
				return nil, err
			}
			run.ConsolidatedIDs = append(run.ConsolidatedIDs, consolidated.ID)
			run.MemoriesConsolidated += len(cluster)
		}
	}

	run.Report = buildReport(run)
	if err := e.store.RecordRun(ctx, run); err != nil {
		return nil, err
	}

	e.logger.Info("consolidation run complete",
		zap.String("run_id", run.ID),
		zap.Int("clusters", run.ClustersFound),
		zap.Int("consolidated", run.MemoriesConsolidated),
		zap.Int("skipped", run.MemoriesSkipped))
	return run, nil
}

// ShouldConsolidate reports whether an automatic run is due: the total
// memory count has reached the threshold and no run has completed within
// the last 24 hours.
func (e *Engine) ShouldConsolidate(ctx context.Context, countThreshold int) (bool, error) {
	if countThreshold <= 0 {
		countThreshold = DefaultMemoryCountThreshold
	}

	count, err := e.store.CountMemories(ctx)
	if err != nil {
		return false, err
	}
	if count < int64(countThreshold) {
		return false, nil
	}

	lastRun, err := e.store.LastRunAt(ctx)
	if err != nil {
		return false, err
	}
	if lastRun == 0 {
		return true, nil
	}
	return time.Since(time.UnixMilli(lastRun)) >= autoRunInterval, nil
}

// History returns up to limit consolidation runs, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]*memory.ConsolidationRun, error) {
	return e.store.RunHistory(ctx, limit)
}

// gatherCandidates samples recent memories from both scopes and
// de-duplicates them by id, applying the optional age limit.
func (e *Engine) gatherCandidates(ctx context.Context, cfg memory.ConsolidationConfig) ([]*memory.Memory, error) {
	var candidates []*memory.Memory
	seen := make(map[string]bool)

	for _, global := range []bool{false, true} {
		memories, err := e.store.ListRecentInScope(ctx, global, cfg.MaxMemories)
		if err != nil {
			return nil, err
		}
		for _, m := range memories {
			if !seen[m.ID] {
				seen[m.ID] = true
				candidates = append(candidates, m)
			}
		}
	}

	if cfg.MaxAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.MaxAgeDays).UnixMilli()
		filtered := candidates[:0]
		for _, m := range candidates {
			if m.CreatedAt >= cutoff {
				filtered = append(filtered, m)
			}
		}
		candidates = filtered
	}
	return candidates, nil
}

// consolidateCluster creates the consolidated memory for one cluster,
// links it to every member with a supersedes edge, and tags the members.
// The originals are retained, not deleted.
func (e *Engine) consolidateCluster(ctx context.Context, cluster []*memory.Memory, content string, embedding []float64) (*memory.Memory, error) {
	seed := cluster[0]

	importance := seed.Importance
	tags := map[string]bool{memory.ConsolidatedTag: true}
	for _, m := range cluster {
		if m.Importance > importance {
			importance = m.Importance
		}
		for _, t := range m.Tags {
			tags[t] = true
		}
	}

	consolidated := &memory.Memory{
		ID:          memory.NewID(),
		CreatedAt:   time.Now().UnixMilli(),
		ContextType: seed.ContextType,
		Content:     content,
		Summary:     fmt.Sprintf("Consolidated from %d similar memories", len(cluster)),
		Tags:        sortedTags(tags),
		Importance:  importance,
		Embedding:   embedding,
		IsGlobal:    seed.IsGlobal,
		WorkspaceID: seed.WorkspaceID,
	}
	if err := e.store.CreateMemory(ctx, consolidated); err != nil {
		return nil, err
	}

	for _, m := range cluster {
		if _, err := e.graph.Link(ctx, consolidated.ID, m.ID, memory.RelationSupersedes, nil); err != nil {
			return nil, err
		}
		if !m.HasTag(memory.ConsolidatedTag) {
			tagged := m.Clone()
			tagged.Tags = append(tagged.Tags, memory.ConsolidatedTag)
			if err := e.store.UpdateMemory(ctx, m, tagged); err != nil {
				return nil, err
			}
		}
	}
	return consolidated, nil
}

// consolidatedContent builds the merged body: a header plus each member's
// summary, falling back to its content.
func consolidatedContent(cluster []*memory.Memory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Consolidated memory from %d sources:\n", len(cluster))
	for _, m := range cluster {
		summary := m.Summary
		if summary == "" {
			summary = m.Content
		}
		b.WriteString("\n- ")
		b.WriteString(summary)
	}
	return b.String()
}

func buildReport(run *memory.ConsolidationRun) string {
	return fmt.Sprintf(
		"consolidation: %d cluster(s) found, %d memories consolidated into %d, %d skipped without embeddings",
		run.ClustersFound, run.MemoriesConsolidated, len(run.ConsolidatedIDs), run.MemoriesSkipped)
}

func withDefaults(cfg memory.ConsolidationConfig) memory.ConsolidationConfig {
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.MinClusterSize == 0 {
		cfg.MinClusterSize = DefaultMinClusterSize
	}
	if cfg.MemoryCountThreshold == 0 {
		cfg.MemoryCountThreshold = DefaultMemoryCountThreshold
	}
	if cfg.MaxMemories == 0 {
		cfg.MaxMemories = DefaultMaxMemories
	}
	return cfg
}

func sortedTags(set map[string]bool) []string {
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	// Stable tag order keeps serialized memories deterministic.
	sort.Strings(tags)
	return tags
}
