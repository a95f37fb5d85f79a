package intelligence_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseairosa/recall-sub001/pkg/graph"
	"github.com/joseairosa/recall-sub001/pkg/intelligence"
	"github.com/joseairosa/recall-sub001/pkg/memory"
	redisStore "github.com/joseairosa/recall-sub001/pkg/storage/redis"
)

func newTestEngine(t *testing.T) (*intelligence.Engine, *graph.Graph, *redisStore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := redisStore.New(context.Background(), &redisStore.Config{
		Addr:          mr.Addr(),
		WorkspacePath: "/home/dev/project",
		Mode:          memory.ModeHybrid,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	g := graph.New(store)
	return intelligence.NewEngine(store, g, nil), g, store
}

func storeMemory(t *testing.T, store *redisStore.Store, content string, embedding []float64, mutate ...func(*memory.Memory)) *memory.Memory {
	t.Helper()
	m := &memory.Memory{
		ID:          memory.NewID(),
		CreatedAt:   time.Now().UnixMilli(),
		ContextType: memory.ContextInformation,
		Content:     content,
		Summary:     content,
		Importance:  5,
		Embedding:   embedding,
	}
	for _, f := range mutate {
		f(m)
	}
	require.NoError(t, store.CreateMemory(context.Background(), m))
	return m
}

func fixedEmbed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.5, 0.5, 0}
	}
	return out, nil
}

func TestRunConsolidatesCluster(t *testing.T) {
	engine, g, store := newTestEngine(t)
	ctx := context.Background()

	similar := []float64{1, 0, 0}
	m1 := storeMemory(t, store, "rate limit is 100/min", similar, func(m *memory.Memory) {
		m.Importance = 4
		m.Tags = []string{"api"}
	})
	m2 := storeMemory(t, store, "clients capped at 100 requests per minute", similar, func(m *memory.Memory) {
		m.Importance = 7
		m.Tags = []string{"limits"}
	})
	m3 := storeMemory(t, store, "at most 100 requests each minute", similar, func(m *memory.Memory) {
		m.Importance = 5
	})
	outlier := storeMemory(t, store, "deploys happen on tuesdays", []float64{0, 1, 0})
	noVector := storeMemory(t, store, "unembedded note", nil)

	run, err := engine.Run(ctx, intelligence.DefaultConfig(), fixedEmbed)
	require.NoError(t, err)

	assert.Equal(t, 1, run.ClustersFound)
	assert.Equal(t, 3, run.MemoriesConsolidated)
	assert.Equal(t, 1, run.MemoriesSkipped)
	require.Len(t, run.ConsolidatedIDs, 1)
	assert.Contains(t, run.Report, "1 cluster(s)")

	consolidated, err := store.GetMemory(ctx, run.ConsolidatedIDs[0])
	require.NoError(t, err)
	// Max importance across the cluster, union of tags plus the marker.
	assert.Equal(t, 7, consolidated.Importance)
	assert.Equal(t, []string{"api", memory.ConsolidatedTag, "limits"}, consolidated.Tags)
	assert.False(t, consolidated.IsGlobal)
	assert.True(t, strings.HasPrefix(consolidated.Content, "Consolidated memory from 3 sources:"))
	assert.Equal(t, "Consolidated from 3 similar memories", consolidated.Summary)
	assert.Equal(t, []float64{0.5, 0.5, 0}, consolidated.Embedding)

	// One supersedes edge per member.
	related, err := g.RelatedMemories(ctx, consolidated.ID, &graph.TraverseOptions{
		Direction: memory.DirectionOutgoing,
		Types:     []memory.RelationType{memory.RelationSupersedes},
	})
	require.NoError(t, err)
	superseded := make([]string, 0, len(related))
	for _, r := range related {
		superseded = append(superseded, r.Memory.ID)
	}
	assert.ElementsMatch(t, []string{m1.ID, m2.ID, m3.ID}, superseded)

	// Originals are tagged, not deleted.
	for _, id := range []string{m1.ID, m2.ID, m3.ID} {
		m, err := store.GetMemory(ctx, id)
		require.NoError(t, err)
		assert.True(t, m.HasTag(memory.ConsolidatedTag))
	}

	// Untouched memories stay untouched.
	m, err := store.GetMemory(ctx, outlier.ID)
	require.NoError(t, err)
	assert.False(t, m.HasTag(memory.ConsolidatedTag))
	m, err = store.GetMemory(ctx, noVector.ID)
	require.NoError(t, err)
	assert.False(t, m.HasTag(memory.ConsolidatedTag))

	// The run is on record.
	history, err := engine.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, run.ID, history[0].ID)
}

func TestRunKeepsScopesApart(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()

	similar := []float64{1, 0, 0}
	storeMemory(t, store, "workspace a", similar)
	storeMemory(t, store, "workspace b", similar)
	storeMemory(t, store, "global a", similar, func(m *memory.Memory) { m.IsGlobal = true })
	storeMemory(t, store, "global b", similar, func(m *memory.Memory) { m.IsGlobal = true })

	run, err := engine.Run(ctx, intelligence.DefaultConfig(), fixedEmbed)
	require.NoError(t, err)
	assert.Equal(t, 2, run.ClustersFound)
	assert.Equal(t, 4, run.MemoriesConsolidated)
	require.Len(t, run.ConsolidatedIDs, 2)

	scopes := make(map[bool]int)
	for _, id := range run.ConsolidatedIDs {
		m, err := store.GetMemory(ctx, id)
		require.NoError(t, err)
		scopes[m.IsGlobal]++
	}
	assert.Equal(t, map[bool]int{false: 1, true: 1}, scopes)
}

func TestRunNothingToConsolidate(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	run, err := engine.Run(context.Background(), intelligence.DefaultConfig(), fixedEmbed)
	require.NoError(t, err)
	assert.Zero(t, run.ClustersFound)
	assert.Zero(t, run.MemoriesConsolidated)
	assert.Contains(t, run.Report, "nothing to consolidate")

	history, err := engine.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRunRespectsMinClusterSize(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()

	similar := []float64{1, 0, 0}
	storeMemory(t, store, "a", similar)
	storeMemory(t, store, "b", similar)

	cfg := intelligence.DefaultConfig()
	cfg.MinClusterSize = 3
	run, err := engine.Run(ctx, cfg, fixedEmbed)
	require.NoError(t, err)
	assert.Zero(t, run.ClustersFound)
	assert.Zero(t, run.MemoriesConsolidated)
}

func TestRunSimilarityThreshold(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()

	// Cosine between these is ~0.707: below the default 0.75, above 0.5.
	storeMemory(t, store, "a", []float64{1, 0, 0})
	storeMemory(t, store, "b", []float64{1, 1, 0})

	run, err := engine.Run(ctx, intelligence.DefaultConfig(), fixedEmbed)
	require.NoError(t, err)
	assert.Zero(t, run.ClustersFound)

	cfg := intelligence.DefaultConfig()
	cfg.SimilarityThreshold = 0.5
	run, err = engine.Run(ctx, cfg, fixedEmbed)
	require.NoError(t, err)
	assert.Equal(t, 1, run.ClustersFound)
}

func TestRunEmbedFailureDegrades(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()

	similar := []float64{1, 0, 0}
	storeMemory(t, store, "a", similar)
	storeMemory(t, store, "b", similar)

	failingEmbed := func(ctx context.Context, texts []string) ([][]float64, error) {
		return nil, errors.New("provider down")
	}

	run, err := engine.Run(ctx, intelligence.DefaultConfig(), failingEmbed)
	require.NoError(t, err)
	require.Len(t, run.ConsolidatedIDs, 1)

	consolidated, err := store.GetMemory(ctx, run.ConsolidatedIDs[0])
	require.NoError(t, err)
	assert.False(t, consolidated.HasEmbedding())
}

func TestRunIsIdempotentOnTags(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()

	similar := []float64{1, 0, 0}
	m1 := storeMemory(t, store, "a", similar, func(m *memory.Memory) {
		m.Tags = []string{memory.ConsolidatedTag}
	})
	storeMemory(t, store, "b", similar)

	run, err := engine.Run(ctx, intelligence.DefaultConfig(), fixedEmbed)
	require.NoError(t, err)
	require.Len(t, run.ConsolidatedIDs, 1)

	// Already-tagged members do not accumulate duplicate tags.
	m, err := store.GetMemory(ctx, m1.ID)
	require.NoError(t, err)
	count := 0
	for _, tag := range m.Tags {
		if tag == memory.ConsolidatedTag {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestShouldConsolidate(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()

	// Below the count threshold.
	due, err := engine.ShouldConsolidate(ctx, 1)
	require.NoError(t, err)
	assert.False(t, due)

	storeMemory(t, store, "a", []float64{1, 0, 0})

	// At the threshold with no prior run.
	due, err = engine.ShouldConsolidate(ctx, 1)
	require.NoError(t, err)
	assert.True(t, due)

	// A fresh run suppresses the next 24 hours.
	_, err = engine.Run(ctx, intelligence.DefaultConfig(), fixedEmbed)
	require.NoError(t, err)
	due, err = engine.ShouldConsolidate(ctx, 1)
	require.NoError(t, err)
	assert.False(t, due)

	// A stale last-run timestamp makes it due again.
	require.NoError(t, store.RecordRun(ctx, &memory.ConsolidationRun{
		ID:        memory.NewID(),
		Timestamp: time.Now().Add(-25 * time.Hour).UnixMilli(),
	}))
	due, err = engine.ShouldConsolidate(ctx, 1)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRunMaxAgeFilter(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()

	similar := []float64{1, 0, 0}
	storeMemory(t, store, "old a", similar, func(m *memory.Memory) {
		m.CreatedAt = time.Now().AddDate(0, 0, -40).UnixMilli()
	})
	storeMemory(t, store, "old b", similar, func(m *memory.Memory) {
		m.CreatedAt = time.Now().AddDate(0, 0, -40).UnixMilli()
	})

	cfg := intelligence.DefaultConfig()
	cfg.MaxAgeDays = 30
	run, err := engine.Run(ctx, cfg, fixedEmbed)
	require.NoError(t, err)
	assert.Zero(t, run.ClustersFound)

	// Without the age limit the pair clusters.
	run, err = engine.Run(ctx, intelligence.DefaultConfig(), fixedEmbed)
	require.NoError(t, err)
	assert.Equal(t, 1, run.ClustersFound)
}
