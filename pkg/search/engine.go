// Package search ranks stored memories against a free-text query using
// embedding similarity, with scope-aware weighting and optional lexical
// filters.
package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/joseairosa/recall-sub001/pkg/embedder"
	"github.com/joseairosa/recall-sub001/pkg/memory"
	"github.com/joseairosa/recall-sub001/pkg/storage"
)

// DefaultLimit is the number of results returned when no limit is given.
const DefaultLimit = 10

// hybridGlobalWeight is the multiplier applied to a global memory's
// similarity in hybrid mode, a soft preference for workspace context.
const hybridGlobalWeight = 0.9

// fuzzyBoostMax is the largest relative score increase the fuzzy
// word-overlap boost can apply.
const fuzzyBoostMax = 0.2

// Options configures a search.
type Options struct {
	// Limit caps the number of results (DefaultLimit if 0).
	Limit int

	// Types restricts candidates to the given context types.
	Types []memory.ContextType

	// MinImportance excludes memories below this importance (0 = no floor).
	MinImportance int

	// Category, when set, keeps only memories with this exact category.
	Category string

	// Exact keeps only memories whose content contains the query verbatim
	// (case-insensitive).
	Exact bool

	// Fuzzy boosts a memory's score by up to 20% proportional to how many
	// individual query words appear in its content.
	Fuzzy bool

	// Pattern, when set, keeps only memories whose content matches this
	// regular expression. Mutually exclusive with Exact/Fuzzy in effect:
	// Pattern wins when several are set.
	Pattern string
}

// Result is one ranked search hit.
type Result struct {
	Memory *memory.Memory `json:"memory"`
	Score  float64        `json:"score"`
}

// Engine ranks memories by semantic relevance to a query.
type Engine struct {
	store    storage.Store
	provider embedder.Provider
	mode     memory.ScopeMode
}

// NewEngine creates a search engine over the given store and embedding
// provider. mode must match the scope mode the store was built with.
func NewEngine(store storage.Store, provider embedder.Provider, mode memory.ScopeMode) *Engine {
	return &Engine{store: store, provider: provider, mode: mode}
}

// Search ranks the candidate memories against the query.
//
// The pipeline is: query embedding, candidate gathering (all ids in scope
// or the union of per-type sets), lexical filters in order (minimum
// importance, category, then exact / regex), cosine similarity scoring
// with the optional fuzzy boost, the hybrid-mode global discount, and a
// descending sort truncated to the limit.
//
// An empty corpus yields an empty result, not an error. There is no hard
// relevance cutoff: the best available results are always returned.
func (e *Engine) Search(ctx context.Context, query string, opts *Options) ([]*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var pattern *regexp.Regexp
	if opts.Pattern != "" {
		var err error
		pattern, err = regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, memory.ErrInvalidInput
		}
	}

	queryEmbedding, err := e.provider.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	ids, err := e.store.CandidateIDs(ctx, opts.Types)
	if err != nil {
		return nil, err
	}
	candidates, err := e.store.GetMemories(ctx, ids)
	if err != nil {
		return nil, err
	}

	loweredQuery := strings.ToLower(query)
	queryWords := splitWords(loweredQuery)

	results := make([]*Result, 0, len(candidates))
	for _, m := range candidates {
		if opts.MinImportance > 0 && m.Importance < opts.MinImportance {
			continue
		}
		if opts.Category != "" && m.Category != opts.Category {
			continue
		}
		content := strings.ToLower(m.Content)
		switch {
		case pattern != nil:
			if !pattern.MatchString(m.Content) {
				continue
			}
		case opts.Exact:
			if !strings.Contains(content, loweredQuery) {
				continue
			}
		}

		score := 0.0
		if m.HasEmbedding() {
			score = embedder.CosineSimilarity(queryEmbedding, m.Embedding)
		}
		if opts.Fuzzy && pattern == nil {
			score *= 1 + fuzzyBoostMax*wordOverlap(queryWords, content)
		}
		if e.mode == memory.ModeHybrid && m.IsGlobal {
			score *= hybridGlobalWeight
		}

		results = append(results, &Result{Memory: m, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Memory.ID > results[j].Memory.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// wordOverlap returns the fraction of query words present in content,
// in [0, 1].
func wordOverlap(queryWords []string, content string) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	matched := 0
	for _, w := range queryWords {
		if strings.Contains(content, w) {
			matched++
		}
	}
	return float64(matched) / float64(len(queryWords))
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}
