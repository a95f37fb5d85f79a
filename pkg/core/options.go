package core

import (
	"go.uber.org/zap"

	"github.com/joseairosa/recall-sub001/pkg/embedder"
	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// ClientOption is a function type for configuring a Client at creation.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger   *zap.Logger
	embedder embedder.Provider
}

// WithLogger sets the logger used by the client and the consolidation
// engine. Defaults to a no-op logger.
//
// Example:
//
//	client, _ := core.NewClient(ctx, cfg, core.WithLogger(logger))
func WithLogger(logger *zap.Logger) ClientOption {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

// WithEmbedder injects an embedding provider directly, bypassing the
// provider named in the configuration. Useful for tests.
func WithEmbedder(provider embedder.Provider) ClientOption {
	return func(opts *clientOptions) {
		opts.embedder = provider
	}
}

// CreateOption is a function type for configuring CreateMemory operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type CreateOption func(*CreateOptions)

// CreateOptions contains configuration options for CreateMemory.
type CreateOptions struct {
	// ContextType classifies the memory. Defaults to information.
	ContextType memory.ContextType

	// Summary is a short form of the content. Derived from the content
	// when empty.
	Summary string

	// Tags is the set of string tags to attach.
	Tags []string

	// Importance scores the memory 1-10. Defaults to 5.
	Importance int

	// SessionID optionally ties the memory to a conversation session.
	SessionID string

	// TTLSeconds is an optional time-to-live in seconds.
	TTLSeconds int64

	// Global stores the memory under the global scope instead of the
	// workspace scope.
	Global bool

	// Category is an optional free-form category label.
	Category string
}

// WithContextType sets the context type for CreateMemory.
//
// Example:
//
//	m, _ := client.CreateMemory(ctx, "use tabs", core.WithContextType(memory.ContextDirective))
func WithContextType(t memory.ContextType) CreateOption {
	return func(opts *CreateOptions) {
		opts.ContextType = t
	}
}

// WithSummary sets an explicit summary for CreateMemory.
func WithSummary(summary string) CreateOption {
	return func(opts *CreateOptions) {
		opts.Summary = summary
	}
}

// WithTags sets the tags for CreateMemory.
//
// Example:
//
//	m, _ := client.CreateMemory(ctx, "content", core.WithTags("style", "review"))
func WithTags(tags ...string) CreateOption {
	return func(opts *CreateOptions) {
		opts.Tags = tags
	}
}

// WithImportance sets the importance score (1-10) for CreateMemory.
func WithImportance(importance int) CreateOption {
	return func(opts *CreateOptions) {
		opts.Importance = importance
	}
}

// WithSessionID ties the memory to a conversation session.
func WithSessionID(sessionID string) CreateOption {
	return func(opts *CreateOptions) {
		opts.SessionID = sessionID
	}
}

// WithTTL sets a time-to-live in seconds for CreateMemory. The substrate
// expires the primary record when the TTL elapses.
func WithTTL(seconds int64) CreateOption {
	return func(opts *CreateOptions) {
		opts.TTLSeconds = seconds
	}
}

// AsGlobal stores the memory under the global scope, visible across
// workspaces.
func AsGlobal() CreateOption {
	return func(opts *CreateOptions) {
		opts.Global = true
	}
}

// WithCategory sets the category label for CreateMemory.
func WithCategory(category string) CreateOption {
	return func(opts *CreateOptions) {
		opts.Category = category
	}
}

func applyCreateOptions(opts []CreateOption) *CreateOptions {
	options := &CreateOptions{
		ContextType: memory.ContextInformation,
		Importance:  5,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// UpdateOption is a function type for configuring UpdateMemory operations.
// Only fields explicitly set by an option are changed; everything else is
// preserved.
type UpdateOption func(*UpdateOptions)

// UpdateOptions contains the partial update for UpdateMemory. Nil fields
// are left unchanged.
type UpdateOptions struct {
	Content     *string
	Summary     *string
	Tags        *[]string
	Importance  *int
	ContextType *memory.ContextType
	Category    *string
	TTLSeconds  *int64
}

// WithContentForUpdate replaces the memory's content. Changing content
// regenerates the embedding.
func WithContentForUpdate(content string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Content = &content
	}
}

// WithSummaryForUpdate replaces the memory's summary.
func WithSummaryForUpdate(summary string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Summary = &summary
	}
}

// WithTagsForUpdate replaces the memory's tag set.
func WithTagsForUpdate(tags ...string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Tags = &tags
	}
}

// WithImportanceForUpdate replaces the memory's importance score (1-10).
func WithImportanceForUpdate(importance int) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Importance = &importance
	}
}

// WithContextTypeForUpdate replaces the memory's context type.
func WithContextTypeForUpdate(t memory.ContextType) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.ContextType = &t
	}
}

// WithCategoryForUpdate replaces the memory's category label.
func WithCategoryForUpdate(category string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Category = &category
	}
}

// WithTTLForUpdate replaces the memory's time-to-live in seconds
// (0 removes the expiry).
func WithTTLForUpdate(seconds int64) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.TTLSeconds = &seconds
	}
}

func applyUpdateOptions(opts []UpdateOption) *UpdateOptions {
	options := &UpdateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// SearchOption is a function type for configuring Search operations.
type SearchOption func(*SearchOptions)

// SearchOptions contains configuration options for Search.
type SearchOptions struct {
	// Limit caps the number of results. Defaults to 10.
	Limit int

	// Types restricts candidates to the given context types.
	Types []memory.ContextType

	// MinImportance excludes memories below this importance.
	MinImportance int

	// Category keeps only memories with this exact category.
	Category string

	// Exact keeps only memories containing the query verbatim.
	Exact bool

	// Fuzzy boosts scores by up to 20% for query-word overlap.
	Fuzzy bool

	// Pattern keeps only memories matching this regular expression.
	Pattern string
}

// WithLimit caps the number of search results.
func WithLimit(limit int) SearchOption {
	return func(opts *SearchOptions) {
		opts.Limit = limit
	}
}

// WithTypes restricts search candidates to the given context types.
//
// Example:
//
//	results, _ := client.Search(ctx, "auth", core.WithTypes(memory.ContextDecision))
func WithTypes(types ...memory.ContextType) SearchOption {
	return func(opts *SearchOptions) {
		opts.Types = types
	}
}

// WithMinImportance excludes memories below the given importance.
func WithMinImportance(min int) SearchOption {
	return func(opts *SearchOptions) {
		opts.MinImportance = min
	}
}

// WithCategoryFilter keeps only memories with this exact category.
func WithCategoryFilter(category string) SearchOption {
	return func(opts *SearchOptions) {
		opts.Category = category
	}
}

// WithExactMatch keeps only memories whose content contains the query
// verbatim (case-insensitive).
func WithExactMatch() SearchOption {
	return func(opts *SearchOptions) {
		opts.Exact = true
	}
}

// WithFuzzyMatch boosts a memory's score by up to 20% proportional to how
// many individual query words appear in its content.
func WithFuzzyMatch() SearchOption {
	return func(opts *SearchOptions) {
		opts.Fuzzy = true
	}
}

// WithPattern keeps only memories whose content matches the given regular
// expression.
func WithPattern(pattern string) SearchOption {
	return func(opts *SearchOptions) {
		opts.Pattern = pattern
	}
}

func applySearchOptions(opts []SearchOption) *SearchOptions {
	options := &SearchOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// RelatedOption is a function type for configuring RelatedMemories
// traversals.
type RelatedOption func(*RelatedOptions)

// RelatedOptions contains configuration options for RelatedMemories.
type RelatedOptions struct {
	// Depth bounds the traversal, 1-5. Defaults to 1.
	Depth int

	// Direction selects which edges to follow. Defaults to both.
	Direction memory.Direction

	// Types restricts traversal to the given relationship types.
	Types []memory.RelationType
}

// WithDepth bounds the traversal depth (1-5).
func WithDepth(depth int) RelatedOption {
	return func(opts *RelatedOptions) {
		opts.Depth = depth
	}
}

// WithDirection selects which edges the traversal follows.
func WithDirection(direction memory.Direction) RelatedOption {
	return func(opts *RelatedOptions) {
		opts.Direction = direction
	}
}

// WithRelationTypes restricts traversal to the given relationship types.
func WithRelationTypes(types ...memory.RelationType) RelatedOption {
	return func(opts *RelatedOptions) {
		opts.Types = types
	}
}

func applyRelatedOptions(opts []RelatedOption) *RelatedOptions {
	options := &RelatedOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// ConsolidateOption is a function type for overriding consolidation
// parameters on a single run.
type ConsolidateOption func(*memory.ConsolidationConfig)

// WithSimilarityThreshold overrides the minimum cosine similarity for a
// candidate to join a cluster.
func WithSimilarityThreshold(threshold float64) ConsolidateOption {
	return func(cfg *memory.ConsolidationConfig) {
		cfg.SimilarityThreshold = threshold
	}
}

// WithMinClusterSize overrides the minimum cluster size.
func WithMinClusterSize(size int) ConsolidateOption {
	return func(cfg *memory.ConsolidationConfig) {
		cfg.MinClusterSize = size
	}
}

// WithMaxAgeDays restricts consolidation candidates to memories younger
// than the given number of days.
func WithMaxAgeDays(days int) ConsolidateOption {
	return func(cfg *memory.ConsolidationConfig) {
		cfg.MaxAgeDays = days
	}
}

// WithMaxMemories caps how many recent memories are sampled per scope.
func WithMaxMemories(max int) ConsolidateOption {
	return func(cfg *memory.ConsolidationConfig) {
		cfg.MaxMemories = max
	}
}
