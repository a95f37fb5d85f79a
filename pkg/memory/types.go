// Package memory defines the entities of the Recall knowledge store:
// memories, typed relationships between them, and consolidation run records.
//
// The package is storage-agnostic and carries no dependencies: the storage,
// search, graph, and intelligence packages all build on these types.
package memory

// ContextType classifies what kind of knowledge a memory holds.
//
// The set is closed: any switch over ContextType should enumerate every
// constant below rather than fall through on a string compare.
type ContextType string

const (
	ContextDirective   ContextType = "directive"
	ContextInformation ContextType = "information"
	ContextHeading     ContextType = "heading"
	ContextDecision    ContextType = "decision"
	ContextCodePattern ContextType = "code_pattern"
	ContextRequirement ContextType = "requirement"
	ContextError       ContextType = "error"
	ContextTodo        ContextType = "todo"
	ContextInsight     ContextType = "insight"
	ContextPreference  ContextType = "preference"
)

// Valid reports whether t is one of the known context types.
func (t ContextType) Valid() bool {
	switch t {
	case ContextDirective, ContextInformation, ContextHeading, ContextDecision,
		ContextCodePattern, ContextRequirement, ContextError, ContextTodo,
		ContextInsight, ContextPreference:
		return true
	}
	return false
}

// ContextTypes lists every valid context type, in declaration order.
func ContextTypes() []ContextType {
	return []ContextType{
		ContextDirective, ContextInformation, ContextHeading, ContextDecision,
		ContextCodePattern, ContextRequirement, ContextError, ContextTodo,
		ContextInsight, ContextPreference,
	}
}

// RelationType classifies a directed edge between two memories.
type RelationType string

const (
	RelationRelatesTo  RelationType = "relates_to"
	RelationParentOf   RelationType = "parent_of"
	RelationChildOf    RelationType = "child_of"
	RelationReferences RelationType = "references"
	RelationSupersedes RelationType = "supersedes"
	RelationImplements RelationType = "implements"
	RelationExampleOf  RelationType = "example_of"
)

// Valid reports whether t is one of the known relation types.
func (t RelationType) Valid() bool {
	switch t {
	case RelationRelatesTo, RelationParentOf, RelationChildOf,
		RelationReferences, RelationSupersedes, RelationImplements,
		RelationExampleOf:
		return true
	}
	return false
}

// ScopeMode controls which scope an operation reads from.
//
//   - ModeIsolated: workspace-scoped data only
//   - ModeGlobal: global data only
//   - ModeHybrid: union of both, workspace-preferred
type ScopeMode string

const (
	ModeIsolated ScopeMode = "isolated"
	ModeGlobal   ScopeMode = "global"
	ModeHybrid   ScopeMode = "hybrid"
)

// Valid reports whether m is one of the known scope modes.
func (m ScopeMode) Valid() bool {
	switch m {
	case ModeIsolated, ModeGlobal, ModeHybrid:
		return true
	}
	return false
}

// Direction selects which edges a traversal follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// Valid reports whether d is one of the known traversal directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
		return true
	}
	return false
}

const (
	// MinImportance and MaxImportance bound the importance score.
	MinImportance = 1
	MaxImportance = 10

	// ImportantThreshold is the importance score at or above which a memory
	// is tracked in the importance index.
	ImportantThreshold = 8

	// MinTraversalDepth and MaxTraversalDepth bound graph traversal depth.
	MinTraversalDepth = 1
	MaxTraversalDepth = 5

	// ConsolidatedTag is attached to every memory produced by consolidation
	// and to every original memory a consolidation superseded.
	ConsolidatedTag = "consolidated"
)

// Memory is the atomic unit of knowledge in the store.
//
// Exactly one of workspace scope or global scope applies at any time:
// IsGlobal is true and WorkspaceID is empty, or IsGlobal is false and
// WorkspaceID names the owning workspace. Every derived index the storage
// layer maintains must agree with this scope and the current field values.
type Memory struct {
	// ID is a time-sortable unique identifier (ULID) assigned at creation.
	ID string `json:"id"`

	// CreatedAt is the creation timestamp in milliseconds since the epoch.
	CreatedAt int64 `json:"created_at"`

	// ContextType classifies the memory (directive, decision, error, ...).
	ContextType ContextType `json:"context_type"`

	// Content is the free-text body of the memory.
	Content string `json:"content"`

	// Summary is a short derived form of Content, used when building
	// consolidated memories. Derived from Content if not supplied.
	Summary string `json:"summary,omitempty"`

	// Tags is the set of string tags attached to the memory.
	Tags []string `json:"tags,omitempty"`

	// Importance scores the memory from 1 (trivial) to 10 (critical).
	Importance int `json:"importance"`

	// SessionID optionally ties the memory to a conversation session.
	SessionID string `json:"session_id,omitempty"`

	// Embedding is the vector representation of Content, used for
	// similarity search. Empty when the embedding provider was unavailable.
	Embedding []float64 `json:"embedding,omitempty"`

	// TTLSeconds is the optional time-to-live in seconds (0 = no expiry).
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`

	// ExpiresAt is the absolute expiry timestamp in milliseconds, derived
	// from CreatedAt and TTLSeconds (0 = no expiry).
	ExpiresAt int64 `json:"expires_at,omitempty"`

	// IsGlobal marks the memory as globally scoped (cross-workspace).
	IsGlobal bool `json:"is_global"`

	// WorkspaceID identifies the owning workspace. Empty when IsGlobal.
	WorkspaceID string `json:"workspace_id,omitempty"`

	// Category is an optional free-form category label.
	Category string `json:"category,omitempty"`
}

// HasEmbedding reports whether the memory carries an embedding vector.
func (m *Memory) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// HasTag reports whether the memory carries the given tag.
func (m *Memory) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the memory.
func (m *Memory) Clone() *Memory {
	c := *m
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	if m.Embedding != nil {
		c.Embedding = append([]float64(nil), m.Embedding...)
	}
	return &c
}

// Relationship is a typed directed edge between two memories.
//
// Its scope is derived, not stored: an edge is global only when both
// endpoint memories are global. Mixed-scope edges are rejected at creation.
type Relationship struct {
	// ID is a time-sortable unique identifier (ULID).
	ID string `json:"id"`

	// FromMemoryID is the source memory of the edge.
	FromMemoryID string `json:"from_memory_id"`

	// ToMemoryID is the target memory of the edge.
	ToMemoryID string `json:"to_memory_id"`

	// Type classifies the edge.
	Type RelationType `json:"relationship_type"`

	// CreatedAt is the creation timestamp in milliseconds since the epoch.
	CreatedAt int64 `json:"created_at"`

	// Metadata carries optional caller-supplied key/value annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RelatedMemory is one traversal result: a memory reached from the root,
// the relationship it was reached through, and the depth it was found at.
type RelatedMemory struct {
	Memory       *Memory       `json:"memory"`
	Relationship *Relationship `json:"relationship"`
	Depth        int           `json:"depth"`
}

// GraphNode is one node of an extracted memory graph: the memory, every
// relationship touching it that the traversal saw, and its depth from the
// root.
type GraphNode struct {
	Memory        *Memory         `json:"memory"`
	Relationships []*Relationship `json:"relationships"`
	Depth         int             `json:"depth"`
}

// Graph is the result of a graph extraction: nodes keyed by memory id and
// the true maximum depth reached, which may be less than the requested
// depth when the graph is smaller.
type Graph struct {
	Nodes    map[string]*GraphNode `json:"nodes"`
	MaxDepth int                   `json:"max_depth"`
}

// ConsolidationConfig is the configuration one consolidation run executes
// with. Zero values are replaced by defaults (see the intelligence package).
type ConsolidationConfig struct {
	// SimilarityThreshold is the minimum cosine similarity to the cluster
	// seed for a candidate to join the cluster. Default 0.75.
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// MinClusterSize is the minimum number of memories a cluster must hold
	// to be consolidated. Default 2.
	MinClusterSize int `json:"min_cluster_size"`

	// MaxAgeDays optionally restricts candidates to memories younger than
	// this many days (0 = no age limit).
	MaxAgeDays int `json:"max_age_days,omitempty"`

	// MemoryCountThreshold is the memory count at which automatic
	// consolidation is suggested. Default 100.
	MemoryCountThreshold int `json:"memory_count_threshold"`

	// MaxMemories caps how many recent memories are sampled per scope in
	// one run. Default 1000.
	MaxMemories int `json:"max_memories"`
}

// ConsolidationRun is the immutable audit record of one consolidation
// invocation.
type ConsolidationRun struct {
	// ID is a time-sortable unique identifier (ULID).
	ID string `json:"id"`

	// Timestamp is when the run executed, in milliseconds since the epoch.
	Timestamp int64 `json:"timestamp"`

	// Config is the configuration the run executed with.
	Config ConsolidationConfig `json:"config"`

	// ClustersFound is the number of clusters that met MinClusterSize.
	ClustersFound int `json:"clusters_found"`

	// MemoriesConsolidated is the total number of source memories merged.
	MemoriesConsolidated int `json:"memories_consolidated"`

	// ConsolidatedIDs lists the ids of the new consolidated memories.
	ConsolidatedIDs []string `json:"consolidated_ids,omitempty"`

	// MemoriesSkipped counts candidates skipped for lacking an embedding.
	MemoriesSkipped int `json:"memories_skipped"`

	// Report is a human-readable summary of the run.
	Report string `json:"report"`
}
