package memory

import "errors"

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested memory was not found.
	ErrNotFound = errors.New("memory not found")

	// ErrRelationshipNotFound indicates that a requested relationship was
	// not found.
	ErrRelationshipNotFound = errors.New("relationship not found")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSelfLink indicates an attempt to link a memory to itself.
	ErrSelfLink = errors.New("cannot link a memory to itself")

	// ErrCrossScopeLink indicates an attempt to link a global memory with a
	// workspace-scoped one.
	ErrCrossScopeLink = errors.New("cannot link memories across scopes")

	// ErrInvalidDepth indicates a traversal depth outside the allowed range.
	ErrInvalidDepth = errors.New("traversal depth out of range")

	// ErrEmbeddingFailed indicates that embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrConnectionFailed indicates that a connection to the storage
	// substrate failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// ValidateImportance checks that an importance score is within 1-10.
func ValidateImportance(importance int) error {
	if importance < MinImportance || importance > MaxImportance {
		return ErrInvalidInput
	}
	return nil
}

// ValidateDepth checks that a traversal depth is within the contractual
// 1-5 range.
func ValidateDepth(depth int) error {
	if depth < MinTraversalDepth || depth > MaxTraversalDepth {
		return ErrInvalidDepth
	}
	return nil
}
