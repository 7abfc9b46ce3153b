package core

import "context"

// OpResult is the unified outcome of a mutating operation. A write that
// cannot find its anchor (stale row position, missing frontmatter block) is
// a normal failed outcome, not a reason to panic or error across the API.
type OpResult struct {
	Success bool
	Err     error
}

// OK returns a successful result.
func OK() OpResult {
	return OpResult{Success: true}
}

// Fail returns a failed result carrying detail.
func Fail(err error) OpResult {
	return OpResult{Err: err}
}

// EditingModule is the strategy contract for one source type. Every
// operation is a read-modify-write cycle against the backing file that
// touches only the addressed fragment. Operations are not transactional
// across entities or concurrent writers; callers needing stronger
// guarantees must serialize externally.
//
// Adhering to this interface allows the engine to stay independent of the
// file formats it synchronizes. Collaborators add file-type support by
// registering additional implementations.
type EditingModule interface {
	// CanHandle reports whether this module can edit the given source.
	CanHandle(sourceType SourceType, meta EntityMetadata) bool

	// CreateEntity adds a new fragment (row, block, document) to the
	// backing file.
	CreateEntity(ctx context.Context, entityID string, props Properties, meta EntityMetadata) OpResult

	// UpdateEntity rewrites only the addressed fragment; everything else in
	// the file stays byte-identical.
	UpdateEntity(ctx context.Context, entityID string, props Properties, meta EntityMetadata) OpResult

	// DeleteEntity removes the addressed fragment. For row-oriented sources
	// subsequent row identifiers shift down by one.
	DeleteEntity(ctx context.Context, entityID string, meta EntityMetadata) OpResult
}
