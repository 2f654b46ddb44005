package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates rejected configuration, such as a chunk
	// overlap that is not smaller than the window size. Bad parameters are
	// rejected at call time, never silently clamped.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrModelUnavailable indicates the embedding backend cannot be reached
	// or loaded. The knowledge engine degrades to retrieval-disabled mode;
	// ingestion still records raw chunks pending later re-embedding.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrStoreCorrupt indicates the persisted knowledge store could not be
	// read. Callers treat it as an empty store plus a warning, never a crash.
	ErrStoreCorrupt = errors.New("knowledge store corrupt")

	// ErrChannelFailed indicates a realtime transport failure. The session
	// moves to StateErrored; retry policy belongs to the caller.
	ErrChannelFailed = errors.New("realtime channel failed")

	// ErrSessionClosed indicates an operation was attempted on a session
	// that has already terminated.
	ErrSessionClosed = errors.New("session closed")

	// ErrSessionActive indicates Start was called on a session that is
	// already running. Sessions are single-use; construct a new one.
	ErrSessionActive = errors.New("session already started")
)
