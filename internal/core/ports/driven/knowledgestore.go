package driven

import (
	"context"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

// KnowledgeStore persists documents, chunks, and their embeddings.
// Backends: in-memory (tests), JSON snapshot file, SQLite.
//
// Readers always observe a consistent snapshot: either the pre- or
// post-mutation state in full, never a partial one. Mutations for one
// document are atomic; in particular ReplaceChunks fully discards the
// old chunk set before the new set becomes visible.
type KnowledgeStore interface {
	// SaveDocument stores or updates a document record.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// CommitDocument atomically stores or updates a document together
	// with its full chunk set. On failure neither the metadata nor the
	// chunks change, so a re-ingest can never pair fresh metadata with
	// a stale chunk set.
	CommitDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// ReplaceChunks atomically swaps the chunk set of a document.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// RemoveDocument removes the document and all its chunks. Removing
	// an absent document is a no-op, not an error.
	RemoveDocument(ctx context.Context, documentID string) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents in insertion order.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// AllChunks returns a read-only snapshot of every chunk, ordered by
	// document insertion order then chunk position. The snapshot is
	// stable against concurrent mutation.
	AllChunks(ctx context.Context) ([]domain.Chunk, error)

	// ModelInfo returns the embedding model recorded for the stored
	// vectors, or a zero value if none has been recorded yet.
	ModelInfo(ctx context.Context) (domain.ModelInfo, error)

	// SetModelInfo records the embedding model for the stored vectors.
	SetModelInfo(ctx context.Context, info domain.ModelInfo) error

	// Persist flushes the store to durable storage. Implementations
	// follow a write-new-then-replace discipline: a crash mid-persist
	// must not corrupt the previously durable state. Backends that are
	// durable per mutation may make this a no-op.
	Persist(ctx context.Context) error

	// Load reads the durable state. A missing file yields an empty
	// store and a nil error; an unreadable one yields an empty store
	// and domain.ErrStoreCorrupt so the caller can surface a warning.
	Load(ctx context.Context) error

	// Close releases resources.
	Close() error
}
