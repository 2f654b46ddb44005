package driving

import (
	"context"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

// KnowledgeService ingests documents and answers similarity queries.
type KnowledgeService interface {
	// Ingest chunks, embeds, and commits a document. Re-ingesting under
	// the same metadata name replaces the previous document atomically.
	// Returns the document ID.
	Ingest(ctx context.Context, text string, meta domain.DocumentMeta) (string, error)

	// Query returns the k most similar chunks in descending score order.
	// k <= 0 selects the configured default. An empty store yields an
	// empty slice, not an error.
	Query(ctx context.Context, text string, k int) ([]domain.RetrievedChunk, error)

	// Remove deletes a document and its chunks. Idempotent.
	Remove(ctx context.Context, documentID string) error

	// Documents lists the ingested documents.
	Documents(ctx context.Context) ([]domain.Document, error)

	// RetrievalEnabled reports whether similarity queries are available
	// (false while the embedding backend is unavailable).
	RetrievalEnabled() bool
}
