package domain

import "time"

// Document represents a named, user-supplied knowledge source.
// It is the canonical representation after text extraction; binary
// parsing (PDF, DOCX) happens outside the core and hands in plain text.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Name is the human-readable display name (usually the file name).
	Name string

	// Format tags the source format ("txt", "md", "pdf", ...).
	Format string

	// WordCount is the number of whitespace-separated words in the
	// ingested text. Kept for display; the text itself lives in chunks.
	WordCount int

	// IngestedAt is when the document was (last) ingested.
	IngestedAt time.Time
}

// Chunk is a contiguous, overlapping window of a document's text.
// Chunks are the retrieval unit: each carries the embedding vector
// its text was encoded to. Chunks are immutable once created;
// re-ingesting a document replaces its whole chunk set atomically.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Position is the ordinal position within the document.
	Position int

	// Content is the text content of this chunk.
	Content string

	// Start and End are character offsets into the source text.
	Start int
	End   int

	// StartWord and EndWord are word offsets into the source text.
	// Consecutive chunks overlap by exactly the configured overlap.
	StartWord int
	EndWord   int

	// Embedding is the vector representation for similarity search.
	// Nil while the embedding backend is unavailable (pending re-embed).
	Embedding []float32

	// Hash is the SHA-256 of Content, hex encoded.
	Hash string
}

// Embedded reports whether the chunk carries an embedding vector.
func (c Chunk) Embedded() bool {
	return len(c.Embedding) > 0
}

// ModelInfo records which embedding model produced the vectors in a store.
// A mismatch with the active embedder triggers a full re-embed so the
// store never mixes dimensionalities.
type ModelInfo struct {
	// Name is the embedding model identifier.
	Name string

	// Dimensions is the vector length the model produces.
	Dimensions int
}

// DocumentMeta is the ingestion-time metadata supplied by the caller.
type DocumentMeta struct {
	// Name is the display name, usually the source file name.
	Name string

	// Format tags the source format of the extracted text.
	Format string
}

// RetrievedChunk is a chunk together with its similarity score,
// as returned by a knowledge query.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Document is the owning document.
	Document Document

	// Score is the cosine similarity to the query (higher is better).
	Score float64
}
