package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil or unreachable, retrieval is
// disabled and the session proceeds without context injection.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
type EmbeddingService interface {
	// Embed generates vector embeddings for the given texts, batched.
	// The result has one vector per input, in input order, and is
	// deterministic for identical input on the same model version.
	// Connectivity failures are reported as domain.ErrModelUnavailable.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This is fixed per model and must match across all chunks in a store.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the backend is reachable by making a lightweight
	// request. Used at engine start to decide between full and degraded
	// (retrieval-disabled) operation.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
