package domain

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	// DefaultWindowSize is the chunk window in words.
	DefaultWindowSize = 800

	// DefaultOverlap is the number of trailing words shared with the
	// next chunk.
	DefaultOverlap = 200

	// DefaultTopK is the number of chunks returned per query.
	DefaultTopK = 5

	// DefaultRetrievalBudget bounds how long a turn waits for retrieval
	// before proceeding without injected context.
	DefaultRetrievalBudget = 800 * time.Millisecond

	// DefaultVADThreshold is the server-side voice activity threshold.
	DefaultVADThreshold = 0.95

	// DefaultVADSilence is the silence duration that ends a user turn.
	DefaultVADSilence = 1600 * time.Millisecond

	// DefaultEmbeddingModel is the local embedding model identifier.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultRealtimeModel is the remote speech model identifier.
	DefaultRealtimeModel = "gpt-4o-realtime-preview"

	// DefaultVoice is the assistant voice name.
	DefaultVoice = "alloy"

	// DefaultStoreBackend selects the knowledge store implementation.
	DefaultStoreBackend = "sqlite"
)

// Config is the configuration surface the core reads. It is constructed
// once at startup and passed into the KnowledgeEngine and RealtimeSession
// constructors; there is no ambient global.
type Config struct {
	// EmbeddingModel selects the embedding model.
	EmbeddingModel string

	// WindowSize is the chunk length in words.
	WindowSize int

	// Overlap is the number of trailing words shared with the next chunk.
	// Must satisfy 0 <= Overlap < WindowSize.
	Overlap int

	// TopK is the number of chunks returned per query.
	TopK int

	// RetrievalBudget is the maximum wait before skipping context injection.
	RetrievalBudget time.Duration

	// VADThreshold is the voice activity detection threshold (0..1).
	VADThreshold float64

	// VADSilence is the silence duration that marks a turn boundary.
	VADSilence time.Duration

	// RealtimeModel selects the remote speech model.
	RealtimeModel string

	// Voice is the assistant voice name.
	Voice string

	// APIKey is the credential for the remote realtime and embedding
	// services. Held as an opaque string; no auth system beyond this.
	APIKey string

	// Instructions is the base system prompt for the realtime session.
	Instructions string

	// StoreBackend selects the knowledge store implementation
	// ("sqlite" or "json").
	StoreBackend string

	// StorePath overrides the store's data directory; empty uses the
	// backend default under the user's home.
	StorePath string
}

// DefaultConfig returns a Config populated with the default values.
func DefaultConfig() Config {
	return Config{
		EmbeddingModel:  DefaultEmbeddingModel,
		WindowSize:      DefaultWindowSize,
		Overlap:         DefaultOverlap,
		TopK:            DefaultTopK,
		RetrievalBudget: DefaultRetrievalBudget,
		VADThreshold:    DefaultVADThreshold,
		VADSilence:      DefaultVADSilence,
		RealtimeModel:   DefaultRealtimeModel,
		Voice:           DefaultVoice,
		StoreBackend:    DefaultStoreBackend,
	}
}

// Validate checks the configuration for rejected parameter combinations.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.WindowSize {
		return fmt.Errorf("%w: overlap must satisfy 0 <= overlap < window size, got overlap=%d window=%d",
			ErrInvalidConfig, c.Overlap, c.WindowSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top-k must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.RetrievalBudget <= 0 {
		return fmt.Errorf("%w: retrieval budget must be positive, got %s", ErrInvalidConfig, c.RetrievalBudget)
	}
	if c.VADThreshold < 0 || c.VADThreshold > 1 {
		return fmt.Errorf("%w: VAD threshold must be within [0,1], got %g", ErrInvalidConfig, c.VADThreshold)
	}
	switch c.StoreBackend {
	case "", "sqlite", "json":
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
