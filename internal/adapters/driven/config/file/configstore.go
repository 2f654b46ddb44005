// Package file provides a TOML-backed configuration store.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// fileConfig is the on-disk TOML layout. Fields are pointers so an
// absent key falls back to the default instead of the zero value.
type fileConfig struct {
	Knowledge struct {
		EmbeddingModel  *string `toml:"embedding_model,omitempty"`
		WindowSize      *int    `toml:"window_size,omitempty"`
		Overlap         *int    `toml:"overlap,omitempty"`
		TopK            *int    `toml:"top_k,omitempty"`
		RetrievalBudget *string `toml:"retrieval_budget,omitempty"`
	} `toml:"knowledge"`
	Session struct {
		Model        *string  `toml:"model,omitempty"`
		Voice        *string  `toml:"voice,omitempty"`
		Instructions *string  `toml:"instructions,omitempty"`
		VADThreshold *float64 `toml:"vad_threshold,omitempty"`
		VADSilence   *string  `toml:"vad_silence,omitempty"`
	} `toml:"session"`
	Storage struct {
		Backend *string `toml:"backend,omitempty"`
		Path    *string `toml:"path,omitempty"`
	} `toml:"storage"`
	APIKey *string `toml:"api_key,omitempty"`
}

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Configuration is stored in a TOML file within the cuby config directory.
type ConfigStore struct {
	mu       sync.Mutex
	filePath string
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.cuby/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".cuby")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Load reads the TOML file and merges it over the defaults. A missing
// file yields the defaults.
func (s *ConfigStore) Load() (domain.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return domain.Config{}, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidConfig, s.filePath, err)
	}

	if fc.Knowledge.EmbeddingModel != nil {
		cfg.EmbeddingModel = *fc.Knowledge.EmbeddingModel
	}
	if fc.Knowledge.WindowSize != nil {
		cfg.WindowSize = *fc.Knowledge.WindowSize
	}
	if fc.Knowledge.Overlap != nil {
		cfg.Overlap = *fc.Knowledge.Overlap
	}
	if fc.Knowledge.TopK != nil {
		cfg.TopK = *fc.Knowledge.TopK
	}
	if fc.Knowledge.RetrievalBudget != nil {
		d, err := time.ParseDuration(*fc.Knowledge.RetrievalBudget)
		if err != nil {
			return domain.Config{}, fmt.Errorf("%w: retrieval_budget: %v", domain.ErrInvalidConfig, err)
		}
		cfg.RetrievalBudget = d
	}
	if fc.Session.Model != nil {
		cfg.RealtimeModel = *fc.Session.Model
	}
	if fc.Session.Voice != nil {
		cfg.Voice = *fc.Session.Voice
	}
	if fc.Session.Instructions != nil {
		cfg.Instructions = *fc.Session.Instructions
	}
	if fc.Session.VADThreshold != nil {
		cfg.VADThreshold = *fc.Session.VADThreshold
	}
	if fc.Session.VADSilence != nil {
		d, err := time.ParseDuration(*fc.Session.VADSilence)
		if err != nil {
			return domain.Config{}, fmt.Errorf("%w: vad_silence: %v", domain.ErrInvalidConfig, err)
		}
		cfg.VADSilence = d
	}
	if fc.Storage.Backend != nil {
		cfg.StoreBackend = *fc.Storage.Backend
	}
	if fc.Storage.Path != nil {
		cfg.StorePath = *fc.Storage.Path
	}
	if fc.APIKey != nil {
		cfg.APIKey = *fc.APIKey
	}

	// API key from the environment wins over the file
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Save persists the configuration to the TOML file.
func (s *ConfigStore) Save(cfg domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}

	var fc fileConfig
	budget := cfg.RetrievalBudget.String()
	silence := cfg.VADSilence.String()
	fc.Knowledge.EmbeddingModel = &cfg.EmbeddingModel
	fc.Knowledge.WindowSize = &cfg.WindowSize
	fc.Knowledge.Overlap = &cfg.Overlap
	fc.Knowledge.TopK = &cfg.TopK
	fc.Knowledge.RetrievalBudget = &budget
	fc.Session.Model = &cfg.RealtimeModel
	fc.Session.Voice = &cfg.Voice
	fc.Session.VADThreshold = &cfg.VADThreshold
	fc.Session.VADSilence = &silence
	if cfg.Instructions != "" {
		fc.Session.Instructions = &cfg.Instructions
	}
	if cfg.StoreBackend != "" {
		fc.Storage.Backend = &cfg.StoreBackend
	}
	if cfg.StorePath != "" {
		fc.Storage.Path = &cfg.StorePath
	}
	if cfg.APIKey != "" {
		fc.APIKey = &cfg.APIKey
	}

	data, err := toml.Marshal(fc)
	if err != nil {
		return err
	}

	// Write with restricted permissions: the file may hold the API key
	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
