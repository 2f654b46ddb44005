package driven

import "github.com/darkcube-team/cuby/internal/core/domain"

// ConfigStore loads and persists the application configuration.
type ConfigStore interface {
	// Load reads the stored configuration. A missing store yields the
	// defaults and a nil error.
	Load() (domain.Config, error)

	// Save persists the configuration.
	Save(cfg domain.Config) error

	// Path returns the location of the backing store, for display.
	Path() string
}
