package store

import "fmt"

// Config selects the persistence backend for solved runs. An empty backend
// disables persistence.
type Config struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

// Validate checks the backend name and its path.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "jsonl", "sqlite":
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if c.Backend != "" && c.Path == "" {
		return fmt.Errorf("store path required for backend %q", c.Backend)
	}
	return nil
}

// Build opens the configured backend. An empty backend yields a NopStore.
func Build(cfg Config) (RunStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("store config: %w", err)
	}
	switch cfg.Backend {
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return NopStore{}, nil
	}
}
