// Package config loads the service configuration from a yaml or json file
// with optional K_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/nemspd/core/dispatch"
	"github.com/kilianp07/nemspd/core/metrics"
	"github.com/kilianp07/nemspd/infra/mqtt"
	"github.com/kilianp07/nemspd/infra/store"
)

type Config struct {
	Solver    dispatch.Config `json:"solver"`
	Store     store.Config    `json:"store"`
	Metrics   metrics.Config  `json:"metrics"`
	Publisher mqtt.Config     `json:"publisher"`
	Spool     SpoolConfig     `json:"spool"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Solver.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Publisher.SetDefaults()
	cfg.Spool.SetDefaults()
	if err := cfg.Solver.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Publisher.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Spool.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
