// Package config loads the engine's environment configuration from a
// YAML file, mirroring the teacher's cmd/warren apply.go YAML-struct
// convention.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/holontx/pkg/cache"
	"github.com/cuemby/holontx/pkg/holon"
)

// Config is the engine's environment configuration (spec §6
// Environment).
type Config struct {
	CacheRoutingPolicy   cache.ServiceRoutingPolicy    `yaml:"cache_routing_policy"`
	DefaultTxMode        string                        `yaml:"default_tx_mode"`
	LoaderSkipProperties []holon.PropertyName          `yaml:"loader_skip_properties"`
}

// Default returns the configuration the engine assumes absent a
// config file.
func Default() *Config {
	return &Config{
		CacheRoutingPolicy: cache.BlockExternal,
		DefaultTxMode:      "open",
	}
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SkipPropertySet returns cfg's LoaderSkipProperties as a lookup set,
// the shape pkg/loader.LoadBundle's skipProperties parameter expects.
func (cfg *Config) SkipPropertySet() map[holon.PropertyName]bool {
	set := make(map[holon.PropertyName]bool, len(cfg.LoaderSkipProperties))
	for _, name := range cfg.LoaderSkipProperties {
		set[name] = true
	}
	return set
}
