// Package config holds runtime defaults and the quicksilver.yaml loader.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is the current Quicksilver version.
// Set at build time via -ldflags or by writing to this file.
var Version = "0.4.0"

// Compiled-in defaults; a quicksilver.yaml file overrides them.
const (
	DefaultPersistThreshold   = 100
	DefaultMaxObjects         = 1024
	DefaultHibernationTimeout = 300 * time.Second
	DefaultHotThreshold       = 100
	DefaultOptThreshold       = 500
	DefaultHotLoopThreshold   = 1000
)

// JITConfig tunes the tiered compilation thresholds.
type JITConfig struct {
	// HotThreshold is the invocation count that triggers baseline
	// compilation.
	HotThreshold uint64 `yaml:"hot_threshold"`

	// OptThreshold is the invocation count that triggers optimizing
	// compilation.
	OptThreshold uint64 `yaml:"opt_threshold"`
}

// DurableConfig tunes the durable-object manager.
type DurableConfig struct {
	// StorageDir is the directory holding snapshots and WAL files.
	StorageDir string `yaml:"storage_dir"`

	// MaxObjects bounds the in-process object pool.
	MaxObjects int `yaml:"max_objects"`

	// HibernationTimeoutSec is the idle time before hibernation.
	HibernationTimeoutSec int `yaml:"hibernation_timeout_sec"`

	// EvictionPolicy is one of lru, lfu, ttl, manual.
	EvictionPolicy string `yaml:"eviction_policy"`

	// WalEnabled selects the WAL-journaled file backend.
	WalEnabled bool `yaml:"wal_enabled"`

	// AutoPersistThreshold is the mutation count before auto-persist.
	AutoPersistThreshold int `yaml:"auto_persist_threshold"`
}

// LimitsConfig caps a single top-level invocation. Zero means unlimited.
type LimitsConfig struct {
	TimeLimitMs    uint64 `yaml:"time_limit_ms"`
	OperationLimit uint64 `yaml:"operation_limit"`
	MemoryLimit    uint64 `yaml:"memory_limit"`
	StackDepth     int    `yaml:"stack_depth"`
}

// RuntimeConfig is the top-level quicksilver.yaml document.
type RuntimeConfig struct {
	JIT     JITConfig     `yaml:"jit"`
	Durable DurableConfig `yaml:"durable"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// Default returns the compiled-in configuration.
func Default() RuntimeConfig {
	return RuntimeConfig{
		JIT: JITConfig{
			HotThreshold: DefaultHotThreshold,
			OptThreshold: DefaultOptThreshold,
		},
		Durable: DurableConfig{
			StorageDir:            "durable_data",
			MaxObjects:            DefaultMaxObjects,
			HibernationTimeoutSec: int(DefaultHibernationTimeout / time.Second),
			EvictionPolicy:        "lru",
			WalEnabled:            true,
			AutoPersistThreshold:  DefaultPersistThreshold,
		},
	}
}

// Load reads a quicksilver.yaml file, layering it over the defaults.
func Load(path string) (RuntimeConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// HibernationTimeout converts the configured seconds to a duration.
func (c DurableConfig) HibernationTimeout() time.Duration {
	return time.Duration(c.HibernationTimeoutSec) * time.Second
}
