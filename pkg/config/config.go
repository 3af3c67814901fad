// Package config loads engine configuration from environment variables,
// with an optional YAML file overlay for deployments that prefer config
// files to env vars. The YAML file takes precedence: LoadFromEnv populates
// defaults and env values, then ApplyYAML overrides whatever the YAML file
// sets explicitly.
//
// Configuration is loaded once at engine init and treated as immutable
// afterward; nothing in pkg/engine or pkg/graph re-reads it at runtime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the engine needs at init: spec.md's closed
// per-graph configuration set, plus the ambient fields (log level, data
// directory, shard sizing) every deployment needs regardless of domain.
type Config struct {
	// Engine mirrors spec.md §6's closed configuration set, read once at
	// engine init and applied identically to every graph the engine owns.
	Engine EngineConfig

	// Storage settings for the demo badger-backed host store.
	Storage StorageConfig

	// Logging settings.
	Logging LoggingConfig
}

// EngineConfig is spec.md §6's "Configuration (all read once at engine
// init)" set, carried field-for-field.
type EngineConfig struct {
	// ThreadCount is the worker-parallelism setting for the matrix kernel.
	// It is loaded and validated, but nothing in this module passes it to
	// the kernel.
	ThreadCount int
	// OMPThreadCount is the OpenMP-style parallelism setting for the
	// kernel, kept distinct from ThreadCount per spec.md's naming. Like
	// ThreadCount, it is loaded and validated but not passed to the kernel.
	OMPThreadCount int
	// CacheSize bounds an implementation-defined kernel cache; forGraphBLASGo
	// has no such cache today, so this is carried through unused rather
	// than wired to a no-op, for forward compatibility with a kernel swap.
	CacheSize int
	// VKeyEntityCount is the per-shard entity-count setting. It is loaded
	// and validated, but pkg/persist does not read it: Encode starts a new
	// primary shard by payload size (persist.DefaultMaxPayload), not by a
	// count of node/edge records.
	VKeyEntityCount int
	// MaintainTransposedMatrices, when true, asks algorithm adapters to
	// reuse a precomputed transpose instead of transposing per call. The
	// adapters in pkg/algo always transpose on demand today; this flag is
	// accepted and threaded through for a future caching adapter.
	MaintainTransposedMatrices bool
	// AsyncDelete is accepted and threaded through but treated as a hint:
	// this implementation always deletes synchronously under the writer
	// lock, matching spec.md's permitted resolution for async_delete's
	// under-specified semantics.
	AsyncDelete bool
}

// StorageConfig configures the demo badger-backed host store.
type StorageConfig struct {
	// DataDir is the directory badger opens its database under.
	DataDir string
	// CoLocate controls whether shard keys use the Redis-cluster-style
	// hashtag prefix ({graphName}graphName_uuid) so all of one graph's
	// shards land on the same cluster slot.
	CoLocate bool
}

// LoggingConfig configures pkg/gblog.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string
}

// LoadFromEnv loads configuration from environment variables, using
// MGRAPH_-prefixed names, with defaults sensible for local development.
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Engine.ThreadCount = getEnvInt("MGRAPH_THREAD_COUNT", 4)
	cfg.Engine.OMPThreadCount = getEnvInt("MGRAPH_OMP_THREAD_COUNT", 1)
	cfg.Engine.CacheSize = getEnvInt("MGRAPH_CACHE_SIZE", 0)
	cfg.Engine.VKeyEntityCount = getEnvInt("MGRAPH_VKEY_ENTITY_COUNT", 0)
	cfg.Engine.MaintainTransposedMatrices = getEnvBool("MGRAPH_MAINTAIN_TRANSPOSED_MATRICES", false)
	cfg.Engine.AsyncDelete = getEnvBool("MGRAPH_ASYNC_DELETE", false)

	cfg.Storage.DataDir = getEnv("MGRAPH_DATA_DIR", "./data")
	cfg.Storage.CoLocate = getEnvBool("MGRAPH_STORAGE_COLOCATE", false)

	cfg.Logging.Level = getEnv("MGRAPH_LOG_LEVEL", "INFO")

	return cfg
}

// ApplyYAML overlays settings found in the YAML file at path onto cfg.
// Fields absent from the file are left as cfg already has them, so a
// partial override file only needs to name what it changes. A missing
// file is not an error; ApplyYAML is meant to be optional.
func ApplyYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	overlay.applyTo(cfg)
	return nil
}

// yamlOverlay mirrors Config with pointer fields, so "unset in the file"
// is distinguishable from "explicitly set to the zero value".
type yamlOverlay struct {
	Engine struct {
		ThreadCount                *int  `yaml:"thread_count"`
		OMPThreadCount             *int  `yaml:"omp_thread_count"`
		CacheSize                  *int  `yaml:"cache_size"`
		VKeyEntityCount            *int  `yaml:"vkey_entity_count"`
		MaintainTransposedMatrices *bool `yaml:"maintain_transposed_matrices"`
		AsyncDelete                *bool `yaml:"async_delete"`
	} `yaml:"engine"`
	Storage struct {
		DataDir  *string `yaml:"data_dir"`
		CoLocate *bool   `yaml:"co_locate"`
	} `yaml:"storage"`
	Logging struct {
		Level *string `yaml:"level"`
	} `yaml:"logging"`
}

func (o yamlOverlay) applyTo(cfg *Config) {
	if o.Engine.ThreadCount != nil {
		cfg.Engine.ThreadCount = *o.Engine.ThreadCount
	}
	if o.Engine.OMPThreadCount != nil {
		cfg.Engine.OMPThreadCount = *o.Engine.OMPThreadCount
	}
	if o.Engine.CacheSize != nil {
		cfg.Engine.CacheSize = *o.Engine.CacheSize
	}
	if o.Engine.VKeyEntityCount != nil {
		cfg.Engine.VKeyEntityCount = *o.Engine.VKeyEntityCount
	}
	if o.Engine.MaintainTransposedMatrices != nil {
		cfg.Engine.MaintainTransposedMatrices = *o.Engine.MaintainTransposedMatrices
	}
	if o.Engine.AsyncDelete != nil {
		cfg.Engine.AsyncDelete = *o.Engine.AsyncDelete
	}
	if o.Storage.DataDir != nil {
		cfg.Storage.DataDir = *o.Storage.DataDir
	}
	if o.Storage.CoLocate != nil {
		cfg.Storage.CoLocate = *o.Storage.CoLocate
	}
	if o.Logging.Level != nil {
		cfg.Logging.Level = *o.Logging.Level
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Engine.ThreadCount <= 0 {
		return fmt.Errorf("config: invalid thread_count: %d", c.Engine.ThreadCount)
	}
	if c.Engine.OMPThreadCount <= 0 {
		return fmt.Errorf("config: invalid omp_thread_count: %d", c.Engine.OMPThreadCount)
	}
	if c.Engine.VKeyEntityCount < 0 {
		return fmt.Errorf("config: invalid vkey_entity_count: %d", c.Engine.VKeyEntityCount)
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("config: invalid logging level: %s", c.Logging.Level)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
