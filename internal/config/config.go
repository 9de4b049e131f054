// Package config loads ExecEye configuration from defaults, an optional YAML
// file, a .env file and the environment, in increasing order of precedence.
// CLI flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Daethyra/ExecEye/internal/engine/cache"
	"github.com/Daethyra/ExecEye/internal/engine/pool"
	"github.com/Daethyra/ExecEye/internal/provider/serpapi"
	"github.com/Daethyra/ExecEye/internal/storage/sqlite"
)

// Default storage timeouts.
const (
	DefaultAcquireTimeout = 5 * time.Second
	DefaultPersistTimeout = 10 * time.Second
)

// Config is the complete application configuration.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig configures the SerpAPI provider.
type SearchConfig struct {
	APIKey        string        `yaml:"api_key"         env:"SERP_API_KEY"`
	BaseURL       string        `yaml:"base_url"        env:"EXECEYE_SEARCH_BASE_URL"`
	Timeout       time.Duration `yaml:"timeout"         env:"EXECEYE_SEARCH_TIMEOUT"`
	RatePerSecond float64       `yaml:"rate_per_second" env:"EXECEYE_SEARCH_RATE"`
	Results       int           `yaml:"results"         env:"EXECEYE_SEARCH_RESULTS"`
}

// CacheConfig configures the bounded result cache.
type CacheConfig struct {
	Capacity int `yaml:"capacity" env:"CACHE_SIZE"`

	// TTL expires entries after a fixed age. Zero keeps entries until evicted.
	TTL time.Duration `yaml:"ttl" env:"EXECEYE_CACHE_TTL"`
}

// StorageConfig configures the SQLite store and its connection pool.
type StorageConfig struct {
	Path           string        `yaml:"path"            env:"EXECEYE_DB_PATH"`
	PoolSize       int           `yaml:"pool_size"       env:"EXECEYE_POOL_SIZE"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" env:"EXECEYE_POOL_ACQUIRE_TIMEOUT"`
	PersistTimeout time.Duration `yaml:"persist_timeout" env:"EXECEYE_PERSIST_TIMEOUT"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Search: SearchConfig{
			BaseURL:       serpapi.DefaultBaseURL,
			Timeout:       serpapi.DefaultTimeout,
			RatePerSecond: serpapi.DefaultRatePerSecond,
			Results:       serpapi.DefaultResults,
		},
		Cache: CacheConfig{
			Capacity: cache.DefaultCapacity,
		},
		Storage: StorageConfig{
			Path:           sqlite.DefaultPath,
			PoolSize:       pool.DefaultMaxSize,
			AcquireTimeout: DefaultAcquireTimeout,
			PersistTimeout: DefaultPersistTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// ConfigPath is an explicit YAML file. It must exist when set. When empty,
	// DefaultConfigPath is used if present.
	ConfigPath string

	// DotEnvPath is a .env file loaded into the process environment without
	// overriding variables that are already set. Missing files are ignored.
	DotEnvPath string
}

// Load builds a Config from defaults, the YAML file, the .env file and the
// environment. It does not validate the result.
func Load(opts LoadOptions) (*Config, error) {
	cfg := New()

	path := opts.ConfigPath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := ShallowMergeYAML(cfg, path); err != nil {
				return nil, &ConfigurationError{Field: "config file", Reason: err.Error()}
			}
		} else if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigurationError{Field: "config file", Reason: err.Error()}
		}
	}

	if err := LoadDotEnv(opts.DotEnvPath); err != nil {
		return nil, &ConfigurationError{Field: ".env", Reason: err.Error()}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, &ConfigurationError{Field: "environment", Reason: err.Error()}
	}

	return cfg, nil
}

// GetConfigDir returns the ExecEye configuration directory: $EXECEYE_HOME if
// set, otherwise ~/.execeye. It returns "" if no home directory is known.
func GetConfigDir() string {
	if dir := os.Getenv("EXECEYE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".execeye")
}

// DefaultConfigPath returns the config.yaml location inside GetConfigDir.
func DefaultConfigPath() string {
	dir := GetConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Validate checks every value a lookup session depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Search.APIKey) == "" {
		return &ConfigurationError{Field: "search.api_key", Reason: "SERP_API_KEY is not set"}
	}
	if c.Search.Timeout < 0 {
		return &ConfigurationError{Field: "search.timeout", Reason: "must not be negative"}
	}
	if c.Search.Results < 0 {
		return &ConfigurationError{Field: "search.results", Reason: "must not be negative"}
	}
	return c.ValidateLocal()
}

// ValidateLocal checks the settings that do not involve the search provider.
// Commands that only read stored results use it.
func (c *Config) ValidateLocal() error {
	if err := cache.ValidateCapacity(c.Cache.Capacity); err != nil {
		return &ConfigurationError{Field: "cache.capacity", Reason: err.Error()}
	}
	if err := cache.ValidateTTL(c.Cache.TTL); err != nil {
		return &ConfigurationError{Field: "cache.ttl", Reason: err.Error()}
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return &ConfigurationError{Field: "storage.path", Reason: "must not be empty"}
	}
	if c.Storage.PoolSize < 1 {
		return &ConfigurationError{Field: "storage.pool_size", Reason: fmt.Sprintf("must be at least 1 (got %d)", c.Storage.PoolSize)}
	}
	if c.Storage.AcquireTimeout < 0 {
		return &ConfigurationError{Field: "storage.acquire_timeout", Reason: "must not be negative"}
	}
	if c.Storage.PersistTimeout < 0 {
		return &ConfigurationError{Field: "storage.persist_timeout", Reason: "must not be negative"}
	}
	return c.Logging.Validate()
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.Search.APIKey = RedactSecret(c.Search.APIKey)
	return out
}

// RedactSecret masks all but the last four characters of secret.
func RedactSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}
