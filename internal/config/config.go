package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Blob store drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverBolt   = "bolt"
	DriverNone   = "none"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

// DefaultCacheSize is the index cache size when index.cache_size is absent.
const DefaultCacheSize = 64

// Config holds the tickerdex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Index     IndexConfig     `yaml:"index"`
	Blob      BlobConfig      `yaml:"blob"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// HTTPConfig holds ops server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"`
}

// IndexConfig holds local index settings.
type IndexConfig struct {
	RootDir         string `yaml:"root_dir"`
	IndexArtifact   string `yaml:"index_artifact"`
	MappingArtifact string `yaml:"mapping_artifact"`
	CacheSize       int    `yaml:"cache_size"` // 0 disables the cache
	DefaultTopK     int    `yaml:"default_top_k"`
}

// BlobConfig holds remote blob store settings.
type BlobConfig struct {
	Driver           string     `yaml:"driver"` // redis, valkey, bolt, none (default: redis)
	Addrs            []string   `yaml:"addrs"`
	Username         string     `yaml:"username"`
	Password         string     `yaml:"password"`
	DB               int        `yaml:"db"`
	BoltPath         string     `yaml:"bolt_path"`
	Container        string     `yaml:"container"`
	KeyPrefix        string     `yaml:"key_prefix"`
	TimeoutSec       int        `yaml:"timeout_sec"`
	ReadinessTimeout int        `yaml:"readiness_timeout_sec"`
	Sync             SyncConfig `yaml:"sync"`
}

// SyncConfig holds retry settings for remote transfers.
type SyncConfig struct {
	MaxAttempts       uint `yaml:"max_attempts"`
	InitialIntervalMs int  `yaml:"initial_interval_ms"`
	MaxIntervalMs     int  `yaml:"max_interval_ms"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string          `yaml:"provider"` // openai, azure (default: openai)
	APIKey              string          `yaml:"api_key"`
	BaseURL             string          `yaml:"base_url"`
	APIVersion          string          `yaml:"api_version"`
	Deployment          string          `yaml:"deployment"`
	Model               string          `yaml:"model"`
	Dimensions          int             `yaml:"dimensions"`
	TimeoutSec          int             `yaml:"timeout_sec"`
	DocumentInstruction string          `yaml:"document_instruction"`
	QueryInstruction    string          `yaml:"query_instruction"`
	RateLimit           RateLimitConfig `yaml:"rate_limit"`
	Cache               CacheConfig     `yaml:"cache"`
}

// RateLimitConfig holds the client-side token bucket settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"` // 0 = no expiry
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	EmbedTimeoutSec int  `yaml:"embed_timeout_sec"`
	PushAfterAppend bool `yaml:"push_after_append"`
	// PrefixTicker stores each document as "TICKER: text".
	PrefixTicker bool `yaml:"prefix_ticker"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates configuration bytes.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	// Seeded so that an absent cache_size keeps the default and an explicit 0 disables.
	cfg := Config{Index: IndexConfig{CacheSize: DefaultCacheSize}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Index.RootDir == "" {
		c.Index.RootDir = "faiss_indices"
	}
	if c.Index.IndexArtifact == "" {
		c.Index.IndexArtifact = "index.bin"
	}
	if c.Index.MappingArtifact == "" {
		c.Index.MappingArtifact = "index_mapping.json"
	}
	if c.Index.CacheSize < 0 {
		c.Index.CacheSize = 0
	}
	if c.Index.DefaultTopK <= 0 {
		c.Index.DefaultTopK = 5
	}

	if c.Blob.Driver == "" {
		c.Blob.Driver = DriverRedis
	}
	if c.Blob.Container == "" {
		c.Blob.Container = "financial-data"
	}
	if c.Blob.KeyPrefix == "" {
		c.Blob.KeyPrefix = "tickerdex:"
	}
	if c.Blob.BoltPath == "" {
		c.Blob.BoltPath = "tickerdex.db"
	}
	if c.Blob.TimeoutSec <= 0 {
		c.Blob.TimeoutSec = 30
	}
	if c.Blob.ReadinessTimeout <= 0 {
		c.Blob.ReadinessTimeout = 10
	}
	if c.Blob.Sync.MaxAttempts == 0 {
		c.Blob.Sync.MaxAttempts = 3
	}
	if c.Blob.Sync.InitialIntervalMs <= 0 {
		c.Blob.Sync.InitialIntervalMs = 500
	}
	if c.Blob.Sync.MaxIntervalMs <= 0 {
		c.Blob.Sync.MaxIntervalMs = 10000
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.RateLimit.Burst <= 0 {
		c.Embedding.RateLimit.Burst = 1
	}

	if c.Ingest.EmbedTimeoutSec <= 0 {
		c.Ingest.EmbedTimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if strings.ContainsAny(c.Index.IndexArtifact, `/\`) || strings.ContainsAny(c.Index.MappingArtifact, `/\`) {
		return errors.New("index artifact names must not contain path separators")
	}
	if c.Index.IndexArtifact == c.Index.MappingArtifact {
		return errors.New("index.index_artifact and index.mapping_artifact must differ")
	}

	switch c.Blob.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Blob.Addrs) == 0 {
			return fmt.Errorf("blob.addrs is required for driver %q", c.Blob.Driver)
		}
	case DriverBolt, DriverNone:
	default:
		return fmt.Errorf("blob.driver must be one of redis, valkey, bolt, none, got %q", c.Blob.Driver)
	}
	if c.Blob.Sync.MaxIntervalMs < c.Blob.Sync.InitialIntervalMs {
		return errors.New("blob.sync.max_interval_ms must not be below initial_interval_ms")
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
	case ProviderAzure:
		if c.Embedding.BaseURL == "" || c.Embedding.Deployment == "" {
			return errors.New("embedding.base_url and embedding.deployment are required for azure")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"azure\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.RateLimit.RequestsPerSecond < 0 {
		return errors.New("embedding.rate_limit.requests_per_second must not be negative")
	}
	if c.Embedding.Cache.Enabled && c.Blob.Driver == DriverNone {
		return errors.New("embedding.cache requires a blob store driver")
	}
	if c.Ingest.PushAfterAppend && c.Blob.Driver == DriverNone {
		return errors.New("ingest.push_after_append requires a blob store driver")
	}
	return nil
}

// BlobTimeout returns the per-call remote timeout.
func (c *Config) BlobTimeout() time.Duration { return time.Duration(c.Blob.TimeoutSec) * time.Second }

// EmbeddingTimeout returns the provider HTTP timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSec) * time.Second
}

// EmbeddingCacheTTL returns the embedding cache TTL, 0 for no expiry.
func (c *Config) EmbeddingCacheTTL() time.Duration {
	return time.Duration(c.Embedding.Cache.TTLHours) * time.Hour
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
