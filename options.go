package tickerdex

import (
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	rootDir string
	fs      afero.Fs

	driver    string // "redis", "valkey", "bolt" or "" for local only
	addrs     []string
	password  string
	boltPath  string
	container string
	keyPrefix string

	embedder     Embedder
	embedTimeout time.Duration

	cacheSize        int
	syncAttempts     uint
	pushAfterIngest  bool
	prefixTicker     bool
	readinessTimeout time.Duration

	logger *zap.Logger
}

// WithRootDir sets the local directory holding index artifacts.
// Default: "faiss_indices".
func WithRootDir(dir string) Option {
	return func(c *clientConfig) {
		c.rootDir = dir
	}
}

// WithFilesystem replaces the OS filesystem, e.g. with afero.NewMemMapFs() in tests.
func WithFilesystem(fs afero.Fs) Option {
	return func(c *clientConfig) {
		c.fs = fs
	}
}

// WithRedis mirrors indexes to a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithValkey mirrors indexes to a Valkey instance.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithBolt mirrors indexes to a local bbolt file.
func WithBolt(path string) Option {
	return func(c *clientConfig) {
		c.driver = "bolt"
		c.boltPath = path
	}
}

// WithContainer sets the blob store container. Default: "financial-data".
func WithContainer(name string) Option {
	return func(c *clientConfig) {
		c.container = name
	}
}

// WithKeyPrefix namespaces Redis/Valkey keys. Default: "tickerdex:".
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithEmbedTimeout bounds every embedding call. Default: 30s.
func WithEmbedTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.embedTimeout = d
	}
}

// WithCacheSize sets how many ticker indexes stay in memory; 0 disables the cache.
// Default: 64.
func WithCacheSize(n int) Option {
	return func(c *clientConfig) {
		c.cacheSize = n
	}
}

// WithSyncAttempts bounds retries of transport failures during push and pull.
// Default: 3.
func WithSyncAttempts(n uint) Option {
	return func(c *clientConfig) {
		c.syncAttempts = n
	}
}

// WithPushAfterIngest mirrors the ticker to the blob store after every ingestion.
func WithPushAfterIngest() Option {
	return func(c *clientConfig) {
		c.pushAfterIngest = true
	}
}

// WithTickerPrefix stores ingested documents as "TICKER: text".
func WithTickerPrefix() Option {
	return func(c *clientConfig) {
		c.prefixTicker = true
	}
}

// WithLogger enables structured logging. Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
