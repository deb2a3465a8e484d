package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/config"
	"github.com/kailas-cloud/tickerdex/internal/db"
	dbBolt "github.com/kailas-cloud/tickerdex/internal/db/bolt"
	dbRedis "github.com/kailas-cloud/tickerdex/internal/db/redis"
	"github.com/kailas-cloud/tickerdex/internal/domain"
	logpkg "github.com/kailas-cloud/tickerdex/internal/logger"
	"github.com/kailas-cloud/tickerdex/internal/metrics"
	"github.com/kailas-cloud/tickerdex/internal/repository/embcache"
	repoidx "github.com/kailas-cloud/tickerdex/internal/repository/index"
	"github.com/kailas-cloud/tickerdex/internal/repository/localfs"
	openaiEmb "github.com/kailas-cloud/tickerdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/tickerdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/tickerdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/tickerdex/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/tickerdex/internal/usecase/retrieve"
	syncuc "github.com/kailas-cloud/tickerdex/internal/usecase/sync"
)

var errRemoteNotConfigured = errors.New("blob store is not configured (blob.driver: none)")

// app is the composition root shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	local    *localfs.Storage
	blob     db.Store
	index    *repoidx.Store
	sync     *syncuc.Service
	ingest   *ingestuc.Service
	retrieve *retrieveuc.Service
	health   *healthuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.local = localfs.NewOS(cfg.Index.RootDir)
	if err := a.local.Init(); err != nil {
		return nil, err
	}

	blob, err := openBlobStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	if blob != nil {
		readiness := time.Duration(cfg.Blob.ReadinessTimeout) * time.Second
		if err := blob.WaitForReady(ctx, readiness); err != nil {
			blob.Close()
			return nil, fmt.Errorf("blob store not ready: %w", err)
		}
		a.blob = blob
		logger.Info("Connected to blob store",
			zap.String("driver", cfg.Blob.Driver),
			zap.String("container", cfg.Blob.Container),
		)
	}

	// Pass nil interface (not typed nil pointer!) when no blob store is configured.
	var remote db.BlobStore
	if a.blob != nil {
		remote = a.blob
	}
	a.index = repoidx.New(a.local, remote, repoidx.Config{
		IndexArtifact:   cfg.Index.IndexArtifact,
		MappingArtifact: cfg.Index.MappingArtifact,
		Container:       cfg.Blob.Container,
		RemoteTimeout:   cfg.BlobTimeout(),
		CacheSize:       cfg.Index.CacheSize,
	}, logpkg.Component(logger, "index"))

	var pusher ingestuc.Pusher
	if a.blob != nil {
		a.sync = syncuc.New(a.index, syncuc.Config{
			MaxAttempts:     cfg.Blob.Sync.MaxAttempts,
			InitialInterval: time.Duration(cfg.Blob.Sync.InitialIntervalMs) * time.Millisecond,
			MaxInterval:     time.Duration(cfg.Blob.Sync.MaxIntervalMs) * time.Millisecond,
		}, logpkg.Component(logger, "sync"))
		if cfg.Ingest.PushAfterAppend {
			pusher = a.sync
		}
	}

	docEmbedder, queryEmbedder := buildEmbedders(cfg, a.blob, logger)
	embedTimeout := time.Duration(cfg.Ingest.EmbedTimeoutSec) * time.Second

	var ingestOpts []ingestuc.Option
	if cfg.Ingest.PrefixTicker {
		ingestOpts = append(ingestOpts, ingestuc.WithTickerPrefix())
	}
	a.ingest = ingestuc.New(a.index, docEmbedder, pusher, embedTimeout, logpkg.Component(logger, "ingest"), ingestOpts...)
	a.retrieve = retrieveuc.New(a.index, queryEmbedder, cfg.EmbeddingTimeout(), logpkg.Component(logger, "retrieve"))

	var pinger healthuc.BlobPinger
	if a.blob != nil {
		pinger = a.blob
	}
	a.health = healthuc.New(a.local, pinger, newEmbeddingHealthChecker(queryEmbedder))

	return a, nil
}

func (a *app) close() {
	if a.blob != nil {
		a.blob.Close()
	}
}

func (a *app) requireSync() (*syncuc.Service, error) {
	if a.sync == nil {
		return nil, errRemoteNotConfigured
	}
	return a.sync, nil
}

func openBlobStore(cfg config.Config) (db.Store, error) {
	switch cfg.Blob.Driver {
	case config.DriverRedis, config.DriverValkey:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Blob.Addrs,
			Username:  cfg.Blob.Username,
			Password:  cfg.Blob.Password,
			DB:        cfg.Blob.DB,
			KeyPrefix: cfg.Blob.KeyPrefix,
		})
	case config.DriverBolt:
		return dbBolt.NewStore(cfg.Blob.BoltPath)
	case config.DriverNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
}

// buildEmbedders assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// Documents and queries share the limiter so both count against one provider quota.
func buildEmbedders(cfg config.Config, kv db.KVStore, logger *zap.Logger) (docs, queries domain.Embedder) {
	ec := cfg.Embedding

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		Provider:   ec.Provider,
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		APIVersion: ec.APIVersion,
		Deployment: ec.Deployment,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Timeout:    cfg.EmbeddingTimeout(),
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if ec.Cache.Enabled && kv != nil {
		embedder = embcache.New(base, kv, embcache.Options{
			KeyPrefix: cfg.Blob.KeyPrefix + "emb_cache:",
			Model:     ec.Model,
			TTL:       cfg.EmbeddingCacheTTL(),
		}, metrics.EmbeddingCacheTotal, logger)
	}

	limiter := embeddinguc.NewRateLimiter(ec.RateLimit.RequestsPerSecond, ec.RateLimit.Burst)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, limiter, logpkg.Component(logger, "embedding"))

	logger.Info("Embedder created",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("dimensions", ec.Dimensions),
		zap.Bool("cache", ec.Cache.Enabled && kv != nil),
	)

	// Instruction prefix (outermost, cache key includes instruction)
	return withInstruction(embedder, ec.DocumentInstruction), withInstruction(embedder, ec.QueryInstruction)
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
