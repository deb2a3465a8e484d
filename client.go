package tickerdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/db"
	dbBolt "github.com/kailas-cloud/tickerdex/internal/db/bolt"
	dbRedis "github.com/kailas-cloud/tickerdex/internal/db/redis"
	"github.com/kailas-cloud/tickerdex/internal/domain"
	repoidx "github.com/kailas-cloud/tickerdex/internal/repository/index"
	"github.com/kailas-cloud/tickerdex/internal/repository/localfs"
	embeddinguc "github.com/kailas-cloud/tickerdex/internal/usecase/embedding"
	ingestuc "github.com/kailas-cloud/tickerdex/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/tickerdex/internal/usecase/retrieve"
	syncuc "github.com/kailas-cloud/tickerdex/internal/usecase/sync"
)

const (
	defaultRootDir          = "faiss_indices"
	defaultReadinessTimeout = 10 * time.Second
)

// Client is the tickerdex entry point.
type Client struct {
	store    db.Store
	index    *repoidx.Store
	ingest   *ingestuc.Service
	retrieve *retrieveuc.Service
	sync     *syncuc.Service
}

// New creates a Client. A blob store is optional; without one the client
// works on local storage only and sync calls return ErrRemoteNotConfigured.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		rootDir:          defaultRootDir,
		cacheSize:        repoidx.DefaultCacheSize,
		readinessTimeout: defaultReadinessTimeout,
		logger:           zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("tickerdex: embedder required (use WithEmbedder)")
	}

	fs := cfg.fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	local := localfs.New(fs, cfg.rootDir)
	if err := local.Init(); err != nil {
		return nil, fmt.Errorf("tickerdex: %w", err)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.WaitForReady(context.Background(), cfg.readinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("tickerdex: blob store not ready: %w", err)
		}
	}

	return wireClient(local, store, cfg), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "":
		return nil, nil
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.addrs,
			Password:  cfg.password,
			KeyPrefix: cfg.keyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("tickerdex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "bolt":
		s, err := dbBolt.NewStore(cfg.boltPath)
		if err != nil {
			return nil, fmt.Errorf("tickerdex: create bolt store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("tickerdex: unknown driver %q", cfg.driver)
	}
}

func wireClient(local *localfs.Storage, store db.Store, cfg *clientConfig) *Client {
	// Pass nil interface (not typed nil pointer!) when no blob store is configured.
	var remote db.BlobStore
	if store != nil {
		remote = store
	}

	index := repoidx.New(local, remote, repoidx.Config{
		Container: cfg.container,
		CacheSize: cfg.cacheSize,
	}, cfg.logger)

	emb := embeddinguc.NewInstrumentedEmbedder(
		&embedderAdapter{inner: cfg.embedder}, "sdk", "custom", nil, cfg.logger,
	)

	c := &Client{
		store:    store,
		index:    index,
		retrieve: retrieveuc.New(index, emb, cfg.embedTimeout, cfg.logger),
	}

	var pusher ingestuc.Pusher
	if store != nil {
		c.sync = syncuc.New(index, syncuc.Config{MaxAttempts: cfg.syncAttempts}, cfg.logger)
		if cfg.pushAfterIngest {
			pusher = c.sync
		}
	}
	var ingestOpts []ingestuc.Option
	if cfg.prefixTicker {
		ingestOpts = append(ingestOpts, ingestuc.WithTickerPrefix())
	}
	c.ingest = ingestuc.New(index, emb, pusher, cfg.embedTimeout, cfg.logger, ingestOpts...)
	return c
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks blob store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return ErrRemoteNotConfigured
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ingest embeds documents and appends them to the ticker's index in order.
// Documents that fail to embed are dropped and listed in the result; if all
// fail the call returns ErrNoEmbeddings.
func (c *Client) Ingest(ctx context.Context, ticker string, documents []string) (IngestResult, error) {
	r, err := c.ingest.Ingest(ctx, ticker, documents)
	if err != nil {
		return IngestResult{}, err
	}
	return ingestResultFrom(r), nil
}

// Append adds precomputed embeddings to the ticker's index.
func (c *Client) Append(ctx context.Context, ticker string, embeddings [][]float32, documents []string) (int, error) {
	r, err := c.index.Append(ctx, ticker, embeddings, documents)
	if err != nil {
		return 0, err
	}
	return r.Total, nil
}

// Retrieve returns the k nearest documents to query joined nearest first,
// or a sentinel message when nothing can be retrieved.
func (c *Client) Retrieve(ctx context.Context, ticker, query string, k int) (string, error) {
	return c.retrieve.Retrieve(ctx, ticker, query, k)
}

// Search returns the k nearest hits to query.
func (c *Client) Search(ctx context.Context, ticker, query string, k int) ([]Hit, error) {
	hits, err := c.retrieve.Search(ctx, ticker, query, k)
	if err != nil {
		return nil, err
	}
	return hitsFromResult(hits), nil
}

// SearchVector returns the k nearest hits to a precomputed query vector.
func (c *Client) SearchVector(ctx context.Context, ticker string, query []float32, k int) ([]Hit, error) {
	hits, err := c.index.Search(ctx, ticker, query, k)
	if err != nil {
		return nil, err
	}
	return hitsFromResult(hits), nil
}

// Len returns the number of documents in the ticker's index.
func (c *Client) Len(ctx context.Context, ticker string) (int, error) {
	idx, _, err := c.index.Load(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return idx.Len(), nil
}

// Tickers lists tickers with a local index.
func (c *Client) Tickers() ([]string, error) {
	syms, err := c.index.LocalTickers()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.String()
	}
	return out, nil
}

// Push uploads the ticker's index to the blob store.
func (c *Client) Push(ctx context.Context, ticker string) error {
	if c.sync == nil {
		return ErrRemoteNotConfigured
	}
	return c.sync.Push(ctx, ticker).Err()
}

// Pull downloads the ticker's index from the blob store.
func (c *Client) Pull(ctx context.Context, ticker string) error {
	if c.sync == nil {
		return ErrRemoteNotConfigured
	}
	return c.sync.Pull(ctx, ticker).Err()
}

// Ensure makes the ticker's index available locally, pulling it when needed,
// and reports whether it holds any document. Without a blob store only local
// data is considered.
func (c *Client) Ensure(ctx context.Context, ticker string) (bool, error) {
	if c.sync != nil {
		return c.sync.Ensure(ctx, ticker)
	}
	idx, found, err := c.index.Load(ctx, ticker)
	if err != nil {
		return false, err
	}
	return found && !idx.IsEmpty(), nil
}

var _ domain.Embedder = (*embedderAdapter)(nil)
