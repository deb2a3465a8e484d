// Package index implements the ticker-scoped Index Store: local persistence,
// in-memory caching, nearest-neighbour search and remote blob sync.
package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	domidx "github.com/kailas-cloud/tickerdex/internal/domain/index"
	"github.com/kailas-cloud/tickerdex/internal/domain/search/result"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
	"github.com/kailas-cloud/tickerdex/internal/metrics"
	"github.com/kailas-cloud/tickerdex/internal/repository/artifact"
)

// Default artifact names and remote container.
const (
	DefaultIndexArtifact   = "index.bin"
	DefaultMappingArtifact = "index_mapping.json"
	DefaultContainer       = "financial-data"
	DefaultRemoteTimeout   = 30 * time.Second
	DefaultCacheSize       = 64
)

// localStorage is the consumer interface for artifact files (ISP).
type localStorage interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	List(suffix string) ([]string, error)
}

// blobStore is the consumer interface for the remote store (ISP).
type blobStore interface {
	PutBlob(ctx context.Context, container, name string, data []byte) error
	GetBlob(ctx context.Context, container, name string) ([]byte, error)
	ListBlobs(ctx context.Context, container string) ([]string, error)
}

// Config holds Index Store parameters. Zero fields take defaults.
type Config struct {
	IndexArtifact   string
	MappingArtifact string
	Container       string
	RemoteTimeout   time.Duration
	CacheSize       int
}

func (c Config) withDefaults() Config {
	if c.IndexArtifact == "" {
		c.IndexArtifact = DefaultIndexArtifact
	}
	if c.MappingArtifact == "" {
		c.MappingArtifact = DefaultMappingArtifact
	}
	if c.Container == "" {
		c.Container = DefaultContainer
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = DefaultRemoteTimeout
	}
	if c.CacheSize < 0 {
		c.CacheSize = 0
	}
	return c
}

// Store owns every per-ticker index. All methods take the ticker explicitly.
type Store struct {
	local  localStorage
	remote blobStore
	cfg    Config
	cache  *cache
	locks  *lockTable
	logger *zap.Logger
}

// New creates an Index Store. remote may be nil, in which case sync calls fail
// with domain.ErrRemoteTransport.
func New(local localStorage, remote blobStore, cfg Config, logger *zap.Logger) *Store {
	cfg = cfg.withDefaults()
	return &Store{
		local:  local,
		remote: remote,
		cfg:    cfg,
		cache:  newCache(cfg.CacheSize),
		locks:  newLockTable(),
		logger: logger,
	}
}

// Load returns the ticker's index from cache or local storage.
// found is false when either artifact is absent.
func (s *Store) Load(ctx context.Context, symbol string) (domidx.Index, bool, error) {
	sym, err := ticker.Parse(symbol)
	if err != nil {
		return domidx.Index{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return domidx.Index{}, false, err
	}

	mu := s.locks.get(sym)
	mu.RLock()
	defer mu.RUnlock()

	return s.load(sym)
}

// CreateIndex builds a new index with positions 0..n-1 without persisting it.
func (s *Store) CreateIndex(embeddings [][]float32, documents []string) (domidx.Index, error) {
	idx, err := domidx.New(embeddings, documents)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("create index: %w", err)
	}
	return idx, nil
}

// Append adds a batch to the ticker's index, creating it when absent.
// The new index is persisted before it becomes visible; on any error disk and
// cache keep their previous state.
func (s *Store) Append(
	ctx context.Context, symbol string, embeddings [][]float32, documents []string,
) (domidx.AppendResult, error) {
	sym, err := ticker.Parse(symbol)
	if err != nil {
		return domidx.AppendResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return domidx.AppendResult{}, err
	}

	mu := s.locks.get(sym)
	mu.Lock()
	defer mu.Unlock()

	current, found, err := s.load(sym)
	if err != nil {
		metrics.IndexAppendsTotal.WithLabelValues("error").Inc()
		return domidx.AppendResult{}, fmt.Errorf("load %s: %w", sym, err)
	}

	next, err := current.Append(embeddings, documents)
	if err != nil {
		metrics.IndexAppendsTotal.WithLabelValues("rejected").Inc()
		return domidx.AppendResult{}, fmt.Errorf("append to %s: %w", sym, err)
	}

	if err := s.persist(sym, next, current); err != nil {
		metrics.IndexAppendsTotal.WithLabelValues("error").Inc()
		return domidx.AppendResult{}, err
	}
	s.cache.put(sym, next)

	res := domidx.AppendResult{
		FirstPosition: current.Len(),
		Added:         next.Len() - current.Len(),
		Total:         next.Len(),
		Created:       !found,
	}
	metrics.IndexAppendsTotal.WithLabelValues("ok").Inc()
	metrics.IndexSlotsAppendedTotal.Add(float64(res.Added))

	s.logger.Info("Appended to index",
		zap.String("ticker", sym.String()),
		zap.Int("added", res.Added),
		zap.Int("total", res.Total),
		zap.Bool("created", res.Created),
	)
	return res, nil
}

// Search returns up to k nearest documents of the ticker, nearest first.
// A ticker without an index yields an empty result.
func (s *Store) Search(ctx context.Context, symbol string, query []float32, k int) ([]result.Hit, error) {
	start := time.Now()
	hits, err := s.search(ctx, symbol, query, k)
	metrics.IndexSearchDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		metrics.IndexSearchesTotal.WithLabelValues("error").Inc()
	case len(hits) == 0:
		metrics.IndexSearchesTotal.WithLabelValues("empty").Inc()
	default:
		metrics.IndexSearchesTotal.WithLabelValues("hit").Inc()
	}
	return hits, err
}

func (s *Store) search(ctx context.Context, symbol string, query []float32, k int) ([]result.Hit, error) {
	sym, err := ticker.Parse(symbol)
	if err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu := s.locks.get(sym)
	mu.RLock()
	defer mu.RUnlock()

	idx, found, err := s.load(sym)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sym, err)
	}
	if !found {
		return []result.Hit{}, nil
	}

	hits, err := idx.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", sym, err)
	}
	return hits, nil
}

// Persist writes both artifacts of idx for the ticker, replacing prior copies.
func (s *Store) Persist(ctx context.Context, symbol string, idx domidx.Index) error {
	sym, err := ticker.Parse(symbol)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mu := s.locks.get(sym)
	mu.Lock()
	defer mu.Unlock()

	prev, _, err := s.load(sym)
	if err != nil {
		s.logger.Warn("Overwriting unreadable index", zap.String("ticker", sym.String()), zap.Error(err))
	}
	if err := s.persist(sym, idx, prev); err != nil {
		return err
	}
	s.cache.put(sym, idx)
	return nil
}

// LocalTickers lists tickers with a local vector-index artifact.
func (s *Store) LocalTickers() ([]ticker.Symbol, error) {
	names, err := s.local.List("_" + s.cfg.IndexArtifact)
	if err != nil {
		return nil, fmt.Errorf("list local artifacts: %w", err)
	}
	return s.tickersFromNames(names), nil
}

// load reads the ticker's index. Callers hold the ticker lock.
func (s *Store) load(sym ticker.Symbol) (domidx.Index, bool, error) {
	if idx, ok := s.cache.get(sym); ok {
		metrics.IndexCacheTotal.WithLabelValues("hit").Inc()
		return idx, true, nil
	}
	metrics.IndexCacheTotal.WithLabelValues("miss").Inc()

	vectors, err := s.local.Read(sym.ArtifactName(s.cfg.IndexArtifact))
	if errors.Is(err, domain.ErrArtifactMissing) {
		return domidx.Index{}, false, nil
	}
	if err != nil {
		return domidx.Index{}, false, fmt.Errorf("read vector artifact: %w", err)
	}

	mapping, err := s.local.Read(sym.ArtifactName(s.cfg.MappingArtifact))
	if errors.Is(err, domain.ErrArtifactMissing) {
		s.logger.Warn("Vector artifact present without mapping, treating index as absent",
			zap.String("ticker", sym.String()))
		return domidx.Index{}, false, nil
	}
	if err != nil {
		return domidx.Index{}, false, fmt.Errorf("read mapping artifact: %w", err)
	}

	idx, err := artifact.Decode(vectors, mapping)
	if err != nil {
		return domidx.Index{}, false, fmt.Errorf("decode %s: %w", sym, err)
	}

	s.cache.put(sym, idx)
	return idx, true, nil
}

// persist writes the vector artifact then the mapping. When the mapping write
// fails the previous vector artifact is restored. Callers hold the write lock.
func (s *Store) persist(sym ticker.Symbol, idx, prev domidx.Index) error {
	mapping, err := artifact.EncodeMapping(idx)
	if err != nil {
		return fmt.Errorf("persist %s: %w", sym, err)
	}
	vectorsName := sym.ArtifactName(s.cfg.IndexArtifact)
	if err := s.local.Write(vectorsName, artifact.EncodeVectors(idx)); err != nil {
		return fmt.Errorf("persist %s vectors: %w", sym, err)
	}
	if err := s.local.Write(sym.ArtifactName(s.cfg.MappingArtifact), mapping); err != nil {
		if !prev.IsEmpty() {
			if rbErr := s.local.Write(vectorsName, artifact.EncodeVectors(prev)); rbErr != nil {
				s.cache.remove(sym)
				s.logger.Error("Failed to restore vector artifact",
					zap.String("ticker", sym.String()), zap.Error(rbErr))
			}
		}
		return fmt.Errorf("persist %s mapping: %w", sym, err)
	}
	return nil
}

func (s *Store) tickersFromNames(names []string) []ticker.Symbol {
	seen := make(map[ticker.Symbol]struct{}, len(names))
	out := make([]ticker.Symbol, 0, len(names))
	for _, n := range names {
		sym, ok := ticker.FromArtifactName(n, s.cfg.IndexArtifact)
		if !ok {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}
