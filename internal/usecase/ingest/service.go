// Package ingest embeds freshly collected documents and appends them to a
// ticker's index, then mirrors the index to remote storage.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	domidx "github.com/kailas-cloud/tickerdex/internal/domain/index"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

// DefaultEmbedTimeout bounds each document's embedding call.
const DefaultEmbedTimeout = 30 * time.Second

// Failure records a document that could not be embedded.
type Failure struct {
	Position int
	Err      error
}

// Result summarizes one ingestion.
type Result struct {
	Ticker    ticker.Symbol
	Submitted int
	Dropped   []Failure
	Append    domidx.AppendResult
	Tokens    int
	// Push is nil when no pusher is configured.
	Push *domidx.SyncReport
}

// Embedded returns how many documents made it into the index.
func (r Result) Embedded() int { return r.Submitted - len(r.Dropped) }

// Service ingests documents for a ticker.
type Service struct {
	index        Appender
	embed        Embedder
	pusher       Pusher
	embedTimeout time.Duration
	prefixTicker bool
	logger       *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTickerPrefix stores and embeds each document as "TICKER: text".
// Documents that already carry the prefix are left as they are.
func WithTickerPrefix() Option {
	return func(s *Service) { s.prefixTicker = true }
}

// New creates an ingestion service. pusher may be nil to skip remote mirroring.
func New(
	index Appender, embed Embedder, pusher Pusher, embedTimeout time.Duration, logger *zap.Logger, opts ...Option,
) *Service {
	if embedTimeout <= 0 {
		embedTimeout = DefaultEmbedTimeout
	}
	s := &Service{
		index:        index,
		embed:        embed,
		pusher:       pusher,
		embedTimeout: embedTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest embeds each document independently, drops the ones that fail, and
// appends the rest in input order. If no document can be embedded the call
// fails with domain.ErrNoEmbeddings. A failed push is reported in Result only.
func (s *Service) Ingest(ctx context.Context, symbol string, documents []string) (Result, error) {
	sym, err := ticker.Parse(symbol)
	if err != nil {
		return Result{}, err
	}
	if err := validateDocuments(documents); err != nil {
		return Result{}, err
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	res := Result{Ticker: sym, Submitted: len(documents)}

	embeddings := make([][]float32, 0, len(documents))
	kept := make([]string, 0, len(documents))
	var lastErr error

	for i, doc := range documents {
		if s.prefixTicker {
			doc = withPrefix(sym, doc)
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("ingest %s: %w", sym, err)
		}

		vec, err := s.embedOne(ctx, doc)
		if err != nil {
			lastErr = err
			res.Dropped = append(res.Dropped, Failure{Position: i, Err: err})
			s.logger.Warn("Dropping document that failed to embed",
				zap.String("ticker", sym.String()),
				zap.Int("position", i),
				zap.Error(err),
			)
			continue
		}
		embeddings = append(embeddings, vec)
		kept = append(kept, doc)
	}
	res.Tokens = usage.TotalTokens()

	if len(kept) == 0 {
		return res, fmt.Errorf("ingest %s: %w: %w", sym, domain.ErrNoEmbeddings, lastErr)
	}

	appended, err := s.index.Append(ctx, sym.String(), embeddings, kept)
	if err != nil {
		return res, fmt.Errorf("ingest %s: %w", sym, err)
	}
	res.Append = appended

	if s.pusher != nil {
		report := s.pusher.Push(ctx, sym.String())
		res.Push = &report
		if !report.OK() {
			s.logger.Warn("Index appended but remote push failed",
				zap.String("ticker", sym.String()),
				zap.Error(report.Err()),
			)
		}
	}

	s.logger.Info("Ingested documents",
		zap.String("ticker", sym.String()),
		zap.Int("submitted", res.Submitted),
		zap.Int("embedded", res.Embedded()),
		zap.Int("total", appended.Total),
		zap.Int("tokens", res.Tokens),
	)
	return res, nil
}

func (s *Service) embedOne(ctx context.Context, doc string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	r, err := s.embed.Embed(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(r.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding: %w", domain.ErrEmbeddingUnavailable)
	}
	return r.Embedding, nil
}

func validateDocuments(documents []string) error {
	if len(documents) == 0 {
		return fmt.Errorf("documents are required: %w", domain.ErrInvalidInput)
	}
	for i, d := range documents {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("document %d is blank: %w", i, domain.ErrInvalidInput)
		}
	}
	return nil
}

func withPrefix(sym ticker.Symbol, doc string) string {
	prefix := sym.String() + ": "
	if strings.HasPrefix(doc, prefix) {
		return doc
	}
	return prefix + doc
}
