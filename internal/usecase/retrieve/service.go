// Package retrieve turns a natural-language question about a ticker into a
// context block built from that ticker's nearest documents.
package retrieve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	"github.com/kailas-cloud/tickerdex/internal/domain/search/result"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

// Separator joins retrieved documents, nearest first.
const Separator = "\n---\n"

// CouldNotEmbed is returned in place of context when the query cannot be embedded.
const CouldNotEmbed = "Could not generate embedding for the query."

const (
	noContextPrefix = "No context found for ticker: "
	noContextSuffix = ". Index may be empty or not yet scraped."
)

// NoContext is returned in place of context when the ticker has no matching documents.
func NoContext(sym ticker.Symbol) string {
	return noContextPrefix + sym.String() + noContextSuffix
}

// IsSentinel reports whether text is one of the absence messages rather than real context.
func IsSentinel(text string) bool {
	if text == CouldNotEmbed {
		return true
	}
	return strings.HasPrefix(text, noContextPrefix) && strings.HasSuffix(text, noContextSuffix)
}

// DefaultEmbedTimeout bounds the query embedding call.
const DefaultEmbedTimeout = 30 * time.Second

// Service retrieves ticker-scoped context.
type Service struct {
	index        Searcher
	embed        Embedder
	embedTimeout time.Duration
	logger       *zap.Logger
}

// New creates a retrieval service. embedTimeout <= 0 uses DefaultEmbedTimeout.
func New(index Searcher, embed Embedder, embedTimeout time.Duration, logger *zap.Logger) *Service {
	if embedTimeout <= 0 {
		embedTimeout = DefaultEmbedTimeout
	}
	return &Service{index: index, embed: embed, embedTimeout: embedTimeout, logger: logger}
}

// Retrieve returns the k nearest documents of the ticker joined by Separator.
// Embedding failure and an empty result are reported through the sentinel
// texts CouldNotEmbed and NoContext, with a nil error. Invalid input and index
// failures are returned as errors.
func (s *Service) Retrieve(ctx context.Context, symbol, query string, k int) (string, error) {
	sym, err := validate(symbol, query, k)
	if err != nil {
		return "", err
	}

	vec, err := s.embedQuery(ctx, sym, query)
	if err != nil {
		return CouldNotEmbed, nil
	}

	hits, err := s.index.Search(ctx, sym.String(), vec, k)
	if err != nil {
		return "", fmt.Errorf("retrieve %s: %w", sym, err)
	}
	if len(hits) == 0 {
		s.logger.Info("No context for ticker", zap.String("ticker", sym.String()))
		return NoContext(sym), nil
	}

	return strings.Join(result.Documents(hits), Separator), nil
}

// Search returns the k nearest hits with distances. Embedding failures surface
// as domain.ErrEmbeddingUnavailable.
func (s *Service) Search(ctx context.Context, symbol, query string, k int) ([]result.Hit, error) {
	sym, err := validate(symbol, query, k)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedQuery(ctx, sym, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	hits, err := s.index.Search(ctx, sym.String(), vec, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", sym, err)
	}
	return hits, nil
}

func (s *Service) embedQuery(ctx context.Context, sym ticker.Symbol, query string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	res, err := s.embed.Embed(ctx, query)
	if err == nil && len(res.Embedding) == 0 {
		err = fmt.Errorf("empty query embedding: %w", domain.ErrEmbeddingProviderError)
	}
	if err != nil {
		s.logger.Warn("Failed to embed query",
			zap.String("ticker", sym.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return res.Embedding, nil
}

func validate(symbol, query string, k int) (ticker.Symbol, error) {
	sym, err := ticker.Parse(symbol)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	if k < 1 {
		return "", fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}
	return sym, nil
}
