package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	"github.com/kailas-cloud/tickerdex/internal/metrics"
)

// Limiter gates outgoing embedding requests.
type Limiter interface {
	Wait(ctx context.Context) error
	Backoff(d time.Duration)
}

// InstrumentedEmbedder wraps Embedder with rate limiting, usage accounting and logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	limiter  Limiter
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. limiter may be nil.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	limiter Limiter, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		limiter:  limiter,
		logger:   logger,
	}
}

// Embed waits for the limiter, delegates to the inner embedder and records usage
// into the context's EmbeddingUsage, if any.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, "rate_limit_wait").Inc()
			return domain.EmbeddingResult{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err != nil {
		if p.limiter != nil && errors.Is(err, domain.ErrEmbeddingRateLimited) {
			p.limiter.Backoff(0)
		}
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health: %w", err)
		}
	}
	return nil
}
