package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	"github.com/kailas-cloud/tickerdex/internal/metrics"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

// DefaultAzureAPIVersion is the Azure OpenAI API version used when none is configured.
const DefaultAzureAPIVersion = "2023-05-15"

// Embedder is an embedding provider over the OpenAI-compatible or Azure OpenAI API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	Provider   string
	APIKey     string
	BaseURL    string
	APIVersion string
	// Deployment is the Azure deployment name; defaults to Model.
	Deployment string
	Model      string
	Dimensions int
	User       string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewEmbedder creates an embedding provider for cfg.Provider.
func NewEmbedder(cfg *Config) *Embedder {
	var clientCfg openai.ClientConfig
	if cfg.Provider == ProviderAzure {
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		clientCfg.APIVersion = DefaultAzureAPIVersion
		if cfg.APIVersion != "" {
			clientCfg.APIVersion = cfg.APIVersion
		}
		deployment := cfg.Deployment
		if deployment == "" {
			deployment = cfg.Model
		}
		clientCfg.AzureModelMapperFunc = func(string) string { return deployment }
	} else {
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   provider,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	model := string(e.model)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Every error wraps domain.ErrEmbeddingProviderError; 429 also wraps ErrEmbeddingRateLimited.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return wrapStatus(reqErr.HTTPStatusCode, detail)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return wrapStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrEmbeddingProviderError)
}

func wrapStatus(status int, detail string) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("embedding API error %d: %s: %w: %w",
			status, detail, domain.ErrEmbeddingProviderError, domain.ErrEmbeddingRateLimited)
	}
	return fmt.Errorf("embedding API error %d: %s: %w", status, detail, domain.ErrEmbeddingProviderError)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
