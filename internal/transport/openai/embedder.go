// Package openai talks to OpenAI-compatible embedding and chat endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/domain"
	"github.com/docsage/docsage/internal/metrics"
)

// Embedder is the provider embedding strategy over an OpenAI-compatible API.
type Embedder struct {
	client        *openai.Client
	model         openai.EmbeddingModel
	dimensions    int
	timeout       time.Duration
	maxInputChars int
	logger        *zap.Logger
}

// EmbedderConfig holds the embedding provider settings.
type EmbedderConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Dimensions    int
	Timeout       time.Duration
	MaxInputChars int
	Logger        *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *EmbedderConfig) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxInput := cfg.MaxInputChars
	if maxInput <= 0 {
		maxInput = 8000
	}

	return &Embedder{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         openai.EmbeddingModel(cfg.Model),
		dimensions:    cfg.Dimensions,
		timeout:       timeout,
		maxInputChars: maxInput,
		logger:        cfg.Logger,
	}
}

// Embed implements domain.Embedder. Oversized input is truncated, not
// rejected; provider failures come back as typed sentinels wrapping
// domain.ErrEmbeddingProvider for the fallback layer to absorb.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if len(text) > e.maxInputChars {
		e.logger.Warn("Truncating embedding input",
			zap.Int("length", len(text)),
			zap.Int("max", e.maxInputChars),
		)
		text = text[:e.maxInputChars]
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("openai", string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues("openai", string(e.model), "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("openai", string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues("openai", string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf(
			"empty embedding response: %w: %w", domain.ErrInvalidResponse, domain.ErrEmbeddingProvider)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("openai", string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("openai", string(e.model)).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.
			WithLabelValues("openai", string(e.model), "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.
			WithLabelValues("openai", string(e.model), "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		Strategy:     domain.StrategyProvider,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError maps provider failures onto the typed sentinels. Everything
// wraps domain.ErrEmbeddingProvider so one errors.Is covers the whole family.
func parseAPIError(err error) error {
	status, detail := statusAndDetail(err)

	var kind error
	switch {
	case status == 401:
		kind = domain.ErrAuthenticationFailed
	case status == 404 && strings.Contains(detail, "No models loaded"):
		kind = domain.ErrModelNotLoaded
	case status == 404:
		kind = domain.ErrModelNotFound
	case status == 429:
		kind = domain.ErrRateLimited
	case status >= 500:
		kind = domain.ErrServiceUnavailable
	default:
		// Network errors, timeouts, and anything without an HTTP status.
		return fmt.Errorf("embedding request failed: %w: %w", err, domain.ErrEmbeddingProvider)
	}

	if detail != "" {
		return fmt.Errorf("embedding API error %d: %s: %w: %w",
			status, detail, kind, domain.ErrEmbeddingProvider)
	}
	return fmt.Errorf("embedding API error %d: %w: %w", status, kind, domain.ErrEmbeddingProvider)
}

// statusAndDetail extracts the HTTP status and message from go-openai errors.
func statusAndDetail(err error) (int, string) {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, string(reqErr.Body)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message
	}

	return 0, ""
}
