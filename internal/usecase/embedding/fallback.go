package embedding

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/domain"
)

// FallbackEmbedder wraps a provider embedder and absorbs every provider
// failure by substituting a synthetic embedding. Callers of Embed never see
// a provider error: ingestion and retrieval stay available while the
// provider is down, at the cost of degraded vector quality.
type FallbackEmbedder struct {
	provider  domain.Embedder
	synthetic *SyntheticEmbedder
	fallbacks *prometheus.CounterVec
	logger    *zap.Logger
}

// NewFallbackEmbedder creates the fallback decorator around provider.
func NewFallbackEmbedder(provider domain.Embedder, fallbacks *prometheus.CounterVec, logger *zap.Logger) *FallbackEmbedder {
	return &FallbackEmbedder{
		provider:  provider,
		synthetic: NewSyntheticEmbedder(),
		fallbacks: fallbacks,
		logger:    logger,
	}
}

// Embed tries the provider first. On any provider error it logs the reason,
// counts the fallback, and returns a synthetic vector instead.
func (e *FallbackEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.provider.Embed(ctx, text)
	if err == nil {
		return res, nil
	}

	reason := fallbackReason(err)
	e.logger.Warn("provider embedding failed, falling back to synthetic",
		zap.String("reason", reason),
		zap.Error(err),
	)
	if e.fallbacks != nil {
		e.fallbacks.WithLabelValues(reason).Inc()
	}

	return e.synthetic.Embed(ctx, text)
}

// HealthCheck reports the provider's health. The fallback itself is always
// available, but health should surface the degraded state.
func (e *FallbackEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.provider.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return "auth"
	case errors.Is(err, domain.ErrModelNotLoaded):
		return "model_not_loaded"
	case errors.Is(err, domain.ErrModelNotFound):
		return "model_not_found"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(err, domain.ErrInvalidResponse):
		return "invalid_response"
	default:
		return "network"
	}
}
