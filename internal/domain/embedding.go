package domain

import "context"

// Embedding strategies. All chunks of one document and every query vector
// compared against them must come from the same strategy; the strategy is
// fixed at startup by configuration to guarantee dimensional consistency.
const (
	StrategyProvider  = "provider"
	StrategySynthetic = "synthetic"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the vector, token usage, and the strategy that
// actually produced it through the decorator chain. The Strategy tag lets
// callers and tests observe when the synthetic fallback kicked in even though
// the public contract always yields a vector.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
	Strategy     string
}
