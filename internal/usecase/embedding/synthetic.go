// Package embedding provides the embedding strategies: the deterministic
// synthetic embedder and the fallback decorator that keeps ingestion alive
// when the provider is down.
package embedding

import (
	"context"
	"strings"

	"github.com/docsage/docsage/internal/domain"
)

// SyntheticDimensions is the fixed width of synthetic embeddings.
const SyntheticDimensions = 384

// SyntheticEmbedder produces deterministic word-frequency vectors without
// any external service. It is the strategy of last resort: vectors from it
// carry no semantic meaning across documents, but they are stable for equal
// inputs, which keeps ranking reproducible.
type SyntheticEmbedder struct{}

// NewSyntheticEmbedder creates a synthetic embedder.
func NewSyntheticEmbedder() *SyntheticEmbedder {
	return &SyntheticEmbedder{}
}

// Embed maps the text onto a fixed-width vector of relative word
// frequencies. The first SyntheticDimensions distinct words, in order of
// first appearance, each claim one dimension; remaining dimensions stay
// zero. Equal input always yields an equal vector.
func (e *SyntheticEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, SyntheticDimensions)

	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return domain.EmbeddingResult{Embedding: vec, Strategy: domain.StrategySynthetic}, nil
	}

	slots := make(map[string]int, SyntheticDimensions)
	counts := make([]int, 0, SyntheticDimensions)
	for _, w := range words {
		idx, ok := slots[w]
		if !ok {
			if len(counts) == SyntheticDimensions {
				continue
			}
			idx = len(counts)
			slots[w] = idx
			counts = append(counts, 0)
		}
		counts[idx]++
	}

	total := float64(len(words))
	for i, n := range counts {
		vec[i] = float32(float64(n) / total)
	}
	return domain.EmbeddingResult{Embedding: vec, Strategy: domain.StrategySynthetic}, nil
}

// HealthCheck always succeeds: the synthetic strategy has no dependencies.
func (e *SyntheticEmbedder) HealthCheck(context.Context) error {
	return nil
}
