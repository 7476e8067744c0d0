// Package similarity scores stored chunk vectors against a query vector.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/docsage/docsage/internal/domain"
)

// Candidate is one scored entry in a ranking.
type Candidate struct {
	ID     string
	Vector []float32
	Score  float64
}

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// Vectors of unequal length produce domain.ErrDimensionMismatch; a zero
// vector on either side scores 0 rather than dividing by zero.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine: len %d vs %d: %w", len(a), len(b), domain.ErrDimensionMismatch)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Rank scores candidates against the query and returns the topK best, sorted
// descending by score with ties keeping insertion order. A candidate whose
// score cannot be computed (corrupted stored vector, dimension mismatch)
// scores 0 instead of aborting the ranking.
func Rank(query []float32, candidates []Candidate, topK int) []Candidate {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}

	ranked := make([]Candidate, len(candidates))
	for i, c := range candidates {
		score, err := Cosine(query, c.Vector)
		if err != nil || math.IsNaN(score) {
			score = 0
		}
		c.Score = score
		ranked[i] = c
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topK > len(ranked) {
		topK = len(ranked)
	}
	return ranked[:topK]
}
