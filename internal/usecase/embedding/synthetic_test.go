package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/docsage/docsage/internal/domain"
)

func TestSyntheticEmbedDimensions(t *testing.T) {
	e := NewSyntheticEmbedder()

	res, err := e.Embed(context.Background(), "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != SyntheticDimensions {
		t.Fatalf("got %d dimensions, want %d", len(res.Embedding), SyntheticDimensions)
	}
	if res.Strategy != domain.StrategySynthetic {
		t.Errorf("strategy = %q, want %q", res.Strategy, domain.StrategySynthetic)
	}
}

func TestSyntheticEmbedDeterministic(t *testing.T) {
	e := NewSyntheticEmbedder()
	text := "Alpha beta alpha GAMMA beta alpha"

	a, err := e.Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatalf("dimension %d differs: %v vs %v", i, a.Embedding[i], b.Embedding[i])
		}
	}
}

func TestSyntheticEmbedWordFrequencies(t *testing.T) {
	e := NewSyntheticEmbedder()

	// "alpha" appears 3/6, "beta" 2/6, "gamma" 1/6; case folds together.
	res, err := e.Embed(context.Background(), "Alpha beta alpha GAMMA beta alpha")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	want := []float64{3.0 / 6, 2.0 / 6, 1.0 / 6}
	for i, w := range want {
		if math.Abs(float64(res.Embedding[i])-w) > 1e-6 {
			t.Errorf("dimension %d = %v, want %v", i, res.Embedding[i], w)
		}
	}
	for i := len(want); i < SyntheticDimensions; i++ {
		if res.Embedding[i] != 0 {
			t.Fatalf("dimension %d = %v, want 0", i, res.Embedding[i])
		}
	}
}

func TestSyntheticEmbedEmptyText(t *testing.T) {
	e := NewSyntheticEmbedder()

	res, err := e.Embed(context.Background(), "   \n\t ")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != SyntheticDimensions {
		t.Fatalf("got %d dimensions, want %d", len(res.Embedding), SyntheticDimensions)
	}
	for i, v := range res.Embedding {
		if v != 0 {
			t.Fatalf("dimension %d = %v, want 0 for empty text", i, v)
		}
	}
}

func TestSyntheticEmbedVocabularyOverflow(t *testing.T) {
	e := NewSyntheticEmbedder()

	// More distinct words than dimensions: extras are ignored, not crashed on.
	var sb []byte
	for i := 0; i < SyntheticDimensions+50; i++ {
		sb = append(sb, []byte("w"+string(rune('a'+i%26))+string(rune('a'+(i/26)%26))+string(rune('a'+(i/676)%26))+" ")...)
	}
	res, err := e.Embed(context.Background(), string(sb))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != SyntheticDimensions {
		t.Fatalf("got %d dimensions, want %d", len(res.Embedding), SyntheticDimensions)
	}
}

func TestSyntheticHealthCheck(t *testing.T) {
	if err := NewSyntheticEmbedder().HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
