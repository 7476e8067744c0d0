// Package chunker splits cleaned document text into bounded, sentence-respecting segments.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docsage/docsage/internal/domain"
)

// DefaultChunkSize is the soft cap on chunk length in characters.
const DefaultChunkSize = 1000

var (
	spaceRuns     = regexp.MustCompile(`[ \t]+`)
	blankLineRuns = regexp.MustCompile(`\n\s*\n+`)
	sentenceEnds  = regexp.MustCompile(`[.!?]+`)
)

// Chunker splits text into chunks of at most chunkSize characters. The cap is
// a soft target: a single sentence longer than chunkSize is emitted whole
// rather than truncated. Stateless, safe for concurrent use.
type Chunker struct {
	chunkSize int
}

// New creates a chunker. Non-positive sizes fall back to DefaultChunkSize.
func New(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{chunkSize: chunkSize}
}

// ChunkSize returns the configured soft cap.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Split preprocesses text and packs its sentences greedily into chunks.
// Returns domain.ErrEmptyText if the text reduces to nothing, and
// domain.ErrChunkingFailed if no usable sentence remains.
func (c *Chunker) Split(text string) ([]string, error) {
	cleaned := Preprocess(text)
	if cleaned == "" {
		return nil, fmt.Errorf("split: %w", domain.ErrEmptyText)
	}

	var chunks []string
	var current strings.Builder

	for _, sentence := range sentenceEnds.Split(cleaned, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if current.Len() == 0 {
			current.WriteString(sentence)
			continue
		}

		// +2 accounts for the ". " joiner.
		if current.Len()+2+len(sentence) > c.chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(sentence)
			continue
		}

		current.WriteString(". ")
		current.WriteString(sentence)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("split: %w", domain.ErrChunkingFailed)
	}
	return chunks, nil
}

// Preprocess normalizes whitespace: runs of spaces and tabs collapse to a
// single space, runs of blank lines collapse to one, ends are trimmed.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
