package domain

import (
	"fmt"
	"time"
)

// Chunk is one bounded segment of a document together with its embedding.
// Chunks are created in a batch during ingestion and immutable afterwards.
type Chunk struct {
	id        string
	text      string
	embedding []float32
	meta      ChunkMeta
}

// ChunkMeta locates a chunk within its document and session.
type ChunkMeta struct {
	DocumentID string
	Index      int
	Source     string
	SessionID  string
}

// NewChunk creates a chunk. The id is derived as {documentID}-{index}.
func NewChunk(text string, embedding []float32, meta ChunkMeta) Chunk {
	return Chunk{
		id:        fmt.Sprintf("%s-%d", meta.DocumentID, meta.Index),
		text:      text,
		embedding: embedding,
		meta:      meta,
	}
}

// ReconstructChunk rebuilds a chunk from storage without validation.
func ReconstructChunk(text string, embedding []float32, meta ChunkMeta) Chunk {
	return NewChunk(text, embedding, meta)
}

// ID returns the chunk identifier, unique within a document.
func (c *Chunk) ID() string { return c.id }

// Text returns the chunk text.
func (c *Chunk) Text() string { return c.text }

// Embedding returns the chunk vector.
func (c *Chunk) Embedding() []float32 { return c.embedding }

// Meta returns the chunk location metadata.
func (c *Chunk) Meta() ChunkMeta { return c.meta }

// DocumentMeta is the per-document record kept alongside its chunks.
// Exactly one exists per (DocumentID, SessionID) pair while the document is live.
type DocumentMeta struct {
	DocumentID  string
	SessionID   string
	Source      string
	ProcessedAt time.Time
	ChunkCount  int
	Strategy    string // embedding strategy the chunks were produced with
}
