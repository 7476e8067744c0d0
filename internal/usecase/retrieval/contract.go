// Package retrieval orchestrates the document pipeline: chunking, embedding,
// persistence, and similarity-ranked context assembly.
package retrieval

import (
	"context"

	"github.com/docsage/docsage/internal/domain"
)

// store is the persistence surface the service consumes.
type store interface {
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error
	InsertMetadata(ctx context.Context, meta domain.DocumentMeta) error
	FindChunks(ctx context.Context, documentID, sessionID string) ([]domain.Chunk, error)
	FindMetadata(ctx context.Context, documentID, sessionID string) (domain.DocumentMeta, error)
	DeleteDocument(ctx context.Context, documentID, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error
	ListDocuments(ctx context.Context, sessionID string) ([]domain.DocumentMeta, error)
}

// embedder is the vectorization surface the service consumes.
type embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
