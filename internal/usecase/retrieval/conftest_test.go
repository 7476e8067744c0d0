package retrieval

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/chunker"
	"github.com/docsage/docsage/internal/domain"
)

// memStore is an in-memory store implementing the consumer interface.
// Function fields override individual operations for failure injection.
type memStore struct {
	mu    sync.Mutex
	chks  map[string][]domain.Chunk      // sessionID/documentID
	metas map[string]domain.DocumentMeta // sessionID/documentID

	insertChunksFn   func(ctx context.Context, chunks []domain.Chunk) error
	insertMetadataFn func(ctx context.Context, meta domain.DocumentMeta) error
	findChunksFn     func(ctx context.Context, documentID, sessionID string) ([]domain.Chunk, error)
	findMetadataFn   func(ctx context.Context, documentID, sessionID string) (domain.DocumentMeta, error)
	deleteDocumentFn func(ctx context.Context, documentID, sessionID string) error
}

func newMemStore() *memStore {
	return &memStore{
		chks:  make(map[string][]domain.Chunk),
		metas: make(map[string]domain.DocumentMeta),
	}
}

func storeKey(sessionID, documentID string) string {
	return sessionID + "/" + documentID
}

func (m *memStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if m.insertChunksFn != nil {
		return m.insertChunksFn(ctx, chunks)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		k := storeKey(c.Meta().SessionID, c.Meta().DocumentID)
		m.chks[k] = append(m.chks[k], c)
	}
	return nil
}

func (m *memStore) InsertMetadata(ctx context.Context, meta domain.DocumentMeta) error {
	if m.insertMetadataFn != nil {
		return m.insertMetadataFn(ctx, meta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas[storeKey(meta.SessionID, meta.DocumentID)] = meta
	return nil
}

func (m *memStore) FindChunks(ctx context.Context, documentID, sessionID string) ([]domain.Chunk, error) {
	if m.findChunksFn != nil {
		return m.findChunksFn(ctx, documentID, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chks[storeKey(sessionID, documentID)], nil
}

func (m *memStore) FindMetadata(ctx context.Context, documentID, sessionID string) (domain.DocumentMeta, error) {
	if m.findMetadataFn != nil {
		return m.findMetadataFn(ctx, documentID, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.metas[storeKey(sessionID, documentID)]
	if !ok {
		return domain.DocumentMeta{}, domain.ErrDocumentNotFound
	}
	return meta, nil
}

func (m *memStore) DeleteDocument(ctx context.Context, documentID, sessionID string) error {
	if m.deleteDocumentFn != nil {
		return m.deleteDocumentFn(ctx, documentID, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := storeKey(sessionID, documentID)
	delete(m.chks, k)
	delete(m.metas, k)
	return nil
}

func (m *memStore) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := sessionID + "/"
	for k := range m.chks {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.chks, k)
		}
	}
	for k := range m.metas {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.metas, k)
		}
	}
	return nil
}

func (m *memStore) ListDocuments(ctx context.Context, sessionID string) ([]domain.DocumentMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := sessionID + "/"
	var out []domain.DocumentMeta
	for k, meta := range m.metas {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, meta)
		}
	}
	return out, nil
}

// mockEmbedder delegates to a function field.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}, Strategy: domain.StrategyProvider}, nil
}

func newTestService(t *testing.T, s store, e embedder) *Service {
	t.Helper()
	return New(s, e, chunker.New(100), Options{}, zap.NewNop())
}
