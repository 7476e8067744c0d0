package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/chunker"
	"github.com/docsage/docsage/internal/domain"
	"github.com/docsage/docsage/internal/similarity"
)

// Options bound the pipeline. Zero values fall back to the defaults the
// config layer applies.
type Options struct {
	DefaultTopK      int
	MaxTopK          int
	MaxDocumentChars int
}

// Service runs the retrieval pipeline over a single store and embedder.
type Service struct {
	store    store
	embedder embedder
	chunker  *chunker.Chunker
	opts     Options
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(s store, e embedder, c *chunker.Chunker, opts Options, logger *zap.Logger) *Service {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 5
	}
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = 20
	}
	if opts.MaxDocumentChars <= 0 {
		opts.MaxDocumentChars = 1_000_000
	}
	return &Service{
		store:    s,
		embedder: e,
		chunker:  c,
		opts:     opts,
		logger:   logger,
	}
}

// IngestRequest carries one document into the pipeline.
type IngestRequest struct {
	SessionID string
	Source    string
	Text      string
}

// IngestResult reports what ingestion stored.
type IngestResult struct {
	DocumentID string
	ChunkCount int
	Strategy   string
}

// Ingest chunks the text, embeds every chunk, and persists chunks plus
// metadata. Either the whole document lands in the store or none of it:
// on a partial write the already-stored pieces are cleaned up best-effort.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if req.SessionID == "" {
		return IngestResult{}, fmt.Errorf("session id required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Source) == "" {
		return IngestResult{}, fmt.Errorf("source required: %w", domain.ErrInvalidInput)
	}
	if len(req.Text) > s.opts.MaxDocumentChars {
		return IngestResult{}, fmt.Errorf("document of %d chars exceeds limit %d: %w",
			len(req.Text), s.opts.MaxDocumentChars, domain.ErrInvalidInput)
	}

	pieces, err := s.chunker.Split(req.Text)
	if err != nil {
		return IngestResult{}, err
	}

	documentID := uuid.NewString()
	strategy := domain.StrategyProvider
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, text := range pieces {
		res, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return IngestResult{}, fmt.Errorf("embed chunk %d of %d: %w", i, len(pieces), err)
		}
		if res.Strategy == domain.StrategySynthetic {
			strategy = domain.StrategySynthetic
		}
		chunks = append(chunks, domain.NewChunk(text, res.Embedding, domain.ChunkMeta{
			DocumentID: documentID,
			Index:      i,
			Source:     req.Source,
			SessionID:  req.SessionID,
		}))
	}

	if err := s.store.InsertChunks(ctx, chunks); err != nil {
		s.cleanup(ctx, documentID, req.SessionID)
		return IngestResult{}, err
	}

	meta := domain.DocumentMeta{
		DocumentID:  documentID,
		SessionID:   req.SessionID,
		Source:      req.Source,
		ProcessedAt: time.Now().UTC(),
		ChunkCount:  len(chunks),
		Strategy:    strategy,
	}
	if err := s.store.InsertMetadata(ctx, meta); err != nil {
		s.cleanup(ctx, documentID, req.SessionID)
		return IngestResult{}, err
	}

	s.logger.Info("document ingested",
		zap.String("document_id", documentID),
		zap.String("session_id", req.SessionID),
		zap.Int("chunks", len(chunks)),
		zap.String("strategy", strategy),
	)
	return IngestResult{DocumentID: documentID, ChunkCount: len(chunks), Strategy: strategy}, nil
}

// cleanup removes partially written state. Failures here are logged only:
// the original error is what the caller needs to see.
func (s *Service) cleanup(ctx context.Context, documentID, sessionID string) {
	if err := s.store.DeleteDocument(ctx, documentID, sessionID); err != nil {
		s.logger.Warn("cleanup after failed ingest",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
	}
}

// QueryRequest asks for the best-matching context of one stored document.
type QueryRequest struct {
	SessionID  string
	DocumentID string
	Query      string
	TopK       int
}

// ScoredChunk is one ranked chunk in a query result.
type ScoredChunk struct {
	Index int
	Text  string
	Score float64
}

// QueryResult is the assembled context plus the chunks that produced it.
type QueryResult struct {
	Context  string
	Chunks   []ScoredChunk
	Strategy string
}

// RetrieveContext embeds the query, ranks the document's chunks by cosine
// similarity, and joins the topK best into a context block. Chunks that
// score zero carry no signal and are excluded.
func (s *Service) RetrieveContext(ctx context.Context, req QueryRequest) (QueryResult, error) {
	if req.SessionID == "" {
		return QueryResult{}, fmt.Errorf("session id required: %w", domain.ErrInvalidInput)
	}
	if req.DocumentID == "" {
		return QueryResult{}, fmt.Errorf("document id required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Query) == "" {
		return QueryResult{}, fmt.Errorf("query required: %w", domain.ErrInvalidInput)
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.opts.DefaultTopK
	}
	if topK < 1 || topK > s.opts.MaxTopK {
		return QueryResult{}, fmt.Errorf("top_k %d out of range [1, %d]: %w",
			topK, s.opts.MaxTopK, domain.ErrInvalidInput)
	}

	meta, err := s.store.FindMetadata(ctx, req.DocumentID, req.SessionID)
	if err != nil {
		return QueryResult{}, err
	}

	chunks, err := s.store.FindChunks(ctx, req.DocumentID, req.SessionID)
	if err != nil {
		return QueryResult{}, err
	}
	if len(chunks) == 0 {
		// Metadata without chunks is a half-deleted document, not a ranking miss.
		return QueryResult{}, fmt.Errorf("document %s has no chunks: %w", req.DocumentID, domain.ErrDocumentNotFound)
	}

	queryRes, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("embed query: %w", err)
	}

	candidates := make([]similarity.Candidate, len(chunks))
	byID := make(map[string]domain.Chunk, len(chunks))
	for i := range chunks {
		candidates[i] = similarity.Candidate{ID: chunks[i].ID(), Vector: chunks[i].Embedding()}
		byID[chunks[i].ID()] = chunks[i]
	}

	ranked := similarity.Rank(queryRes.Embedding, candidates, topK)

	selected := make([]ScoredChunk, 0, len(ranked))
	texts := make([]string, 0, len(ranked))
	for _, c := range ranked {
		if c.Score <= 0 {
			continue
		}
		chunk := byID[c.ID]
		selected = append(selected, ScoredChunk{
			Index: chunk.Meta().Index,
			Text:  chunk.Text(),
			Score: c.Score,
		})
		texts = append(texts, chunk.Text())
	}
	if len(selected) == 0 {
		return QueryResult{}, fmt.Errorf("document %s: %w", req.DocumentID, domain.ErrNoRelevantContext)
	}

	joined := strings.Join(texts, "\n\n")
	if strings.TrimSpace(joined) == "" {
		return QueryResult{}, fmt.Errorf("document %s: %w", req.DocumentID, domain.ErrEmptyContext)
	}

	s.logger.Debug("context retrieved",
		zap.String("document_id", req.DocumentID),
		zap.String("session_id", req.SessionID),
		zap.Int("chunks", len(selected)),
		zap.Float64("top_score", selected[0].Score),
	)
	return QueryResult{Context: joined, Chunks: selected, Strategy: meta.Strategy}, nil
}

// GetDocument returns the metadata of one stored document.
func (s *Service) GetDocument(ctx context.Context, documentID, sessionID string) (domain.DocumentMeta, error) {
	if sessionID == "" || documentID == "" {
		return domain.DocumentMeta{}, fmt.Errorf("session and document id required: %w", domain.ErrInvalidInput)
	}
	return s.store.FindMetadata(ctx, documentID, sessionID)
}

// ListDocuments returns all documents of a session, newest first.
func (s *Service) ListDocuments(ctx context.Context, sessionID string) ([]domain.DocumentMeta, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id required: %w", domain.ErrInvalidInput)
	}
	return s.store.ListDocuments(ctx, sessionID)
}

// CleanupDocument removes one document and its chunks. Removing a document
// that does not exist is not an error.
func (s *Service) CleanupDocument(ctx context.Context, documentID, sessionID string) error {
	if sessionID == "" || documentID == "" {
		return fmt.Errorf("session and document id required: %w", domain.ErrInvalidInput)
	}
	return s.store.DeleteDocument(ctx, documentID, sessionID)
}

// CleanupSession removes every document of a session.
func (s *Service) CleanupSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id required: %w", domain.ErrInvalidInput)
	}
	return s.store.DeleteSession(ctx, sessionID)
}
