package chihttp

import (
	"context"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/domain"
	"github.com/docsage/docsage/internal/usecase/answer"
	"github.com/docsage/docsage/internal/usecase/health"
	"github.com/docsage/docsage/internal/usecase/retrieval"
)

type mockDocuments struct {
	ingestFn          func(ctx context.Context, req retrieval.IngestRequest) (retrieval.IngestResult, error)
	getDocumentFn     func(ctx context.Context, documentID, sessionID string) (domain.DocumentMeta, error)
	listDocumentsFn   func(ctx context.Context, sessionID string) ([]domain.DocumentMeta, error)
	cleanupDocumentFn func(ctx context.Context, documentID, sessionID string) error
	cleanupSessionFn  func(ctx context.Context, sessionID string) error
}

func (m *mockDocuments) Ingest(ctx context.Context, req retrieval.IngestRequest) (retrieval.IngestResult, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, req)
	}
	return retrieval.IngestResult{DocumentID: "doc-1", ChunkCount: 1, Strategy: domain.StrategyProvider}, nil
}

func (m *mockDocuments) GetDocument(ctx context.Context, documentID, sessionID string) (domain.DocumentMeta, error) {
	if m.getDocumentFn != nil {
		return m.getDocumentFn(ctx, documentID, sessionID)
	}
	return domain.DocumentMeta{DocumentID: documentID, SessionID: sessionID}, nil
}

func (m *mockDocuments) ListDocuments(ctx context.Context, sessionID string) ([]domain.DocumentMeta, error) {
	if m.listDocumentsFn != nil {
		return m.listDocumentsFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockDocuments) CleanupDocument(ctx context.Context, documentID, sessionID string) error {
	if m.cleanupDocumentFn != nil {
		return m.cleanupDocumentFn(ctx, documentID, sessionID)
	}
	return nil
}

func (m *mockDocuments) CleanupSession(ctx context.Context, sessionID string) error {
	if m.cleanupSessionFn != nil {
		return m.cleanupSessionFn(ctx, sessionID)
	}
	return nil
}

type mockAnswers struct {
	answerFn func(ctx context.Context, req retrieval.QueryRequest) (answer.Result, error)
}

func (m *mockAnswers) Answer(ctx context.Context, req retrieval.QueryRequest) (answer.Result, error) {
	if m.answerFn != nil {
		return m.answerFn(ctx, req)
	}
	return answer.Result{Context: "ctx", Strategy: domain.StrategyProvider}, nil
}

type mockHealth struct {
	checkFn func(ctx context.Context) health.Report
}

func (m *mockHealth) Check(ctx context.Context) health.Report {
	if m.checkFn != nil {
		return m.checkFn(ctx)
	}
	return health.Report{Status: health.StatusOK, Checks: map[string]string{}}
}

// newTestServer spins up the full router over mocks with auth disabled.
func newTestServer(t *testing.T, docs *mockDocuments, ans *mockAnswers, h *mockHealth) *httptest.Server {
	t.Helper()
	if docs == nil {
		docs = &mockDocuments{}
	}
	if ans == nil {
		ans = &mockAnswers{}
	}
	if h == nil {
		h = &mockHealth{}
	}
	srv := NewServer(docs, ans, h, zap.NewNop())
	ts := httptest.NewServer(srv.Router(nil))
	t.Cleanup(ts.Close)
	return ts
}
