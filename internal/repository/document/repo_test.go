package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docsage/docsage/internal/db"
	"github.com/docsage/docsage/internal/domain"
)

func TestInsertChunks_KeysScopedBySession(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotKeys []string
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		for _, it := range items {
			gotKeys = append(gotKeys, it.Key)
		}
		return nil
	}

	chunks := []domain.Chunk{
		testChunk(t, "doc-1", "sess-a", 0),
		testChunk(t, "doc-1", "sess-a", 1),
	}
	if err := repo.InsertChunks(context.Background(), chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"docsage:chunk:sess-a:doc-1:0", "docsage:chunk:sess-a:doc-1:1"}
	if len(gotKeys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), gotKeys)
	}
	for i := range want {
		if gotKeys[i] != want[i] {
			t.Errorf("key %d: got %q, want %q", i, gotKeys[i], want[i])
		}
	}
}

func TestInsertChunks_StorageError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetMultiFn = func(context.Context, []db.HashSetItem) error {
		return errors.New("connection refused")
	}

	err := repo.InsertChunks(context.Background(), []domain.Chunk{testChunk(t, "d", "s", 0)})
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestFindChunks_OrderedByIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	// SCAN returns keys out of order.
	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "docsage:chunk:sess-a:doc-1:*" {
			t.Errorf("unexpected scan pattern %q", pattern)
		}
		return []string{
			"docsage:chunk:sess-a:doc-1:2",
			"docsage:chunk:sess-a:doc-1:0",
			"docsage:chunk:sess-a:doc-1:1",
		}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		out := make([]map[string]string, len(keys))
		for i, k := range keys {
			out[i] = map[string]string{
				"__text":   "text for " + k,
				"__vector": vectorToBytes([]float32{1, 2}),
				"source":   "notes.pdf",
			}
		}
		return out, nil
	}

	chunks, err := repo.FindChunks(context.Background(), "doc-1", "sess-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Meta().Index != i {
			t.Errorf("chunk %d has index %d", i, c.Meta().Index)
		}
		if c.ID() != "doc-1-"+string(rune('0'+i)) {
			t.Errorf("chunk %d has id %q", i, c.ID())
		}
	}
}

func TestFindChunks_Absent(t *testing.T) {
	repo, _ := newTestRepo(t)

	chunks, err := repo.FindChunks(context.Background(), "nope", "sess-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestFindMetadata_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.FindMetadata(context.Background(), "missing", "sess-a")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t)

	stored := map[string]map[string]string{}
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		stored[key] = fields
		return nil
	}
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		return stored[key], nil
	}

	processedAt := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	meta := domain.DocumentMeta{
		DocumentID:  "doc-1",
		SessionID:   "sess-a",
		Source:      "report.docx",
		ProcessedAt: processedAt,
		ChunkCount:  4,
		Strategy:    domain.StrategySynthetic,
	}
	if err := repo.InsertMetadata(context.Background(), meta); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.FindMetadata(context.Background(), "doc-1", "sess-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != meta.Source || got.ChunkCount != meta.ChunkCount || got.Strategy != meta.Strategy {
		t.Errorf("metadata mismatch: got %+v", got)
	}
	if !got.ProcessedAt.Equal(processedAt) {
		t.Errorf("processed_at mismatch: got %v, want %v", got.ProcessedAt, processedAt)
	}
}

func TestDeleteDocument_Idempotent(t *testing.T) {
	repo, ms := newTestRepo(t)

	calls := 0
	ms.delMultiFn = func(_ context.Context, keys []string) error {
		calls++
		return nil
	}

	for i := 0; i < 2; i++ {
		if err := repo.DeleteDocument(context.Background(), "ghost", "sess-a"); err != nil {
			t.Fatalf("delete %d: unexpected error: %v", i, err)
		}
	}
	if calls != 2 {
		t.Errorf("expected 2 delete calls, got %d", calls)
	}
}

func TestDeleteSession_RemovesChunksAndMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		switch pattern {
		case "docsage:chunk:sess-a:*":
			return []string{"docsage:chunk:sess-a:doc-1:0"}, nil
		case "docsage:doc:sess-a:*":
			return []string{"docsage:doc:sess-a:doc-1"}, nil
		}
		t.Errorf("unexpected scan pattern %q", pattern)
		return nil, nil
	}

	var deleted []string
	ms.delMultiFn = func(_ context.Context, keys []string) error {
		deleted = keys
		return nil
	}

	if err := repo.DeleteSession(context.Background(), "sess-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("expected 2 deleted keys, got %v", deleted)
	}
}

func TestListDocuments_NewestFirst(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		return []string{"docsage:doc:sess-a:older", "docsage:doc:sess-a:newer"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		return []map[string]string{
			buildMetaFields(domain.DocumentMeta{
				Source: "a.pdf", ProcessedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ChunkCount: 1,
			}),
			buildMetaFields(domain.DocumentMeta{
				Source: "b.pdf", ProcessedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), ChunkCount: 2,
			}),
		}, nil
	}

	metas, err := repo.ListDocuments(context.Background(), "sess-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(metas))
	}
	if metas[0].DocumentID != "newer" || metas[1].DocumentID != "older" {
		t.Errorf("expected newest first, got %q then %q", metas[0].DocumentID, metas[1].DocumentID)
	}
}

func TestScanPatterns_EscapeGlobMetacharacters(t *testing.T) {
	repo, ms := newTestRepo(t)

	// A session id of "*" must match only the literal key, never every session.
	var patterns []string
	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		patterns = append(patterns, pattern)
		return nil, nil
	}

	if _, err := repo.ListDocuments(context.Background(), "*"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.FindChunks(context.Background(), "doc-[1]", "se?s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.DeleteSession(context.Background(), `se\ss`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		`docsage:doc:\*:*`,
		`docsage:chunk:se\?s:doc-\[1\]:*`,
		`docsage:chunk:se\\ss:*`,
		`docsage:doc:se\\ss:*`,
	}
	if len(patterns) != len(want) {
		t.Fatalf("expected %d scans, got %v", len(want), patterns)
	}
	for i, p := range patterns {
		if p != want[i] {
			t.Errorf("scan %d pattern = %q, want %q", i, p, want[i])
		}
	}
}

func TestVectorBytes_RoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	got := bytesToVector(vectorToBytes(in))
	if len(got) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("element %d: got %v, want %v", i, got[i], in[i])
		}
	}
}

func TestBytesToVector_Corrupted(t *testing.T) {
	if v := bytesToVector("abc"); v != nil {
		t.Errorf("expected nil for truncated payload, got %v", v)
	}
}
