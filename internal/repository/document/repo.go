// Package document persists chunks and per-document metadata, partitioned by
// (documentID, sessionID).
package document

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docsage/docsage/internal/db"
	"github.com/docsage/docsage/internal/domain"
)

// store is the consumer interface for document persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the retrieval service's Store contract over a Redis hash store.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a document repository. keyPrefix namespaces all keys.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// InsertChunks appends a batch of chunks in one pipelined round-trip.
// The caller guarantees id uniqueness; no dedup check is performed.
func (r *Repo) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	for i, c := range chunks {
		meta := c.Meta()
		items[i] = db.HashSetItem{
			Key:    r.chunkKey(meta.SessionID, meta.DocumentID, meta.Index),
			Fields: buildChunkFields(&c),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("insert chunks: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// InsertMetadata writes the single metadata record for a document.
func (r *Repo) InsertMetadata(ctx context.Context, meta domain.DocumentMeta) error {
	key := r.metaKey(meta.SessionID, meta.DocumentID)
	if err := r.store.HSet(ctx, key, buildMetaFields(meta)); err != nil {
		return fmt.Errorf("insert metadata: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// FindChunks returns all chunks for (documentID, sessionID) ordered by index.
func (r *Repo) FindChunks(ctx context.Context, documentID, sessionID string) ([]domain.Chunk, error) {
	pattern := r.chunkScanPattern(sessionID, documentID)
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w: %w", domain.ErrStorageUnavailable, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	// SCAN order is unspecified; restore chunk order from the key's index suffix.
	sort.Slice(keys, func(i, j int) bool {
		return chunkIndexFromKey(keys[i]) < chunkIndexFromKey(keys[j])
	})

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w: %w", domain.ErrStorageUnavailable, err)
	}

	chunks := make([]domain.Chunk, 0, len(hashes))
	for i, fields := range hashes {
		if len(fields) == 0 {
			continue // key expired between SCAN and HGETALL
		}
		chunks = append(chunks, parseChunkFields(documentID, sessionID, chunkIndexFromKey(keys[i]), fields))
	}
	return chunks, nil
}

// FindMetadata returns the metadata record, or domain.ErrDocumentNotFound.
func (r *Repo) FindMetadata(ctx context.Context, documentID, sessionID string) (domain.DocumentMeta, error) {
	fields, err := r.store.HGetAll(ctx, r.metaKey(sessionID, documentID))
	if err != nil {
		return domain.DocumentMeta{}, fmt.Errorf("get metadata: %w: %w", domain.ErrStorageUnavailable, err)
	}
	if len(fields) == 0 {
		return domain.DocumentMeta{}, domain.ErrDocumentNotFound
	}
	return parseMetaFields(documentID, sessionID, fields), nil
}

// DeleteDocument removes all chunks and the metadata record for the pair.
// Deleting an absent document is a no-op.
func (r *Repo) DeleteDocument(ctx context.Context, documentID, sessionID string) error {
	keys, err := r.store.Scan(ctx, r.chunkScanPattern(sessionID, documentID))
	if err != nil {
		return fmt.Errorf("scan chunks for delete: %w: %w", domain.ErrStorageUnavailable, err)
	}
	keys = append(keys, r.metaKey(sessionID, documentID))

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete document: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// DeleteSession removes every chunk and metadata record under the session.
func (r *Repo) DeleteSession(ctx context.Context, sessionID string) error {
	var keys []string
	for _, pattern := range []string{
		r.chunkSessionScanPattern(sessionID),
		r.docScanPattern(sessionID),
	} {
		found, err := r.store.Scan(ctx, pattern)
		if err != nil {
			return fmt.Errorf("scan session keys: %w: %w", domain.ErrStorageUnavailable, err)
		}
		keys = append(keys, found...)
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete session: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// ListDocuments returns the session's metadata records, newest first.
func (r *Repo) ListDocuments(ctx context.Context, sessionID string) ([]domain.DocumentMeta, error) {
	keys, err := r.store.Scan(ctx, r.docScanPattern(sessionID))
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w: %w", domain.ErrStorageUnavailable, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w: %w", domain.ErrStorageUnavailable, err)
	}

	metas := make([]domain.DocumentMeta, 0, len(hashes))
	for i, fields := range hashes {
		if len(fields) == 0 {
			continue
		}
		docID := keys[i][strings.LastIndex(keys[i], ":")+1:]
		metas = append(metas, parseMetaFields(docID, sessionID, fields))
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].ProcessedAt.After(metas[j].ProcessedAt)
	})
	return metas, nil
}

func (r *Repo) metaKey(sessionID, documentID string) string {
	return fmt.Sprintf("%sdoc:%s:%s", r.keyPrefix, sessionID, documentID)
}

func (r *Repo) chunkKey(sessionID, documentID string, index int) string {
	return fmt.Sprintf("%schunk:%s:%s:%d", r.keyPrefix, sessionID, documentID, index)
}

func (r *Repo) chunkScanPattern(sessionID, documentID string) string {
	return fmt.Sprintf("%schunk:%s:%s:*", r.keyPrefix, escapeGlob(sessionID), escapeGlob(documentID))
}

func (r *Repo) docScanPattern(sessionID string) string {
	return fmt.Sprintf("%sdoc:%s:*", r.keyPrefix, escapeGlob(sessionID))
}

func (r *Repo) chunkSessionScanPattern(sessionID string) string {
	return fmt.Sprintf("%schunk:%s:*", r.keyPrefix, escapeGlob(sessionID))
}

// globEscaper neutralizes SCAN MATCH metacharacters in client-supplied ids.
// Without it a session id of "*" would match every session's keys.
var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"?", `\?`,
	"[", `\[`,
	"]", `\]`,
)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

func chunkIndexFromKey(key string) int {
	idx, err := strconv.Atoi(key[strings.LastIndex(key, ":")+1:])
	if err != nil {
		return 0
	}
	return idx
}
