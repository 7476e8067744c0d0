// Package sdk provides a Go client for the docsage document retrieval
// service. A Client is scoped to one session: every document it ingests,
// queries, or deletes belongs to the session id it carries.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey     string
	sessionID  string
	httpClient *http.Client
}

// WithAPIKey sets the bearer token sent on every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithSessionID pins the client to an existing session. Without it the
// server assigns a session on the first request and the client adopts it.
func WithSessionID(id string) Option {
	return optionFunc(func(c *clientConfig) {
		c.sessionID = id
	})
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// Client talks to a docsage server.
type Client struct {
	baseURL   string
	apiKey    string
	sessionID string
	hc        *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	cfg := clientConfig{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o.apply(&cfg)
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    cfg.apiKey,
		sessionID: cfg.sessionID,
		hc:        cfg.httpClient,
	}
}

// SessionID returns the session the client is bound to. Empty until the
// first request when the server assigns one.
func (c *Client) SessionID() string { return c.sessionID }

// Document is one ingested document's metadata.
type Document struct {
	DocumentID  string    `json:"document_id"`
	Source      string    `json:"source,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
	ChunkCount  int       `json:"chunk_count"`
	Strategy    string    `json:"strategy"`
}

// IngestResult reports what the server stored.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
	Strategy   string `json:"strategy"`
	SessionID  string `json:"session_id"`
}

// Ingest uploads a document for chunking and embedding.
func (c *Client) Ingest(ctx context.Context, text, source string) (IngestResult, error) {
	var out IngestResult
	err := c.call(ctx, http.MethodPost, "/api/v1/documents",
		map[string]string{"text": text, "source": source}, &out)
	return out, err
}

// ScoredChunk is one ranked chunk in a query result.
type ScoredChunk struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// QueryResult is the answer and the context it was grounded on.
type QueryResult struct {
	Answer   string        `json:"answer,omitempty"`
	Context  string        `json:"context"`
	Chunks   []ScoredChunk `json:"chunks"`
	Strategy string        `json:"strategy"`
}

// QueryOptions tune a single query.
type QueryOptions struct {
	TopK int
}

// Query asks a question against one stored document.
func (c *Client) Query(ctx context.Context, documentID, query string, opts *QueryOptions) (QueryResult, error) {
	body := map[string]any{"query": query}
	if opts != nil && opts.TopK > 0 {
		body["top_k"] = opts.TopK
	}
	var out QueryResult
	err := c.call(ctx, http.MethodPost, "/api/v1/documents/"+documentID+"/query", body, &out)
	return out, err
}

// ListDocuments returns the session's documents, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var out struct {
		Items []Document `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/documents", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetDocument returns one document's metadata.
func (c *Client) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var out Document
	err := c.call(ctx, http.MethodGet, "/api/v1/documents/"+documentID, nil, &out)
	return out, err
}

// DeleteDocument removes a document and its chunks. Deleting an absent
// document succeeds.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/documents/"+documentID, nil, nil)
}

// DeleteSession removes every document of the client's session.
func (c *Client) DeleteSession(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/session", nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.sessionID != "" {
		req.Header.Set("X-Session-ID", c.sessionID)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Adopt the server-assigned session on first contact.
	if sid := resp.Header.Get("X-Session-ID"); sid != "" && c.sessionID == "" {
		c.sessionID = sid
	}

	if resp.StatusCode >= 400 {
		return apiErrorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
