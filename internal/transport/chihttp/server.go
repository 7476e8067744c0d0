// Package chihttp exposes the document pipeline over a chi-routed HTTP API.
package chihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/domain"
	"github.com/docsage/docsage/internal/metrics"
	"github.com/docsage/docsage/internal/usecase/answer"
	"github.com/docsage/docsage/internal/usecase/health"
	"github.com/docsage/docsage/internal/usecase/retrieval"
	"github.com/docsage/docsage/internal/version"
)

// Error codes returned to API clients.
const (
	codeBadRequest         = "bad_request"
	codeUnauthorized       = "unauthorized"
	codeValidationFailed   = "validation_failed"
	codeDocumentNotFound   = "document_not_found"
	codeNoRelevantContext  = "no_relevant_context"
	codeStorageUnavailable = "storage_unavailable"
	codeInternalError      = "internal_error"
)

// documentService is the pipeline surface the server consumes.
type documentService interface {
	Ingest(ctx context.Context, req retrieval.IngestRequest) (retrieval.IngestResult, error)
	GetDocument(ctx context.Context, documentID, sessionID string) (domain.DocumentMeta, error)
	ListDocuments(ctx context.Context, sessionID string) ([]domain.DocumentMeta, error)
	CleanupDocument(ctx context.Context, documentID, sessionID string) error
	CleanupSession(ctx context.Context, sessionID string) error
}

// answerService generates grounded answers.
type answerService interface {
	Answer(ctx context.Context, req retrieval.QueryRequest) (answer.Result, error)
}

// healthService reports dependency health.
type healthService interface {
	Check(ctx context.Context) health.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server handles the HTTP API.
type Server struct {
	documents     documentService
	answers       answerService
	health        healthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(documents documentService, answers answerService, h healthService, logger *zap.Logger) *Server {
	s := &Server{
		documents: documents,
		answers:   answers,
		health:    h,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmptyText, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrChunkingFailed, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrNoRelevantContext, http.StatusUnprocessableEntity, codeNoRelevantContext),
		sentinelHandler(domain.ErrEmptyContext, http.StatusUnprocessableEntity, codeNoRelevantContext),
		sentinelHandler(domain.ErrStorageUnavailable, http.StatusServiceUnavailable, codeStorageUnavailable),
	}
	return s
}

// Router builds the chi router with middleware and all API routes.
func (s *Server) Router(apiKeys []string) chi.Router {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Post("/documents", s.IngestDocument)
		r.Get("/documents", s.ListDocuments)
		r.Get("/documents/{documentID}", s.GetDocument)
		r.Delete("/documents/{documentID}", s.DeleteDocument)
		r.Post("/documents/{documentID}/query", s.QueryDocument)
		r.Delete("/session", s.DeleteSession)
	})
	return r
}

// IngestRequest is the POST /documents body.
type IngestRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// IngestResponse reports what ingestion stored.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
	Strategy   string `json:"strategy"`
	SessionID  string `json:"session_id"`
}

// IngestDocument handles POST /api/v1/documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "text is required")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "source is required")
		return
	}

	sessionID := SessionIDFromContext(r.Context())
	res, err := s.documents.Ingest(r.Context(), retrieval.IngestRequest{
		SessionID: sessionID,
		Source:    req.Source,
		Text:      req.Text,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		DocumentID: res.DocumentID,
		ChunkCount: res.ChunkCount,
		Strategy:   res.Strategy,
		SessionID:  sessionID,
	})
}

// QueryRequest is the POST /documents/{documentID}/query body.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// ScoredChunk is one ranked chunk in a query response.
type ScoredChunk struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// QueryResponse is the grounded answer plus the context behind it.
type QueryResponse struct {
	Answer   string        `json:"answer,omitempty"`
	Context  string        `json:"context"`
	Chunks   []ScoredChunk `json:"chunks"`
	Strategy string        `json:"strategy"`
}

// QueryDocument handles POST /api/v1/documents/{documentID}/query.
func (s *Server) QueryDocument(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.answers.Answer(r.Context(), retrieval.QueryRequest{
		SessionID:  SessionIDFromContext(r.Context()),
		DocumentID: chi.URLParam(r, "documentID"),
		Query:      req.Query,
		TopK:       req.TopK,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	chunks := make([]ScoredChunk, len(res.Chunks))
	for i, c := range res.Chunks {
		chunks[i] = ScoredChunk{Index: c.Index, Text: c.Text, Score: c.Score}
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:   res.Answer,
		Context:  res.Context,
		Chunks:   chunks,
		Strategy: res.Strategy,
	})
}

// DocumentResponse is one document's metadata.
type DocumentResponse struct {
	DocumentID  string    `json:"document_id"`
	Source      string    `json:"source,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
	ChunkCount  int       `json:"chunk_count"`
	Strategy    string    `json:"strategy"`
}

func documentToResponse(m domain.DocumentMeta) DocumentResponse {
	return DocumentResponse{
		DocumentID:  m.DocumentID,
		Source:      m.Source,
		ProcessedAt: m.ProcessedAt,
		ChunkCount:  m.ChunkCount,
		Strategy:    m.Strategy,
	}
}

// GetDocument handles GET /api/v1/documents/{documentID}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	meta, err := s.documents.GetDocument(r.Context(), chi.URLParam(r, "documentID"), SessionIDFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(meta))
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.ListDocuments(r.Context(), SessionIDFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// DeleteDocument handles DELETE /api/v1/documents/{documentID}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := s.documents.CleanupDocument(r.Context(), chi.URLParam(r, "documentID"), SessionIDFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession handles DELETE /api/v1/session.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.CleanupSession(r.Context(), SessionIDFromContext(r.Context())); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.StoreDown {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status":             report.Status,
		"checks":             report.Checks,
		"embedding_strategy": report.Strategy,
		"version":            version.Version,
	})
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrEmptyText,
		domain.ErrChunkingFailed,
		domain.ErrDocumentNotFound,
		domain.ErrNoRelevantContext,
		domain.ErrEmptyContext,
		domain.ErrStorageUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
