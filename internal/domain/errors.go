package domain

import "errors"

var (
	// ErrInvalidInput signals a missing or out-of-range request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyText signals text that reduced to nothing during preprocessing.
	ErrEmptyText = errors.New("text empty after preprocessing")
	// ErrChunkingFailed signals text that produced no usable chunks.
	ErrChunkingFailed = errors.New("chunking produced no chunks")
	// ErrDocumentNotFound signals a missing document for the given session.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrStorageUnavailable signals a store connectivity or write failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNoRelevantContext signals that ranking selected no chunks.
	ErrNoRelevantContext = errors.New("no relevant context")
	// ErrEmptyContext signals that the assembled context was blank.
	ErrEmptyContext = errors.New("empty context")
	// ErrDimensionMismatch signals comparison of vectors of unequal length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingProvider is the parent of all embedding provider failures.
	// Provider failures are absorbed by the synthetic fallback and never
	// surface to callers of the retrieval service.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrAuthenticationFailed signals a rejected provider API key.
	ErrAuthenticationFailed = errors.New("embedding authentication failed")
	// ErrModelNotLoaded signals a provider with no model loaded.
	ErrModelNotLoaded = errors.New("embedding model not loaded")
	// ErrModelNotFound signals an unknown embedding model id.
	ErrModelNotFound = errors.New("embedding model not found")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("embedding rate limited")
	// ErrServiceUnavailable signals a provider-side failure.
	ErrServiceUnavailable = errors.New("embedding service unavailable")
	// ErrInvalidResponse signals a malformed provider response.
	ErrInvalidResponse = errors.New("invalid embedding response")
)
