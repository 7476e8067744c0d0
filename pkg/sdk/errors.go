package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors mapped from the server's error codes.
// Use errors.Is() to check.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrNoRelevantContext = errors.New("no relevant context")
	ErrServiceDown       = errors.New("service unavailable")
)

// APIError carries the server's error response. It wraps the matching
// sentinel so errors.Is works on the cause.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("docsage: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request", "validation_failed":
		return ErrInvalidInput
	case "unauthorized":
		return ErrUnauthorized
	case "document_not_found":
		return ErrDocumentNotFound
	case "no_relevant_context":
		return ErrNoRelevantContext
	case "storage_unavailable":
		return ErrServiceDown
	default:
		return nil
	}
}

func apiErrorFromResponse(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Code:       "internal_error",
		Message:    resp.Status,
	}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	return apiErr
}
