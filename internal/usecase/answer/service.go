// Package answer turns retrieved context into an LLM-generated answer.
package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/usecase/retrieval"
)

// DefaultSystemPrompt instructs the model to stay within the provided context.
const DefaultSystemPrompt = "You are a document assistant. Answer strictly from the provided context. " +
	"If the context does not contain the answer, say so instead of guessing."

// retriever assembles ranked context for a stored document.
type retriever interface {
	RetrieveContext(ctx context.Context, req retrieval.QueryRequest) (retrieval.QueryResult, error)
}

// ChatClient generates a completion from a system prompt and user message.
// Exported so the composition root can pass a nil interface (not a typed
// nil pointer) when answer generation is disabled.
type ChatClient interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Service answers questions about stored documents. Chat-completion calls
// are serialized through a single-slot semaphore: local model servers
// degrade badly under concurrent generation, so one request generates at a
// time while the rest wait or bail out with their context.
type Service struct {
	retriever    retriever
	chat         ChatClient
	systemPrompt string
	slot         chan struct{}
	logger       *zap.Logger
}

// New creates an answer service. A nil chat client disables generation;
// Answer then returns the retrieved context with an empty answer.
func New(r retriever, chat ChatClient, systemPrompt string, logger *zap.Logger) *Service {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Service{
		retriever:    r,
		chat:         chat,
		systemPrompt: systemPrompt,
		slot:         make(chan struct{}, 1),
		logger:       logger,
	}
}

// Result is a generated answer together with the context it was grounded on.
type Result struct {
	Answer   string
	Context  string
	Chunks   []retrieval.ScoredChunk
	Strategy string
}

// Answer retrieves context for the query and, when a chat client is
// configured, generates an answer grounded on it.
func (s *Service) Answer(ctx context.Context, req retrieval.QueryRequest) (Result, error) {
	retrieved, err := s.retriever.RetrieveContext(ctx, req)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Context:  retrieved.Context,
		Chunks:   retrieved.Chunks,
		Strategy: retrieved.Strategy,
	}
	if s.chat == nil {
		return res, nil
	}

	select {
	case s.slot <- struct{}{}:
		defer func() { <-s.slot }()
	case <-ctx.Done():
		return Result{}, fmt.Errorf("waiting for generation slot: %w", ctx.Err())
	}

	answer, err := s.chat.Complete(ctx, s.systemPrompt, userMessage(retrieved.Context, req.Query))
	if err != nil {
		return Result{}, fmt.Errorf("generate answer: %w", err)
	}
	res.Answer = answer

	s.logger.Debug("answer generated",
		zap.String("document_id", req.DocumentID),
		zap.Int("context_chunks", len(retrieved.Chunks)),
	)
	return res, nil
}

func userMessage(context, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", context, question)
}
