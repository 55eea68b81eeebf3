package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/internal/rag/embedding"
	"github.com/akolanti/ClinicalRAG/internal/rag/llm"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"github.com/tmc/langchaingo/prompts"
)

// ErrEmptyQuestion is returned before any embedding call is made.
var ErrEmptyQuestion = errors.New("question is empty")

var logger = logger_i.NewLogger("RAG Service")

// Service answers practitioner questions over the indexed corpus.
// Handlers only see this interface, the embedder, searcher and llm stay private.
type Service interface {
	Ask(ctx context.Context, question string) (Answer, error)
}

type Answer struct {
	Text    string
	Sources []string
}

type service struct {
	searcher    vectorDB.Searcher
	llmProvider llm.Provider
	embedder    embedding.Embedder
	prompt      prompts.PromptTemplate
	topK        int
	logger      *logger_i.Logger
}

func NewService(searcher vectorDB.Searcher, provider llm.Provider, em embedding.Embedder, topK int) Service {
	if topK <= 0 {
		topK = config.RetrievalTopK
	}
	return &service{
		searcher:    searcher,
		llmProvider: provider,
		embedder:    em,
		prompt:      expertPrompt(),
		topK:        topK,
		logger:      logger,
	}
}

func (s *service) Ask(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuestion
	}
	traceId, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	log := s.logger.With("traceId", traceId)

	vector, err := s.embedQuestion(ctx, question)
	if err != nil {
		log.Error("EMBEDDING_FAILURE", "error", err)
		return Answer{}, fmt.Errorf("embed question: %w", err)
	}

	matches, err := s.retrieve(ctx, vector)
	if err != nil {
		if !errors.Is(err, vectorDB.ErrIndexUnavailable) {
			log.Error("VECTOR_SEARCH_FAILURE", "error", err)
		}
		return Answer{}, err
	}
	log.Debug("retrieved passages", "count", len(matches))

	passages := make([]string, 0, len(matches))
	sources := make([]string, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, m.Entry.TextContent)
		sources = append(sources, m.Entry.Source)
	}

	rendered, err := s.prompt.Format(map[string]any{
		"context":  strings.Join(passages, "\n\n"),
		"question": question,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("render prompt: %w", err)
	}

	text, err := s.llmProvider.Generate(ctx, rendered)
	if err != nil {
		log.Error("LLM_GENERATION_FAILURE", "error", err)
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	return Answer{Text: text, Sources: sources}, nil
}

func (s *service) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("question_embedding", time.Since(start)) }()
	return s.embedder.GetEmbedding(ctx, question)
}

func (s *service) retrieve(ctx context.Context, vector []float32) ([]vectorDB.Match, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()
	return s.searcher.Search(ctx, vector, s.topK)
}
