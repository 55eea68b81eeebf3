package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/customHttpClient"
	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/ClinicalRAG/internal/rag/embedding/ollamaEmbedding"
	"github.com/akolanti/ClinicalRAG/internal/rag/embedding/openaiEmbedding"
)

type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
	// Model names the embedding space, it is stamped into the persisted index.
	Model() string
}

// NewEmbedder builds the embedder selected by EMBEDDING_PROVIDER. Every call is bounded by EMBEDDING_TIMEOUT.
func NewEmbedder(ctx context.Context, settings *config.Settings) (Embedder, error) {
	var inner Embedder
	switch settings.EmbeddingProvider {
	case "ollama":
		e, err := ollamaEmbedding.New(settings.OllamaBaseURL, settings.EmbeddingModel, customHttpClient.Get())
		if err != nil {
			return nil, err
		}
		inner = e
	case "gemini":
		model := settings.EmbeddingModel
		if model == config.EmbeddingModel {
			model = config.GeminiEmbedModel
		}
		e, err := googleEmbedding.GetGoogleEmbeddingClient(ctx, model, settings.GeminiAPIKey, int32(settings.EmbeddingDimension))
		if err != nil {
			return nil, err
		}
		inner = e
	case "openai":
		inner = openaiEmbedding.New(settings.OpenAIBaseURL, settings.OpenAIAPIKey, settings.EmbeddingModel, settings.EmbeddingDimension, customHttpClient.Get())
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", settings.EmbeddingProvider)
	}
	return Bounded(inner, settings.EmbeddingTimeout), nil
}

type bounded struct {
	inner   Embedder
	timeout time.Duration
}

// Bounded puts a deadline on every call of e and records its latency.
func Bounded(e Embedder, timeout time.Duration) Embedder {
	return &bounded{inner: e, timeout: timeout}
}

func (b *bounded) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()
	return b.inner.GetEmbedding(ctx, text)
}

func (b *bounded) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start)) }()

	vectors, err := b.inner.BatchEmbedding(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

func (b *bounded) Model() string { return b.inner.Model() }
