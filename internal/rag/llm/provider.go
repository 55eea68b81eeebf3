package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/customHttpClient"
	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/internal/rag/llm/gemini"
	"github.com/akolanti/ClinicalRAG/internal/rag/llm/ollamaLLM"
	"github.com/akolanti/ClinicalRAG/internal/rag/llm/openaiLLM"
)

// Provider completes a fully rendered prompt at temperature 0.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

func NewProvider(ctx context.Context, settings *config.Settings) (Provider, error) {
	var inner Provider
	switch settings.LLMProvider {
	case "ollama":
		p, err := ollamaLLM.New(settings.OllamaBaseURL, settings.LLMModel, customHttpClient.Get())
		if err != nil {
			return nil, err
		}
		inner = p
	case "gemini":
		model := settings.LLMModel
		if model == config.LLMModel {
			model = config.GeminiModelName
		}
		p, err := gemini.GetGeminiClient(ctx, model, settings.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		inner = p
	case "openai":
		inner = openaiLLM.New(settings.OpenAIBaseURL, settings.OpenAIAPIKey, settings.LLMModel, customHttpClient.Get())
	default:
		return nil, fmt.Errorf("unknown llm provider %q", settings.LLMProvider)
	}
	return &bounded{inner: inner, timeout: settings.LLMTimeout}, nil
}

type bounded struct {
	inner   Provider
	timeout time.Duration
}

func (b *bounded) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm", time.Since(start)) }()
	return b.inner.Generate(ctx, prompt)
}
