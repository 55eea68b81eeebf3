package ollamaLLM

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

type Client struct {
	llm llms.Model
}

func New(serverURL string, model string, httpClient *http.Client) (*Client, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama llm: %w", err)
	}
	return &Client{llm: llm}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithTemperature(config.ModelTemperature))
}
