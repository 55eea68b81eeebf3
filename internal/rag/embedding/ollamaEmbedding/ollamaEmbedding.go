package ollamaEmbedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Client embeds text with a local Ollama model.
type Client struct {
	embedder embeddings.Embedder
	model    string
}

func New(serverURL string, model string, httpClient *http.Client) (*Client, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	return &Client{embedder: embedder, model: model}, nil
}

func (c *Client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return c.embedder.EmbedQuery(ctx, text)
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	return c.embedder.EmbedDocuments(ctx, chunks)
}

func (c *Client) Model() string { return "ollama/" + c.model }
