package openaiEmbedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client talks to any OpenAI compatible /embeddings endpoint.
type Client struct {
	api       openai.Client
	model     string
	dimension int
}

func New(baseURL string, apiKey string, model string, dimension int, httpClient *http.Client) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{api: openai.NewClient(opts...), model: model, dimension: dimension}
}

func (c *Client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: chunks},
	}
	// only the v3 models accept a reduced size
	if c.dimension > 0 && strings.HasPrefix(c.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	resp, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(chunks) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(chunks))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		out[i] = v
	}
	return out, nil
}

func (c *Client) Model() string { return "openai/" + c.model }
