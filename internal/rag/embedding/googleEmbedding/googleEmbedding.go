package googleEmbedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	logger          *logger_i.Logger
	once            sync.Once
	embeddingClient *Client
	initErr         error
)

const retryWait = 5 * time.Second

type Client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string, dimension int32) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		initErr = err
		return
	}
	embeddingClient = &Client{genAi: c, model: modelName, dimension: dimension}
	logger.Info("Google Embedding client created", "model", modelName)
}

// GetGoogleEmbeddingClient returns the process wide Gemini embedder.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string, dimension int32) (*Client, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey, dimension)
	})
	if embeddingClient == nil {
		return nil, fmt.Errorf("gemini embedder unavailable: %w", initErr)
	}
	return embeddingClient, nil
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	res, err := c.callWithRetry(ctx, genai.Text(query), "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("gemini returned no embedding")
	}
	return res.Embeddings[0].Values, nil
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}
	res, err := c.callWithRetry(ctx, getContent(chunks), "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, err
	}
	results := make([][]float32, 0, len(res.Embeddings))
	for _, r := range res.Embeddings {
		results = append(results, r.Values)
	}
	return results, nil
}

func (c *Client) Model() string { return "gemini/" + c.model }

// callWithRetry retries once after a rate limit.
func (c *Client) callWithRetry(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	log := logger.WithTrace(ctx)
	res, err := c.doCall(ctx, content, task)
	if err != nil && doRetry(err, log) {
		log.Debug("Retrying", "wait", retryWait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryWait):
		}
		res, err = c.doCall(ctx, content, task)
	}
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, err
	}
	return res, nil
}

func (c *Client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{OutputDimensionality: &c.dimension, TaskType: task})
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Error("Rate limit hit! ", "error", err)
		return true
	}
	var apiErr genai.APIError
	if ok := asAPIError(err, &apiErr); ok && apiErr.Code == 429 {
		log.Error("Rate limit hit! ", "error", err)
		return true
	}
	return false
}
