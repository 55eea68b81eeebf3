package openaiLLM

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client completes prompts against an OpenAI compatible chat endpoint.
type Client struct {
	api   openai.Client
	model string
}

func New(baseURL string, apiKey string, model string, httpClient *http.Client) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{api: openai.NewClient(opts...), model: model}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(config.ModelTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}
