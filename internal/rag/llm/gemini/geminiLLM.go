package gemini

import (
	"context"
	"fmt"
	"sync"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type Client struct {
	client    *genai.Client
	modelName string
}

var (
	logger       *logger_i.Logger
	geminiClient *Client
	initErr      error
	once         sync.Once
)

func GetGeminiClient(ctx context.Context, modelName string, apikey string) (*Client, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName, apikey)
	})
	if geminiClient == nil {
		return nil, fmt.Errorf("gemini client unavailable: %w", initErr)
	}
	return geminiClient, nil
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		initErr = err
		return
	}
	geminiClient = &Client{client: c, modelName: modelName}
	logger.Info("Gemini client created", "model", modelName)
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := float32(config.ModelTemperature)
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{Temperature: &temperature},
	)
	if err != nil {
		logger.WithTrace(ctx).Error("Gemini generate failed", "error", err)
		return "", err
	}
	return result.Text(), nil
}
