package deid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/metrics"
)

// AnalyzerClient calls a Presidio compatible /analyze endpoint.
type AnalyzerClient struct {
	baseURL  string
	language string
	entities []Entity
	client   *http.Client
	timeout  time.Duration
}

type analyzeRequest struct {
	Text     string   `json:"text"`
	Language string   `json:"language"`
	Entities []Entity `json:"entities,omitempty"`
}

type analyzeResult struct {
	EntityType Entity  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

func NewAnalyzerClient(baseURL string, language string, entities []Entity, client *http.Client, timeout time.Duration) *AnalyzerClient {
	return &AnalyzerClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		entities: entities,
		client:   client,
		timeout:  timeout,
	}
}

func (a *AnalyzerClient) Analyze(ctx context.Context, text string) ([]Span, error) {
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("pii_analyzer", time.Since(start))
	}()

	body, err := json.Marshal(analyzeRequest{Text: text, Language: a.language, Entities: a.entities})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pii analyzer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pii analyzer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var results []analyzeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode pii analyzer response: %w", err)
	}
	return toByteSpans(text, results), nil
}

// toByteSpans converts the analyzer's character offsets to byte offsets into text.
func toByteSpans(text string, results []analyzeResult) []Span {
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	spans := make([]Span, 0, len(results))
	for _, r := range results {
		if r.Start < 0 || r.End <= r.Start || r.End >= len(offsets) {
			continue
		}
		spans = append(spans, Span{
			Start:  offsets[r.Start],
			End:    offsets[r.End],
			Entity: r.EntityType,
			Score:  r.Score,
		})
	}
	return spans
}
