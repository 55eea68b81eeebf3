package rag_test

import (
	"context"

	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
)

type MockSearcher struct {
	OnSearch func(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error)
}

func (m *MockSearcher) Search(ctx context.Context, v []float32, k int) ([]vectorDB.Match, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, v, k)
	}
	return nil, nil
}

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks)
	}
	out := make([][]float32, len(chunks))
	for i := range out {
		out[i] = []float32{0, 0}
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0, 0}, nil
}

func (m *MockEmbedder) Model() string { return "mock" }

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return "mocked llm response", nil
}
