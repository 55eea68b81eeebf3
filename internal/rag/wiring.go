package rag

import (
	"context"
	"fmt"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/rag/embedding"
	"github.com/akolanti/ClinicalRAG/internal/rag/llm"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB/flatIndex"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB/qdrantDB"
)

// Runtime is a wired QA service. Live is nil when the Qdrant backend is selected.
type Runtime struct {
	Service Service
	Live    *flatIndex.Live
	Model   string
}

// NewRuntime builds the QA service from settings. A missing or unreadable index is not an error:
// the service starts degraded and Live.Reload may recover it later.
func NewRuntime(ctx context.Context, settings *config.Settings) (*Runtime, error) {
	embedder, err := embedding.NewEmbedder(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	provider, err := llm.NewProvider(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	rt := &Runtime{Model: embedder.Model()}
	var searcher vectorDB.Searcher
	switch settings.VectorBackend {
	case config.VectorBackendQdrant:
		q := qdrantDB.GetQuadrantClient(ctx, settings)
		if q == nil {
			return nil, fmt.Errorf("vector backend %q selected but qdrant is unavailable", settings.VectorBackend)
		}
		searcher = q
	case config.VectorBackendFlat, "":
		rt.Live = flatIndex.NewLive(flatIndex.Paths{Index: settings.IndexPath(), Metadata: settings.MetadataPath()}, embedder.Model())
		if err := rt.Live.Reload(); err != nil {
			logger.Error("Index not loaded, answering 503 until it is", "error", err)
		}
		searcher = rt.Live
	default:
		return nil, fmt.Errorf("unknown vector backend %q", settings.VectorBackend)
	}

	rt.Service = NewService(searcher, provider, embedder, settings.TopK)
	return rt, nil
}

// Probe reports the loaded index for readiness checks.
func (rt *Runtime) Probe() (int, string, bool) {
	if rt.Live == nil {
		return 0, rt.Model, true
	}
	snap := rt.Live.Current()
	if snap == nil {
		return 0, rt.Model, false
	}
	return snap.Len(), snap.Model(), true
}
