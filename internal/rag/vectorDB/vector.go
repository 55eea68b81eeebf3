package vectorDB

import (
	"context"
	"errors"

	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
)

// ErrIndexUnavailable means no usable index is loaded, the QA service answers 503.
var ErrIndexUnavailable = errors.New("index not loaded")

// Match is one retrieved entry, nearest first.
type Match struct {
	Entry    documentModel.IndexEntry
	Distance float32
}

type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
}

// Mirror receives a copy of every committed batch.
type Mirror interface {
	UpsertBatch(ctx context.Context, startRow int, entries []documentModel.IndexEntry, vectors [][]float32) error
}
