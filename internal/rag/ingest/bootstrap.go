package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/rag/embedding"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB/flatIndex"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"github.com/panjf2000/ants/v2"
)

const embedBatchSize = 32

// Bootstrap fills an empty store from the knowledge base CSVs in dir and saves it,
// even when no entry was found. Embedding runs on a pool of poolSize goroutines; rows keep file order.
func Bootstrap(ctx context.Context, store *flatIndex.Store, embedder embedding.Embedder, dir string, poolSize int) (int, error) {
	log := logger_i.NewLogger("Bootstrap")
	entries, err := ReadKnowledgeBase(dir, func(file string, err error) {
		log.Error("Skipping unreadable CSV", "file", file, "error", err)
	})
	if err != nil {
		return 0, err
	}
	log.Info("Knowledge base read", "dir", dir, "entries", len(entries))

	vectors, err := embedAll(ctx, embedder, entries, poolSize)
	if err != nil {
		return 0, err
	}

	if len(entries) == 0 {
		return 0, store.Persist()
	}
	if err := store.AppendAndPersist(vectors, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func embedAll(ctx context.Context, embedder embedding.Embedder, entries []documentModel.IndexEntry, poolSize int) ([][]float32, error) {
	vectors := make([][]float32, len(entries))
	if len(entries) == 0 {
		return vectors, nil
	}

	pool, err := ants.NewPool(max(poolSize, 1))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(entries); start += embedBatchSize {
		end := min(start+embedBatchSize, len(entries))
		texts := make([]string, 0, end-start)
		for _, e := range entries[start:end] {
			texts = append(texts, e.TextContent)
		}

		wg.Add(1)
		s := start
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			out, err := embedder.BatchEmbedding(ctx, texts)
			if err != nil {
				fail(fmt.Errorf("embed rows %d-%d: %w", s, s+len(texts)-1, err))
				return
			}
			// each task owns a disjoint range of vectors
			copy(vectors[s:], out)
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}
