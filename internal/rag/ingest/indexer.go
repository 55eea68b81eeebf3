package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/domain/pipelineError"
	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/internal/rag/embedding"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB/flatIndex"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

const (
	stage     = "indexer"
	batchSize = 100
)

// Indexer appends masked patient documents to the index.
type Indexer struct {
	store     *flatIndex.Store
	embedder  embedding.Embedder
	mirror    vectorDB.Mirror
	queue     string
	chunkSize int
	logger    *logger_i.Logger
}

// NewIndexer wires the queue handler. mirror may be nil.
func NewIndexer(store *flatIndex.Store, embedder embedding.Embedder, mirror vectorDB.Mirror, queue string, chunkSize int) *Indexer {
	if chunkSize <= 0 {
		chunkSize = config.ChunkSize
	}
	return &Indexer{
		store:     store,
		embedder:  embedder,
		mirror:    mirror,
		queue:     queue,
		chunkSize: chunkSize,
		logger:    logger_i.NewLogger("Indexer"),
	}
}

// Handle is the queue handler for clean documents. It returns only after the pair is saved.
func (ix *Indexer) Handle(ctx context.Context, body []byte) error {
	var msg documentModel.CleanDocumentMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &pipelineError.ParseError{Queue: ix.queue, Err: err}
	}
	log := ix.logger.WithTrace(ctx).With("docId", msg.DocId)

	entries := PatientEntries(msg.DocId, msg.OriginalTextMasked, ix.chunkSize)
	if len(entries) == 0 {
		log.Info("Nothing to index")
		return nil
	}

	vectors := make([][]float32, 0, len(entries))
	for start := 0; start < len(entries); start += batchSize {
		end := min(start+batchSize, len(entries))
		texts := make([]string, 0, end-start)
		for _, e := range entries[start:end] {
			texts = append(texts, e.TextContent)
		}
		out, err := ix.embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return &pipelineError.ProcessingError{Stage: stage, DocId: msg.DocId, Err: fmt.Errorf("embedding: %w", err)}
		}
		vectors = append(vectors, out...)
	}

	startRow := ix.store.Len()
	if err := ix.store.AppendAndPersist(vectors, entries); err != nil {
		return &pipelineError.ProcessingError{Stage: stage, DocId: msg.DocId, Err: fmt.Errorf("persist: %w", err)}
	}
	total := ix.store.Len()
	metrics.SetIndexEntries(total)
	log.Info("Document indexed", "chunks", len(entries), "entries", total)

	if ix.mirror != nil {
		if err := ix.mirror.UpsertBatch(ctx, startRow, entries, vectors); err != nil {
			log.Warn("Qdrant mirror upsert failed", "error", err)
		}
	}
	return nil
}

// PatientEntries chunks a masked document into index entries, leaving out blank chunks.
func PatientEntries(docId string, text string, chunkSize int) []documentModel.IndexEntry {
	var entries []documentModel.IndexEntry
	for _, chunk := range ChunkText(text, chunkSize) {
		if isBlank(chunk) {
			continue
		}
		entries = append(entries, documentModel.IndexEntry{
			DocId:       docId,
			TextContent: chunk,
			Source:      "Dossier Patient " + docId,
			Type:        config.PatientFileType,
		})
	}
	return entries
}

// SyncMirror copies every row of snap to mirror. Point ids are row numbers, so repeating it is harmless.
func SyncMirror(ctx context.Context, snap *flatIndex.Snapshot, mirror vectorDB.Mirror) error {
	for start := 0; start < snap.Len(); start += batchSize {
		end := min(start+batchSize, snap.Len())
		entries := make([]documentModel.IndexEntry, 0, end-start)
		vectors := make([][]float32, 0, end-start)
		for i := start; i < end; i++ {
			entries = append(entries, snap.Entry(i))
			vectors = append(vectors, snap.Vector(i))
		}
		if err := mirror.UpsertBatch(ctx, start, entries, vectors); err != nil {
			return fmt.Errorf("mirror rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}
