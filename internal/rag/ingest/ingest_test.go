package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/domain/pipelineError"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB/flatIndex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockEmbedder struct {
	calls     int32
	batchFunc func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	out, err := m.BatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.batchFunc != nil {
		return m.batchFunc(ctx, chunks)
	}
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = []float32{float32(len([]rune(c))), 1}
	}
	return out, nil
}

func (m *mockEmbedder) Model() string { return "mock/model" }

type mockMirror struct {
	startRow int
	rows     int
	err      error
}

func (m *mockMirror) UpsertBatch(ctx context.Context, startRow int, entries []documentModel.IndexEntry, vectors [][]float32) error {
	m.startRow, m.rows = startRow, len(entries)
	return m.err
}

func newStore(t *testing.T) (*flatIndex.Store, flatIndex.Paths) {
	t.Helper()
	dir := t.TempDir()
	p := flatIndex.Paths{Index: filepath.Join(dir, "vector_store.idx"), Metadata: filepath.Join(dir, "metadata_store.json")}
	return flatIndex.NewStore(p, "mock/model", 2), p
}

func cleanBody(t *testing.T, docId, text string) []byte {
	t.Helper()
	body, err := json.Marshal(documentModel.CleanDocumentMessage{DocId: docId, OriginalTextMasked: text, ProcessedAt: 1})
	require.NoError(t, err)
	return body
}

// --- ChunkText ---

func TestChunkText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		size  int
		count int
	}{
		{"empty", "", 500, 0},
		{"shorter than size", "abc", 500, 1},
		{"exact multiple", strings.Repeat("a", 1000), 500, 2},
		{"remainder", strings.Repeat("a", 1001), 500, 3},
		{"multibyte counts characters", strings.Repeat("é", 7), 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(tt.text, tt.size)
			require.Len(t, chunks, tt.count)
			assert.Equal(t, tt.text, strings.Join(chunks, ""))
			for i, c := range chunks {
				n := len([]rune(c))
				if i < len(chunks)-1 {
					assert.Equal(t, tt.size, n)
				} else {
					assert.LessOrEqual(t, n, tt.size)
				}
			}
		})
	}
}

func TestChunkText_Deterministic(t *testing.T) {
	text := strings.Repeat("Patient <PERSON> vu le <DATE_TIME>. ", 40)
	assert.Equal(t, ChunkText(text, 500), ChunkText(text, 500))
}

func TestPatientEntries_SkipsBlankChunks(t *testing.T) {
	text := strings.Repeat("x", 3) + strings.Repeat(" ", 3) + "y"
	entries := PatientEntries("d1", text, 3)
	require.Len(t, entries, 2)
	assert.Equal(t, "Dossier Patient d1", entries[0].Source)
	assert.Equal(t, "patient_file", entries[0].Type)
	assert.Equal(t, "d1", entries[1].DocId)
	assert.Equal(t, "y", entries[1].TextContent)
}

// --- Knowledge base ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReadKnowledgeBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "matrice.csv", "nom_syndrome,nom_latin,nom_chinois,score_role\nVide de Qi,Panax ginseng,Ren Shen,10\n")
	writeFile(t, dir, "base_connaissance.csv", "\ufeffnom_syndrome,nom_formule,nom_latin,description\nVide de Yang,Jin Gui Shen Qi Wan,Aconitum,Réchauffe\n")
	writeFile(t, dir, "notes.csv", "a,b\n1,2\n")
	writeFile(t, dir, "readme.txt", "ignored")

	var skipped []string
	entries, err := ReadKnowledgeBase(dir, func(file string, err error) { skipped = append(skipped, file) })
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, entries, 2)

	// files are read in name order
	assert.Equal(t, "base_connaissance.csv", entries[0].Source)
	assert.Equal(t,
		"DÉTAIL CLINIQUE : Syndrome 'Vide de Yang'. Formule 'Jin Gui Shen Qi Wan'. Plante : Aconitum. Rôle : Inconnu (Score ). Description : Réchauffe",
		entries[0].TextContent)

	assert.Equal(t, "matrice.csv", entries[1].Source)
	assert.Equal(t,
		"ANALYSE SCORE MTC : Syndrome 'Vide de Qi'. Plante recommandée : Panax ginseng (Ren Shen). Score de pertinence : 10.",
		entries[1].TextContent)
	assert.Equal(t, "KB_MTC", entries[1].DocId)
	assert.Equal(t, "knowledge_base", entries[1].Type)
}

func TestReadKnowledgeBase_DefaultsAndBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ranking.csv", "nom_syndrome,nom_latin\nStase,Salvia\n")
	// a directory matching the glob cannot be read as a CSV
	require.NoError(t, os.Mkdir(filepath.Join(dir, "matrice_broken.csv"), 0o755))

	var skipped []string
	entries, err := ReadKnowledgeBase(dir, func(file string, err error) { skipped = append(skipped, file) })
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "ANALYSE SCORE MTC : Syndrome 'Stase'. Plante recommandée : Salvia (). Score de pertinence : 0.", entries[0].TextContent)
	assert.Equal(t, []string{"matrice_broken.csv"}, skipped)
}

func TestBootstrap(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("nom_syndrome,nom_latin,nom_chinois,score_role\n")
	for i := 0; i < 70; i++ {
		b.WriteString(strings.Repeat("s", i+1) + ",latin,chinois,1\n")
	}
	writeFile(t, dir, "matrice.csv", b.String())

	store, paths := newStore(t)
	embedder := &mockEmbedder{}
	n, err := Bootstrap(context.Background(), store, embedder, dir, 3)
	require.NoError(t, err)
	assert.Equal(t, 70, n)
	assert.Equal(t, int32(3), atomic.LoadInt32(&embedder.calls))

	snap, err := flatIndex.Load(paths)
	require.NoError(t, err)
	require.Equal(t, 70, snap.Len())
	// rows keep file order and line up with their vectors
	for i := 0; i < snap.Len(); i++ {
		assert.Equal(t, float32(len([]rune(snap.Entry(i).TextContent))), snap.Vector(i)[0])
	}
	assert.Contains(t, snap.Entry(0).TextContent, "Syndrome 's'")
}

func TestBootstrap_EmptyDirStillSaves(t *testing.T) {
	store, paths := newStore(t)
	n, err := Bootstrap(context.Background(), store, &mockEmbedder{}, filepath.Join(t.TempDir(), "absent"), 2)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	snap, err := flatIndex.Load(paths)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
}

func TestBootstrap_EmbeddingFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "matrice.csv", "nom_syndrome\nA\nB\n")
	store, paths := newStore(t)
	embedder := &mockEmbedder{batchFunc: func(ctx context.Context, chunks []string) ([][]float32, error) {
		return nil, errors.New("ollama down")
	}}

	_, err := Bootstrap(context.Background(), store, embedder, dir, 2)
	require.Error(t, err)
	_, err = flatIndex.Load(paths)
	assert.ErrorIs(t, err, flatIndex.ErrIndexNotFound)
}

// --- Indexer ---

func TestIndexer_Handle(t *testing.T) {
	store, paths := newStore(t)
	mirror := &mockMirror{}
	ix := NewIndexer(store, &mockEmbedder{}, mirror, "clean", 500)

	text := strings.Repeat("a", 1200)
	require.NoError(t, ix.Handle(context.Background(), cleanBody(t, "d1", text)))

	snap, err := flatIndex.Load(paths)
	require.NoError(t, err)
	require.Equal(t, 3, snap.Len())
	assert.Equal(t, "Dossier Patient d1", snap.Entry(0).Source)
	assert.Equal(t, 0, mirror.startRow)
	assert.Equal(t, 3, mirror.rows)

	// same message again: no dedup
	require.NoError(t, ix.Handle(context.Background(), cleanBody(t, "d1", text)))
	assert.Equal(t, 6, store.Len())
	assert.Equal(t, 3, mirror.startRow)
}

func TestIndexer_HandleBlank(t *testing.T) {
	store, _ := newStore(t)
	embedder := &mockEmbedder{}
	ix := NewIndexer(store, embedder, nil, "clean", 500)

	require.NoError(t, ix.Handle(context.Background(), cleanBody(t, "d1", "   ")))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int32(0), embedder.calls)
}

func TestIndexer_HandleErrors(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		store, _ := newStore(t)
		ix := NewIndexer(store, &mockEmbedder{}, nil, "clean", 500)
		err := ix.Handle(context.Background(), []byte(`{"doc_id":`))
		assert.Equal(t, pipelineError.KindParse, pipelineError.KindOf(err))
	})

	t.Run("embedding", func(t *testing.T) {
		store, _ := newStore(t)
		ix := NewIndexer(store, &mockEmbedder{batchFunc: func(ctx context.Context, c []string) ([][]float32, error) {
			return nil, errors.New("timeout")
		}}, nil, "clean", 500)
		err := ix.Handle(context.Background(), cleanBody(t, "d1", "texte"))
		assert.Equal(t, pipelineError.KindProcessing, pipelineError.KindOf(err))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("wrong dimension", func(t *testing.T) {
		store, _ := newStore(t)
		ix := NewIndexer(store, &mockEmbedder{batchFunc: func(ctx context.Context, c []string) ([][]float32, error) {
			return [][]float32{{1, 2, 3}}, nil
		}}, nil, "clean", 500)
		err := ix.Handle(context.Background(), cleanBody(t, "d1", "texte"))
		assert.ErrorIs(t, err, flatIndex.ErrDimensionMismatch)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("mirror failure does not fail the message", func(t *testing.T) {
		store, _ := newStore(t)
		ix := NewIndexer(store, &mockEmbedder{}, &mockMirror{err: errors.New("qdrant down")}, "clean", 500)
		require.NoError(t, ix.Handle(context.Background(), cleanBody(t, "d1", "texte")))
		assert.Equal(t, 1, store.Len())
	})
}

type batchRecorder struct {
	starts []int
	rows   int
}

func (b *batchRecorder) UpsertBatch(ctx context.Context, startRow int, entries []documentModel.IndexEntry, vectors [][]float32) error {
	b.starts = append(b.starts, startRow)
	b.rows += len(entries)
	return nil
}

func TestSyncMirror(t *testing.T) {
	store, _ := newStore(t)
	vectors := make([][]float32, 230)
	entries := make([]documentModel.IndexEntry, 230)
	for i := range vectors {
		vectors[i] = []float32{float32(i), 0}
		entries[i] = documentModel.IndexEntry{DocId: "KB_MTC", TextContent: "t", Source: "matrice.csv", Type: "knowledge_base"}
	}
	require.NoError(t, store.AppendAndPersist(vectors, entries))

	rec := &batchRecorder{}
	require.NoError(t, SyncMirror(context.Background(), store.Snapshot(), rec))
	assert.Equal(t, []int{0, 100, 200}, rec.starts)
	assert.Equal(t, 230, rec.rows)
}
