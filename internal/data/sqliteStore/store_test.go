package sqliteStore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "docs", "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, documentModel.DocumentMetadata{
		Id: "doc-1", Filename: "cr.pdf", DocType: "CR_HOSPITALISATION",
	}))

	got, found, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, documentModel.StatusPending, got.Status)
	assert.Equal(t, "cr.pdf", got.Filename)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, s.UpdateStatus(ctx, "doc-1", documentModel.StatusProcessed))
	got, _, err = s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusProcessed, got.Status)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_UpdateMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdateStatus(context.Background(), "ghost", documentModel.StatusProcessed)
	assert.True(t, errors.Is(err, ErrDocumentNotFound))
}

func TestStore_RejectsUnknownStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, documentModel.DocumentMetadata{Id: "doc-1", Filename: "a.txt", DocType: "X"}))
	assert.Error(t, s.UpdateStatus(ctx, "doc-1", documentModel.Status("DONE")))
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	// inserted out of order on purpose
	require.NoError(t, s.Create(ctx, documentModel.DocumentMetadata{Id: "b", Filename: "b.txt", DocType: "X", CreatedAt: base.Add(120 * time.Millisecond)}))
	require.NoError(t, s.Create(ctx, documentModel.DocumentMetadata{Id: "a", Filename: "a.txt", DocType: "X", CreatedAt: base.Add(100 * time.Millisecond)}))
	require.NoError(t, s.Create(ctx, documentModel.DocumentMetadata{Id: "c", Filename: "c.txt", DocType: "X", CreatedAt: base.Add(time.Second)}))

	docs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{docs[0].Id, docs[1].Id, docs[2].Id})
}

func TestStore_ReopenKeepsRowsAndSkipsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, documentModel.DocumentMetadata{Id: "doc-1", Filename: "a.txt", DocType: "X"}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	docs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	var applied int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)
}
