package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem DocumentStore")

// InMemoryDocumentStore is the fallback when the sqlite file cannot be opened. Rows die with the process.
type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]documentModel.DocumentMetadata
}

var _ documentModel.DocumentStore = (*InMemoryDocumentStore)(nil)

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		docs: make(map[string]documentModel.DocumentMetadata),
	}
}

func (s *InMemoryDocumentStore) Create(ctx context.Context, doc documentModel.DocumentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.Id]; exists {
		return fmt.Errorf("document %s already exists", doc.Id)
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.Status == "" {
		doc.Status = documentModel.StatusPending
	}
	s.docs[doc.Id] = doc
	inMemLogger.Debug("Saved document", "id", doc.Id)
	return nil
}

func (s *InMemoryDocumentStore) UpdateStatus(ctx context.Context, id string, status documentModel.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, found := s.docs[id]
	if !found {
		return fmt.Errorf("document %s not found", id)
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	s.docs[id] = doc
	return nil
}

func (s *InMemoryDocumentStore) Get(ctx context.Context, id string) (documentModel.DocumentMetadata, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, found := s.docs[id]
	return doc, found, nil
}

func (s *InMemoryDocumentStore) List(ctx context.Context) ([]documentModel.DocumentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]documentModel.DocumentMetadata, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Id < out[j].Id
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryDocumentStore) Close() error { return nil }
