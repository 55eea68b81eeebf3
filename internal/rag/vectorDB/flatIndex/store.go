package flatIndex

import (
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

// Store is the single writer of one file pair. All mutation goes through AppendAndPersist.
type Store struct {
	mu      sync.Mutex
	paths   Paths
	model   string
	dim     int
	vectors []float32
	entries []documentModel.IndexEntry
	logger  *logger_i.Logger
}

// NewStore starts an empty index that will be written to paths.
func NewStore(paths Paths, model string, dim int) *Store {
	return &Store{
		paths:   paths,
		model:   model,
		dim:     dim,
		entries: []documentModel.IndexEntry{},
		logger:  logger_i.NewLogger("FlatIndex"),
	}
}

// OpenStore loads the pair at paths for writing. It refuses an index built
// with another embedding model or dimension.
func OpenStore(paths Paths, model string, dim int) (*Store, error) {
	snap, err := Load(paths)
	if err != nil {
		return nil, err
	}
	if snap.model != model {
		return nil, fmt.Errorf("%w: index has %q, configured %q", ErrModelMismatch, snap.model, model)
	}
	if snap.dim != dim {
		return nil, fmt.Errorf("%w: index has %d, configured %d", ErrDimensionMismatch, snap.dim, dim)
	}
	s := NewStore(paths, model, dim)
	s.vectors = append([]float32(nil), snap.vectors...)
	s.entries = append(s.entries, snap.entries...)
	s.logger.Info("Index loaded", "entries", len(s.entries), "model", model)
	return s, nil
}

// OpenOrCreate opens the pair at paths, or reports created=true with an empty store when it does not exist.
func OpenOrCreate(paths Paths, model string, dim int) (store *Store, created bool, err error) {
	store, err = OpenStore(paths, model, dim)
	if errors.Is(err, ErrIndexNotFound) {
		return NewStore(paths, model, dim), true, nil
	}
	return store, false, err
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) Model() string { return s.model }
func (s *Store) Dimension() int { return s.dim }

// AppendAndPersist adds one row per entry and saves the pair before returning.
// When the save fails the rows are dropped again so memory matches disk.
func (s *Store) AppendAndPersist(vectors [][]float32, entries []documentModel.IndexEntry) error {
	if len(vectors) != len(entries) {
		return fmt.Errorf("mismatch: got %d entries but %d vectors", len(entries), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != s.dim {
			return fmt.Errorf("%w: vector %d has %d, index %d", ErrDimensionMismatch, i, len(v), s.dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, floats := len(s.entries), len(s.vectors)
	for i := range vectors {
		s.vectors = append(s.vectors, vectors[i]...)
		s.entries = append(s.entries, entries[i])
	}

	if err := save(s.paths, s.model, s.dim, s.vectors, s.entries); err != nil {
		s.vectors = s.vectors[:floats]
		s.entries = s.entries[:rows]
		s.logger.Error("Persist failed, append rolled back", "error", err, "entries", rows)
		return err
	}
	s.logger.Debug("Index persisted", "added", len(entries), "entries", len(s.entries))
	return nil
}

// Persist saves the current rows, used to write an empty bootstrap.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(s.paths, s.model, s.dim, s.vectors, s.entries)
}

// Snapshot returns a read only view of the committed rows.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newSnapshot(s.model, s.dim, s.vectors, s.entries)
}
