package flatIndex

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
)

// Snapshot is an immutable view of the index. It is safe for concurrent readers.
type Snapshot struct {
	model   string
	dim     int
	vectors []float32
	entries []documentModel.IndexEntry
}

var _ vectorDB.Searcher = (*Snapshot)(nil)

func newSnapshot(model string, dim int, vectors []float32, entries []documentModel.IndexEntry) *Snapshot {
	return &Snapshot{
		model:   model,
		dim:     dim,
		vectors: vectors[:len(vectors):len(vectors)],
		entries: entries[:len(entries):len(entries)],
	}
}

func (s *Snapshot) Len() int       { return len(s.entries) }
func (s *Snapshot) Dimension() int { return s.dim }
func (s *Snapshot) Model() string  { return s.model }

// Entry returns the metadata of row i.
func (s *Snapshot) Entry(i int) documentModel.IndexEntry { return s.entries[i] }

// Vector returns row i. The slice must not be modified.
func (s *Snapshot) Vector(i int) []float32 { return s.vectors[i*s.dim : (i+1)*s.dim] }

// CountByType groups the entries by their type label.
func (s *Snapshot) CountByType() map[string]int {
	out := make(map[string]int)
	for _, e := range s.entries {
		out[e.Type]++
	}
	return out
}

// Search returns the k rows nearest to query by squared L2 distance, nearest first.
// Equal distances keep row order.
func (s *Snapshot) Search(ctx context.Context, query []float32, k int) ([]vectorDB.Match, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d, index %d", ErrDimensionMismatch, len(query), s.dim)
	}
	if k <= 0 || len(s.entries) == 0 {
		return []vectorDB.Match{}, nil
	}
	k = min(k, len(s.entries))

	h := make(maxHeap, 0, k)
	for row := range s.entries {
		if row%4096 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d := l2(query, s.Vector(row))
		if len(h) < k {
			heap.Push(&h, candidate{row: row, dist: d})
			continue
		}
		if d < h[0].dist {
			h[0] = candidate{row: row, dist: d}
			heap.Fix(&h, 0)
		}
	}

	out := make([]vectorDB.Match, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		c := heap.Pop(&h).(candidate)
		out[i] = vectorDB.Match{Entry: s.entries[c.row], Distance: c.dist}
	}
	return out, nil
}

func l2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

type candidate struct {
	row  int
	dist float32
}

// maxHeap keeps the current worst candidate on top; among equal distances the later row is worse.
type maxHeap []candidate

func (h maxHeap) Len() int { return len(h) }
func (h maxHeap) Less(i, j int) bool {
	if h[i].dist == h[j].dist {
		return h[i].row > h[j].row
	}
	return h[i].dist > h[j].dist
}
func (h maxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)   { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
