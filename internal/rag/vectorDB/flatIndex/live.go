package flatIndex

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Live serves searches from the latest good snapshot of a pair written by another process.
type Live struct {
	paths   Paths
	model   string
	current atomic.Pointer[Snapshot]
	logger  *logger_i.Logger
}

var _ vectorDB.Searcher = (*Live)(nil)

func NewLive(paths Paths, model string) *Live {
	return &Live{paths: paths, model: model, logger: logger_i.NewLogger("LiveIndex")}
}

// Reload loads the pair and swaps it in. On failure the previous snapshot, if any, stays in service.
func (l *Live) Reload() error {
	snap, err := Load(l.paths)
	if err == nil && snap.model != l.model {
		err = fmt.Errorf("%w: index has %q, configured %q", ErrModelMismatch, snap.model, l.model)
	}
	if err != nil {
		metrics.SetIndexLoaded(l.current.Load() != nil)
		return err
	}
	l.current.Store(snap)
	metrics.SetIndexLoaded(true)
	metrics.SetIndexEntries(snap.Len())
	l.logger.Info("Index snapshot loaded", "entries", snap.Len(), "model", snap.model)
	return nil
}

// Current returns the snapshot in service, nil while degraded.
func (l *Live) Current() *Snapshot {
	return l.current.Load()
}

func (l *Live) Search(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error) {
	snap := l.current.Load()
	if snap == nil {
		return nil, vectorDB.ErrIndexUnavailable
	}
	return snap.Search(ctx, vector, k)
}

// Watch reloads whenever the metadata file is replaced, until ctx ends.
func (l *Live) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// watch the directory, renames replace the file inode
	dir := filepath.Dir(l.paths.Metadata)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(l.paths.Metadata)
	l.logger.Info("Watching index", "file", target)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("Index watcher error", "error", err)
		case <-debounce:
			debounce = nil
			if err := l.Reload(); err != nil {
				l.logger.Error("Index reload failed, keeping previous snapshot", "error", err)
			}
		}
	}
}
