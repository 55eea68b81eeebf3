package flatIndex

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
)

// Paths names the two files of one index.
type Paths struct {
	Index    string
	Metadata string
}

// writeAtomic writes path through a temp file in the same directory, fsyncs it, then renames it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriter(tmp)
	if err := write(buf); err != nil {
		tmp.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// not every filesystem supports fsync on a directory
	_ = d.Sync()
	return nil
}

// save writes the vector file, then the metadata file that commits it.
func save(p Paths, model string, dim int, vectors []float32, entries []documentModel.IndexEntry) error {
	var idx bytes.Buffer
	if err := encodeIndex(&idx, dim, vectors); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	sum := sha256.Sum256(idx.Bytes())

	if err := writeAtomic(p.Index, func(w io.Writer) error {
		_, err := w.Write(idx.Bytes())
		return err
	}); err != nil {
		return fmt.Errorf("write %s: %w", p.Index, err)
	}

	if entries == nil {
		entries = []documentModel.IndexEntry{}
	}
	meta := metadataFile{
		SchemaVersion:  SchemaVersion,
		EmbeddingModel: model,
		Dimension:      dim,
		Count:          len(entries),
		IndexSHA256:    hex.EncodeToString(sum[:]),
		Entries:        entries,
	}

	if err := writeAtomic(p.Metadata, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", " ")
		return enc.Encode(meta)
	}); err != nil {
		return fmt.Errorf("write %s: %w", p.Metadata, err)
	}
	return nil
}

// Load reads and verifies a file pair.
func Load(p Paths) (*Snapshot, error) {
	metaBytes, err := os.ReadFile(p.Metadata)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, p.Metadata)
	}
	if err != nil {
		return nil, err
	}
	idxBytes, err := os.ReadFile(p.Index)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, p.Index)
	}
	if err != nil {
		return nil, err
	}

	var meta metadataFile
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrIndexCorrupt, err)
	}
	if meta.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: metadata schema %d", ErrIndexVersion, meta.SchemaVersion)
	}

	sum := sha256.Sum256(idxBytes)
	if hex.EncodeToString(sum[:]) != meta.IndexSHA256 {
		return nil, fmt.Errorf("%w: checksum drift between %s and %s", ErrIndexCorrupt, p.Index, p.Metadata)
	}

	h, vectors, err := decodeIndex(idxBytes)
	if err != nil {
		return nil, err
	}
	if int(h.Dimension) != meta.Dimension {
		return nil, fmt.Errorf("%w: vector file has %d, metadata %d", ErrDimensionMismatch, h.Dimension, meta.Dimension)
	}
	if int(h.Count) != meta.Count || len(meta.Entries) != meta.Count {
		return nil, fmt.Errorf("%w: ntotal %d, count %d, entries %d", ErrIndexCorrupt, h.Count, meta.Count, len(meta.Entries))
	}
	return newSnapshot(meta.EmbeddingModel, meta.Dimension, vectors, meta.Entries), nil
}
