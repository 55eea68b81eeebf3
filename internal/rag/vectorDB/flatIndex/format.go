// Package flatIndex is the exact L2 vector index shared by the indexer and the QA service.
//
// It is persisted as a file pair: a binary vector file and a JSON metadata file whose
// entries are position aligned with the vector rows. The metadata file is written last
// and carries the SHA-256 of the vector file, so a torn write is detected on load.
package flatIndex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
)

const (
	FormatVersion uint16 = 1
	SchemaVersion        = 1
	headerSize           = 4 + 2 + 4 + 8
)

var magic = [4]byte{'C', 'R', 'V', 'X'}

var (
	ErrIndexNotFound     = errors.New("index files not found")
	ErrIndexCorrupt      = errors.New("index files are corrupt")
	ErrIndexVersion      = errors.New("unsupported index version")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrModelMismatch     = errors.New("index built with another embedding model")
)

type header struct {
	Version   uint16
	Dimension uint32
	Count     uint64
}

type metadataFile struct {
	SchemaVersion  int                        `json:"schema_version"`
	EmbeddingModel string                     `json:"embedding_model"`
	Dimension      int                        `json:"dimension"`
	Count          int                        `json:"count"`
	IndexSHA256    string                     `json:"index_sha256"`
	Entries        []documentModel.IndexEntry `json:"entries"`
}

func encodeIndex(w io.Writer, dim int, vectors []float32) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	h := header{Version: FormatVersion, Dimension: uint32(dim)}
	if dim > 0 {
		h.Count = uint64(len(vectors) / dim)
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, vectors)
}

func decodeIndex(data []byte) (header, []float32, error) {
	var h header
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return h, nil, fmt.Errorf("%w: bad magic", ErrIndexCorrupt)
	}
	r := bytes.NewReader(data[4:])
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	if h.Version != FormatVersion {
		return h, nil, fmt.Errorf("%w: vector file version %d", ErrIndexVersion, h.Version)
	}
	want := uint64(h.Dimension) * h.Count * 4
	if uint64(r.Len()) != want {
		return h, nil, fmt.Errorf("%w: expected %d payload bytes, found %d", ErrIndexCorrupt, want, r.Len())
	}
	vectors := make([]float32, int(h.Dimension)*int(h.Count))
	if err := binary.Read(r, binary.LittleEndian, vectors); err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	return h, vectors, nil
}
