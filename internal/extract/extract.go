// Package extract turns an uploaded file into plain text for the ingestor.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

type FileKind string

const (
	PDF         FileKind = "PDF"
	Word        FileKind = "WORD"
	Unsupported FileKind = "UNSUPPORTED"
)

var ErrUnsupportedType = errors.New("unsupported file type")

var logger = logger_i.NewLogger("extract")

type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// FileExtractor dispatches on the file extension.
type FileExtractor struct{}

func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

func KindOf(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDF
	case ".docx", ".odt", ".rtf", ".txt", ".md", ".csv":
		return Word
	default:
		return Unsupported
	}
}

func (e *FileExtractor) Extract(ctx context.Context, path string) (string, error) {
	log := logger.WithTrace(ctx)
	kind := KindOf(path)
	log.Debug("extracting", "path", path, "kind", kind)

	switch kind {
	case PDF:
		pages, err := extractPDF(ctx, path)
		if err != nil {
			return "", err
		}
		return strings.Join(pages, "\n"), nil
	case Word:
		return extractDocument(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}
}
