// Package ingestor runs one upload through the pipeline entry point:
// record the document, extract its text, hand the text to the raw queue.
package ingestor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/adapter/utils"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/domain/pipelineError"
	"github.com/akolanti/ClinicalRAG/internal/extract"
	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/internal/queue"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

type Upload struct {
	Filename string
	DocType  string
	Content  io.Reader
}

type Service struct {
	store     documentModel.DocumentStore
	extractor extract.Extractor
	publisher queue.Publisher
	rawQueue  string
	uploadDir string
	newId     func() string
	logger    *logger_i.Logger
}

func NewService(store documentModel.DocumentStore, extractor extract.Extractor, publisher queue.Publisher, rawQueue string, uploadDir string) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		publisher: publisher,
		rawQueue:  rawQueue,
		uploadDir: uploadDir,
		newId:     utils.GetNewUUID,
		logger:    logger_i.NewLogger("Ingestor"),
	}
}

// Ingest returns the new document id. On failure the id is still returned when a row was written,
// and the error is an *pipelineError.ExtractionError or *pipelineError.PublishError for the two
// recorded failure statuses.
func (s *Service) Ingest(ctx context.Context, up Upload) (string, error) {
	name := filepath.Base(up.Filename)
	if name == "." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return "", errors.New("missing filename")
	}

	now := time.Now().UTC()
	doc := documentModel.DocumentMetadata{
		Id:        s.newId(),
		Filename:  name,
		DocType:   up.DocType,
		Status:    documentModel.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	log := s.logger.WithTrace(ctx).With("docId", doc.Id, "filename", name)
	if err := s.store.Create(ctx, doc); err != nil {
		return "", fmt.Errorf("record document: %w", err)
	}
	log.Info("Document recorded", "docType", up.DocType)

	text, err := s.extractUpload(ctx, doc.Id, name, up.Content)
	if err == nil && strings.TrimSpace(text) == "" {
		err = pipelineError.ErrEmptyText
	}
	if err != nil {
		log.Warn("Extraction failed", "error", err)
		s.setStatus(ctx, log, doc.Id, documentModel.StatusErrorExtraction)
		return doc.Id, &pipelineError.ExtractionError{DocId: doc.Id, Err: err}
	}

	msg := documentModel.RawDocumentMessage{
		DocId:    doc.Id,
		Text:     text,
		Metadata: documentModel.MessageMetadata{Filename: name, Type: up.DocType},
	}
	if err := s.publisher.Publish(ctx, s.rawQueue, msg); err != nil {
		log.Error("Publish failed", "queue", s.rawQueue, "error", err)
		s.setStatus(ctx, log, doc.Id, documentModel.StatusErrorQueue)
		return doc.Id, &pipelineError.PublishError{Queue: s.rawQueue, DocId: doc.Id, Err: err}
	}

	s.setStatus(ctx, log, doc.Id, documentModel.StatusProcessed)
	log.Info("Document queued", "queue", s.rawQueue, "chars", len([]rune(text)))
	return doc.Id, nil
}

// extractUpload stores the upload as {id}_{filename} for the extractor and removes it afterwards.
func (s *Service) extractUpload(ctx context.Context, id string, name string, content io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("upload directory: %w", err)
	}
	path := filepath.Join(s.uploadDir, id+"_"+name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage error: %w", err)
	}
	defer os.Remove(path)

	_, err = io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write error: %w", err)
	}
	return s.extractor.Extract(ctx, path)
}

// setStatus records the outcome. The response already reflects it, so a failed update is only logged.
func (s *Service) setStatus(ctx context.Context, log *logger_i.Logger, id string, status documentModel.Status) {
	metrics.CountIngestion(string(status))
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		log.Error("Status update failed", "status", status, "error", err)
	}
}

func (s *Service) List(ctx context.Context) ([]documentModel.DocumentMetadata, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (documentModel.DocumentMetadata, bool, error) {
	return s.store.Get(ctx, id)
}
