package deid

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/domain/pipelineError"
	"github.com/akolanti/ClinicalRAG/internal/queue"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

const stage = "deid"

// Service turns raw document messages into masked ones for the indexer.
type Service struct {
	masker      *Masker
	publisher   queue.Publisher
	sourceQueue string
	outputQueue string
	now         func() time.Time
	logger      *logger_i.Logger
}

func NewService(masker *Masker, publisher queue.Publisher, sourceQueue string, outputQueue string) *Service {
	return &Service{
		masker:      masker,
		publisher:   publisher,
		sourceQueue: sourceQueue,
		outputQueue: outputQueue,
		now:         time.Now,
		logger:      logger_i.NewLogger("DeID"),
	}
}

// NewMaskerFromSettings wires the built-in recognizers and, when configured, the external analyzer.
func NewMaskerFromSettings(settings *config.Settings, client *http.Client) *Masker {
	entities := append([]Entity(nil), DefaultEntities...)
	if settings.DeIDIncludeLocation {
		entities = append(entities, Location)
	}
	var analyzer Analyzer
	if settings.PIIAnalyzerURL != "" {
		analyzer = NewAnalyzerClient(settings.PIIAnalyzerURL, settings.PIILanguage, entities, client, config.PIIAnalyzerTimeout)
	}
	return NewMasker(entities, analyzer)
}

// Handle is the queue handler: parse, mask, publish. The caller acks on nil.
func (s *Service) Handle(ctx context.Context, body []byte) error {
	var raw documentModel.RawDocumentMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return &pipelineError.ParseError{Queue: s.sourceQueue, Err: err}
	}
	log := s.logger.WithTrace(ctx).With("docId", raw.DocId)
	log.Info("Received document", "chars", len([]rune(raw.Text)))

	clean, err := s.Process(ctx, raw)
	if err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, s.outputQueue, clean); err != nil {
		return &pipelineError.PublishError{Queue: s.outputQueue, DocId: raw.DocId, Err: err}
	}
	log.Info("Document anonymized", "queue", s.outputQueue)
	return nil
}

func (s *Service) Process(ctx context.Context, raw documentModel.RawDocumentMessage) (documentModel.CleanDocumentMessage, error) {
	masked, err := s.masker.Mask(ctx, raw.Text)
	if err != nil {
		return documentModel.CleanDocumentMessage{}, &pipelineError.ProcessingError{Stage: stage, DocId: raw.DocId, Err: err}
	}
	now := s.now()
	return documentModel.CleanDocumentMessage{
		DocId:              raw.DocId,
		OriginalTextMasked: masked,
		Metadata:           raw.Metadata,
		ProcessedAt:        float64(now.UnixNano()) / float64(time.Second),
	}, nil
}
