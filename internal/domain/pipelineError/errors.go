// Package pipelineError holds the failure classes shared by the ingestor and the queue workers.
// Every class wraps its cause so errors.Is / errors.As keep working through it.
package pipelineError

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindExtraction Kind = "extraction"
	KindPublish    Kind = "publish"
	KindParse      Kind = "parse"
	KindProcessing Kind = "processing"
	KindUnknown    Kind = "unknown"
)

type ExtractionError struct {
	DocId string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for document %s: %v", e.DocId, e.Err)
}
func (e *ExtractionError) Unwrap() error { return e.Err }
func (e *ExtractionError) Kind() Kind    { return KindExtraction }

type PublishError struct {
	Queue string
	DocId string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish of document %s to %s failed: %v", e.DocId, e.Queue, e.Err)
}
func (e *PublishError) Unwrap() error { return e.Err }
func (e *PublishError) Kind() Kind    { return KindPublish }

type ParseError struct {
	Queue string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed message on %s: %v", e.Queue, e.Err)
}
func (e *ParseError) Unwrap() error { return e.Err }
func (e *ParseError) Kind() Kind    { return KindParse }

type ProcessingError struct {
	Stage string
	DocId string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s failed for document %s: %v", e.Stage, e.DocId, e.Err)
}
func (e *ProcessingError) Unwrap() error { return e.Err }
func (e *ProcessingError) Kind() Kind    { return KindProcessing }

// ErrEmptyText is the cause recorded when extraction succeeds but yields only whitespace.
var ErrEmptyText = errors.New("no text could be extracted")

// KindOf reports the failure class of err, looking through wrapping.
func KindOf(err error) Kind {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}
