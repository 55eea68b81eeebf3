package qdrantDB

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestEntryFromPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"doc_id":       "d1",
		"text_content": "chunk",
		"source":       "Dossier Patient d1",
		"type":         "patient_file",
	})
	e := entryFromPayload(payload)
	if e.DocId != "d1" || e.TextContent != "chunk" || e.Source != "Dossier Patient d1" || e.Type != "patient_file" {
		t.Errorf("unexpected entry %+v", e)
	}

	// missing keys read as empty strings
	if got := entryFromPayload(map[string]*qdrant.Value{}); got.Source != "" {
		t.Errorf("expected empty source, got %q", got.Source)
	}
}
