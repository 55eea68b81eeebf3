package documentModel

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMessageMetadata_KeepsUnknownKeys(t *testing.T) {
	in := `{"doc_id":"d1","text":"x","metadata":{"filename":"cr.pdf","type":"CR","service":"cardio","pages":3}}`
	var raw RawDocumentMessage
	if err := json.Unmarshal([]byte(in), &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Metadata.Filename != "cr.pdf" || raw.Metadata.Type != "CR" {
		t.Fatalf("known keys lost: %+v", raw.Metadata)
	}
	if string(raw.Metadata.Extra["service"]) != `"cardio"` || string(raw.Metadata.Extra["pages"]) != "3" {
		t.Fatalf("extra keys lost: %v", raw.Metadata.Extra)
	}

	out, err := json.Marshal(CleanDocumentMessage{DocId: raw.DocId, Metadata: raw.Metadata})
	if err != nil {
		t.Fatal(err)
	}
	want := `"metadata":{"filename":"cr.pdf","pages":3,"service":"cardio","type":"CR"}`
	if !strings.Contains(string(out), want) {
		t.Errorf("got %s; want it to contain %s", out, want)
	}
}

func TestMessageMetadata_EmptyAndNull(t *testing.T) {
	out, err := json.Marshal(MessageMetadata{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "{}" {
		t.Errorf("empty metadata = %s; want {}", out)
	}

	var raw RawDocumentMessage
	if err := json.Unmarshal([]byte(`{"doc_id":"d","text":"t","metadata":null}`), &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Metadata.Filename != "" || raw.Metadata.Extra != nil {
		t.Errorf("null metadata decoded as %+v", raw.Metadata)
	}
}
