package documentModel

import (
	"context"
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusErrorExtraction Status = "ERROR_EXTRACTION"
	StatusErrorQueue      Status = "ERROR_QUEUE"
)

// DocumentMetadata is the ingestor's record of one upload. Rows are never deleted.
type DocumentMetadata struct {
	Id        string    `json:"id"`
	Filename  string    `json:"filename"`
	DocType   string    `json:"doc_type"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageMetadata travels unchanged from the ingestor to the indexer.
// Keys other than filename and type are kept in Extra as raw JSON.
type MessageMetadata struct {
	Filename string
	Type     string
	Extra    map[string]json.RawMessage
}

func (m MessageMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Filename != "" {
		out["filename"] = m.Filename
	}
	if m.Type != "" {
		out["type"] = m.Type
	}
	return json.Marshal(out)
}

func (m *MessageMetadata) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*m = MessageMetadata{}
	for k, v := range fields {
		switch k {
		case "filename":
			if err := json.Unmarshal(v, &m.Filename); err != nil {
				return err
			}
		case "type":
			if err := json.Unmarshal(v, &m.Type); err != nil {
				return err
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]json.RawMessage)
			}
			m.Extra[k] = v
		}
	}
	return nil
}

type RawDocumentMessage struct {
	DocId    string          `json:"doc_id"`
	Text     string          `json:"text"`
	Metadata MessageMetadata `json:"metadata"`
}

type CleanDocumentMessage struct {
	DocId              string          `json:"doc_id"`
	OriginalTextMasked string          `json:"original_text_masked"`
	Metadata           MessageMetadata `json:"metadata"`
	ProcessedAt        float64         `json:"processed_at"`
}

// IndexEntry is the metadata row aligned with one vector of the index.
type IndexEntry struct {
	DocId       string `json:"doc_id"`
	TextContent string `json:"text_content"`
	Source      string `json:"source"`
	Type        string `json:"type"`
}

type DocumentStore interface {
	Create(ctx context.Context, doc DocumentMetadata) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	Get(ctx context.Context, id string) (DocumentMetadata, bool, error)
	List(ctx context.Context) ([]DocumentMetadata, error)
	Close() error
}
