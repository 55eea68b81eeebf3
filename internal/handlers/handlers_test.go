package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/api"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/domain/pipelineError"
	"github.com/akolanti/ClinicalRAG/internal/ingestor"
	"github.com/akolanti/ClinicalRAG/internal/rag"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
	"github.com/go-chi/chi/v5"
)

type mockIngest struct {
	OnIngest func(ctx context.Context, up ingestor.Upload) (string, error)
	docs     []documentModel.DocumentMetadata
}

func (m *mockIngest) Ingest(ctx context.Context, up ingestor.Upload) (string, error) {
	return m.OnIngest(ctx, up)
}

func (m *mockIngest) List(ctx context.Context) ([]documentModel.DocumentMetadata, error) {
	return m.docs, nil
}

func (m *mockIngest) Get(ctx context.Context, id string) (documentModel.DocumentMetadata, bool, error) {
	for _, d := range m.docs {
		if d.Id == id {
			return d, true, nil
		}
	}
	return documentModel.DocumentMetadata{}, false, nil
}

type mockAsk struct {
	OnAsk func(ctx context.Context, q string) (rag.Answer, error)
}

func (m *mockAsk) Ask(ctx context.Context, q string) (rag.Answer, error) { return m.OnAsk(ctx, q) }

func multipartBody(t *testing.T, filename, content, docType string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if docType != "" {
		mw.WriteField("doc_type", docType)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestPostIngestHandler(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		docType    string
		ingestErr  error
		wantStatus int
		wantBody   string
	}{
		{"success", "cr.txt", "CR", nil, http.StatusOK, `"doc_id":"doc-1"`},
		{"missing doc_type", "cr.txt", "", nil, http.StatusBadRequest, "doc_type is required"},
		{"missing file", "", "CR", nil, http.StatusBadRequest, "file is required"},
		{"extraction failed", "cr.txt", "CR", &pipelineError.ExtractionError{DocId: "doc-1", Err: pipelineError.ErrEmptyText}, http.StatusUnprocessableEntity, "Impossible d'extraire le texte"},
		{"queue failed", "cr.txt", "CR", &pipelineError.PublishError{Queue: "raw", DocId: "doc-1", Err: errors.New("no responders")}, http.StatusBadGateway, "no responders"},
		{"store failed", "cr.txt", "CR", errors.New("disk full"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ingestor.Upload
			ingestInstance = &mockIngest{OnIngest: func(ctx context.Context, up ingestor.Upload) (string, error) {
				got = up
				return "doc-1", tt.ingestErr
			}}
			body, contentType := multipartBody(t, tt.filename, "texte", tt.docType)
			req := httptest.NewRequest(http.MethodPost, "/ingest/", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			PostIngestHandler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d; want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %s does not contain %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusOK && (got.Filename != "cr.txt" || got.DocType != "CR") {
				t.Errorf("upload passed as %+v", got)
			}
		})
	}
}

func TestDocumentsHandlers(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ingestInstance = &mockIngest{docs: []documentModel.DocumentMetadata{
		{Id: "a", Filename: "a.pdf", DocType: "CR", Status: documentModel.StatusProcessed, CreatedAt: created, UpdatedAt: created},
	}}

	r := chi.NewRouter()
	r.Get("/documents/", ListDocumentsHandler)
	r.Get("/documents/{id}", GetDocumentHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/", nil))
	var list []api.DocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != "PROCESSED" || list[0].Filename != "a.pdf" {
		t.Errorf("unexpected list %+v", list)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/a", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d; want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d; want 404", rec.Code)
	}
}

func TestDocumentsHandler_EmptyIsArray(t *testing.T) {
	ingestInstance = &mockIngest{}
	rec := httptest.NewRecorder()
	ListDocumentsHandler(rec, httptest.NewRequest(http.MethodGet, "/documents/", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q; want []", rec.Body.String())
	}
}

func TestAskHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		answer     rag.Answer
		err        error
		wantStatus int
		wantBody   string
	}{
		{"answer", `{"question":"Vide de Qi ?"}`, rag.Answer{Text: "1. Ren Shen", Sources: []string{"matrice.csv"}}, nil, http.StatusOK, `"sources":["matrice.csv"]`},
		{"degraded", `{"question":"q"}`, rag.Answer{}, vectorDB.ErrIndexUnavailable, http.StatusServiceUnavailable, `{"detail":"Index non chargé."}`},
		{"empty question", `{"question":""}`, rag.Answer{}, rag.ErrEmptyQuestion, http.StatusBadRequest, "question is required"},
		{"malformed", `{"question":`, rag.Answer{}, nil, http.StatusBadRequest, "Bad Request"},
		{"llm down", `{"question":"q"}`, rag.Answer{}, errors.New("timeout"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			askInstance = &mockAsk{OnAsk: func(ctx context.Context, q string) (rag.Answer, error) {
				return tt.answer, tt.err
			}}
			rec := httptest.NewRecorder()
			AskHandler(rec, httptest.NewRequest(http.MethodPost, "/ask/", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d; want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %s does not contain %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler("llm-qa")(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok","service":"llm-qa"}` {
		t.Errorf("health body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	ReadyHandler(func() (int, string, bool) { return 0, "", false })(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded ready = %d; want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	ReadyHandler(func() (int, string, bool) { return 12, "ollama/all-minilm", true })(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"entries":12`) {
		t.Errorf("ready = %d %s", rec.Code, rec.Body.String())
	}
}
