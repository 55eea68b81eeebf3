package adapter

import (
	"github.com/akolanti/ClinicalRAG/internal/api"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
)

const ingestionSucceeded = "Ingestion réussie"

func ToIngestResponse(docId string) api.IngestResponse {
	return api.IngestResponse{
		Message: ingestionSucceeded,
		DocId:   docId,
	}
}

func ToDocumentResponse(doc documentModel.DocumentMetadata) api.DocumentResponse {
	return api.DocumentResponse{
		Id:        doc.Id,
		Filename:  doc.Filename,
		DocType:   doc.DocType,
		Status:    string(doc.Status),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func ToDocumentList(docs []documentModel.DocumentMetadata) []api.DocumentResponse {
	// never null in JSON
	out := make([]api.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToDocumentResponse(d))
	}
	return out
}

func ToAskResponse(answer string, sources []string) api.AskResponse {
	if sources == nil {
		sources = []string{}
	}
	return api.AskResponse{Answer: answer, Sources: sources}
}

func BadRequest(message string) api.ErrorResponse {
	return api.ErrorResponse{Error: message}
}
