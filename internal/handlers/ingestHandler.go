package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/akolanti/ClinicalRAG/internal/adapter"
	"github.com/akolanti/ClinicalRAG/internal/adapter/utils"
	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/domain/pipelineError"
	"github.com/akolanti/ClinicalRAG/internal/ingestor"
)

const extractionFailed = "Impossible d'extraire le texte"

// IngestService is the part of ingestor.Service the HTTP layer needs.
type IngestService interface {
	Ingest(ctx context.Context, up ingestor.Upload) (string, error)
	List(ctx context.Context) ([]documentModel.DocumentMetadata, error)
	Get(ctx context.Context, id string) (documentModel.DocumentMetadata, bool, error)
}

var (
	ingestInstance IngestService
	ingestOnce     sync.Once
)

func InitIngestHandler(service IngestService) {
	ingestOnce.Do(func() {
		ingestInstance = service
		logRH.Info("Starting ingest handler")
	})
}

// PostIngestHandler godoc
// @Summary      Upload a clinical document
// @Description  Records the upload, extracts its text and queues it for de-identification. The call is synchronous.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        file      formData  file    true  "PDF, DOCX, ODT, RTF or TXT document"
// @Param        doc_type  formData  string  true  "Document type, e.g. CR_HOSPITALISATION"
// @Success      200  {object}  api.IngestResponse
// @Failure      400  {object}  api.ErrorResponse  "Missing file or doc_type"
// @Failure      422  {object}  api.ErrorResponse  "No text could be extracted"
// @Failure      502  {object}  api.ErrorResponse  "Queue unavailable"
// @Failure      500  {object}  api.ErrorResponse
// @Router       /ingest/ [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	log := logRH.WithTrace(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "File too large or bad request")
		return
	}

	docType := r.FormValue("doc_type")
	if docType == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "doc_type is required")
		return
	}
	fileReader, fileMetadata, err := r.FormFile("file")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "file is required")
		return
	}
	defer fileReader.Close()

	id, err := ingestInstance.Ingest(r.Context(), ingestor.Upload{
		Filename: fileMetadata.Filename,
		DocType:  docType,
		Content:  fileReader,
	})
	if err != nil {
		var extractionErr *pipelineError.ExtractionError
		var publishErr *pipelineError.PublishError
		switch {
		case errors.As(err, &extractionErr):
			WriteErrorResponse(w, http.StatusUnprocessableEntity, extractionFailed)
		case errors.As(err, &publishErr):
			WriteErrorResponse(w, http.StatusBadGateway, publishErr.Err.Error())
		default:
			log.Error("Ingestion failed", "docId", id, "error", err)
			WriteErrorResponse(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToIngestResponse(id))
}

// ListDocumentsHandler godoc
// @Summary      List uploaded documents
// @Description  Every recorded upload with its pipeline status, oldest first.
// @Tags         Documents
// @Produce      json
// @Success      200  {array}   api.DocumentResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /documents/ [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	docs, err := ingestInstance.List(r.Context())
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Listing documents failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentList(docs))
}

// GetDocumentHandler godoc
// @Summary      Get one document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, found, err := ingestInstance.Get(r.Context(), id)
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Reading document failed", "id", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}
