package api

import "time"

// responses---------------------

type IngestResponse struct {
	Message string `json:"message" example:"Ingestion réussie"`
	DocId   string `json:"doc_id" example:"7f1c5a8e-3b0e-4f5e-9a43-0d1f0c3f1a2b"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"Impossible d'extraire le texte"`
}

// UnavailableResponse is the body of a 503 from the QA service.
type UnavailableResponse struct {
	Detail string `json:"detail" example:"Index non chargé."`
}

type DocumentResponse struct {
	Id        string    `json:"id"`
	Filename  string    `json:"filename" example:"cr_hospitalisation.pdf"`
	DocType   string    `json:"doc_type" example:"CR_HOSPITALISATION"`
	Status    string    `json:"status" example:"PROCESSED"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Service string `json:"service" example:"llm-qa"`
}

type ReadyResponse struct {
	Status  string `json:"status" example:"ready"`
	Entries int    `json:"entries"`
	Model   string `json:"embedding_model"`
}

// requests---------------------

type AskRequest struct {
	Question string `json:"question" validate:"required" example:"Quelles plantes pour un Vide de Qi ?"`
}
