package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/akolanti/ClinicalRAG/internal/adapter"
	"github.com/akolanti/ClinicalRAG/internal/api"
	"github.com/akolanti/ClinicalRAG/internal/rag"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
)

const indexNotLoaded = "Index non chargé."

var (
	askInstance rag.Service
	askOnce     sync.Once
)

func InitAskHandler(service rag.Service) {
	askOnce.Do(func() {
		askInstance = service
		logRH.Info("Starting ask handler")
	})
}

// AskHandler godoc
// @Summary      Ask a clinical question
// @Description  Retrieves the three closest passages and has the LLM answer from them.
// @Tags         QA
// @Accept       json
// @Produce      json
// @Param        request  body      api.AskRequest  true  "Practitioner question"
// @Success      200      {object}  api.AskResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      503      {object}  api.UnavailableResponse  "Index not loaded"
// @Failure      500      {object}  api.ErrorResponse
// @Router       /ask/ [post]
func AskHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var req api.AskRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logRH.WithTrace(r.Context()).Warn("Bad ask request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request")
		return
	}

	answer, err := askInstance.Ask(r.Context(), req.Question)
	switch {
	case err == nil:
		writeJsonResponse(w, http.StatusOK, adapter.ToAskResponse(answer.Text, answer.Sources))
	case errors.Is(err, rag.ErrEmptyQuestion):
		WriteErrorResponse(w, http.StatusBadRequest, "question is required")
	case errors.Is(err, vectorDB.ErrIndexUnavailable):
		writeUnavailable(w)
	default:
		logRH.WithTrace(r.Context()).Error("Ask failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
