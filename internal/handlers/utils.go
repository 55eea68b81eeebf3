package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/akolanti/ClinicalRAG/internal/adapter"
	"github.com/akolanti/ClinicalRAG/internal/api"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

// validateContext reports whether the client is still waiting for an answer.
func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.WithTrace(ctx).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(message))
}

func writeUnavailable(w http.ResponseWriter) {
	writeJsonResponse(w, http.StatusServiceUnavailable, api.UnavailableResponse{Detail: indexNotLoaded})
}
