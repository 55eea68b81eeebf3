package handlers

import (
	"net/http"

	"github.com/akolanti/ClinicalRAG/internal/api"
)

// HealthHandler answers liveness probes for service.
// @Summary      Liveness probe
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func HealthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok", Service: service})
	}
}

// IndexProbe reports the loaded index, ok is false while degraded.
type IndexProbe func() (entries int, model string, ok bool)

// ReadyHandler godoc
// @Summary      Readiness probe
// @Description  200 with the index size once an index is loaded, 503 while degraded.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.ReadyResponse
// @Failure      503  {object}  api.UnavailableResponse
// @Router       /ready [get]
func ReadyHandler(probe IndexProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, model, ok := probe()
		if !ok {
			writeUnavailable(w)
			return
		}
		writeJsonResponse(w, http.StatusOK, api.ReadyResponse{Status: "ready", Entries: entries, Model: model})
	}
}
