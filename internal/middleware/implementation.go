package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akolanti/ClinicalRAG/internal/adapter"
	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

type step func(requestResponseStruct) requestResponseStruct

// Wrap runs trace injection, bearer auth and the per-IP limiter before next.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return chain(next, injectTrace, authenticate, rateLimiter)
}

// WrapPublic skips authentication. Used for liveness probes.
func WrapPublic(next http.HandlerFunc) http.HandlerFunc {
	return chain(next, injectTrace)
}

func chain(next http.HandlerFunc, steps ...step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := requestResponseStruct{req: r, writer: rec, logger: logger_i.NewLogger("middleware")}
		re.logger.Debug("New request received", "path", r.URL.Path)

		for _, s := range steps {
			re = s(re)
			if re.badRequest.isBadRequest {
				handleBadRequest(re)
				metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
				return
			}
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(adapter.BadRequest(message))
}
