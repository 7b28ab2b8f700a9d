package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groblegark/audittrail/internal/audit"
	"github.com/groblegark/audittrail/internal/model"
	"github.com/groblegark/audittrail/internal/payload"
)

// NewHTTPHandler returns an http.Handler with all routes registered and the
// middleware chain applied. When authToken is non-empty, requests (except
// GET /v1/health and GET /metrics) must include a valid
// Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("GET /v1/events/{id}", s.handleGetEvent)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = AuthMiddleware(authToken, h)
	h = RecoveryMiddleware(s.logger, h)
	h = LoggingMiddleware(s.logger, h)
	h = RequestIDMiddleware(h)
	return h
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("health check", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto status codes: invalid queries
// are the caller's fault, missing rows are 404, storage trouble and an
// unbuilt view are 503, and a payload that cannot be read back is a 500
// because the log itself is damaged.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var qe model.QueryError
	var se *audit.StorageError
	var re *payload.ReadError
	switch {
	case errors.As(err, &qe):
		writeError(w, http.StatusBadRequest, qe.Error())
	case errors.Is(err, audit.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, audit.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, "snapshot not initialized")
	case errors.As(err, &se):
		s.logger.Error("storage error", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	case errors.As(err, &re):
		s.logger.Error("payload read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "payload read failed")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
