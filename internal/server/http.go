package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/somno/internal/edf"
	"github.com/alfredjeanlab/somno/internal/model"
	"github.com/alfredjeanlab/somno/internal/recordings"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *Server) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/predict", s.handlePredict)
	mux.HandleFunc("OPTIONS /v1/predict", s.handlePredictOptions)
	// Path used by the web front end.
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("OPTIONS /api/predict", s.handlePredictOptions)
	mux.HandleFunc("GET /v1/files", s.handleListFiles)
	mux.HandleFunc("GET /v1/files/{name}", s.handleFileInfo)
	mux.HandleFunc("GET /v1/recordings", s.handleListRecordings)
	mux.HandleFunc("GET /v1/synthetic", s.handleSynthetic)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", s.metricsHandler())

	return s.LoggingMiddleware(RecoveryMiddleware(CORSMiddleware(s.cfg.CORSOrigin, mux)))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	hasModel, hasSample := s.dispatcher.Availability()
	h := model.Health{Status: "ok", ModelAvailable: hasModel, SampleAvailable: hasSample}
	if recs, err := s.catalog.List(r.Context()); err == nil {
		h.Recordings = len(recs)
	}
	writeJSON(w, http.StatusOK, h)
}

// queryInt parses an optional non-negative integer parameter.
func queryInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return n, nil
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

// writeCatalogError maps catalog and header errors to HTTP statuses.
func writeCatalogError(w http.ResponseWriter, err error) {
	status, msg := catalogErrorStatus(err)
	writeError(w, status, msg)
}

// catalogErrorStatus maps a catalog error to a status code and message.
func catalogErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, recordings.ErrInvalidName):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, recordings.ErrNotFound):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, edf.ErrInvalidHeader):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "failed to read recording"
	}
}
