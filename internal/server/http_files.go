package server

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/somno/internal/idgen"
	"github.com/alfredjeanlab/somno/internal/model"
	"github.com/alfredjeanlab/somno/internal/synth"
)

const (
	defaultSyntheticWindows = 12
	// maxSyntheticWindows is 24 hours of 30-second windows.
	maxSyntheticWindows = 2880
)

// handleListFiles handles GET /v1/files.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	names, err := s.catalog.Names(r.Context())
	if err != nil {
		slog.Error("list recordings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recordings")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": names})
}

// handleListRecordings handles GET /v1/recordings. With details=true each
// recording carries its header summary.
func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	details := false
	if v := r.URL.Query().Get("details"); v != "" {
		var err error
		if details, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "details must be a boolean")
			return
		}
	}

	list := s.catalog.List
	if details {
		list = s.catalog.ListDetailed
	}
	recs, err := list(r.Context())
	if err != nil {
		slog.Error("list recordings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recordings")
		return
	}
	if recs == nil {
		recs = []model.Recording{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.Recording{"recordings": recs})
}

// handleFileInfo handles GET /v1/files/{name}.
func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.catalog.Info(r.Context(), r.PathValue("name"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleSynthetic handles GET /v1/synthetic.
func (s *Server) handleSynthetic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	windows, err := queryInt(q.Get("windows"), defaultSyntheticWindows)
	if err != nil || windows == 0 || windows > maxSyntheticWindows {
		writeError(w, http.StatusBadRequest, "windows must be between 1 and "+strconv.Itoa(maxSyntheticWindows))
		return
	}
	start, err := queryInt(q.Get("start"), 0)
	if err != nil || start > math.MaxInt32 {
		writeError(w, http.StatusBadRequest, "start must be a non-negative integer")
		return
	}
	seed := uint64(time.Now().UnixNano())
	if v := q.Get("seed"); v != "" {
		if seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "seed must be an unsigned integer")
			return
		}
	}

	resp := synth.New(seed).Response(start, windows)
	if id, err := idgen.RequestID(); err == nil {
		resp.RequestID = id
	}
	writeJSON(w, http.StatusOK, resp)
}
