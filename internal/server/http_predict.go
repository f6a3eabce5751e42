package server

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/somno/internal/dispatch"
	"github.com/alfredjeanlab/somno/internal/edf"
)

const (
	defaultNumWindows = 5

	// multipartMemory is how much of a multipart form is kept in memory
	// before spilling to temporary files.
	multipartMemory = 32 << 20

	failedToProcess = "Failed to process files"
)

// handlePredictOptions answers CORS preflight requests for the predict routes.
func (s *Server) handlePredictOptions(w http.ResponseWriter, _ *http.Request) {
	h := w.Header()
	if h.Get("Access-Control-Allow-Origin") == "" {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
}

// handlePredict handles POST /v1/predict and POST /api/predict.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		slog.Error("predict: parse form", "error", err)
		writePredictFailure(w)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	start, err := queryInt(r.FormValue("start_window"), 0)
	if err != nil {
		writePredictError(w, http.StatusBadRequest, "start_window "+err.Error())
		return
	}
	num, err := queryInt(r.FormValue("num_windows"), defaultNumWindows)
	if err != nil {
		writePredictError(w, http.StatusBadRequest, "num_windows "+err.Error())
		return
	}

	stageDir := filepath.Join(s.cfg.UploadDir, "somno-"+uuid.NewString())
	if err := os.MkdirAll(stageDir, 0o700); err != nil {
		slog.Error("predict: create staging dir", "error", err)
		writePredictFailure(w)
		return
	}
	defer os.RemoveAll(stageDir)

	files, err := stageUploads(r.MultipartForm.File["files"], stageDir)
	if err != nil {
		slog.Error("predict: stage uploads", "error", err)
		writePredictFailure(w)
		return
	}
	slog.Info("predict: received files", "files", len(files))

	req := dispatch.Request{Files: files, StartWindow: start, NumWindows: num}

	if name := r.FormValue("filename"); name != "" {
		info, err := s.catalog.Info(r.Context(), name)
		if err != nil {
			writePredictCatalogError(w, err)
			return
		}
		if from, to := edf.WindowRange(start, num, info.TotalEpochs); from >= to {
			writePredictError(w, http.StatusBadRequest, "No valid epochs found in specified range")
			return
		}
		path, err := s.catalog.Path(r.Context(), name, stageDir)
		if err != nil {
			writePredictCatalogError(w, err)
			return
		}
		req.Filename = path
	}

	resp, err := s.dispatcher.Predict(r.Context(), req)
	if err != nil {
		slog.Error("predict: dispatch", "error", err)
		writePredictFailure(w)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// stageUploads copies the EDF uploads into dir. Other files are counted
// but not written.
func stageUploads(headers []*multipart.FileHeader, dir string) ([]dispatch.Upload, error) {
	uploads := make([]dispatch.Upload, 0, len(headers))
	for i, fh := range headers {
		name := filepath.Base(fh.Filename)
		u := dispatch.Upload{Name: name, Size: fh.Size}
		if strings.EqualFold(filepath.Ext(name), ".edf") {
			dst := filepath.Join(dir, fmt.Sprintf("%02d-%s", i, name))
			if err := copyUpload(fh, dst); err != nil {
				return nil, err
			}
			u.Path = dst
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

func copyUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}

func writePredictFailure(w http.ResponseWriter) {
	writePredictError(w, http.StatusInternalServerError, failedToProcess)
}

func writePredictError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func writePredictCatalogError(w http.ResponseWriter, err error) {
	status, msg := catalogErrorStatus(err)
	writePredictError(w, status, msg)
}
