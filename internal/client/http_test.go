package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alfredjeanlab/somno/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method  string
	path    string
	rawPath string
	query   string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.rawPath = r.URL.RawPath
	h.query = r.URL.RawQuery

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(t *testing.T, h http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL + "/")
}

func writeTemp(t *testing.T, name, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// --- Predict ---

func TestHTTPClient_Predict(t *testing.T) {
	var (
		fields map[string]string
		files  map[string]string
	)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		files = map[string]string{}
		for _, fh := range r.MultipartForm.File["files"] {
			f, _ := fh.Open()
			data, _ := io.ReadAll(f)
			f.Close()
			files[fh.Filename] = string(data)
		}
		fmt.Fprint(w, `{"success":true,"predictions":[{"window":1,"stage":"2","confidence":0.91}],"tier":"sample","requestId":"pr-abc"}`)
	})
	c := newTestClient(t, h)

	edfPath := writeTemp(t, "night1.edf", "EDFDATA")
	txtPath := writeTemp(t, "notes.txt", "skip me")
	resp, err := c.Predict(context.Background(), &PredictRequest{
		Files:       []string{edfPath, txtPath},
		Filename:    "ST7011J0-PSG.edf",
		StartWindow: 3,
		NumWindows:  7,
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	wantFields := map[string]string{"filename": "ST7011J0-PSG.edf", "start_window": "3", "num_windows": "7"}
	if diff := cmp.Diff(wantFields, fields); diff != "" {
		t.Errorf("form fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"night1.edf": "EDFDATA"}, files); diff != "" {
		t.Errorf("uploaded files mismatch (-want +got):\n%s", diff)
	}
	if resp.Tier != model.TierSample || resp.RequestID != "pr-abc" || len(resp.Predictions) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Predictions[0].Stage != model.StageLight2 {
		t.Errorf("Stage = %q", resp.Predictions[0].Stage)
	}
}

func TestHTTPClient_Predict_DefaultWindowsOmitted(t *testing.T) {
	var got map[string][]string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		got = r.MultipartForm.Value
		fmt.Fprint(w, `{"success":true,"predictions":[]}`)
	})
	c := newTestClient(t, h)

	if _, err := c.Predict(context.Background(), &PredictRequest{}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if _, ok := got["num_windows"]; ok {
		t.Error("num_windows sent for zero value")
	}
	if got["start_window"][0] != "0" {
		t.Errorf("start_window = %v", got["start_window"])
	}
}

func TestHTTPClient_Predict_MissingFile(t *testing.T) {
	h := &testHandler{}
	c := newTestClient(t, h)

	_, err := c.Predict(context.Background(), &PredictRequest{Files: []string{filepath.Join(t.TempDir(), "gone.edf")}})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if h.method != "" {
		t.Error("request sent despite missing file")
	}
}

func TestHTTPClient_Predict_ServerError(t *testing.T) {
	c := newTestClient(t, &testHandler{
		statusCode:   http.StatusBadRequest,
		responseBody: `{"success":false,"error":"No valid epochs found in specified range"}`,
	})

	_, err := c.Predict(context.Background(), &PredictRequest{Filename: "ST7011J0-PSG.edf", StartWindow: 5000})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "No valid epochs found in specified range" {
		t.Errorf("unexpected APIError %+v", apiErr)
	}
}

// --- Synthetic ---

func TestHTTPClient_Synthetic(t *testing.T) {
	h := &testHandler{responseBody: `{"success":true,"predictions":[],"tier":"synthetic"}`}
	c := newTestClient(t, h)

	seed := uint64(42)
	resp, err := c.Synthetic(context.Background(), &SyntheticRequest{Windows: 20, Start: 4, Seed: &seed})
	if err != nil {
		t.Fatal(err)
	}
	if h.path != "/v1/synthetic" || h.query != "seed=42&start=4&windows=20" {
		t.Errorf("request = %s?%s", h.path, h.query)
	}
	if resp.Tier != model.TierSynthetic {
		t.Errorf("Tier = %q", resp.Tier)
	}

	if _, err := c.Synthetic(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if h.query != "" {
		t.Errorf("expected no query for defaults, got %q", h.query)
	}
}

// --- Recordings ---

func TestHTTPClient_ListFiles(t *testing.T) {
	h := &testHandler{responseBody: `{"files":["ST7011J0-PSG.edf","ST7022J0-PSG.edf"]}`}
	c := newTestClient(t, h)

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.method != http.MethodGet || h.path != "/v1/files" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if diff := cmp.Diff([]string{"ST7011J0-PSG.edf", "ST7022J0-PSG.edf"}, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPClient_ListRecordings(t *testing.T) {
	h := &testHandler{responseBody: `{"recordings":[{"name":"ST7011J0-PSG.edf","size":1024,"mod_time":"2026-01-15T10:00:00Z","source":"s3"}]}`}
	c := newTestClient(t, h)

	recs, err := c.ListRecordings(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if h.query != "" {
		t.Errorf("query = %q, want none", h.query)
	}
	want := []model.Recording{{
		Name:    "ST7011J0-PSG.edf",
		Size:    1024,
		ModTime: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		Source:  "s3",
	}}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("recordings mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPClient_ListRecordings_Details(t *testing.T) {
	h := &testHandler{responseBody: `{"recordings":[{"name":"ST7011J0-PSG.edf","size":1024,"mod_time":"2026-01-15T10:00:00Z","source":"dir","info":{"name":"ST7011J0-PSG.edf","total_epochs":120,"duration_seconds":3600,"sample_rate":100,"channels":{"eeg":[],"eog":[],"emg":[]}}}]}`}
	c := newTestClient(t, h)

	recs, err := c.ListRecordings(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if h.path != "/v1/recordings" || h.query != "details=true" {
		t.Errorf("request = %s?%s", h.path, h.query)
	}
	if len(recs) != 1 || recs[0].Info == nil || recs[0].Info.TotalEpochs != 120 {
		t.Errorf("recordings = %+v", recs)
	}
}

func TestHTTPClient_FileInfo(t *testing.T) {
	h := &testHandler{responseBody: `{"name":"a b.edf","total_epochs":120,"duration_seconds":3600,"sample_rate":100,"channels":{"eeg":["EEG Fpz-Cz"],"eog":[],"emg":[]}}`}
	c := newTestClient(t, h)

	info, err := c.FileInfo(context.Background(), "a b.edf")
	if err != nil {
		t.Fatal(err)
	}
	if h.path != "/v1/files/a b.edf" {
		t.Errorf("path = %q", h.path)
	}
	if info.TotalEpochs != 120 || info.SampleRate != 100 {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestHTTPClient_FileInfo_NotFound(t *testing.T) {
	c := newTestClient(t, &testHandler{statusCode: http.StatusNotFound, responseBody: `{"error":"File not found"}`})

	_, err := c.FileInfo(context.Background(), "missing.edf")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "File not found" {
		t.Fatalf("unexpected error %v", err)
	}
	if err.Error() != "HTTP 404: File not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestHTTPClient_NonJSONError(t *testing.T) {
	c := newTestClient(t, &testHandler{statusCode: http.StatusBadGateway, responseBody: "upstream down\n"})

	_, err := c.ListFiles(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "upstream down" {
		t.Fatalf("unexpected error %v", err)
	}
}

// --- Health ---

func TestHTTPClient_Health(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok","model_available":true,"sample_available":false,"recordings":3}`}
	c := newTestClient(t, h)

	got, err := c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := &model.Health{Status: "ok", ModelAvailable: true, Recordings: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("health mismatch (-want +got):\n%s", diff)
	}
}

// --- Events ---

func TestHTTPClient_StreamEvents(t *testing.T) {
	var query string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("topics")
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "retry:3000\n\n")
		fmt.Fprint(w, "id:1\nevent:somno.recording.added\ndata:{\"name\":\"a\"}\n\n")
		fmt.Fprint(w, ":keepalive\n\n")
		fmt.Fprint(w, "id:2\nevent:somno.prediction.completed\ndata:{\"tier\":\"demo\"}\n\n")
	})
	c := newTestClient(t, h)

	var got []Event
	err := c.StreamEvents(context.Background(), []string{"somno.recording.*", "somno.prediction.*"}, func(e Event) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	if query != "somno.recording.*,somno.prediction.*" {
		t.Errorf("topics = %q", query)
	}
	want := []Event{
		{ID: "1", Topic: "somno.recording.added", Data: []byte(`{"name":"a"}`)},
		{ID: "2", Topic: "somno.prediction.completed", Data: []byte(`{"tier":"demo"}`)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPClient_StreamEvents_CallbackError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "id:1\nevent:somno.inference.failed\ndata:{}\n\nid:2\nevent:somno.inference.failed\ndata:{}\n\n")
	})
	c := newTestClient(t, h)

	stop := errors.New("stop")
	calls := 0
	err := c.StreamEvents(context.Background(), nil, func(Event) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url)
	_, err := c.Health(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatal("transport failure reported as APIError")
	}
}
