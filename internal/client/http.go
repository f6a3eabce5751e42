package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/somno/internal/model"
)

// HTTPClient implements SomnoClient using the somno HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Prediction ---

// Predict uploads the request's EDF files as a multipart form. The body is
// streamed so large recordings are not buffered in memory.
func (c *HTTPClient) Predict(ctx context.Context, req *PredictRequest) (*model.Response, error) {
	for _, path := range req.Files {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// Local read failures abort the body and are returned in place of the
	// transport error.
	var localErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := writePredictForm(mw, req)
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			localErr = err
		}
		pw.CloseWithError(err)
	}()

	var resp model.Response
	err := c.do(ctx, http.MethodPost, "/v1/predict", mw.FormDataContentType(), pr, &resp)
	pr.CloseWithError(err)
	<-done
	if localErr != nil {
		return nil, localErr
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func writePredictForm(mw *multipart.Writer, req *PredictRequest) error {
	if req.Filename != "" {
		if err := mw.WriteField("filename", req.Filename); err != nil {
			return err
		}
	}
	if err := mw.WriteField("start_window", strconv.Itoa(req.StartWindow)); err != nil {
		return err
	}
	if req.NumWindows > 0 {
		if err := mw.WriteField("num_windows", strconv.Itoa(req.NumWindows)); err != nil {
			return err
		}
	}
	for _, path := range req.Files {
		if !strings.EqualFold(filepath.Ext(path), ".edf") {
			continue
		}
		if err := writeFilePart(mw, path); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("uploading %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) Synthetic(ctx context.Context, req *SyntheticRequest) (*model.Response, error) {
	q := url.Values{}
	if req != nil {
		if req.Windows > 0 {
			q.Set("windows", strconv.Itoa(req.Windows))
		}
		if req.Start > 0 {
			q.Set("start", strconv.Itoa(req.Start))
		}
		if req.Seed != nil {
			q.Set("seed", strconv.FormatUint(*req.Seed, 10))
		}
	}
	path := "/v1/synthetic"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp model.Response
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Recordings ---

func (c *HTTPClient) ListFiles(ctx context.Context) ([]string, error) {
	var resp struct {
		Files []string `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/files", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// ListRecordings lists recordings; details also reads each header.
func (c *HTTPClient) ListRecordings(ctx context.Context, details bool) ([]model.Recording, error) {
	var resp struct {
		Recordings []model.Recording `json:"recordings"`
	}
	path := "/v1/recordings"
	if details {
		path += "?details=true"
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Recordings, nil
}

func (c *HTTPClient) FileInfo(ctx context.Context, name string) (*model.RecordingInfo, error) {
	var info model.RecordingInfo
	if err := c.doJSON(ctx, http.MethodGet, "/v1/files/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// --- Events ---

// StreamEvents reads the server's event stream and calls fn for each event
// until ctx is cancelled, the stream ends, or fn returns an error.
func (c *HTTPClient) StreamEvents(ctx context.Context, topics []string, fn func(Event) error) error {
	path := "/v1/events/stream"
	if len(topics) > 0 {
		path += "?" + url.Values{"topics": {strings.Join(topics, ",")}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var evt Event
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			evt.ID = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			evt.Topic = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			evt.Data = json.RawMessage(strings.TrimPrefix(line, "data:"))
		case line == "":
			if evt.Topic != "" {
				if err := fn(evt); err != nil {
					return err
				}
			}
			evt = Event{}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return scanner.Err()
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (*model.Health, error) {
	var h model.Health
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// --- internal helpers ---

// ErrUnavailable wraps transport failures: the server could not be reached
// or the connection broke before a response arrived.
var ErrUnavailable = errors.New("server unavailable")

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func decodeAPIError(code int, body []byte) *APIError {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: code, Message: errResp.Error}
	}
	return &APIError{StatusCode: code, Message: strings.TrimSpace(string(body))}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, bodyReader, result)
}

// do performs an HTTP request and decodes the JSON response into result.
// If result is nil, the response body is discarded.
func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
