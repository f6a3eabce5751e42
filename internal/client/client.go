// Package client provides a transport-agnostic interface for the somno service
// and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"encoding/json"

	"github.com/alfredjeanlab/somno/internal/model"
)

// SomnoClient is the interface the somno CLI commands use to talk to the
// server. It is implemented by HTTPClient.
type SomnoClient interface {
	// Prediction
	Predict(ctx context.Context, req *PredictRequest) (*model.Response, error)
	Synthetic(ctx context.Context, req *SyntheticRequest) (*model.Response, error)

	// Recordings
	ListFiles(ctx context.Context) ([]string, error)
	ListRecordings(ctx context.Context, details bool) ([]model.Recording, error)
	FileInfo(ctx context.Context, name string) (*model.RecordingInfo, error)

	// Events
	StreamEvents(ctx context.Context, topics []string, fn func(Event) error) error

	// Health
	Health(ctx context.Context) (*model.Health, error)

	// Lifecycle
	Close() error
}

// PredictRequest holds parameters for a prediction. Files are local paths;
// only those with an .edf extension are uploaded.
type PredictRequest struct {
	Files       []string
	Filename    string // recording name on the server
	StartWindow int
	NumWindows  int // 0 uses the server default
}

// SyntheticRequest holds parameters for GET /v1/synthetic. Zero values use
// the server defaults.
type SyntheticRequest struct {
	Windows int
	Start   int
	Seed    *uint64
}

// Event is one server-sent event.
type Event struct {
	ID    string
	Topic string
	Data  json.RawMessage
}
