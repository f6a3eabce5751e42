// Package server exposes the prediction dispatcher, the recording catalog and
// the event stream over HTTP, with an optional gRPC health service.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alfredjeanlab/somno/internal/config"
	"github.com/alfredjeanlab/somno/internal/dispatch"
	"github.com/alfredjeanlab/somno/internal/events"
	"github.com/alfredjeanlab/somno/internal/inference"
	"github.com/alfredjeanlab/somno/internal/recordings"
)

// Server holds the dependencies of the HTTP and gRPC surfaces.
type Server struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	catalog    *recordings.Catalog
	publisher  events.Publisher
	sseHub     *sseHub
	metrics    *httpMetrics
	registry   *prometheus.Registry
}

// New returns a Server. A nil runner executes the configured inference
// command with CommandRunner; a nil publisher only feeds the SSE stream.
func New(cfg *config.Config, catalog *recordings.Catalog, pub events.Publisher, runner inference.Runner) *Server {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	registry := newRegistry()
	s := &Server{
		cfg:       cfg,
		catalog:   catalog,
		publisher: pub,
		sseHub:    newSSEHub(),
		metrics:   newHTTPMetrics(registry),
		registry:  registry,
	}
	s.dispatcher = dispatch.New(dispatch.Config{
		WorkDir:    cfg.WorkDir,
		ModelPath:  cfg.ModelPath,
		SamplePath: cfg.SamplePath,
		Command:    cfg.InferenceCommand,
		Timeout:    cfg.InferenceTimeout,
	}, runner, hubPublisher{s}, dispatch.NewMetrics(registry), slog.Default())
	return s
}

// Dispatcher returns the prediction dispatcher.
func (s *Server) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// publish sends an event to the bus and to SSE clients. Both are best-effort;
// failures are logged but do not block the caller.
func (s *Server) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
	s.broadcastEvent(topic, event)
}

// hubPublisher lets the dispatcher publish through the server.
type hubPublisher struct{ s *Server }

func (p hubPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.s.publish(ctx, topic, event)
	return nil
}

func (hubPublisher) Close() error { return nil }

// RecordingChanged publishes a catalog change. It is the callback handed to
// recordings.Watcher and recordings.Poller.
func (s *Server) RecordingChanged(ctx context.Context, c recordings.Change) {
	slog.Info("recording changed", "op", c.Op, "name", c.Name, "source", c.Source)
	switch c.Op {
	case recordings.Added:
		s.publish(ctx, events.TopicRecordingAdded, events.RecordingAdded{Name: c.Name, Source: c.Source})
	case recordings.Removed:
		s.publish(ctx, events.TopicRecordingRemoved, events.RecordingRemoved{Name: c.Name, Source: c.Source})
	}
}

// broadcastEvent fans an event out to SSE clients.
func (s *Server) broadcastEvent(topic string, event any) {
	if s.sseHub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event for SSE broadcast", "topic", topic, "error", err)
		return
	}
	s.sseHub.broadcast(topic, payload)
}
