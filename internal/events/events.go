// Package events defines the topics and payloads emitted by the service and
// the publisher/subscriber transports that carry them.
package events

import (
	"context"

	"github.com/alfredjeanlab/somno/internal/model"
)

// Event topic constants
const (
	TopicPredictionCompleted = "somno.prediction.completed"
	TopicInferenceFailed     = "somno.inference.failed"

	TopicRecordingAdded   = "somno.recording.added"
	TopicRecordingRemoved = "somno.recording.removed"

	// TopicAll matches every topic above.
	TopicAll = "somno.>"
)

// Event types

type PredictionCompleted struct {
	RequestID   string         `json:"request_id"`
	Tier        model.Tier     `json:"tier"`
	Files       int            `json:"files"`
	Windows     int            `json:"windows"`
	DataSource  string         `json:"data_source,omitempty"`
	StageCounts map[string]int `json:"stage_counts,omitempty"`
}

type InferenceFailed struct {
	RequestID  string `json:"request_id"`
	Command    string `json:"command"`
	Error      string `json:"error"`
	Stderr     string `json:"stderr,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type RecordingAdded struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type RecordingRemoved struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// NoopPublisher discards events. It is used when no NATS URL is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }
