package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Tier identifies which dispatch path produced a response.
type Tier string

const (
	TierModel       Tier = "model"        // external inference succeeded
	TierModelFailed Tier = "model-failed" // model and sample present, inference failed
	TierSample      Tier = "sample"       // sample EDF present, no usable model
	TierDemo        Tier = "demo"         // nothing present
	TierSynthetic   Tier = "synthetic"    // generated without a backend
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// Prediction is the classification of a single 30-second window.
type Prediction struct {
	Window     int     `json:"window"` // 1-based
	Stage      Stage   `json:"stage"`
	Confidence float64 `json:"confidence"`
	File       string  `json:"file,omitempty"`
}

// UnmarshalJSON accepts the stage either as a string or as a bare number,
// since inference scripts emit both.
func (s *Stage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Stage(str)
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	*s = Stage(strconv.Itoa(n))
	return nil
}

// Response is the body returned by the predict endpoint.
type Response struct {
	Success     bool         `json:"success"`
	Predictions []Prediction `json:"predictions"`
	Message     string       `json:"message,omitempty"`
	DataSource  string       `json:"dataSource,omitempty"`
	ModelStatus string       `json:"modelStatus,omitempty"`
	Error       string       `json:"error,omitempty"`
	RequestID   string       `json:"requestId,omitempty"`
	Tier        Tier         `json:"tier,omitempty"`
}

// StageCounts tallies predictions per stage.
func (r *Response) StageCounts() map[Stage]int {
	counts := make(map[Stage]int, len(Stages))
	for _, p := range r.Predictions {
		counts[p.Stage]++
	}
	return counts
}
