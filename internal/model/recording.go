package model

import "time"

// Recording is a PSG file available for selection.
type Recording struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Source  string    `json:"source"` // "dir" or "s3"

	// Info is set when details are requested and the header is readable.
	Info *RecordingInfo `json:"info,omitempty"`
}

// Channels groups signal labels by modality.
type Channels struct {
	EEG   []string `json:"eeg"`
	EOG   []string `json:"eog"`
	EMG   []string `json:"emg"`
	Other []string `json:"other,omitempty"`
}

// RecordingInfo summarizes an EDF header.
type RecordingInfo struct {
	Name            string    `json:"name"`
	Format          string    `json:"format"` // "EDF" or "EDF+"
	TotalEpochs     int       `json:"total_epochs"`
	DurationSeconds float64   `json:"duration_seconds"`
	SampleRate      float64   `json:"sample_rate"`
	Channels        Channels  `json:"channels"`
	StartTime       time.Time `json:"start_time,omitzero"`
}
