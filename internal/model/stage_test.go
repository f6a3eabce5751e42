package model

import (
	"encoding/json"
	"testing"
)

func TestStage_Label(t *testing.T) {
	for _, tc := range []struct {
		stage Stage
		want  string
	}{
		{StageWake, "Wake"},
		{StageLight1, "Stage 1 (Light Sleep)"},
		{StageLight2, "Stage 2 (Light Sleep)"},
		{StageDeep, "Stage 3/4 (Deep Sleep)"},
		{StageREM, "REM Sleep"},
		{Stage("7"), "Stage 7"},
	} {
		if got := tc.stage.Label(); got != tc.want {
			t.Errorf("Stage(%q).Label() = %q, want %q", tc.stage, got, tc.want)
		}
	}
}

func TestStage_IsValid(t *testing.T) {
	for _, s := range Stages {
		if !s.IsValid() {
			t.Errorf("Stage(%q).IsValid() = false", s)
		}
	}
	for _, s := range []Stage{"", "5", "W", "-1"} {
		if s.IsValid() {
			t.Errorf("Stage(%q).IsValid() = true", s)
		}
	}
}

func TestParseStage(t *testing.T) {
	for _, tc := range []struct {
		input   string
		want    Stage
		wantErr bool
	}{
		{"W", StageWake, false},
		{"Sleep stage W", StageWake, false},
		{"Sleep stage 1", StageLight1, false},
		{"Sleep stage 2", StageLight2, false},
		{"Sleep stage 3", StageDeep, false},
		{"Sleep stage 4", StageDeep, false},
		{"Sleep stage R", StageREM, false},
		{"n3", StageDeep, false},
		{"REM", StageREM, false},
		{"Movement time M", "", true},
		{"Sleep stage ?", "", true},
		{"", "", true},
	} {
		got, err := ParseStage(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseStage(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStage(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseStageCode(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  Stage
	}{
		{"4", StageREM},
		{" 0 ", StageWake},
		{"R", StageREM},
		{"Sleep stage 4", StageDeep},
	} {
		got, err := ParseStageCode(tc.input)
		if err != nil {
			t.Fatalf("ParseStageCode(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("ParseStageCode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestPrediction_UnmarshalNumericStage(t *testing.T) {
	var preds []Prediction
	data := `[{"window":1,"stage":3,"confidence":0.5},{"window":2,"stage":"4","confidence":0.25}]`
	if err := json.Unmarshal([]byte(data), &preds); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if preds[0].Stage != StageDeep {
		t.Errorf("preds[0].Stage = %q, want %q", preds[0].Stage, StageDeep)
	}
	if preds[1].Stage != StageREM {
		t.Errorf("preds[1].Stage = %q, want %q", preds[1].Stage, StageREM)
	}

	var bad Prediction
	if err := json.Unmarshal([]byte(`{"stage":true}`), &bad); err == nil {
		t.Error("expected error for boolean stage")
	}
}

func TestResponse_StageCounts(t *testing.T) {
	r := &Response{Predictions: []Prediction{
		{Window: 1, Stage: StageWake},
		{Window: 2, Stage: StageWake},
		{Window: 3, Stage: StageREM},
	}}
	counts := r.StageCounts()
	if counts[StageWake] != 2 || counts[StageREM] != 1 || counts[StageDeep] != 0 {
		t.Errorf("StageCounts() = %v", counts)
	}
}
