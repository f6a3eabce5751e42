package model

import (
	"fmt"
	"strings"
)

// Stage is a sleep stage code as exchanged with the inference script and the UI.
// Codes are the decimal strings "0".."4".
type Stage string

const (
	StageWake   Stage = "0"
	StageLight1 Stage = "1"
	StageLight2 Stage = "2"
	StageDeep   Stage = "3"
	StageREM    Stage = "4"
)

// Stages lists every known stage in code order.
var Stages = []Stage{StageWake, StageLight1, StageLight2, StageDeep, StageREM}

var stageLabels = map[Stage]string{
	StageWake:   "Wake",
	StageLight1: "Stage 1 (Light Sleep)",
	StageLight2: "Stage 2 (Light Sleep)",
	StageDeep:   "Stage 3/4 (Deep Sleep)",
	StageREM:    "REM Sleep",
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// IsValid checks whether the stage is a known code.
func (s Stage) IsValid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Label returns the human-readable name of the stage.
// Unknown codes render as "Stage <code>".
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return "Stage " + string(s)
}

// hypnogramStages maps scorer notation to stage codes. Stages 3 and 4 of the
// R&K scheme are both deep sleep.
var hypnogramStages = map[string]Stage{
	"0":   StageWake,
	"1":   StageLight1,
	"2":   StageLight2,
	"3":   StageDeep,
	"4":   StageDeep,
	"W":   StageWake,
	"R":   StageREM,
	"N1":  StageLight1,
	"N2":  StageLight2,
	"N3":  StageDeep,
	"N4":  StageDeep,
	"REM": StageREM,
}

// ParseStage normalizes a stage as emitted by an inference script or found in
// a hypnogram annotation ("Sleep stage W"). Only the last whitespace-separated
// field is considered. Movement ("M") and unscored ("?") epochs are rejected.
//
// A bare "4" is the deep-sleep R&K stage in annotations but the REM code in
// script output, so callers that read script output should use
// ParseStageCode first.
func ParseStage(s string) (Stage, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty stage")
	}
	key := strings.ToUpper(fields[len(fields)-1])
	if st, ok := hypnogramStages[key]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// ParseStageCode accepts a stage code ("0".."4") and falls back to
// ParseStage for any other notation.
func ParseStageCode(s string) (Stage, error) {
	st := Stage(strings.TrimSpace(s))
	if st.IsValid() {
		return st, nil
	}
	return ParseStage(s)
}
