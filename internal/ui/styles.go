package ui

import (
	"fmt"

	"github.com/alfredjeanlab/somno/internal/model"
)

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorWarn   = 214 // orange
)

// Stage colors run from bright (awake) to deep blue (deep sleep); REM is
// violet like most hypnogram viewers.
var stageColors = map[model.Stage]int{
	model.StageWake:   220,
	model.StageLight1: 117,
	model.StageLight2: 75,
	model.StageDeep:   25,
	model.StageREM:    141,
}

var noColor bool

func render(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderWarn returns s in the warning (orange) color.
func RenderWarn(s string) string { return render(colorWarn, s) }

// RenderStage returns the stage label in the stage's color. Unknown stages
// are muted.
func RenderStage(st model.Stage) string {
	c, ok := stageColors[st]
	if !ok {
		c = colorMuted
	}
	return render(c, st.Label())
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
