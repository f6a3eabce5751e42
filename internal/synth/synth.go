// Package synth fabricates plausible sleep-stage sequences for demos when no
// backend is reachable.
//
// The generator walks a night in 30-second windows. The first minutes are
// wake and light sleep; after that the stage follows the position inside a
// 90-minute cycle, with deep sleep concentrated early in the night and REM
// near the end of each cycle. Ties between neighbouring stages are broken at
// random, so two generators with different seeds produce different nights.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/alfredjeanlab/somno/internal/model"
)

const (
	// Epoch is the length of one window.
	Epoch = 30 * time.Second

	sleepOnset  = 10 * time.Minute
	lightPhase  = 20 * time.Minute
	cycleLength = 90 * time.Minute
	earlyNight  = 3 * time.Hour

	minConfidence = 0.70
	maxConfidence = 0.95

	// DataSource is reported on synthetic responses.
	DataSource = "Synthetic (client fallback)"
)

// Generator produces synthetic stages. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// New returns a generator seeded with seed. Equal seeds yield equal sequences.
func New(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// chance returns true with probability p.
func (g *Generator) chance(p float64) bool {
	return g.rng.Float64() < p
}

// pick returns alt with probability p, otherwise primary.
func (g *Generator) pick(primary, alt model.Stage, p float64) model.Stage {
	if g.chance(p) {
		return alt
	}
	return primary
}

// StageAt returns a plausible stage for a window starting elapsed into the night.
func (g *Generator) StageAt(elapsed time.Duration) model.Stage {
	if elapsed < 0 {
		elapsed = 0
	}
	switch {
	case elapsed < sleepOnset:
		return g.pick(model.StageWake, model.StageLight1, 0.2)
	case elapsed < lightPhase:
		return g.pick(model.StageLight1, model.StageLight2, 0.5)
	}

	pos := float64(elapsed%cycleLength) / float64(cycleLength)
	switch {
	case pos < 0.15:
		return g.pick(model.StageLight2, model.StageLight1, 0.3)
	case pos < 0.45:
		if elapsed < earlyNight {
			return g.pick(model.StageDeep, model.StageLight2, 0.25)
		}
		return g.pick(model.StageLight2, model.StageDeep, 0.2)
	case pos < 0.70:
		return model.StageLight2
	case pos < 0.95:
		return g.pick(model.StageREM, model.StageLight2, 0.15)
	default:
		return g.pick(model.StageWake, model.StageLight1, 0.5)
	}
}

// Confidence returns a confidence in [0.70, 0.95] rounded to two decimals.
func (g *Generator) Confidence() float64 {
	c := minConfidence + g.rng.Float64()*(maxConfidence-minConfidence)
	return math.Round(c*100) / 100
}

// Sequence returns n predictions for windows start+1 .. start+n. Window w is
// evaluated at (w-1) epochs into the night.
func (g *Generator) Sequence(start, n int) []model.Prediction {
	if start < 0 {
		start = 0
	}
	if n <= 0 {
		return []model.Prediction{}
	}
	preds := make([]model.Prediction, 0, n)
	for i := range n {
		w := start + i + 1
		preds = append(preds, model.Prediction{
			Window:     w,
			Stage:      g.StageAt(time.Duration(w-1) * Epoch),
			Confidence: g.Confidence(),
		})
	}
	return preds
}

// Response wraps Sequence in a predict response.
func (g *Generator) Response(start, n int) *model.Response {
	preds := g.Sequence(start, n)
	return &model.Response{
		Success:     true,
		Predictions: preds,
		Message:     fmt.Sprintf("Generated %d synthetic window(s)", len(preds)),
		DataSource:  DataSource,
		Tier:        model.TierSynthetic,
	}
}
