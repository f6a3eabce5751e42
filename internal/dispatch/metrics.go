package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alfredjeanlab/somno/internal/model"
)

// Metrics holds the dispatcher's prometheus collectors.
type Metrics struct {
	Predictions       *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
}

// NewMetrics creates the dispatcher collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "somno_predictions_total",
			Help: "Prediction responses by dispatch tier.",
		}, []string{"tier"}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "somno_inference_duration_seconds",
			Help:    "Wall time of inference command runs.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Predictions, m.InferenceDuration)
	}
	return m
}

func (m *Metrics) observeTier(t model.Tier) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) observeInference(seconds float64) {
	if m == nil {
		return
	}
	m.InferenceDuration.Observe(seconds)
}
