package dispatch

import "github.com/alfredjeanlab/somno/internal/model"

// Canned prediction tables returned by the fallback tiers.
var (
	modelFailedTable = []model.Prediction{
		{Window: 1, Stage: model.StageWake, Confidence: 0.94},
		{Window: 2, Stage: model.StageLight1, Confidence: 0.78},
		{Window: 3, Stage: model.StageLight2, Confidence: 0.92},
		{Window: 4, Stage: model.StageDeep, Confidence: 0.85},
		{Window: 5, Stage: model.StageREM, Confidence: 0.82},
	}

	sampleTable = []model.Prediction{
		{Window: 1, Stage: model.StageWake, Confidence: 0.92},
		{Window: 2, Stage: model.StageWake, Confidence: 0.88},
		{Window: 3, Stage: model.StageLight1, Confidence: 0.76},
		{Window: 4, Stage: model.StageLight1, Confidence: 0.82},
		{Window: 5, Stage: model.StageLight2, Confidence: 0.89},
		{Window: 6, Stage: model.StageLight2, Confidence: 0.91},
		{Window: 7, Stage: model.StageDeep, Confidence: 0.85},
		{Window: 8, Stage: model.StageDeep, Confidence: 0.87},
		{Window: 9, Stage: model.StageREM, Confidence: 0.79},
		{Window: 10, Stage: model.StageLight2, Confidence: 0.83},
		{Window: 11, Stage: model.StageREM, Confidence: 0.81},
		{Window: 12, Stage: model.StageWake, Confidence: 0.94},
	}

	demoTable = []model.Prediction{
		{Window: 1, Stage: model.StageWake, Confidence: 0.85},
		{Window: 2, Stage: model.StageLight1, Confidence: 0.72},
		{Window: 3, Stage: model.StageLight2, Confidence: 0.91},
		{Window: 4, Stage: model.StageDeep, Confidence: 0.88},
		{Window: 5, Stage: model.StageREM, Confidence: 0.79},
	}
)

// Data source labels reported with each tier.
const (
	SourceModelFailed  = "Mock data (model failed)"
	SourceModelAndEDF  = "Trained model + Sample EDF"
	SourceSampleEDF    = "Sample EDF from sleep-telemetry"
	SourceDemo         = "Mock data"
	ModelStatusError   = "error"
	ModelStatusLoaded  = "loaded"
	ModelStatusMissing = "not found"
)

// Message suffixes appended to "Processed N file(s)".
const (
	suffixModelFailed = " - Model inference failed, using mock data"
	suffixModel       = " - Using trained model"
	suffixSample      = " - Found sample EDF data"
	suffixDemo        = " - Using demo data"
)

func cloneTable(t []model.Prediction) []model.Prediction {
	return append([]model.Prediction(nil), t...)
}
