package model

// Health is the body of the health endpoint.
type Health struct {
	Status          string `json:"status"`
	ModelAvailable  bool   `json:"model_available"`
	SampleAvailable bool   `json:"sample_available"`
	Recordings      int    `json:"recordings"`
}
