package models

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	HasAPIKey bool   `json:"hasApiKey"`
}
