package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"farmwise-backend/internal/models"
	"farmwise-backend/internal/services"
)

const (
	configApology   = "I apologize, but the service is not properly configured. Please contact the administrator."
	upstreamApology = "I apologize, but I'm experiencing technical difficulties. Please try again later."
)

// advisor is the gateway as the handlers see it.
type advisor interface {
	Converse(ctx context.Context, req models.ChatRequest) (string, error)
	Scan(ctx context.Context, upload services.ImageUpload) (models.AnalysisResult, error)
	HasAPIKey() bool
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Error string `json:"error"`
}

func errorResp(message string) errorBody {
	return errorBody{Error: message}
}
