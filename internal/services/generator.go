package services

import "context"

// GenerationParams mirrors Gemini's generationConfig. Zero TopP/TopK mean
// "use the model default".
type GenerationParams struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

var (
	chatParams = GenerationParams{Temperature: 0.7, TopP: 0.95, TopK: 40, MaxOutputTokens: 500}
	scanParams = GenerationParams{Temperature: 0.4, MaxOutputTokens: 1000}
)

// Generator is the external generation API. Implementations return the
// first candidate's text, or an *UpstreamError.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, params GenerationParams) (string, error)
	GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string, params GenerationParams) (string, error)
}
