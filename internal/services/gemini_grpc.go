package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	grpcgenai "github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"
)

// GeminiGRPCService is the GEMINI_TRANSPORT=grpc alternative, built on the
// generative-ai-go SDK.
type GeminiGRPCService struct {
	client    *grpcgenai.Client
	modelName string
	log       zerolog.Logger
}

func NewGeminiGRPCService(ctx context.Context, apiKey, modelName string, log zerolog.Logger) (*GeminiGRPCService, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := grpcgenai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGRPCService{
		client:    client,
		modelName: modelName,
		log:       log.With().Str("component", "gemini-grpc").Logger(),
	}, nil
}

func (s *GeminiGRPCService) Close() {
	s.client.Close()
}

func (s *GeminiGRPCService) GenerateText(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return s.generate(ctx, params, grpcgenai.Text(prompt))
}

func (s *GeminiGRPCService) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string, params GenerationParams) (string, error) {
	return s.generate(ctx, params,
		grpcgenai.Text(prompt),
		grpcgenai.Blob{MIMEType: mimeType, Data: image},
	)
}

func (s *GeminiGRPCService) generate(ctx context.Context, params GenerationParams, parts ...grpcgenai.Part) (string, error) {
	// GenerativeModel setters mutate shared state, so each call gets its own.
	model := s.client.GenerativeModel(s.modelName)
	applyParams(model, params)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		upErr := grpcUpstreamError(err)
		s.log.Error().Int("status", upErr.StatusCode).Err(err).Msg("Gemini API error response")
		return "", upErr
	}

	if resp == nil || len(resp.Candidates) == 0 {
		s.log.Error().Msg("No candidates in Gemini response")
		return "", &UpstreamError{Err: errNoCandidates}
	}

	cand := resp.Candidates[0]
	if cand.FinishReason != grpcgenai.FinishReasonStop && cand.FinishReason != grpcgenai.FinishReasonUnspecified {
		s.log.Warn().Str("finish_reason", cand.FinishReason.String()).Msg("Gemini stopped early")
	}

	text := extractText(cand)
	if text == "" {
		return "", &UpstreamError{Err: errNoCandidates}
	}
	return text, nil
}

func applyParams(model *grpcgenai.GenerativeModel, params GenerationParams) {
	model.SetTemperature(params.Temperature)
	if params.TopP > 0 {
		model.SetTopP(params.TopP)
	}
	if params.TopK > 0 {
		model.SetTopK(params.TopK)
	}
	if params.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(params.MaxOutputTokens)
	}
}

func extractText(cand *grpcgenai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(grpcgenai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}

func grpcUpstreamError(err error) *UpstreamError {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &UpstreamError{StatusCode: gerr.Code, Body: gerr.Message, Err: err}
	}
	if st, ok := status.FromError(err); ok {
		return &UpstreamError{Body: st.Message(), Err: err}
	}
	return &UpstreamError{Err: err}
}
