package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// GeminiService talks to the Gemini REST API through google.golang.org/genai.
type GeminiService struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGeminiService builds a REST client. baseURL is only set in tests or
// when routing through a proxy.
func NewGeminiService(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client, log zerolog.Logger) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiService{
		client: client,
		model:  model,
		log:    log.With().Str("component", "gemini-rest").Logger(),
	}, nil
}

func (s *GeminiService) GenerateText(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return s.generate(ctx, genai.Text(prompt), params)
}

func (s *GeminiService) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string, params GenerationParams) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}
	return s.generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, params)
}

func (s *GeminiService) generate(ctx context.Context, contents []*genai.Content, params GenerationParams) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, restConfig(params))
	if err != nil {
		upErr := toUpstreamError(err)
		s.log.Error().
			Int("status", upErr.StatusCode).
			Str("body", truncate(upErr.Body, 200)).
			Err(err).
			Msg("Gemini API error response")
		return "", upErr
	}

	if len(resp.Candidates) == 0 {
		s.log.Error().Msg("No candidates in Gemini response")
		return "", &UpstreamError{Err: errNoCandidates}
	}

	cand := resp.Candidates[0]
	if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
		s.log.Warn().Str("finish_reason", string(cand.FinishReason)).Msg("Gemini stopped early")
	}

	text := firstCandidateText(cand)
	if text == "" {
		return "", &UpstreamError{Err: errNoCandidates}
	}
	return text, nil
}

func restConfig(params GenerationParams) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(params.Temperature),
		MaxOutputTokens: params.MaxOutputTokens,
	}
	if params.TopP > 0 {
		cfg.TopP = genai.Ptr(params.TopP)
	}
	if params.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(params.TopK))
	}
	return cfg
}

func firstCandidateText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return text.String()
}

func toUpstreamError(err error) *UpstreamError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.Code, Body: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &UpstreamError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message, Err: err}
	}
	return &UpstreamError{Err: err}
}
