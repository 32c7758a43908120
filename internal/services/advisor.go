package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"farmwise-backend/internal/metrics"
	"farmwise-backend/internal/models"
	"farmwise-backend/internal/observability"
	"farmwise-backend/internal/storage"
)

// AdvisorConfig is everything the gateway needs from the environment.
type AdvisorConfig struct {
	HasAPIKey bool
	Model     string
	Timeout   time.Duration
}

// ImageStager puts an upload on disk for the duration of one request.
type ImageStager interface {
	Stage(body io.Reader, ext string) (*storage.StagedFile, error)
}

// ImageUpload is the single image part of a scan request.
type ImageUpload struct {
	Body     io.Reader
	Filename string
	MIMEType string
}

// AdvisorService mediates exactly one generation call per operation.
type AdvisorService struct {
	cfg    AdvisorConfig
	gen    Generator
	stager ImageStager
	log    zerolog.Logger
}

// NewAdvisorService wires the gateway. gen may be nil when no API key is
// configured; every operation then fails with a ConfigurationError.
func NewAdvisorService(cfg AdvisorConfig, gen Generator, stager ImageStager, log zerolog.Logger) *AdvisorService {
	return &AdvisorService{
		cfg:    cfg,
		gen:    gen,
		stager: stager,
		log:    log.With().Str("component", "advisor").Logger(),
	}
}

func (s *AdvisorService) HasAPIKey() bool {
	return s.cfg.HasAPIKey
}

// Converse answers one chat message. The model's text is returned verbatim.
func (s *AdvisorService) Converse(ctx context.Context, req models.ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", &InvalidInputError{Message: "Message is required"}
	}
	if err := s.checkConfigured(); err != nil {
		return "", err
	}

	s.log.Info().
		Str("context", req.Context).
		Int("history_length", len(req.ConversationHistory)).
		Msg("chat request received")

	prompt := buildChatPrompt(req)
	return s.callUpstream(ctx, "chat", func(ctx context.Context) (string, error) {
		return s.gen.GenerateText(ctx, prompt, chatParams)
	})
}

// Scan stages the upload, asks the model for a diagnosis and normalizes the
// reply. The staging file is removed before Scan returns, whatever happens.
func (s *AdvisorService) Scan(ctx context.Context, upload ImageUpload) (result models.AnalysisResult, err error) {
	if upload.Body == nil {
		return models.AnalysisResult{}, &InvalidInputError{Message: "No image file provided"}
	}
	if err := s.checkConfigured(); err != nil {
		return models.AnalysisResult{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("scan panicked")
			result, err = models.AnalysisResult{}, &InternalError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	staged, err := s.stager.Stage(upload.Body, filepath.Ext(upload.Filename))
	if err != nil {
		return models.AnalysisResult{}, &InternalError{Err: err}
	}
	defer staged.Release()

	data, err := staged.ReadAll()
	if err != nil {
		return models.AnalysisResult{}, &InternalError{Err: err}
	}
	if len(data) == 0 {
		return models.AnalysisResult{}, &InvalidInputError{Message: "Uploaded image is empty"}
	}

	mimeType := resolveMIMEType(upload.MIMEType, data)
	metrics.UploadBytes.Observe(float64(len(data)))
	s.log.Info().
		Str("filename", upload.Filename).
		Str("mime_type", mimeType).
		Int("bytes", len(data)).
		Msg("scan request received")

	prompt := buildScanPrompt()
	text, err := s.callUpstream(ctx, "scan", func(ctx context.Context) (string, error) {
		return s.gen.GenerateFromImage(ctx, prompt, data, mimeType, scanParams)
	})
	if err != nil {
		return models.AnalysisResult{}, err
	}

	if _, perr := ExtractAnalysis(text); perr != nil {
		metrics.NormalizationsTotal.WithLabelValues("fallback").Inc()
		s.log.Warn().Err(perr).Str("raw", truncate(text, rawExcerptLimit)).Msg("could not parse analysis JSON")
	} else {
		metrics.NormalizationsTotal.WithLabelValues("parsed").Inc()
	}
	return NormalizeAnalysis(text), nil
}

// FailedAnalysis is the result sent with a 500 from the scan endpoint.
func FailedAnalysis() models.AnalysisResult {
	return failedAnalysis()
}

func (s *AdvisorService) checkConfigured() error {
	if !s.cfg.HasAPIKey || s.gen == nil {
		s.log.Error().Msg("Gemini API key is missing")
		return &ConfigurationError{Message: "Server configuration error"}
	}
	return nil
}

func (s *AdvisorService) callUpstream(ctx context.Context, op string, call func(context.Context) (string, error)) (string, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	ctx, span := observability.StartUpstreamSpan(ctx, op, s.cfg.Model)
	start := time.Now()
	text, err := call(ctx)
	metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil && strings.TrimSpace(text) == "" {
		err = &UpstreamError{Err: errNoCandidates}
	}
	observability.EndSpan(span, err)

	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.UpstreamCallsTotal.WithLabelValues(op, outcome).Inc()

		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			upErr = &UpstreamError{Err: err}
		}
		s.log.Error().
			Str("operation", op).
			Str("outcome", outcome).
			Int("status", upErr.StatusCode).
			Str("body", truncate(upErr.Body, rawExcerptLimit)).
			Err(upErr.Err).
			Msg("generation call failed")
		return "", upErr
	}

	metrics.UpstreamCallsTotal.WithLabelValues(op, "success").Inc()
	return text, nil
}

// resolveMIMEType prefers the declared part type and sniffs the bytes when
// the client sent nothing useful.
func resolveMIMEType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "" && mt != "application/octet-stream" {
		return mt
	}
	detected := mimetype.Detect(data).String()
	if mt, _, err := mime.ParseMediaType(detected); err == nil {
		return mt
	}
	return detected
}
