package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"farmwise-backend/internal/models"
)

const (
	defaultStatus      = models.StatusUnknown
	defaultDisease     = "Analysis incomplete"
	defaultSeverity    = models.SeverityMedium
	defaultDescription = "Unable to analyze image"
	defaultTreatment   = "Consult with local agricultural expert"
	defaultPrevention  = "Follow good agricultural practices"
	defaultConfidence  = 75

	parseErrorPrefix = "The AI response could not be parsed. Raw response: "
	rawExcerptLimit  = 200
)

// RawAnalysis is the model's JSON object before defaults are applied.
type RawAnalysis map[string]any

// ParseError means no JSON object could be recovered from the model's text.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("analysis parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NormalizeAnalysis turns arbitrary model output into a complete result.
// It never fails.
func NormalizeAnalysis(raw string) models.AnalysisResult {
	parsed, err := ExtractAnalysis(raw)
	if err != nil {
		return parseFailureResult(raw)
	}
	return ApplyDefaults(parsed)
}

// ExtractAnalysis decodes the span from the first '{' to the last '}', or
// the whole text when there is no such span.
func ExtractAnalysis(raw string) (RawAnalysis, error) {
	candidate := raw
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		candidate = raw[start : end+1]
	}

	var parsed RawAnalysis
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if parsed == nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("expected a JSON object")}
	}
	return parsed, nil
}

// ApplyDefaults fills every missing or empty field.
func ApplyDefaults(parsed RawAnalysis) models.AnalysisResult {
	return models.AnalysisResult{
		Status:      canonical(stringField(parsed, "status"), defaultStatus, models.StatusHealthy, models.StatusDiseased, models.StatusUnknown, models.StatusError),
		Disease:     stringOr(stringField(parsed, "disease"), defaultDisease),
		Severity:    canonical(stringField(parsed, "severity"), defaultSeverity, models.SeverityHigh, models.SeverityMedium, models.SeverityLow, models.SeverityNone),
		Description: stringOr(stringField(parsed, "description"), defaultDescription),
		Treatment:   listOr(parsed["treatment"], defaultTreatment),
		Prevention:  listOr(parsed["prevention"], defaultPrevention),
		Confidence:  confidenceOr(parsed["confidence"], defaultConfidence),
	}
}

func parseFailureResult(raw string) models.AnalysisResult {
	return models.AnalysisResult{
		Status:      models.StatusUnknown,
		Disease:     "Analysis Error",
		Severity:    models.SeverityMedium,
		Description: parseErrorPrefix + truncate(raw, rawExcerptLimit),
		Treatment:   []string{"Please try uploading a clearer image"},
		Prevention:  []string{"Ensure image is well-lit and focused on the plant"},
		Confidence:  50,
	}
}

// failedAnalysis is returned alongside 500s from /api/scan.
func failedAnalysis() models.AnalysisResult {
	return models.AnalysisResult{
		Status:      models.StatusError,
		Disease:     "Analysis Failed",
		Severity:    models.SeverityHigh,
		Description: "We were unable to analyze your image due to a technical problem. Please try again later.",
		Treatment:   []string{"Please try again in a few minutes"},
		Prevention:  []string{"Consult with local agricultural expert if the problem persists"},
		Confidence:  0,
	}
}

func stringField(m RawAnalysis, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// canonical matches s case-insensitively against allowed, returning the
// allowed spelling; anything else becomes fallback.
func canonical(s, fallback string, allowed ...string) string {
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return a
		}
	}
	return fallback
}

// listOr accepts an array of strings or a single string.
func listOr(v any, fallback string) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = []string{s}
		}
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}

// confidenceOr trusts a numeric confidence (number, "85" or "85%"),
// rounded and clamped to 0..100. Zero or anything else falls back.
func confidenceOr(v any, fallback int) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%")), 64)
		if err != nil {
			return fallback
		}
		f = n
	default:
		return fallback
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return fallback
	}
	// Some models answer on a 0..1 scale.
	if f > 0 && f < 1 {
		f *= 100
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}
