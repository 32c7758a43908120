package services

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// InvalidInputError is the caller's fault; no upstream call was made.
type InvalidInputError struct{ Message string }

func (e *InvalidInputError) Error() string { return e.Message }

// ConfigurationError means the deployment is missing something it needs,
// typically the Gemini API key.
type ConfigurationError struct{ Message string }

func (e *ConfigurationError) Error() string { return e.Message }

// UpstreamError covers a non-2xx status, an error object, an empty
// candidate list or a timeout from the generation API.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("gemini upstream error: %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("gemini upstream error: %d - %s", e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("gemini upstream error: %v", e.Err)
	default:
		return "gemini upstream error"
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// InternalError wraps anything unexpected on the handling path.
type InternalError struct{ Err error }

func (e *InternalError) Error() string {
	if e.Err == nil {
		return "internal error"
	}
	return "internal error: " + e.Err.Error()
}

func (e *InternalError) Unwrap() error { return e.Err }

var errNoCandidates = errors.New("no response generated")

// truncate returns at most n characters of s, never splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
