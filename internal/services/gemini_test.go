package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGemini stands in for the generateContent REST endpoint.
type fakeGemini struct {
	status   int
	body     string
	calls    atomic.Int32
	lastBody map[string]any
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	if !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.Error(w, `{"error":{"code":404,"message":"not found","status":"NOT_FOUND"}}`, http.StatusNotFound)
		return
	}
	raw, _ := io.ReadAll(r.Body)
	f.lastBody = map[string]any{}
	_ = json.Unmarshal(raw, &f.lastBody)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func newFakeGeminiService(t *testing.T, fake *fakeGemini) *GeminiService {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := NewGeminiService(context.Background(), "test-key", "gemini-2.0-flash", srv.URL, srv.Client(), zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestNewGeminiService_RequiresKey(t *testing.T) {
	_, err := NewGeminiService(context.Background(), "", "gemini-2.0-flash", "", nil, zerolog.Nop())
	require.Error(t, err)
}

func TestGeminiService_GenerateText(t *testing.T) {
	fake := &fakeGemini{
		status: http.StatusOK,
		body:   `{"candidates":[{"content":{"role":"model","parts":[{"text":"Use neem oil."}]},"finishReason":"STOP"}]}`,
	}
	svc := newFakeGeminiService(t, fake)

	text, err := svc.GenerateText(context.Background(), "How do I deal with aphids?", chatParams)

	require.NoError(t, err)
	assert.Equal(t, "Use neem oil.", text)
	assert.Equal(t, int32(1), fake.calls.Load())

	cfg, ok := fake.lastBody["generationConfig"].(map[string]any)
	require.True(t, ok, "request body should carry generationConfig: %v", fake.lastBody)
	assert.InDelta(t, 0.7, cfg["temperature"], 0.0001)
	assert.InDelta(t, 0.95, cfg["topP"], 0.0001)
	assert.InDelta(t, 40, cfg["topK"], 0.0001)
	assert.InDelta(t, 500, cfg["maxOutputTokens"], 0.0001)
}

func TestGeminiService_GenerateFromImageSendsInlineData(t *testing.T) {
	fake := &fakeGemini{
		status: http.StatusOK,
		body:   `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"status\":\"Healthy\"}"}]}}]}`,
	}
	svc := newFakeGeminiService(t, fake)

	text, err := svc.GenerateFromImage(context.Background(), "analyze", pngHeader, "image/png", scanParams)

	require.NoError(t, err)
	assert.Equal(t, `{"status":"Healthy"}`, text)

	raw, _ := json.Marshal(fake.lastBody["contents"])
	assert.Contains(t, string(raw), `"mimeType":"image/png"`)
	assert.Contains(t, string(raw), `"text":"analyze"`)
}

func TestGeminiService_NonSuccessStatus(t *testing.T) {
	fake := &fakeGemini{
		status: http.StatusInternalServerError,
		body:   `{"error":{"code":500,"message":"backend exploded","status":"INTERNAL"}}`,
	}
	svc := newFakeGeminiService(t, fake)

	_, err := svc.GenerateText(context.Background(), "hi", chatParams)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusInternalServerError, upErr.StatusCode)
}

func TestGeminiService_ZeroCandidates(t *testing.T) {
	fake := &fakeGemini{status: http.StatusOK, body: `{"candidates":[]}`}
	svc := newFakeGeminiService(t, fake)

	_, err := svc.GenerateText(context.Background(), "hi", chatParams)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.ErrorIs(t, err, errNoCandidates)
}

func TestRestConfig_OmitsUnsetSampling(t *testing.T) {
	cfg := restConfig(scanParams)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.4, *cfg.Temperature, 0.0001)
	assert.Equal(t, int32(1000), cfg.MaxOutputTokens)
	assert.Nil(t, cfg.TopP)
	assert.Nil(t, cfg.TopK)
}
