package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmwise-backend/internal/models"
	"farmwise-backend/internal/services"
)

type stubAdvisor struct {
	reply    string
	analysis models.AnalysisResult
	err      error
	hasKey   bool

	converseCalls int
	scanCalls     int
	lastChat      models.ChatRequest
	lastUpload    services.ImageUpload
	lastImage     []byte
}

func (s *stubAdvisor) Converse(ctx context.Context, req models.ChatRequest) (string, error) {
	s.converseCalls++
	s.lastChat = req
	return s.reply, s.err
}

func (s *stubAdvisor) Scan(ctx context.Context, upload services.ImageUpload) (models.AnalysisResult, error) {
	s.scanCalls++
	s.lastUpload = upload
	s.lastImage, _ = io.ReadAll(upload.Body)
	return s.analysis, s.err
}

func (s *stubAdvisor) HasAPIKey() bool { return s.hasKey }

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

// ─── Chat Handler Tests ───

func TestChatHandler_Success(t *testing.T) {
	adv := &stubAdvisor{reply: "Use neem oil."}
	h := NewChatHandler(adv, zerolog.Nop())

	rr := postJSON(t, h.Chat, `{"message":"How do I deal with aphids?","context":"farming_advisor","conversationHistory":[{"id":1,"type":"bot","content":"Hello!"},{"id":2,"type":"user","content":"Hi"}]}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"response": "Use neem oil."}, decode(t, rr))

	require.Len(t, adv.lastChat.ConversationHistory, 2)
	assert.Equal(t, models.ChatTurn{Role: models.RoleAssistant, Text: "Hello!"}, adv.lastChat.ConversationHistory[0])
	assert.Equal(t, models.ChatTurn{Role: models.RoleUser, Text: "Hi"}, adv.lastChat.ConversationHistory[1])
}

func TestChatHandler_InvalidBody(t *testing.T) {
	adv := &stubAdvisor{}
	h := NewChatHandler(adv, zerolog.Nop())

	rr := postJSON(t, h.Chat, `{"message":`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, adv.converseCalls)
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantError    string
		wantResponse string
	}{
		{"invalid input", &services.InvalidInputError{Message: "Message is required"}, http.StatusBadRequest, "Message is required", ""},
		{"configuration", &services.ConfigurationError{Message: "Server configuration error"}, http.StatusInternalServerError, "Server configuration error", configApology},
		{"upstream", &services.UpstreamError{StatusCode: 503}, http.StatusInternalServerError, "Failed to get response", upstreamApology},
		{"internal", &services.InternalError{}, http.StatusInternalServerError, "Failed to get response", upstreamApology},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewChatHandler(&stubAdvisor{err: tc.err}, zerolog.Nop())

			rr := postJSON(t, h.Chat, `{"message":"hi"}`)

			assert.Equal(t, tc.wantStatus, rr.Code)
			body := decode(t, rr)
			assert.Equal(t, tc.wantError, body["error"])
			if tc.wantResponse == "" {
				assert.NotContains(t, body, "response")
			} else {
				assert.Equal(t, tc.wantResponse, body["response"])
			}
		})
	}
}

// ─── Scan Handler Tests ───

func multipartBody(t *testing.T, field, filename, contentType string, data []byte, extra int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i := 0; i <= extra; i++ {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		if contentType != "" {
			hdr.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestScanHandler_Success(t *testing.T) {
	analysis := models.AnalysisResult{
		Status: "Healthy", Disease: "Healthy Plant", Severity: "None",
		Description: "Looks fine.", Treatment: []string{"Continue current care routine"},
		Prevention: []string{"Maintain regular watering"}, Confidence: 85,
	}
	adv := &stubAdvisor{analysis: analysis}
	h := NewScanHandler(adv, 1<<20, zerolog.Nop())

	body, ct := multipartBody(t, "image", "leaf.jpg", "image/jpeg", []byte("jpeg-bytes"), 0)
	req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.Scan(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp models.ScanResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, analysis, resp.Analysis)
	assert.Equal(t, "leaf.jpg", adv.lastUpload.Filename)
	assert.Equal(t, "image/jpeg", adv.lastUpload.MIMEType)
	assert.Equal(t, []byte("jpeg-bytes"), adv.lastImage)
}

func TestScanHandler_NoImage(t *testing.T) {
	cases := []struct {
		name string
		req  func() *http.Request
	}{
		{"not multipart", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewBufferString(`{}`))
		}},
		{"wrong field", func() *http.Request {
			body, ct := multipartBody(t, "photo", "leaf.jpg", "image/jpeg", []byte("x"), 0)
			req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
			req.Header.Set("Content-Type", ct)
			return req
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adv := &stubAdvisor{}
			h := NewScanHandler(adv, 1<<20, zerolog.Nop())

			rr := httptest.NewRecorder()
			h.Scan(rr, tc.req())

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, map[string]any{"error": "No image file provided"}, decode(t, rr))
			assert.Equal(t, 0, adv.scanCalls)
		})
	}
}

func TestScanHandler_RejectsMultipleImages(t *testing.T) {
	adv := &stubAdvisor{}
	h := NewScanHandler(adv, 1<<20, zerolog.Nop())

	body, ct := multipartBody(t, "image", "leaf.jpg", "image/jpeg", []byte("x"), 1)
	req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.Scan(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, adv.scanCalls)
}

func TestScanHandler_TooLarge(t *testing.T) {
	adv := &stubAdvisor{}
	h := NewScanHandler(adv, 16, zerolog.Nop())

	body, ct := multipartBody(t, "image", "leaf.jpg", "image/jpeg", bytes.Repeat([]byte("x"), 64), 0)
	req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.Scan(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, 0, adv.scanCalls)
}

func TestScanHandler_ServerErrorsCarryFallbackAnalysis(t *testing.T) {
	for _, err := range []error{
		&services.ConfigurationError{Message: "Server configuration error"},
		&services.UpstreamError{StatusCode: 500},
		&services.InternalError{},
	} {
		adv := &stubAdvisor{err: err}
		h := NewScanHandler(adv, 1<<20, zerolog.Nop())

		body, ct := multipartBody(t, "image", "leaf.png", "", []byte("x"), 0)
		req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
		req.Header.Set("Content-Type", ct)
		rr := httptest.NewRecorder()
		h.Scan(rr, req)

		require.Equal(t, http.StatusInternalServerError, rr.Code, "err=%v", err)
		var resp models.ScanErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Error)
		require.NotNil(t, resp.Analysis)
		assert.Equal(t, services.FailedAnalysis(), *resp.Analysis)
	}
}

// ─── Health Handler Tests ───

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(func() bool { return true })
	h.now = func() time.Time { return time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC) }

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{
		"status":    "OK",
		"timestamp": "2026-10-19T08:30:00.000Z",
		"hasApiKey": true,
	}, decode(t, rr))
}
