package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"farmwise-backend/internal/middleware"
	"farmwise-backend/internal/models"
	"farmwise-backend/internal/services"
)

type ChatHandler struct {
	advisor advisor
	log     zerolog.Logger
}

func NewChatHandler(advisor advisor, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		advisor: advisor,
		log:     log.With().Str("handler", "chat").Logger(),
	}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body"))
		return
	}

	reply, err := h.advisor.Converse(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Response: reply})
}

func (h *ChatHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid *services.InvalidInputError
		cfgErr  *services.ConfigurationError
	)
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResp(invalid.Message))
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusInternalServerError, models.ChatErrorResponse{
			Error:    cfgErr.Message,
			Response: configApology,
		})
	default:
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("chat failed")
		writeJSON(w, http.StatusInternalServerError, models.ChatErrorResponse{
			Error:    "Failed to get response",
			Response: upstreamApology,
		})
	}
}
