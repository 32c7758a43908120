package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"farmwise-backend/internal/middleware"
	"farmwise-backend/internal/models"
	"farmwise-backend/internal/services"
)

const scanFormField = "image"

type ScanHandler struct {
	advisor        advisor
	maxUploadBytes int64
	log            zerolog.Logger
}

func NewScanHandler(advisor advisor, maxUploadBytes int64, log zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		advisor:        advisor,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("handler", "scan").Logger(),
	}
}

func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("Image exceeds the upload size limit"))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("Image exceeds the upload size limit"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("No image file provided"))
		return
	}
	// Drop any multipart temp files the parser spilled to disk.
	defer r.MultipartForm.RemoveAll()

	if len(r.MultipartForm.File[scanFormField]) > 1 {
		writeJSON(w, http.StatusBadRequest, errorResp("Only one image may be uploaded"))
		return
	}

	file, header, err := r.FormFile(scanFormField)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("No image file provided"))
		return
	}
	defer file.Close()

	result, err := h.advisor.Scan(r.Context(), services.ImageUpload{
		Body:     file,
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ScanResponse{Analysis: result})
}

func (h *ScanHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *services.InvalidInputError
		cfgErr   *services.ConfigurationError
		upstream *services.UpstreamError
	)
	failed := services.FailedAnalysis()

	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResp(invalid.Message))
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusInternalServerError, models.ScanErrorResponse{Error: cfgErr.Message, Analysis: &failed})
	case errors.As(err, &upstream):
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("scan upstream failure")
		writeJSON(w, http.StatusInternalServerError, models.ScanErrorResponse{Error: "Failed to analyze image", Analysis: &failed})
	default:
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("scan failed")
		writeJSON(w, http.StatusInternalServerError, models.ScanErrorResponse{Error: "Internal server error", Analysis: &failed})
	}
}
