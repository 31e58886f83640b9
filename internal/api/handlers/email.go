package handlers

import (
	"net/http"
	"strings"

	"trustlens/internal/domain/services"
	"trustlens/pkg/logger"
)

// EmailHandler handles email and SMS typosquat endpoints
type EmailHandler struct {
	detector *services.TyposquatDetector
	logger   *logger.Logger
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(detector *services.TyposquatDetector, log *logger.Logger) *EmailHandler {
	return &EmailHandler{
		detector: detector,
		logger:   log.WithComponent("email_handler"),
	}
}

// CheckEmailRequest is the POST /api/v1/email/check payload
type CheckEmailRequest struct {
	Address string `json:"address"`
}

// Check handles POST /api/v1/email/check
func (h *EmailHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckEmailRequest
	if err := decodeJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Address) == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}

	respondJSON(w, http.StatusOK, h.detector.CheckEmail(req.Address))
}

// ScanSMSRequest is the POST /api/v1/sms/scan payload
type ScanSMSRequest struct {
	Body string `json:"body"`
}

// ScanSMS handles POST /api/v1/sms/scan
func (h *EmailHandler) ScanSMS(w http.ResponseWriter, r *http.Request) {
	var req ScanSMSRequest
	if err := decodeJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		respondError(w, http.StatusBadRequest, "body is required")
		return
	}

	respondJSON(w, http.StatusOK, h.detector.ScanSMS(req.Body))
}
