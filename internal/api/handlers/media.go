package handlers

import (
	"encoding/base64"
	"net/http"

	"trustlens/internal/domain/services"
	"trustlens/pkg/logger"
)

// maxImageBytes bounds decoded screenshot uploads
const maxImageBytes = 8 << 20

// MediaHandler handles media risk scoring endpoints
type MediaHandler struct {
	fusion    *services.MediaRiskFusion
	merchants services.MerchantStore
	logger    *logger.Logger
}

// NewMediaHandler creates a new MediaHandler. merchants may be nil.
func NewMediaHandler(fusion *services.MediaRiskFusion, merchants services.MerchantStore, log *logger.Logger) *MediaHandler {
	return &MediaHandler{
		fusion:    fusion,
		merchants: merchants,
		logger:    log.WithComponent("media_handler"),
	}
}

// ScoreMediaRequest is the POST /api/v1/media/score payload. ImageBase64
// carries the screenshot; OCRText is the caller's extracted screen text.
type ScoreMediaRequest struct {
	URL         string    `json:"url,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	ImageBase64 string    `json:"image_base64,omitempty"`
	OCRText     string    `json:"ocr_text,omitempty"`
	FakeProbs   []float64 `json:"fake_probs,omitempty"`
}

// Score handles POST /api/v1/media/score
func (h *MediaHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreMediaRequest
	if err := decodeJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ImageBase64 == "" && req.OCRText == "" && len(req.FakeProbs) == 0 {
		respondError(w, http.StatusBadRequest, "at least one of image_base64, ocr_text, fake_probs is required")
		return
	}

	var img []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "image_base64 is not valid base64")
			return
		}
		if len(decoded) > maxImageBytes {
			respondError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		img = decoded
	}

	for _, p := range req.FakeProbs {
		if p < 0 || p > 1 {
			respondError(w, http.StatusBadRequest, "fake_probs values must be within [0,1]")
			return
		}
	}

	in := services.MediaInput{
		URL:               req.URL,
		Image:             img,
		OCRText:           req.OCRText,
		ExternalFakeProbs: req.FakeProbs,
	}
	if h.merchants != nil && req.Domain != "" {
		if m, err := h.merchants.GetByDomain(r.Context(), req.Domain); err == nil {
			in.Merchant = m
		}
	}

	risk := h.fusion.ScoreMedia(r.Context(), in)
	risk.Domain = req.Domain
	respondJSON(w, http.StatusOK, risk)
}
