package handlers

import (
	"net/http"
	"strings"

	"trustlens/internal/domain/services"
	"trustlens/pkg/logger"
)

// URLHandler handles URL assessment endpoints
type URLHandler struct {
	aggregator *services.RiskScoreAggregator
	logger     *logger.Logger
}

// NewURLHandler creates a new URLHandler
func NewURLHandler(ag *services.RiskScoreAggregator, log *logger.Logger) *URLHandler {
	return &URLHandler{
		aggregator: ag,
		logger:     log.WithComponent("url_handler"),
	}
}

// CheckURLRequest is the POST /api/v1/url/check payload
type CheckURLRequest struct {
	URL      string `json:"url"`
	PageHTML string `json:"page_html,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Check handles POST /api/v1/url/check
func (h *URLHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckURLRequest
	if err := decodeJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	verdict := h.aggregator.Assess(r.Context(), services.AssessRequest{
		URL:      req.URL,
		PageHTML: req.PageHTML,
		Text:     req.Text,
	})

	respondJSON(w, http.StatusOK, verdict)
}
