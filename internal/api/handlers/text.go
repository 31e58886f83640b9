package handlers

import (
	"net/http"
	"strings"

	"trustlens/internal/domain/models"
	"trustlens/internal/domain/services"
	"trustlens/pkg/logger"
)

// TextHandler handles scam text scoring endpoints
type TextHandler struct {
	engine *services.ScamTextRuleEngine
	logger *logger.Logger
}

// NewTextHandler creates a new TextHandler
func NewTextHandler(engine *services.ScamTextRuleEngine, log *logger.Logger) *TextHandler {
	return &TextHandler{
		engine: engine,
		logger: log.WithComponent("text_handler"),
	}
}

// ScoreTextRequest is the POST /api/v1/text/score payload
type ScoreTextRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"` // "screen" or "generic"
}

// Score handles POST /api/v1/text/score
func (h *TextHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreTextRequest
	if err := decodeJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	source := models.TextSourceGeneric
	if req.Source == string(models.TextSourceScreen) {
		source = models.TextSourceScreen
	}

	respondJSON(w, http.StatusOK, h.engine.ScoreText(req.Text, source))
}
