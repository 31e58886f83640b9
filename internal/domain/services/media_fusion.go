package services

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"trustlens/internal/domain/models"
	"trustlens/pkg/logger"
)

// Warning-color heuristic thresholds. The frame is split into a 3x3 grid;
// a localized alert banner trips the per-tile ratio even when the overall
// frame is mostly neutral.
const (
	warnGridSize        = 3
	warnGlobalThreshold = 0.06
	warnTileThreshold   = 0.12
)

const (
	// Reputable merchants cap the media score unless the authenticity
	// model is near-certain the image is fake.
	merchantScoreCap     = 30
	extremeFakeProb      = 0.95
	mediaHighThreshold   = 70
	mediaMediumThreshold = 40
	maxMediaReasons      = 3
)

// AuthenticityScorer asks an image model for a fake probability in [0,1].
// ok=false means the model was busy or unavailable and the sample was
// shed; the caller proceeds without the signal.
type AuthenticityScorer interface {
	Available() bool
	FakeProbability(ctx context.Context, img []byte) (prob float64, ok bool, err error)
}

// MediaInput is one screenshot or media capture to score.
type MediaInput struct {
	URL      string
	Image    []byte
	OCRText  string
	Merchant *models.Merchant

	// ExternalFakeProbs are authenticity probabilities ([0,1]) already
	// computed elsewhere, averaged together with the local model's.
	ExternalFakeProbs []float64
}

// MediaRiskFusion combines image authenticity, visual warning-color cues
// and on-screen scam text into one media risk verdict.
type MediaRiskFusion struct {
	authenticity AuthenticityScorer
	scamText     *ScamTextRuleEngine
	logger       *logger.Logger
}

// NewMediaRiskFusion creates the fusion service. authenticity may be nil.
func NewMediaRiskFusion(authenticity AuthenticityScorer, scamText *ScamTextRuleEngine, log *logger.Logger) *MediaRiskFusion {
	return &MediaRiskFusion{
		authenticity: authenticity,
		scamText:     scamText,
		logger:       log.WithComponent("media_fusion"),
	}
}

// ScoreMedia fuses all media signals into a 0-100 risk score and color.
// Never returns an error; missing signals degrade the verdict instead.
func (m *MediaRiskFusion) ScoreMedia(ctx context.Context, in MediaInput) *models.MediaRisk {
	risk := &models.MediaRisk{
		URL:        in.URL,
		Reasons:    []string{},
		AssessedAt: time.Now(),
	}

	probs := append([]float64(nil), in.ExternalFakeProbs...)
	if m.authenticity != nil && m.authenticity.Available() && len(in.Image) > 0 {
		p, ok, err := m.authenticity.FakeProbability(ctx, in.Image)
		switch {
		case err != nil:
			m.logger.Warn().Err(err).Msg("authenticity check failed, continuing without it")
		case !ok:
			m.logger.Debug().Msg("authenticity checker busy, sample shed")
		default:
			probs = append(probs, p)
		}
	}

	var maxProb float64
	if len(probs) > 0 {
		var sum float64
		for _, p := range probs {
			sum += p
			if p > maxProb {
				maxProb = p
			}
		}
		avg := sum / float64(len(probs))
		risk.MediaScore = avg * 100
		scaled := avg * 100
		risk.FakeProb = &scaled
	}

	if len(in.Image) > 0 {
		if img, _, err := image.Decode(bytes.NewReader(in.Image)); err == nil {
			global, maxTile := warningColorRatios(img)
			risk.WarningColor = global >= warnGlobalThreshold || maxTile >= warnTileThreshold
		} else {
			m.logger.Debug().Err(err).Msg("image decode failed, skipping color analysis")
		}
	}

	var alert *models.ScamAlert
	if m.scamText != nil && in.OCRText != "" {
		alert = m.scamText.ScoreText(in.OCRText, models.TextSourceScreen)
		risk.ScamAlert = alert
	}

	// Reputable merchants get the benefit of the doubt on the averaged
	// probability, but a near-certain fake overrides the cap.
	if in.Merchant.IsReputable() && maxProb < extremeFakeProb && risk.MediaScore > merchantScoreCap {
		risk.MediaScore = merchantScoreCap
	}

	risk.MediaScore = clampScore(risk.MediaScore, 0, 100)
	risk.MediaColor = models.RiskLevelForMedia(risk.MediaScore)

	if risk.WarningColor && risk.MediaColor == models.RiskLevelLow {
		risk.MediaColor = models.RiskLevelMedium
	}

	switch {
	case alert != nil && alert.IsScam:
		// Confirmed scam text on screen dominates everything else.
		risk.MediaColor = models.RiskLevelHigh
	case alert != nil && hasStrongPattern(alert) && risk.WarningColor:
		// Scam-shaped wording plus an alert-colored frame is the classic
		// fake virus popup even when the text alone stays under threshold.
		risk.MediaColor = models.RiskLevelHigh
	case alert != nil && hasStrongPattern(alert) && risk.MediaColor == models.RiskLevelLow:
		risk.MediaColor = models.RiskLevelMedium
	}

	m.explain(risk, alert, maxProb)
	return risk
}

func (m *MediaRiskFusion) explain(risk *models.MediaRisk, alert *models.ScamAlert, maxProb float64) {
	if alert != nil && alert.IsScam {
		risk.Reasons = append(risk.Reasons, "Scam language detected in on-screen text")
	}
	if maxProb >= extremeFakeProb {
		risk.Reasons = append(risk.Reasons, "Image is almost certainly manipulated or AI-generated")
	} else if risk.MediaScore >= mediaMediumThreshold && risk.FakeProb != nil {
		risk.Reasons = append(risk.Reasons, "Image shows signs of manipulation or AI generation")
	}
	if risk.WarningColor {
		risk.Reasons = append(risk.Reasons, "Prominent warning colors on screen")
	}
	if alert != nil && !alert.IsScam && hasStrongPattern(alert) {
		risk.Reasons = append(risk.Reasons, "On-screen text contains pressure language")
	}
	if len(risk.Reasons) == 0 && risk.MediaColor == models.RiskLevelLow {
		risk.Reasons = append(risk.Reasons, "No strong manipulation or scam signals found")
	}
	if len(risk.Reasons) > maxMediaReasons {
		risk.Reasons = risk.Reasons[:maxMediaReasons]
	}
}

func hasStrongPattern(alert *models.ScamAlert) bool {
	for _, p := range alert.DetectedPatterns {
		if strongCategories[p] {
			return true
		}
	}
	return false
}

// warningColorRatios returns the share of warm alert-colored pixels
// (reds, oranges, yellows) over the whole frame and over the densest tile
// of a 3x3 grid.
func warningColorRatios(img image.Image) (global float64, maxTile float64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0, 0
	}

	var warm [warnGridSize][warnGridSize]int
	var total [warnGridSize][warnGridSize]int
	var warmAll int

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		ty := (y - bounds.Min.Y) * warnGridSize / h
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			tx := (x - bounds.Min.X) * warnGridSize / w
			total[ty][tx]++

			r, _, b, _ := img.At(x, y).RGBA()
			r8, b8 := int(r>>8), int(b>>8)
			if r8 >= 160 && b8 <= 120 && r8-b8 >= 60 {
				warm[ty][tx]++
				warmAll++
			}
		}
	}

	global = float64(warmAll) / float64(w*h)
	for ty := 0; ty < warnGridSize; ty++ {
		for tx := 0; tx < warnGridSize; tx++ {
			if total[ty][tx] == 0 {
				continue
			}
			ratio := float64(warm[ty][tx]) / float64(total[ty][tx])
			if ratio > maxTile {
				maxTile = ratio
			}
		}
	}
	return global, maxTile
}
