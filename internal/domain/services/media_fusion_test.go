package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustlens/internal/domain/models"
	"trustlens/pkg/logger"
)

type fakeAuthenticity struct {
	prob      float64
	ok        bool
	err       error
	available bool
}

func (f fakeAuthenticity) Available() bool { return f.available }

func (f fakeAuthenticity) FakeProbability(ctx context.Context, img []byte) (float64, bool, error) {
	return f.prob, f.ok, f.err
}

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var (
	alertRed    = color.RGBA{R: 220, G: 30, B: 40, A: 255}
	neutralGray = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

func newTestFusion(t *testing.T, authenticity AuthenticityScorer) *MediaRiskFusion {
	t.Helper()
	return NewMediaRiskFusion(authenticity, newTestEngine(t), logger.NewDefault())
}

func TestScoreMediaWarningColorFloorsMedium(t *testing.T) {
	fusion := newTestFusion(t, nil)

	risk := fusion.ScoreMedia(context.Background(), MediaInput{
		URL:   "https://example.com/alert",
		Image: solidPNG(t, 60, 60, alertRed),
	})

	assert.True(t, risk.WarningColor)
	assert.Zero(t, risk.MediaScore)
	assert.Equal(t, models.RiskLevelMedium, risk.MediaColor)
	assert.Contains(t, risk.Reasons, "Prominent warning colors on screen")
	assert.Nil(t, risk.FakeProb)
}

func TestScoreMediaNeutralImage(t *testing.T) {
	fusion := newTestFusion(t, nil)

	risk := fusion.ScoreMedia(context.Background(), MediaInput{
		Image: solidPNG(t, 60, 60, neutralGray),
	})

	assert.False(t, risk.WarningColor)
	assert.Equal(t, models.RiskLevelLow, risk.MediaColor)
	assert.Contains(t, risk.Reasons, "No strong manipulation or scam signals found")
}

func TestScoreMediaLocalizedBannerTripsTileRatio(t *testing.T) {
	// A red strip covering under 5% of the frame stays below the global
	// threshold but saturates its corner tile.
	img := image.NewRGBA(image.Rect(0, 0, 90, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 90; x++ {
			if y < 12 && x < 30 {
				img.SetRGBA(x, y, alertRed)
			} else {
				img.SetRGBA(x, y, neutralGray)
			}
		}
	}

	global, maxTile := warningColorRatios(img)

	assert.Less(t, global, warnGlobalThreshold)
	assert.GreaterOrEqual(t, maxTile, warnTileThreshold)
}

func TestScoreMediaScamTextForcesHigh(t *testing.T) {
	fusion := newTestFusion(t, nil)

	risk := fusion.ScoreMedia(context.Background(), MediaInput{
		OCRText: "WARNING! Your computer has been infected with a virus. Do not close this window. Call support immediately at 1-800-555-0199.",
	})

	require.NotNil(t, risk.ScamAlert)
	assert.True(t, risk.ScamAlert.IsScam)
	assert.Equal(t, models.RiskLevelHigh, risk.MediaColor)
	assert.Contains(t, risk.Reasons, "Scam language detected in on-screen text")
}

func TestScoreMediaStrongPatternWithoutVerdictFloorsMedium(t *testing.T) {
	fusion := newTestFusion(t, nil)

	// One scare phrase alone never reaches a scam verdict, but it still
	// keeps the frame from reading as fully green.
	risk := fusion.ScoreMedia(context.Background(), MediaInput{
		OCRText: "Your account has been locked.",
	})

	require.NotNil(t, risk.ScamAlert)
	assert.False(t, risk.ScamAlert.IsScam)
	assert.Equal(t, models.RiskLevelMedium, risk.MediaColor)
	assert.Contains(t, risk.Reasons, "On-screen text contains pressure language")
}

func TestScoreMediaStrongPatternWithWarningColorForcesHigh(t *testing.T) {
	fusion := newTestFusion(t, nil)

	// The text alone stays under the scam threshold, but scam-shaped
	// wording on an alert-red frame is treated as a fake popup.
	risk := fusion.ScoreMedia(context.Background(), MediaInput{
		Image:   solidPNG(t, 60, 60, alertRed),
		OCRText: "Pay with a gift card to continue.",
	})

	require.NotNil(t, risk.ScamAlert)
	assert.False(t, risk.ScamAlert.IsScam)
	assert.True(t, risk.WarningColor)
	assert.Equal(t, models.RiskLevelHigh, risk.MediaColor)
}

func TestScoreMediaAveragesLocalAndExternalProbs(t *testing.T) {
	auth := fakeAuthenticity{prob: 0.8, ok: true, available: true}
	fusion := newTestFusion(t, auth)

	risk := fusion.ScoreMedia(context.Background(), MediaInput{
		Image:             solidPNG(t, 60, 60, neutralGray),
		ExternalFakeProbs: []float64{0.4},
	})

	require.NotNil(t, risk.FakeProb)
	assert.InDelta(t, 60, *risk.FakeProb, 0.001)
	assert.InDelta(t, 60, risk.MediaScore, 0.001)
	assert.Equal(t, models.RiskLevelMedium, risk.MediaColor)
}

func TestScoreMediaShedSampleKeepsExternalSignal(t *testing.T) {
	auth := fakeAuthenticity{ok: false, available: true}
	fusion := newTestFusion(t, auth)

	risk := fusion.ScoreMedia(context.Background(), MediaInput{
		Image:             solidPNG(t, 60, 60, neutralGray),
		ExternalFakeProbs: []float64{0.2},
	})

	assert.InDelta(t, 20, risk.MediaScore, 0.001)
	assert.Equal(t, models.RiskLevelLow, risk.MediaColor)
}

func TestScoreMediaModelErrorDegrades(t *testing.T) {
	auth := fakeAuthenticity{err: assert.AnError, available: true}
	fusion := newTestFusion(t, auth)

	risk := fusion.ScoreMedia(context.Background(), MediaInput{
		Image: solidPNG(t, 60, 60, neutralGray),
	})

	assert.Nil(t, risk.FakeProb)
	assert.Zero(t, risk.MediaScore)
}

func TestScoreMediaMerchantCap(t *testing.T) {
	reputable := &models.Merchant{Domain: "shop.example.com", Verified: true}

	t.Run("reputable merchant caps the score", func(t *testing.T) {
		fusion := newTestFusion(t, nil)

		risk := fusion.ScoreMedia(context.Background(), MediaInput{
			Merchant:          reputable,
			ExternalFakeProbs: []float64{0.6},
		})

		assert.InDelta(t, 30, risk.MediaScore, 0.001)
		assert.Equal(t, models.RiskLevelLow, risk.MediaColor)
	})

	t.Run("near-certain fake overrides the cap", func(t *testing.T) {
		fusion := newTestFusion(t, nil)

		risk := fusion.ScoreMedia(context.Background(), MediaInput{
			Merchant:          reputable,
			ExternalFakeProbs: []float64{0.99},
		})

		assert.InDelta(t, 99, risk.MediaScore, 0.001)
		assert.Equal(t, models.RiskLevelHigh, risk.MediaColor)
		assert.Contains(t, risk.Reasons, "Image is almost certainly manipulated or AI-generated")
	})

	t.Run("two fraud reports void the cap", func(t *testing.T) {
		fusion := newTestFusion(t, nil)
		reported := &models.Merchant{Domain: "shop.example.com", Verified: true, FraudReports: 2, TotalReports: 40}

		risk := fusion.ScoreMedia(context.Background(), MediaInput{
			Merchant:          reported,
			ExternalFakeProbs: []float64{0.6},
		})

		assert.InDelta(t, 60, risk.MediaScore, 0.001)
	})

	t.Run("unknown merchant gets no cap", func(t *testing.T) {
		fusion := newTestFusion(t, nil)

		risk := fusion.ScoreMedia(context.Background(), MediaInput{
			ExternalFakeProbs: []float64{0.6},
		})

		assert.InDelta(t, 60, risk.MediaScore, 0.001)
	})
}
