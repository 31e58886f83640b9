package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trustlens/internal/domain/models"
	"trustlens/pkg/logger"
)

func newTestEngine(t *testing.T) *ScamTextRuleEngine {
	t.Helper()
	detector := NewTyposquatDetector(nil, nil, nil)
	return NewScamTextRuleEngine(detector, ScamTextOptions{}, logger.NewDefault())
}

func TestScoreTextTechSupportScam(t *testing.T) {
	engine := newTestEngine(t)

	alert := engine.ScoreText(
		"WARNING! Your computer has been infected with a virus. Do not close this window. Call Microsoft support immediately at 1-800-555-0199.",
		models.TextSourceScreen,
	)

	assert.True(t, alert.IsScam)
	assert.GreaterOrEqual(t, alert.Confidence, 85.0)
	assert.True(t, alert.HasPattern(CategoryVirusWarning))
	assert.True(t, alert.HasPattern(CategoryPhoneNumber))
	assert.True(t, alert.HasPattern(CategoryDoNotClose))
	assert.NotEmpty(t, alert.SeniorMessage)
	assert.Contains(t, alert.ActionAdvice[0], "Do not call the number")
}

func TestScoreTextWeightedSumAloneNeverFlags(t *testing.T) {
	engine := newTestEngine(t)

	// Urgency plus a brand mention scores points but forms no combination
	alert := engine.ScoreText(
		"Urgent message from Amazon about your recent order, please review it when convenient.",
		models.TextSourceGeneric,
	)

	assert.False(t, alert.IsScam)
	assert.Greater(t, alert.Confidence, 0.0)
}

func TestScoreTextLegitimateUISuppression(t *testing.T) {
	engine := newTestEngine(t)

	alert := engine.ScoreText(
		"System Preferences: your account has been locked for security, call support at 1-800-555-0122 to restore access.",
		models.TextSourceScreen,
	)

	// The scare+phone floor of 85 is pulled to 35 by the UI suppression
	assert.False(t, alert.IsScam)
	assert.InDelta(t, 35, alert.Confidence, 0.001)
}

func TestScoreTextShortTextPenalty(t *testing.T) {
	engine := newTestEngine(t)

	// Under 40 chars: the floor of 85 drops to 65
	short := "virus found call 1-800-555-0199"

	screen := engine.ScoreText(short, models.TextSourceScreen)
	assert.True(t, screen.IsScam, "65 clears the screen threshold of 60")
	assert.InDelta(t, 65, screen.Confidence, 0.001)

	generic := engine.ScoreText(short, models.TextSourceGeneric)
	assert.False(t, generic.IsScam, "65 misses the generic threshold of 70")
}

func TestScoreTextScarePaymentFloor(t *testing.T) {
	engine := newTestEngine(t)

	alert := engine.ScoreText(
		"Your account has been suspended due to suspicious activity. Pay the processing fee with a gift card to restore access.",
		models.TextSourceGeneric,
	)

	assert.True(t, alert.IsScam)
	assert.GreaterOrEqual(t, alert.Confidence, 90.0)
	assert.True(t, alert.HasPattern(CategoryScareTactic))
	assert.True(t, alert.HasPattern(CategoryPaymentRequest))
	assert.Contains(t, alert.SeniorMessage, "payment scam")
}

func TestScoreTextTyposquatEmailFloor(t *testing.T) {
	engine := newTestEngine(t)

	alert := engine.ScoreText(
		"Your package is waiting. Contact security@amaz0n-support.com to confirm your delivery preferences today.",
		models.TextSourceGeneric,
	)

	assert.True(t, alert.IsScam)
	assert.GreaterOrEqual(t, alert.Confidence, 100.0)
	assert.Contains(t, alert.DetectedPatterns, "suspicious_email:security@amaz0n-support.com")
	assert.Contains(t, alert.SeniorMessage, "amazon")
}

func TestScoreTextVirusPaymentFloor(t *testing.T) {
	engine := newTestEngine(t)

	alert := engine.ScoreText(
		"Your computer has been infected with a virus. Pay the processing fee with a gift card to continue.",
		models.TextSourceGeneric,
	)

	assert.True(t, alert.IsScam)
	assert.InDelta(t, 85, alert.Confidence, 0.001)
	assert.True(t, alert.HasPattern(CategoryVirusWarning))
	assert.True(t, alert.HasPattern(CategoryPaymentRequest))
}

func TestScoreTextErrorCodeActionFloor(t *testing.T) {
	engine := newTestEngine(t)

	alert := engine.ScoreText(
		"Error code 0x80070005 detected on your device. Click here to resolve the issue now.",
		models.TextSourceGeneric,
	)

	assert.True(t, alert.IsScam)
	assert.InDelta(t, 85, alert.Confidence, 0.001)
	assert.True(t, alert.HasPattern(CategoryFakeErrorCode))
	assert.True(t, alert.HasPattern(CategoryActionDemand))
}

func TestScoreTextDoNotCloseBrandFloor(t *testing.T) {
	engine := newTestEngine(t)

	alert := engine.ScoreText(
		"Do not close this window. Windows has detected a problem with your license.",
		models.TextSourceScreen,
	)

	assert.True(t, alert.IsScam)
	assert.GreaterOrEqual(t, alert.Confidence, 90.0)
	assert.True(t, alert.HasPattern(CategoryDoNotClose))
	assert.True(t, alert.HasPattern(CategoryBrandMention))
}

func TestScoreTextSensitiveInputLabel(t *testing.T) {
	engine := newTestEngine(t)

	alert := engine.ScoreText(
		"Amazon needs you to enter your password and card number to keep your account.",
		models.TextSourceGeneric,
	)

	assert.True(t, alert.HasPattern(CategorySensitiveInput))
	assert.True(t, alert.HasPattern(CategoryPhishingIntent))
	// brand 10 + credential intent 20 + sensitive label 15
	assert.InDelta(t, 45, alert.Confidence, 0.001)
	assert.False(t, alert.IsScam, "the weighted sum alone never flags")

	benign := engine.ScoreText(
		"Remember to update your password regularly in system settings.",
		models.TextSourceGeneric,
	)
	assert.False(t, benign.HasPattern(CategorySensitiveInput),
		"a sensitive label without a phishing or brand signal does not score")
}

func TestScoreTextEmptyInput(t *testing.T) {
	engine := newTestEngine(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		alert := engine.ScoreText(text, models.TextSourceScreen)
		assert.False(t, alert.IsScam)
		assert.Zero(t, alert.Confidence)
	}
}

func TestScoreTextScamImpliesThreshold(t *testing.T) {
	engine := newTestEngine(t)

	samples := []struct {
		text   string
		source models.TextSource
	}{
		{"Your computer has been locked. Call 1-800-555-0100 immediately to unlock it.", models.TextSourceScreen},
		{"Final notice: wire transfer required or your account will be deleted.", models.TextSourceGeneric},
		{"Checking for updates. Software update available.", models.TextSourceScreen},
		{"Error code 0x80073b01 detected. Do not restart. Dial 800-555-0123 now.", models.TextSourceScreen},
	}

	for _, s := range samples {
		alert := engine.ScoreText(s.text, s.source)
		if alert.IsScam {
			assert.GreaterOrEqual(t, alert.Confidence, engine.Threshold(s.source),
				"a scam verdict always clears its decision threshold: %q", s.text)
		}
		assert.GreaterOrEqual(t, alert.Confidence, 0.0)
		assert.LessOrEqual(t, alert.Confidence, 100.0)
	}
}

func TestScoreTextCustomPhrases(t *testing.T) {
	detector := NewTyposquatDetector(nil, nil, nil)
	engine := NewScamTextRuleEngine(detector, ScamTextOptions{
		CustomPhrases: []string{"grandma emergency fund"},
	}, logger.NewDefault())

	alert := engine.ScoreText(
		"Please move money into the grandma emergency fund before noon, this is urgent and cannot wait.",
		models.TextSourceGeneric,
	)

	assert.True(t, alert.HasPattern(CategoryCustomPhrase))
}
