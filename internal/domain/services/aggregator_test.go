package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustlens/internal/domain/models"
	"trustlens/pkg/logger"
)

type fakeURLClassifier struct {
	urlProb  models.Probability
	htmlProb models.Probability
	urlErr   error
	htmlErr  error
}

func (f fakeURLClassifier) Available() bool { return true }

func (f fakeURLClassifier) ClassifyURL(ctx context.Context, features []float64) (models.Probability, error) {
	return f.urlProb, f.urlErr
}

func (f fakeURLClassifier) ClassifyHTML(ctx context.Context, features []float64) (models.Probability, error) {
	return f.htmlProb, f.htmlErr
}

type countingClassifier struct {
	urlProb  models.Probability
	htmlProb models.Probability
	urlCalls int
}

func (c *countingClassifier) Available() bool { return true }

func (c *countingClassifier) ClassifyURL(ctx context.Context, features []float64) (models.Probability, error) {
	c.urlCalls++
	return c.urlProb, nil
}

func (c *countingClassifier) ClassifyHTML(ctx context.Context, features []float64) (models.Probability, error) {
	return c.htmlProb, nil
}

type fakeTextClassifier struct {
	hs  models.HamSpam
	err error
}

func (f fakeTextClassifier) Available() bool { return true }

func (f fakeTextClassifier) ClassifyText(ctx context.Context, text string) (models.HamSpam, error) {
	return f.hs, f.err
}

func newRuleAggregator(t *testing.T, assessor *DomainTrustAssessor) *RiskScoreAggregator {
	t.Helper()
	return NewRiskScoreAggregator(assessor, nil, nil, nil, logger.NewDefault())
}

func TestAssessRuleModeTrustedDomain(t *testing.T) {
	tls, headers, ager := goodProbes()
	assessor := newTestAssessor(t, tls, headers, ager, nil, nil)
	ag := newRuleAggregator(t, assessor)

	verdict := ag.Assess(context.Background(), AssessRequest{URL: "https://www.amazon.com/gp/cart"})

	// 50 base, +15 valid TLS, +15 established domain
	assert.InDelta(t, 80, verdict.TrustScore, 0.001)
	assert.Equal(t, models.RiskLevelLow, verdict.RiskLevel)
	assert.Contains(t, verdict.SafetyIndicators, "Trusted well-known domain")
	assert.True(t, verdict.SSLValid)
	assert.Equal(t, "amazon.com", verdict.Domain)
	assert.False(t, verdict.CacheHit)
}

func TestAssessForceHighOnInvalidTLSWithPhishingShape(t *testing.T) {
	// Old domain with a payment gateway keeps the score at MEDIUM on points
	// alone, but plain http plus a phishing-shaped path forces HIGH.
	assessor := newTestAssessor(t, nil,
		fakeHeaders{probe: models.HeaderProbe{}},
		fakeAger{age: 4000}, nil, nil)
	ag := newRuleAggregator(t, assessor)

	page := `<script src="https://js.stripe.com/v3/"></script>`
	verdict := ag.Assess(context.Background(), AssessRequest{
		URL:      "http://pay.example.com/verify-account",
		PageHTML: page,
	})

	// 50 base, -10 invalid TLS, +15 age, +10 gateway, -25 suspicious
	assert.InDelta(t, 40, verdict.TrustScore, 0.001)
	assert.Equal(t, models.RiskLevelHigh, verdict.RiskLevel)
	assert.Contains(t, verdict.RiskFactors, "URL matches known phishing patterns")
}

func TestAssessDowngradeForEstablishedDomain(t *testing.T) {
	merchant := &models.Merchant{Domain: "oldshop.example.com", FraudReports: 4, TotalReports: 10}
	assessor := newTestAssessor(t,
		fakeTLS{probe: models.TLSProbe{Valid: false}},
		fakeHeaders{probe: models.HeaderProbe{SecurityHeaderCount: 2}},
		fakeAger{age: 2000},
		fakeMerchants{merchant: merchant}, nil)
	ag := newRuleAggregator(t, assessor)

	verdict := ag.Assess(context.Background(), AssessRequest{URL: "https://oldshop.example.com/"})

	// 50 base, -10 invalid TLS, +15 age, -20 fraud rate = 35, normally HIGH.
	// Five-plus years of history and header hygiene earn one level of grace.
	assert.InDelta(t, 35, verdict.TrustScore, 0.001)
	assert.Equal(t, models.RiskLevelMedium, verdict.RiskLevel)
	assert.Contains(t, verdict.RiskFactors, "High rate of fraud reports against this merchant")
}

func TestAssessDowngradeSkippedWhenBlacklisted(t *testing.T) {
	features := &models.DomainTrustFeatures{
		SSLChecked:          true,
		DomainAgeDays:       2000,
		SecurityHeaderCount: 2,
		IsBlacklisted:       true,
	}
	// Direct check of the grace rule inputs: blacklisting disqualifies.
	assert.False(t, features.TrustedFloorEligible())
	assert.False(t, features.ReputableFloorEligible())
}

func TestAssessClassifierMode(t *testing.T) {
	tls, headers, ager := goodProbes()
	assessor := newTestAssessor(t, tls, headers, ager, nil, nil)
	clf := fakeURLClassifier{urlProb: models.Probability{Benign: 0.9, Malicious: 0.1}}
	ag := NewRiskScoreAggregator(assessor, clf, nil, nil, logger.NewDefault())

	verdict := ag.Assess(context.Background(), AssessRequest{URL: "https://shop.example.com/"})

	// 90 benign, +10 headers, +5 HSTS, +15 TLS, +15 age, clamped to 100
	assert.InDelta(t, 100, verdict.TrustScore, 0.001)
	assert.Equal(t, models.RiskLevelLow, verdict.RiskLevel)
}

func TestAssessHTMLBlendLowersScore(t *testing.T) {
	tls, headers, ager := goodProbes()
	assessor := newTestAssessor(t, tls, headers, ager, nil, nil)
	clf := fakeURLClassifier{
		urlProb:  models.Probability{Benign: 0.9, Malicious: 0.1},
		htmlProb: models.Probability{Benign: 0.1, Malicious: 0.9},
	}
	ag := NewRiskScoreAggregator(assessor, clf, nil, nil, logger.NewDefault())

	withoutHTML := ag.Assess(context.Background(), AssessRequest{URL: "https://shop.example.com/"})
	withHTML := ag.Assess(context.Background(), AssessRequest{
		URL:      "https://shop.example.com/",
		PageHTML: "<html><body><p>Welcome to our store</p></body></html>",
	})

	assert.Less(t, withHTML.TrustScore, withoutHTML.TrustScore)
	// 0.6*135 + 0.4*10 = 85 with the URL signal far from neutral
	assert.InDelta(t, 85, withHTML.TrustScore, 0.001)
}

func TestAssessClassifiesURLOnce(t *testing.T) {
	tls, headers, ager := goodProbes()
	assessor := newTestAssessor(t, tls, headers, ager, nil, nil)
	clf := &countingClassifier{
		urlProb:  models.Probability{Benign: 0.9, Malicious: 0.1},
		htmlProb: models.Probability{Benign: 0.1, Malicious: 0.9},
	}
	ag := NewRiskScoreAggregator(assessor, clf, nil, nil, logger.NewDefault())

	verdict := ag.Assess(context.Background(), AssessRequest{
		URL:      "https://shop.example.com/",
		PageHTML: "<html><body><p>Welcome to our store</p></body></html>",
	})

	assert.Equal(t, 1, clf.urlCalls, "the blend reuses the base classification")
	assert.InDelta(t, 85, verdict.TrustScore, 0.001)
}

func TestAssessTextSignal(t *testing.T) {
	tls, headers, ager := goodProbes()

	t.Run("spam with phishing pattern lowers", func(t *testing.T) {
		assessor := newTestAssessor(t, tls, headers, ager, nil, nil)
		textClf := fakeTextClassifier{hs: models.HamSpam{Ham: 0.1, Spam: 0.9}}
		ag := NewRiskScoreAggregator(assessor, nil, textClf, nil, logger.NewDefault())

		verdict := ag.Assess(context.Background(), AssessRequest{
			URL:  "https://shop.example.com/",
			Text: "Urgent: verify your account before midnight or lose access.",
		})

		// 80 from the rule score, -15 for spam co-occurring with a pattern
		assert.InDelta(t, 65, verdict.TrustScore, 0.001)
	})

	t.Run("spam without pattern is ignored", func(t *testing.T) {
		assessor := newTestAssessor(t, tls, headers, ager, nil, nil)
		textClf := fakeTextClassifier{hs: models.HamSpam{Ham: 0.1, Spam: 0.9}}
		ag := NewRiskScoreAggregator(assessor, nil, textClf, nil, logger.NewDefault())

		verdict := ag.Assess(context.Background(), AssessRequest{
			URL:  "https://shop.example.com/",
			Text: "Weekly newsletter: ten recipes for autumn soups.",
		})

		assert.InDelta(t, 80, verdict.TrustScore, 0.001)
	})

	t.Run("confident ham raises", func(t *testing.T) {
		assessor := newTestAssessor(t, tls, headers, ager, nil, nil)
		textClf := fakeTextClassifier{hs: models.HamSpam{Ham: 0.99, Spam: 0.01}}
		ag := NewRiskScoreAggregator(assessor, nil, textClf, nil, logger.NewDefault())

		verdict := ag.Assess(context.Background(), AssessRequest{
			URL:  "https://shop.example.com/",
			Text: "Thanks for your order, it ships tomorrow.",
		})

		assert.InDelta(t, 90, verdict.TrustScore, 0.001)
	})
}

func TestAssessNeutralVerdictForGarbage(t *testing.T) {
	ag := newRuleAggregator(t, newTestAssessor(t, nil, nil, nil, nil, nil))

	for _, raw := range []string{"://nope", "https://", ""} {
		verdict := ag.Assess(context.Background(), AssessRequest{URL: raw})

		require.NotNil(t, verdict)
		assert.InDelta(t, 50, verdict.TrustScore, 0.001)
		assert.Equal(t, models.RiskLevelMedium, verdict.RiskLevel)
		assert.Contains(t, verdict.RiskFactors, "URL could not be parsed")
	}
}

func TestAssessIsDeterministicWithoutCache(t *testing.T) {
	tls, headers, ager := goodProbes()
	assessor := newTestAssessor(t, tls, headers, ager, nil, nil)
	ag := newRuleAggregator(t, assessor)

	first := ag.Assess(context.Background(), AssessRequest{URL: "https://shop.example.com/item/42"})
	second := ag.Assess(context.Background(), AssessRequest{URL: "https://shop.example.com/item/42"})

	assert.Equal(t, first.TrustScore, second.TrustScore)
	assert.Equal(t, first.RiskLevel, second.RiskLevel)
	assert.False(t, second.CacheHit)
}

func TestEducationMessageEmbedsFactors(t *testing.T) {
	factors := []string{
		"Domain appears on a known threat blacklist",
		"Invalid or missing TLS certificate",
		"Domain was registered very recently",
	}

	msg := educationMessage(models.RiskLevelHigh, factors)

	assert.Contains(t, msg, "domain appears on a known threat blacklist; invalid or missing tls certificate")
	assert.NotContains(t, msg, "registered very recently")
	assert.Contains(t, msg, "Do not enter personal information")

	low := educationMessage(models.RiskLevelLow, nil)
	assert.Contains(t, low, "looks safe")
}

func TestRiskLevelForTrustBands(t *testing.T) {
	assert.Equal(t, models.RiskLevelLow, models.RiskLevelForTrust(65))
	assert.Equal(t, models.RiskLevelMedium, models.RiskLevelForTrust(64.9))
	assert.Equal(t, models.RiskLevelMedium, models.RiskLevelForTrust(40))
	assert.Equal(t, models.RiskLevelHigh, models.RiskLevelForTrust(39.9))
}
