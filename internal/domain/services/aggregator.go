package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"trustlens/internal/domain/models"
	"trustlens/internal/infrastructure/cache"
	"trustlens/pkg/logger"
)

// Verdict cache TTLs. Risky verdicts live longer so a flagged site stays
// flagged; safe verdicts expire quickly to pick up newly turned-bad sites.
const (
	verdictTTLSafe = 5 * time.Minute
	verdictTTLRisk = time.Hour
)

// Score deltas shared by both scoring modes
const (
	deltaTLSValid      = 15
	deltaTLSInvalid    = -10
	deltaOldDomain     = 15
	deltaYoungDomain   = -15
	deltaGateway       = 10
	deltaSuspicious    = -25
	deltaBlacklisted   = -30
	deltaFraudRate     = -20
	deltaVerified      = 10
	boostHeaders       = 10
	boostHSTS          = 5
	ruleModeBase       = 50
	youngDomainDays    = 90
	establishedDays    = 365
	fraudRateThreshold = 0.3
)

// Floors for well-behaved domains
const (
	trustedFloor            = 75
	reputableFloorML        = 65
	reputableFloorRule      = 60
	downgradeMinAgeDays     = 5 * 365
	downgradeMinHeaderCount = 2
)

// Spam-classifier gating
const (
	spamLowerMin  = 0.8
	hamRaiseMin   = 0.95
	deltaSpamText = -15
	deltaHamText  = 10
)

// URLClassifier scores URL and HTML feature vectors. Implemented by the
// model sidecar client; any call failure degrades to a neutral split.
type URLClassifier interface {
	Available() bool
	ClassifyURL(ctx context.Context, features []float64) (models.Probability, error)
	ClassifyHTML(ctx context.Context, features []float64) (models.Probability, error)
}

// TextClassifier scores free text as ham/spam.
type TextClassifier interface {
	Available() bool
	ClassifyText(ctx context.Context, text string) (models.HamSpam, error)
}

// AssessRequest is one URL assessment. PageHTML and Text are optional.
type AssessRequest struct {
	URL      string
	PageHTML string
	Text     string
}

// RiskScoreAggregator combines domain trust features, optional classifier
// probabilities and optional text signals into the final trust score.
type RiskScoreAggregator struct {
	trust   *DomainTrustAssessor
	urlClf  URLClassifier
	textClf TextClassifier
	cache   *cache.RedisCache
	logger  *logger.Logger
}

// NewRiskScoreAggregator creates the aggregator. urlClf, textClf and
// redis may be nil; the aggregator then runs in rule-only mode without
// verdict caching.
func NewRiskScoreAggregator(trust *DomainTrustAssessor, urlClf URLClassifier, textClf TextClassifier, redis *cache.RedisCache, log *logger.Logger) *RiskScoreAggregator {
	return &RiskScoreAggregator{
		trust:   trust,
		urlClf:  urlClf,
		textClf: textClf,
		cache:   redis,
		logger:  log.WithComponent("aggregator"),
	}
}

// Assess produces the trust verdict for a URL. It never returns an error:
// malformed input yields a conservative neutral verdict and failed
// signals degrade to unknown.
func (ag *RiskScoreAggregator) Assess(ctx context.Context, req AssessRequest) *models.RiskScore {
	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Hostname() == "" {
		return ag.neutralVerdict(req.URL)
	}

	urlHash := hashURL(req.URL)
	if ag.cache != nil {
		var cached models.RiskScore
		if err := ag.cache.GetCachedVerdict(ctx, urlHash, &cached); err == nil {
			cached.CacheHit = true
			return &cached
		}
	}

	features := ag.trust.Assess(ctx, req.URL, req.PageHTML)
	score, urlProb := ag.baseScore(ctx, req.URL, features)
	usedClassifier := urlProb != nil
	score += ag.heuristicDeltas(features)
	score = ag.blendHTML(ctx, req, score, urlProb)
	score = ag.adjustForText(ctx, req.Text, score, features)

	// Floors run after all deltas; blacklisting disqualifies both.
	if features.TrustedFloorEligible() && score < trustedFloor {
		score = trustedFloor
	}
	if features.ReputableFloorEligible() {
		floor := float64(reputableFloorRule)
		if usedClassifier {
			floor = reputableFloorML
		}
		if score < floor {
			score = floor
		}
	}

	score = clampScore(score, 0, 100)
	level := models.RiskLevelForTrust(score)

	// No amount of middling score saves a URL that both fails TLS and
	// looks like a phishing link.
	if features.SSLChecked && !features.SSLValid && features.HasSuspiciousPattern() && score < 65 {
		level = models.RiskLevelHigh
	}
	// Long-established domains with decent header hygiene get one level of
	// grace, unless blacklisted.
	if level == models.RiskLevelHigh && !features.IsBlacklisted &&
		features.DomainAgeDays >= downgradeMinAgeDays &&
		features.SecurityHeaderCount >= downgradeMinHeaderCount {
		level = models.RiskLevelMedium
	}

	verdict := &models.RiskScore{
		ID:               uuid.New(),
		URL:              req.URL,
		Domain:           features.Domain,
		TrustScore:       score,
		RiskLevel:        level,
		RiskFactors:      features.RiskFactors,
		SafetyIndicators: features.SafetyIndicators,
		EducationMessage: educationMessage(level, features.RiskFactors),
		SSLValid:         features.SSLChecked && features.SSLValid,
		DomainAgeDays:    features.DomainAgeDays,
		DetectedGateways: features.DetectedGateways,
		IsBlacklisted:    features.IsBlacklisted,
		AssessedAt:       time.Now(),
	}

	if ag.cache != nil {
		ttl := verdictTTLSafe
		if level != models.RiskLevelLow {
			ttl = verdictTTLRisk
		}
		if err := ag.cache.CacheVerdict(ctx, urlHash, verdict, ttl); err != nil {
			ag.logger.Debug().Err(err).Msg("verdict cache write failed")
		}
	}

	return verdict
}

// baseScore picks the scoring mode: classifier probability when the
// sidecar is up, flat rule base otherwise. The returned probability is nil
// in rule mode and is reused by blendHTML so both alpha decisions see the
// same classification.
func (ag *RiskScoreAggregator) baseScore(ctx context.Context, rawURL string, f *models.DomainTrustFeatures) (float64, *models.Probability) {
	if ag.urlClf == nil || !ag.urlClf.Available() {
		return ruleModeBase, nil
	}

	prob, err := ag.urlClf.ClassifyURL(ctx, ExtractURLFeatures(rawURL).Vector())
	if err != nil {
		ag.logger.Warn().Err(err).Msg("url classifier failed, using neutral probability")
		prob = models.NeutralProbability()
	}

	score := prob.Benign * 100
	if f.SecurityHeaderCount >= 3 {
		score += boostHeaders
	}
	if f.HSTSEnabled {
		score += boostHSTS
	}
	return score, &prob
}

// heuristicDeltas applies the signal adjustments shared by both modes.
func (ag *RiskScoreAggregator) heuristicDeltas(f *models.DomainTrustFeatures) float64 {
	var delta float64

	if f.SSLChecked {
		if f.SSLValid {
			delta += deltaTLSValid
		} else {
			delta += deltaTLSInvalid
		}
	}
	if f.DomainAgeDays >= establishedDays {
		delta += deltaOldDomain
	} else if f.DomainAgeDays >= 0 && f.DomainAgeDays < youngDomainDays {
		delta += deltaYoungDomain
	}
	if len(f.DetectedGateways) > 0 {
		delta += deltaGateway
	}
	if f.HasSuspiciousPattern() {
		delta += deltaSuspicious
	}
	if f.IsBlacklisted {
		delta += deltaBlacklisted
	}
	if f.Merchant.FraudRate() > fraudRateThreshold {
		delta += deltaFraudRate
	}
	if f.Merchant != nil && f.Merchant.Verified {
		delta += deltaVerified
	}

	return delta
}

// blendHTML mixes the page-content classifier verdict into the score.
// The URL-side weight alpha shrinks when the URL signal is near neutral
// and is raised back when the page itself asks for credentials.
func (ag *RiskScoreAggregator) blendHTML(ctx context.Context, req AssessRequest, score float64, urlProb *models.Probability) float64 {
	if req.PageHTML == "" || urlProb == nil {
		return score
	}

	htmlFeatures := ExtractHTMLFeatures(req.PageHTML, hostOf(req.URL))
	prob, err := ag.urlClf.ClassifyHTML(ctx, htmlFeatures.Vector())
	if err != nil {
		ag.logger.Warn().Err(err).Msg("html classifier failed, skipping blend")
		return score
	}
	htmlTrust := prob.Benign * 100

	alpha := 0.6
	if urlProb.Benign > 0.4 && urlProb.Benign < 0.6 {
		alpha = 0.4
	}
	if htmlFeatures.HasCredentialKeywords || htmlFeatures.HasLoginForm() {
		if alpha < 0.5 {
			alpha = 0.5
		}
	}

	return alpha*score + (1-alpha)*htmlTrust
}

// adjustForText lets the spam classifier nudge the score, but only when
// its verdict co-occurs with rule-level phishing patterns. A high spam
// probability alone never tanks a site.
func (ag *RiskScoreAggregator) adjustForText(ctx context.Context, text string, score float64, f *models.DomainTrustFeatures) float64 {
	if text == "" || ag.textClf == nil || !ag.textClf.Available() {
		return score
	}

	hs, err := ag.textClf.ClassifyText(ctx, text)
	if err != nil {
		ag.logger.Warn().Err(err).Msg("text classifier failed, skipping text signal")
		return score
	}

	pattern := hasPhishingTextPattern(text) || f.HasSuspiciousPattern()
	if hs.Spam >= spamLowerMin && pattern {
		return score + deltaSpamText
	}
	if hs.Ham >= hamRaiseMin && !pattern {
		return score + deltaHamText
	}
	return score
}

// hasPhishingTextPattern looks for the rule-level phishing shape in
// accompanying text: pressure language next to a credential or link ask.
func hasPhishingTextPattern(text string) bool {
	norm := normalizeText(text)
	pressure := false
	for _, cat := range defaultCategories {
		if cat.Name == CategoryUrgency || cat.Name == CategoryScareTactic {
			if containsAny(norm, cat.Phrases) {
				pressure = true
				break
			}
		}
	}
	ask := containsAny(norm, credentialPhrases) || containsAny(norm, linkBaitPhrases)
	return pressure && ask
}

// neutralVerdict is the conservative answer for unassessable input.
func (ag *RiskScoreAggregator) neutralVerdict(rawURL string) *models.RiskScore {
	factors := []string{"URL could not be parsed"}
	return &models.RiskScore{
		ID:               uuid.New(),
		URL:              rawURL,
		TrustScore:       50,
		RiskLevel:        models.RiskLevelMedium,
		RiskFactors:      factors,
		SafetyIndicators: []string{},
		EducationMessage: educationMessage(models.RiskLevelMedium, factors),
		DomainAgeDays:    -1,
		AssessedAt:       time.Now(),
	}
}

// educationMessage renders the plain-language explanation shown to the
// user, embedding up to the first two risk factors.
func educationMessage(level models.RiskLevel, riskFactors []string) string {
	detail := ""
	if len(riskFactors) > 0 {
		head := riskFactors
		if len(head) > 2 {
			head = head[:2]
		}
		detail = strings.ToLower(strings.Join(head, "; "))
	}

	switch level {
	case models.RiskLevelHigh:
		if detail == "" {
			return "This site shows serious warning signs. Do not enter personal information or payment details here."
		}
		return fmt.Sprintf("This site shows serious warning signs: %s. Do not enter personal information or payment details here.", detail)
	case models.RiskLevelMedium:
		if detail == "" {
			return "Be careful with this site. Double-check the web address before entering any information."
		}
		return fmt.Sprintf("Be careful with this site. We noticed: %s. Double-check the web address before entering any information.", detail)
	default:
		return "This site looks safe, but always keep your personal information private and your passwords unique."
	}
}

func hashURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

func hostOf(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		return parsed.Hostname()
	}
	return ""
}
