package services

import (
	"fmt"
	"regexp"
	"strings"

	"trustlens/internal/domain/models"
	"trustlens/pkg/logger"
)

// Default decision thresholds by text source. Screen captures come from
// OCR and tend to be fragmentary, so they get a lower bar.
const (
	DefaultScreenThreshold  = 60
	DefaultGenericThreshold = 70
)

const (
	comboFloorMany      = 80
	comboFloorHigh      = 85
	comboFloorCritical  = 90
	strongComboMinCount = 3
)

var emailAddressRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// ScamTextOptions tunes the rule engine. Zero values use defaults.
type ScamTextOptions struct {
	ScreenThreshold  float64
	GenericThreshold float64
	CustomPhrases    []string
}

// ScamTextRuleEngine scores free text against weighted scam phrase
// categories. The weighted sum alone never marks text as a scam; only
// combination floors (several independent indicators together) do, so a
// single scary word cannot trip the alarm.
type ScamTextRuleEngine struct {
	categories       []phraseCategory
	customPhrases    []string
	detector         *TyposquatDetector
	screenThreshold  float64
	genericThreshold float64
	logger           *logger.Logger
}

// NewScamTextRuleEngine creates the rule engine. detector may be nil, in
// which case email and SMS companion checks are skipped.
func NewScamTextRuleEngine(detector *TyposquatDetector, opts ScamTextOptions, log *logger.Logger) *ScamTextRuleEngine {
	if opts.ScreenThreshold <= 0 {
		opts.ScreenThreshold = DefaultScreenThreshold
	}
	if opts.GenericThreshold <= 0 {
		opts.GenericThreshold = DefaultGenericThreshold
	}
	return &ScamTextRuleEngine{
		categories:       defaultCategories,
		customPhrases:    opts.CustomPhrases,
		detector:         detector,
		screenThreshold:  opts.ScreenThreshold,
		genericThreshold: opts.GenericThreshold,
		logger:           log.WithComponent("scamtext"),
	}
}

// Threshold returns the decision threshold for the given source.
func (e *ScamTextRuleEngine) Threshold(source models.TextSource) float64 {
	if source == models.TextSourceScreen {
		return e.screenThreshold
	}
	return e.genericThreshold
}

// ScoreText analyzes text and returns a scam alert. Empty or whitespace
// text yields a zero-confidence non-alert.
func (e *ScamTextRuleEngine) ScoreText(text string, source models.TextSource) *models.ScamAlert {
	alert := &models.ScamAlert{DetectedPatterns: []string{}}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		alert.SeniorMessage = "No readable text to analyze."
		return alert
	}

	raw := strings.ToLower(text)
	norm := normalizeText(text)

	var score float64
	matched := make(map[string]bool)
	mark := func(name string, points float64) {
		if !matched[name] {
			matched[name] = true
			score += points
			alert.DetectedPatterns = append(alert.DetectedPatterns, name)
		}
	}

	for _, cat := range e.categories {
		if categoryMatches(cat, norm, raw) {
			mark(cat.Name, cat.Points)
		}
	}

	if phoneWithCallVerb(norm) {
		mark(CategoryPhoneNumber, phoneNumberPoints)
	}

	if containsAny(norm, credentialPhrases) {
		mark(CategoryPhishingIntent, credentialIntentPoints)
	} else if containsAny(norm, linkBaitPhrases) {
		mark(CategoryPhishingIntent, linkBaitIntentPoints)
	}

	// A sensitive-input label alone is harmless; next to a phishing or
	// brand signal it reads as credential harvesting.
	if containsAny(norm, sensitiveInputLabels) &&
		(matched[CategoryPhishingIntent] || matched[CategoryBrandMention]) {
		mark(CategorySensitiveInput, sensitiveInputPoints)
	}

	for _, phrase := range e.customPhrases {
		if phrase != "" && strings.Contains(norm, normalizeText(phrase)) {
			mark(CategoryCustomPhrase, customPhrasePoints)
			break
		}
	}

	// Companion checks: impersonated email senders and smishing links
	// carry their own confidence, applied as a floor below.
	var companionFloor float64
	var impersonatedBrand string
	if e.detector != nil {
		for _, addr := range emailAddressRe.FindAllString(text, 5) {
			check := e.detector.CheckEmail(addr)
			if check.Suspicious {
				alert.DetectedPatterns = append(alert.DetectedPatterns, "suspicious_email:"+strings.ToLower(addr))
				matched["suspicious_email"] = true
				impersonatedBrand = check.TargetBrand
				if f := check.Confidence * 100; f > companionFloor {
					companionFloor = f
				}
			}
		}
		if sms := e.detector.ScanSMS(text); sms.Suspicious {
			alert.DetectedPatterns = append(alert.DetectedPatterns, sms.Findings...)
			matched["smishing"] = true
			if f := sms.Confidence * 100; f > companionFloor {
				companionFloor = f
			}
		}
	}

	// Combination floors: only co-occurring independent indicators can
	// push text into scam territory.
	var floored bool
	applyFloor := func(floor float64) {
		floored = true
		if score < floor {
			score = floor
		}
	}

	if matched[CategoryVirusWarning] &&
		(matched[CategoryActionDemand] || matched[CategoryPaymentRequest] ||
			matched[CategoryPhoneNumber] || matched[CategoryScareTactic]) {
		applyFloor(comboFloorHigh)
	}
	if matched[CategoryFakeErrorCode] &&
		(matched[CategoryPhoneNumber] || matched[CategoryActionDemand] || matched[CategoryVirusWarning]) {
		applyFloor(comboFloorHigh)
	}
	if matched[CategoryDoNotClose] &&
		(matched[CategoryPhoneNumber] || matched[CategoryActionDemand] ||
			matched[CategoryBrandMention] || matched[CategoryScareTactic]) {
		applyFloor(comboFloorCritical)
	}
	if matched[CategoryScareTactic] && matched[CategoryPaymentRequest] {
		applyFloor(comboFloorCritical)
	}
	if matched[CategoryScareTactic] && (matched[CategoryActionDemand] || matched[CategoryPhoneNumber]) {
		applyFloor(comboFloorHigh)
	}
	if strongCount(matched) >= strongComboMinCount {
		applyFloor(comboFloorMany)
	}
	if companionFloor > 0 {
		applyFloor(companionFloor)
	}

	// Suppression runs after floors so legitimate UI text can still pull
	// a borderline alert back under the threshold.
	if containsAny(norm, legitimateUIPhrases) {
		score -= 50
	}
	if len(trimmed) < 40 {
		score -= 20
	}

	score = clampScore(score, 0, 100)
	threshold := e.Threshold(source)

	alert.Confidence = score
	alert.IsScam = floored && score >= threshold
	e.finalizeAlert(alert, matched, impersonatedBrand)

	return alert
}

func (e *ScamTextRuleEngine) finalizeAlert(alert *models.ScamAlert, matched map[string]bool, brand string) {
	switch {
	case !alert.IsScam:
		if alert.Confidence > 0 {
			alert.SeniorMessage = "This text has some warning signs but does not look like a known scam. Stay cautious."
		} else {
			alert.SeniorMessage = "This text does not look like a scam."
		}
		return
	case matched["suspicious_email"] && brand != "":
		alert.SeniorMessage = fmt.Sprintf("This message pretends to come from %s, but the sender address is fake. Do not reply or follow its instructions.", brand)
	case matched["suspicious_email"]:
		alert.SeniorMessage = "The sender address in this message imitates a well-known company. Do not reply or follow its instructions."
	case matched[CategoryVirusWarning] || matched[CategoryDoNotClose] || matched[CategoryFakeErrorCode]:
		alert.SeniorMessage = "This looks like a fake tech-support warning. Real virus alerts never ask you to call a phone number."
	case matched[CategoryPaymentRequest]:
		alert.SeniorMessage = "This looks like a payment scam. No legitimate company demands gift cards, wire transfers, or cryptocurrency."
	case matched[CategoryPhishingIntent]:
		alert.SeniorMessage = "This message is trying to trick you into giving away your password or account details."
	default:
		alert.SeniorMessage = "This text matches several known scam patterns. Treat it with suspicion."
	}

	if matched[CategoryPhoneNumber] {
		alert.ActionAdvice = append(alert.ActionAdvice, "Do not call the number shown; look up the company's real number yourself.")
	}
	if matched[CategoryPaymentRequest] {
		alert.ActionAdvice = append(alert.ActionAdvice, "Never pay with gift cards, wire transfers, or cryptocurrency.")
	}
	if matched[CategoryPhishingIntent] || matched[CategoryActionDemand] || matched["smishing"] {
		alert.ActionAdvice = append(alert.ActionAdvice, "Do not click links or download anything from this message.")
	}
	if matched[CategoryDoNotClose] {
		alert.ActionAdvice = append(alert.ActionAdvice, "It is safe to close this window or restart your device.")
	}
	alert.ActionAdvice = append(alert.ActionAdvice, "Talk to someone you trust before taking any action.")
}

func categoryMatches(cat phraseCategory, norm, raw string) bool {
	if containsAny(norm, cat.Phrases) {
		return true
	}
	for _, re := range cat.Regexes {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}

// phoneWithCallVerb reports whether a phone number appears with a call
// verb shortly before it. A bare number on an invoice is not a signal.
func phoneWithCallVerb(norm string) bool {
	for _, loc := range phoneNumberRe.FindAllStringIndex(norm, -1) {
		start := loc[0] - 60
		if start < 0 {
			start = 0
		}
		window := norm[start:loc[0]]
		for _, verb := range callVerbs {
			if strings.Contains(window, verb) {
				return true
			}
		}
	}
	return false
}

func strongCount(matched map[string]bool) int {
	n := 0
	for name := range matched {
		if strongCategories[name] {
			n++
		}
	}
	return n
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// normalizeText lowercases and collapses all punctuation to single spaces,
// so "Don't Close!" matches the phrase "don t close".
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func clampScore(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
