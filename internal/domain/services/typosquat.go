package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"trustlens/internal/domain/models"
)

const (
	// verdictThreshold is the confidence at which a domain is flagged.
	verdictThreshold = 0.8
	// fuzzyMatchMin is the entry bar for the similarity-ratio pass; weaker
	// resemblance is noise, not impersonation.
	fuzzyMatchMin = 0.85
)

// Confidence assigned per matching pass
const (
	confHomoglyph      = 1.0  // label is the brand once homoglyphs are undone
	confNormalized     = 0.9  // normalized label contains the brand
	confEmbedded       = 0.85 // raw label embeds the brand with extra text
	confSubdomainTrick = 0.85 // brand label hidden in a subdomain position
	confBrandNonTLD    = 0.8  // exact brand label under an unexpected TLD
)

var defaultBrands = []string{
	"amazon", "apple", "google", "microsoft", "paypal", "netflix",
	"facebook", "instagram", "whatsapp", "walmart", "ebay", "chase",
	"wellsfargo", "bankofamerica", "usps", "fedex", "irs",
}

// safeTLDs fast-accept an exact brand apex: amazon.com is never a squat.
var safeTLDs = map[string]bool{
	"com": true, "org": true, "net": true, "edu": true, "gov": true,
	"io": true, "co": true,
}

var defaultSuspiciousTLDs = []string{
	".xyz", ".top", ".club", ".work", ".click", ".link",
	".gq", ".ml", ".cf", ".tk", ".ga", ".buzz", ".icu",
}

var defaultShorteners = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly",
	"is.gd", "buff.ly", "rebrand.ly", "cutt.ly", "rb.gy",
}

// homoglyph substitutions, multi-character first so single-character rules
// cannot re-trigger on their output. Applying the table twice is a no-op.
var multiGlyphs = [][2]string{
	{"vv", "w"},
	{"rn", "m"},
}

var singleGlyphs = [][2]string{
	{"0", "o"}, {"1", "l"}, {"2", "z"}, {"3", "e"}, {"4", "a"},
	{"5", "s"}, {"7", "t"}, {"8", "b"}, {"9", "g"}, {"v", "u"},
	{"@", "a"}, {"$", "s"}, {"!", "i"},
}

var urlInTextRe = regexp.MustCompile(`https?://[^\s<>"]+|www\.[^\s<>"]+|\b[a-z0-9][a-z0-9.-]*\.[a-z]{2,}/[^\s<>"]*`)

var smsUrgencyWords = []string{
	"urgent", "suspended", "verify", "locked", "expires", "final notice",
	"delivery failed", "reschedule", "unpaid", "toll",
}

// smishingPhrasePatterns are SMS-scam shapes that flag on wording alone,
// with or without a link in the message.
var smishingPhrasePatterns = []struct {
	Name       string
	Confidence float64
	Phrases    []string
}{
	{"unpaid_toll", 0.7, []string{
		"unpaid toll", "toll charge", "toll balance", "toll violation",
	}},
	{"parcel_delivery", 0.6, []string{
		"package could not be delivered", "delivery failed",
		"parcel is waiting", "package is waiting", "missed delivery",
		"reschedule your delivery",
	}},
	{"tax_refund", 0.7, []string{
		"tax refund", "refund has been approved", "claim your refund",
	}},
	{"account_locked", 0.6, []string{
		"account is locked", "account has been locked", "account will be locked",
	}},
}

// TyposquatDetector spots email domains and SMS links that imitate
// well-known brands through character substitution or near-miss spelling.
type TyposquatDetector struct {
	brands         []string
	suspiciousTLDs []string
	shorteners     map[string]bool
}

// NewTyposquatDetector creates a detector. Nil slices use the built-in
// defaults; supplied slices replace them.
func NewTyposquatDetector(brands, suspiciousTLDs, shorteners []string) *TyposquatDetector {
	if len(brands) == 0 {
		brands = defaultBrands
	}
	if len(suspiciousTLDs) == 0 {
		suspiciousTLDs = defaultSuspiciousTLDs
	}
	if len(shorteners) == 0 {
		shorteners = defaultShorteners
	}
	shortSet := make(map[string]bool, len(shorteners))
	for _, s := range shorteners {
		shortSet[strings.ToLower(s)] = true
	}
	return &TyposquatDetector{
		brands:         brands,
		suspiciousTLDs: suspiciousTLDs,
		shorteners:     shortSet,
	}
}

// NormalizeHomoglyphs undoes common character substitutions used to fake
// brand names ("amaz0n" -> "amazon", "vvalmart" -> "walmart"). The
// function is idempotent.
func NormalizeHomoglyphs(s string) string {
	s = strings.ToLower(s)
	for _, g := range multiGlyphs {
		s = strings.ReplaceAll(s, g[0], g[1])
	}
	for _, g := range singleGlyphs {
		s = strings.ReplaceAll(s, g[0], g[1])
	}
	return s
}

// CheckEmail analyzes the domain of an email address for brand
// impersonation. Malformed addresses come back non-suspicious.
func (d *TyposquatDetector) CheckEmail(address string) models.EmailCheck {
	check := models.EmailCheck{Address: address}

	at := strings.LastIndex(address, "@")
	if at < 1 || at == len(address)-1 {
		return check
	}
	domain := strings.ToLower(strings.TrimSuffix(address[at+1:], "."))
	check.Domain = domain

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return check
	}
	tld := labels[len(labels)-1]
	apexLabel := labels[len(labels)-2]

	// Exact brand apex under a mainstream TLD is legitimate regardless of
	// subdomains: mail.amazon.com never flags.
	if safeTLDs[tld] {
		for _, brand := range d.brands {
			if apexLabel == brand {
				return check
			}
		}
	}

	var best float64
	var bestBrand, bestReason string
	for _, label := range labels[:len(labels)-1] {
		// Hyphenated labels hide the brand in one token:
		// "amaz0n-support" carries the full impersonation in "amaz0n".
		for _, token := range strings.Split(label, "-") {
			if token == "" {
				continue
			}
			conf, brand, reason := d.scoreToken(token)
			if conf > best {
				best, bestBrand, bestReason = conf, brand, reason
			}
		}
		conf, brand, reason := d.scoreToken(label)
		if conf > best {
			best, bestBrand, bestReason = conf, brand, reason
		}
	}

	// Subdomain trick: a bare brand label buried above the apex
	// ("amazon.accounts-review.com") reads as the brand's own subdomain.
	for i := 0; i+2 < len(labels); i++ {
		if labels[i+1] == "com" || labels[i+1] == "org" {
			continue
		}
		for _, brand := range d.brands {
			if labels[i] == brand && confSubdomainTrick > best {
				best = confSubdomainTrick
				bestBrand = brand
				bestReason = fmt.Sprintf("brand %q used as a subdomain of an unrelated domain", brand)
			}
		}
	}

	if best == 0 {
		return check
	}

	if d.hasSuspiciousTLD(domain) {
		best += 0.1
		if best > 1 {
			best = 1
		}
	}

	check.Confidence = best
	check.TargetBrand = bestBrand
	check.Reason = bestReason
	check.Suspicious = best >= verdictThreshold
	return check
}

// scoreToken runs the matching passes for one domain token against every
// brand and returns the strongest hit.
func (d *TyposquatDetector) scoreToken(token string) (float64, string, string) {
	normalized := NormalizeHomoglyphs(token)

	var best float64
	var bestBrand, bestReason string
	record := func(conf float64, brand, reason string) {
		if conf > best {
			best, bestBrand, bestReason = conf, brand, reason
		}
	}

	for _, brand := range d.brands {
		switch {
		case token == brand:
			// Exact brand token outside a safe apex still warrants a look
			// (amazon.xyz, amazon-support.com).
			record(confBrandNonTLD, brand, fmt.Sprintf("brand %q used outside its official domain", brand))
		case normalized == brand:
			record(confHomoglyph, brand, fmt.Sprintf("%q imitates %q with substituted characters", token, brand))
		case strings.Contains(token, brand):
			record(confEmbedded, brand, fmt.Sprintf("%q embeds the brand %q", token, brand))
		case strings.Contains(normalized, brand):
			record(confNormalized, brand, fmt.Sprintf("%q contains a disguised %q", token, brand))
		default:
			if ratio := similarityRatio(normalized, brand); ratio >= fuzzyMatchMin {
				record(ratio, brand, fmt.Sprintf("%q is one typo away from %q", token, brand))
			}
		}
	}

	return best, bestBrand, bestReason
}

func (d *TyposquatDetector) hasSuspiciousTLD(domain string) bool {
	for _, tld := range d.suspiciousTLDs {
		if strings.HasSuffix(domain, tld) {
			return true
		}
	}
	return false
}

// similarityRatio is 1 minus the normalized Levenshtein distance. Equal
// strings score 1; completely different strings approach 0.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// ScanSMS looks for smishing signals in an SMS body: shortened links,
// links on throwaway TLDs, links to brand-typosquat domains, and known
// smishing phrase patterns, which flag even when no link is present.
func (d *TyposquatDetector) ScanSMS(body string) models.SMSScan {
	scan := models.SMSScan{Findings: []string{}}
	lower := strings.ToLower(body)

	record := func(conf float64, finding string) {
		scan.Findings = append(scan.Findings, finding)
		if conf > scan.Confidence {
			scan.Confidence = conf
		}
	}

	for _, p := range smishingPhrasePatterns {
		if containsAny(lower, p.Phrases) {
			record(p.Confidence, "smishing_phrase:"+p.Name)
		}
	}

	for _, host := range extractHosts(lower) {
		if d.shorteners[host] {
			record(0.6, "shortened_url:"+host)
		}
		if d.hasSuspiciousTLD(host) {
			record(0.7, "suspicious_tld:"+host)
		}
		for _, label := range strings.Split(host, ".") {
			conf, brand, _ := d.scoreToken(label)
			if conf >= fuzzyMatchMin && label != brand {
				record(0.9, "typosquat_link:"+host)
				break
			}
		}
	}

	if len(scan.Findings) == 0 {
		return scan
	}

	// A finding plus pressure language is the classic smishing shape.
	if containsAny(lower, smsUrgencyWords) {
		scan.Confidence += 0.1
		if scan.Confidence > 1 {
			scan.Confidence = 1
		}
	}

	scan.Suspicious = scan.Confidence >= 0.6
	return scan
}

// extractHosts pulls hostnames out of link-looking substrings in text.
func extractHosts(text string) []string {
	var hosts []string
	seen := make(map[string]bool)
	for _, match := range urlInTextRe.FindAllString(text, 10) {
		host := match
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
		host = strings.TrimPrefix(host, "www.")
		host = strings.TrimSuffix(host, ".")
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}
	return hosts
}
