package services

import (
	"math"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// URLFeatures is the fixed numeric feature set fed to the URL classifier.
type URLFeatures struct {
	Length         float64
	Entropy        float64
	DigitRatio     float64
	SpecialRatio   float64
	SubdomainCount float64
	PathDepth      float64
	QueryParams    float64
	HasIP          float64
	HasPort        float64
	IsHTTPS        float64
	HyphenCount    float64
	DotCount       float64
}

// Vector returns the features in their fixed wire order.
func (f URLFeatures) Vector() []float64 {
	return []float64{
		f.Length, f.Entropy, f.DigitRatio, f.SpecialRatio,
		f.SubdomainCount, f.PathDepth, f.QueryParams,
		f.HasIP, f.HasPort, f.IsHTTPS, f.HyphenCount, f.DotCount,
	}
}

// ExtractURLFeatures computes the classifier feature set for a URL.
// Unparseable URLs produce string-level features with the structural
// fields zeroed.
func ExtractURLFeatures(rawURL string) URLFeatures {
	f := URLFeatures{
		Length:  float64(len(rawURL)),
		Entropy: shannonEntropy(rawURL),
	}

	var digits, specials, hyphens, dots int
	for _, r := range rawURL {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-':
			hyphens++
			specials++
		case r == '.':
			dots++
		case !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')):
			specials++
		}
	}
	if len(rawURL) > 0 {
		f.DigitRatio = float64(digits) / float64(len(rawURL))
		f.SpecialRatio = float64(specials) / float64(len(rawURL))
	}
	f.HyphenCount = float64(hyphens)
	f.DotCount = float64(dots)

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return f
	}

	host := parsed.Hostname()
	if net.ParseIP(host) != nil {
		f.HasIP = 1
	} else if labels := strings.Split(host, "."); len(labels) > 2 {
		f.SubdomainCount = float64(len(labels) - 2)
	}
	if parsed.Port() != "" {
		f.HasPort = 1
	}
	if parsed.Scheme == "https" {
		f.IsHTTPS = 1
	}
	f.PathDepth = float64(strings.Count(strings.Trim(parsed.Path, "/"), "/"))
	if parsed.Path != "" && parsed.Path != "/" {
		f.PathDepth++
	}
	f.QueryParams = float64(len(parsed.Query()))

	return f
}

// HTMLFeatures captures the page structure signals used by the HTML
// classifier and the blend-weight decision.
type HTMLFeatures struct {
	FormCount             int
	PasswordInputs        int
	ScriptCount           int
	IframeCount           int
	LinkCount             int
	ExternalLinks         int
	HasCredentialKeywords bool
}

// HasLoginForm reports whether the page contains a form with a password
// input, the strongest credential-harvesting signal.
func (f HTMLFeatures) HasLoginForm() bool {
	return f.FormCount > 0 && f.PasswordInputs > 0
}

// ExternalLinkRatio is the share of links pointing off-host.
func (f HTMLFeatures) ExternalLinkRatio() float64 {
	if f.LinkCount == 0 {
		return 0
	}
	return float64(f.ExternalLinks) / float64(f.LinkCount)
}

// Vector returns the features in their fixed wire order.
func (f HTMLFeatures) Vector() []float64 {
	cred := 0.0
	if f.HasCredentialKeywords {
		cred = 1
	}
	login := 0.0
	if f.HasLoginForm() {
		login = 1
	}
	return []float64{
		float64(f.FormCount), float64(f.PasswordInputs),
		float64(f.ScriptCount), float64(f.IframeCount),
		float64(f.LinkCount), f.ExternalLinkRatio(),
		cred, login,
	}
}

var credentialKeywords = []string{
	"password", "passcode", "social security", "ssn",
	"credit card number", "card number", "cvv", "account number",
	"routing number", "one-time code", "security question",
}

// ExtractHTMLFeatures tokenizes the page and counts structural signals.
// host scopes the external-link ratio; malformed HTML is tolerated, the
// tokenizer consumes whatever parses.
func ExtractHTMLFeatures(pageHTML, host string) HTMLFeatures {
	var f HTMLFeatures

	lower := strings.ToLower(pageHTML)
	for _, kw := range credentialKeywords {
		if strings.Contains(lower, kw) {
			f.HasCredentialKeywords = true
			break
		}
	}

	tokenizer := html.NewTokenizer(strings.NewReader(pageHTML))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		token := tokenizer.Token()
		switch token.Data {
		case "form":
			f.FormCount++
		case "script":
			f.ScriptCount++
		case "iframe":
			f.IframeCount++
		case "input":
			for _, attr := range token.Attr {
				if attr.Key == "type" && strings.EqualFold(attr.Val, "password") {
					f.PasswordInputs++
				}
			}
		case "a":
			for _, attr := range token.Attr {
				if attr.Key != "href" {
					continue
				}
				f.LinkCount++
				if ref, err := url.Parse(attr.Val); err == nil && ref.Hostname() != "" &&
					!strings.EqualFold(ref.Hostname(), host) {
					f.ExternalLinks++
				}
			}
		}
	}

	return f
}

// shannonEntropy measures character randomness; DGA-style hosts score
// noticeably higher than dictionary words.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]float64)
	for _, r := range s {
		freq[r]++
	}
	n := float64(len([]rune(s)))
	var entropy float64
	for _, count := range freq {
		p := count / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}
