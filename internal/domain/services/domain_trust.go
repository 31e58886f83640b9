package services

import (
	"context"
	"net"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"trustlens/internal/domain/models"
	"trustlens/pkg/logger"
)

// verifiedFraudBlacklistMin is the number of verified fraud reports that
// blacklists a domain outright, independent of the feed.
const verifiedFraudBlacklistMin = 3

// Probe interfaces. Implementations live in infrastructure; tests inject
// fakes. Every probe is fallible and its failure degrades to "unknown".
type TLSProber interface {
	Probe(ctx context.Context, host string) (models.TLSProbe, error)
}

type HeaderProber interface {
	Probe(ctx context.Context, host string) (models.HeaderProbe, error)
}

type DomainAger interface {
	AgeDays(ctx context.Context, domain string) (int, error)
}

type MerchantStore interface {
	GetByDomain(ctx context.Context, domain string) (*models.Merchant, error)
	CountVerifiedFraud(ctx context.Context, domain string) (int, error)
}

var defaultTrustedDomains = []string{
	"google.com", "youtube.com", "facebook.com", "amazon.com",
	"wikipedia.org", "twitter.com", "instagram.com", "linkedin.com",
	"apple.com", "microsoft.com", "netflix.com", "ebay.com",
	"walmart.com", "target.com", "bestbuy.com", "paypal.com",
	"chase.com", "wellsfargo.com", "bankofamerica.com",
	"irs.gov", "usps.com", "medicare.gov",
}

var defaultPaymentGateways = []string{
	"stripe.com", "paypal.com", "braintreepayments.com", "square.com",
}

// suspiciousURLPatterns are matched against the full lowercased URL.
var suspiciousURLPatterns = []struct {
	Name    string
	Pattern *regexp.Regexp
}{
	{"verify_account", regexp.MustCompile(`verify[-_]?account`)},
	{"secure_login", regexp.MustCompile(`secure[-_]?login`)},
	{"update_payment", regexp.MustCompile(`update[-_]?payment`)},
	{"confirm_identity", regexp.MustCompile(`confirm[-_]?identity`)},
	{"urgent", regexp.MustCompile(`urgent`)},
	{"suspended", regexp.MustCompile(`suspended`)},
	{"limited", regexp.MustCompile(`limited`)},
}

// DomainTrustOptions tunes the assessor. Nil slices use defaults.
type DomainTrustOptions struct {
	TrustedDomains  []string
	PaymentGateways []string
	ProbeTimeout    time.Duration
	BlacklistTTL    time.Duration
}

// DomainTrustAssessor gathers all per-domain trust signals. Probes run
// concurrently with individual timeouts; any probe may fail without
// failing the assessment.
type DomainTrustAssessor struct {
	tls       TLSProber
	headers   HeaderProber
	ager      DomainAger
	merchants MerchantStore
	blacklist *BlacklistCache

	trusted      []string
	gateways     []string
	gatewayRes   []*regexp.Regexp
	probeTimeout time.Duration
	blacklistTTL time.Duration
	logger       *logger.Logger
}

// NewDomainTrustAssessor creates the assessor. Any probe may be nil; the
// corresponding signal then stays unknown.
func NewDomainTrustAssessor(tls TLSProber, headers HeaderProber, ager DomainAger, merchants MerchantStore, blacklist *BlacklistCache, opts DomainTrustOptions, log *logger.Logger) *DomainTrustAssessor {
	if len(opts.TrustedDomains) == 0 {
		opts.TrustedDomains = defaultTrustedDomains
	}
	if len(opts.PaymentGateways) == 0 {
		opts.PaymentGateways = defaultPaymentGateways
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 8 * time.Second
	}
	if opts.BlacklistTTL <= 0 {
		opts.BlacklistTTL = DefaultBlacklistTTL
	}

	gatewayRes := make([]*regexp.Regexp, len(opts.PaymentGateways))
	for i, gw := range opts.PaymentGateways {
		// Suffix match at a label boundary: checkout.stripe.com counts,
		// notstripe.com does not.
		gatewayRes[i] = regexp.MustCompile(`(^|[^a-z0-9-])((?:[a-z0-9-]+\.)*` + regexp.QuoteMeta(gw) + `)`)
	}

	return &DomainTrustAssessor{
		tls:          tls,
		headers:      headers,
		ager:         ager,
		merchants:    merchants,
		blacklist:    blacklist,
		trusted:      opts.TrustedDomains,
		gateways:     opts.PaymentGateways,
		gatewayRes:   gatewayRes,
		probeTimeout: opts.ProbeTimeout,
		blacklistTTL: opts.BlacklistTTL,
		logger:       log.WithComponent("domain_trust"),
	}
}

// Assess collects every trust signal for the URL. pageHTML may be empty;
// page-derived signals then stay unknown.
func (a *DomainTrustAssessor) Assess(ctx context.Context, rawURL, pageHTML string) *models.DomainTrustFeatures {
	f := &models.DomainTrustFeatures{
		DomainAgeDays:    -1,
		RiskFactors:      []string{},
		SafetyIndicators: []string{},
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		f.SuspiciousPatterns = append(f.SuspiciousPatterns, "unparseable_url")
		f.RiskFactors = append(f.RiskFactors, "URL could not be parsed")
		return f
	}

	host := strings.ToLower(parsed.Hostname())
	f.Domain = registrableDomain(host)
	log := a.logger.WithDomain(f.Domain)

	f.IsTrustedDomain = a.isTrusted(host)
	f.SuspiciousPatterns = detectSuspiciousPatterns(rawURL, host)
	f.DetectedGateways = a.detectGateways(host, pageHTML)

	var wg sync.WaitGroup

	if parsed.Scheme == "http" {
		// Plain http is a definite negative, no handshake needed.
		f.SSLChecked = true
		f.SSLValid = false
	} else if a.tls != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
			defer cancel()
			probe, err := a.tls.Probe(pctx, host)
			if err != nil {
				log.Debug().Err(err).Str("host", host).Msg("tls probe failed")
				return
			}
			f.SSLChecked = true
			f.SSLValid = probe.Valid
			f.CNMatch = probe.CNMatch
			f.SANMatch = probe.SANMatch
		}()
	}

	if a.headers != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
			defer cancel()
			probe, err := a.headers.Probe(pctx, host)
			if err != nil {
				log.Debug().Err(err).Str("host", host).Msg("header probe failed")
				return
			}
			f.HeadersChecked = true
			f.HSTSEnabled = probe.HSTS
			f.SecurityHeaderCount = probe.SecurityHeaderCount
		}()
	}

	if a.ager != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
			defer cancel()
			age, err := a.ager.AgeDays(pctx, f.Domain)
			if err != nil {
				log.Debug().Err(err).Msg("age lookup failed")
				return
			}
			f.DomainAgeDays = age
		}()
	}

	if a.merchants != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
			defer cancel()
			m, err := a.merchants.GetByDomain(pctx, f.Domain)
			if err != nil {
				log.Debug().Err(err).Msg("merchant lookup failed")
			} else {
				f.Merchant = m
			}
			n, err := a.merchants.CountVerifiedFraud(pctx, f.Domain)
			if err == nil {
				f.VerifiedFraudCount = n
			}
		}()
	}

	if a.blacklist != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
			defer cancel()
			a.blacklist.RefreshIfStale(pctx, a.blacklistTTL)
			f.IsBlacklisted = a.blacklist.ContainsURL(rawURL) || a.blacklist.ContainsDomain(host)
		}()
	}

	wg.Wait()

	// A pile of verified fraud reports blacklists the domain even when the
	// feed has never seen it.
	if f.VerifiedFraudCount >= verifiedFraudBlacklistMin {
		f.IsBlacklisted = true
	}

	a.annotate(f)
	return f
}

// annotate derives the human-readable factor and indicator lists.
func (a *DomainTrustAssessor) annotate(f *models.DomainTrustFeatures) {
	if f.IsBlacklisted {
		f.RiskFactors = append(f.RiskFactors, "Domain appears on a known threat blacklist")
	}
	if len(f.SuspiciousPatterns) > 0 {
		f.RiskFactors = append(f.RiskFactors, "URL matches known phishing patterns")
	}
	if f.SSLChecked && !f.SSLValid {
		f.RiskFactors = append(f.RiskFactors, "Invalid or missing TLS certificate")
	}
	if f.DomainAgeDays >= 0 && f.DomainAgeDays < 90 {
		f.RiskFactors = append(f.RiskFactors, "Domain was registered very recently")
	}
	if f.Merchant.FraudRate() > 0.3 {
		f.RiskFactors = append(f.RiskFactors, "High rate of fraud reports against this merchant")
	}

	if f.TrustedFloorEligible() {
		f.SafetyIndicators = append(f.SafetyIndicators, "Trusted well-known domain")
	}
	if f.SSLChecked && f.SSLValid {
		f.SafetyIndicators = append(f.SafetyIndicators, "Valid TLS certificate")
	}
	if f.DomainAgeDays >= 365 {
		f.SafetyIndicators = append(f.SafetyIndicators, "Established domain, registered over a year ago")
	}
	if len(f.DetectedGateways) > 0 {
		f.SafetyIndicators = append(f.SafetyIndicators, "Uses a recognized payment gateway")
	}
	if f.Merchant != nil && f.Merchant.Verified {
		f.SafetyIndicators = append(f.SafetyIndicators, "Verified merchant")
	}
}

func (a *DomainTrustAssessor) isTrusted(host string) bool {
	for _, apex := range a.trusted {
		if host == apex || strings.HasSuffix(host, "."+apex) {
			return true
		}
	}
	return false
}

// detectGateways finds payment-gateway hosts referenced by the page or
// used as the URL host itself.
func (a *DomainTrustAssessor) detectGateways(host, pageHTML string) []string {
	var found []string
	seen := make(map[string]bool)
	html := strings.ToLower(pageHTML)

	for i, gw := range a.gateways {
		if seen[gw] {
			continue
		}
		if host == gw || strings.HasSuffix(host, "."+gw) {
			seen[gw] = true
			found = append(found, gw)
			continue
		}
		if html != "" && a.gatewayRes[i].MatchString(html) {
			seen[gw] = true
			found = append(found, gw)
		}
	}
	return found
}

// detectSuspiciousPatterns runs the phishing-shape checks on the URL.
func detectSuspiciousPatterns(rawURL, host string) []string {
	var patterns []string
	lower := strings.ToLower(rawURL)

	for _, p := range suspiciousURLPatterns {
		if p.Pattern.MatchString(lower) {
			patterns = append(patterns, p.Name)
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		patterns = append(patterns, "ip_literal_host")
	}

	labels := strings.Split(host, ".")
	// "amazon.com.evil.net" hides a fake apex inside the hostname.
	for i, label := range labels {
		if label == "com" && i < len(labels)-2 {
			patterns = append(patterns, "embedded_com_label")
			break
		}
	}
	for _, label := range labels {
		if strings.HasPrefix(label, "xn--") {
			patterns = append(patterns, "punycode_label")
			break
		}
	}

	return patterns
}

// registrableDomain reduces a host to its registrable apex
// (www.shop.example.co.uk -> example.co.uk). IPs and unlisted suffixes
// fall back to the host itself.
func registrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return apex
}
