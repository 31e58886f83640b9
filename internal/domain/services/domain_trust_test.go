package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustlens/internal/domain/models"
	"trustlens/pkg/logger"
)

type fakeTLS struct {
	probe models.TLSProbe
	err   error
}

func (f fakeTLS) Probe(ctx context.Context, host string) (models.TLSProbe, error) {
	return f.probe, f.err
}

type fakeHeaders struct {
	probe models.HeaderProbe
	err   error
}

func (f fakeHeaders) Probe(ctx context.Context, host string) (models.HeaderProbe, error) {
	return f.probe, f.err
}

type fakeAger struct {
	age int
	err error
}

func (f fakeAger) AgeDays(ctx context.Context, domain string) (int, error) {
	return f.age, f.err
}

type fakeMerchants struct {
	merchant      *models.Merchant
	verifiedFraud int
}

func (f fakeMerchants) GetByDomain(ctx context.Context, domain string) (*models.Merchant, error) {
	return f.merchant, nil
}

func (f fakeMerchants) CountVerifiedFraud(ctx context.Context, domain string) (int, error) {
	return f.verifiedFraud, nil
}

func goodProbes() (TLSProber, HeaderProber, DomainAger) {
	return fakeTLS{probe: models.TLSProbe{Valid: true, CNMatch: true, SANMatch: true}},
		fakeHeaders{probe: models.HeaderProbe{HSTS: true, SecurityHeaderCount: 4}},
		fakeAger{age: 4000}
}

func newTestAssessor(t *testing.T, tls TLSProber, headers HeaderProber, ager DomainAger, merchants MerchantStore, blacklist *BlacklistCache) *DomainTrustAssessor {
	t.Helper()
	return NewDomainTrustAssessor(tls, headers, ager, merchants, blacklist, DomainTrustOptions{}, logger.NewDefault())
}

func TestAssessTrustedDomain(t *testing.T) {
	tls, headers, ager := goodProbes()
	assessor := newTestAssessor(t, tls, headers, ager, nil, nil)

	f := assessor.Assess(context.Background(), "https://www.amazon.com/gp/cart", "")

	assert.True(t, f.IsTrustedDomain)
	assert.True(t, f.TrustedFloorEligible())
	assert.Equal(t, "amazon.com", f.Domain)
	assert.Contains(t, f.SafetyIndicators, "Trusted well-known domain")
	assert.Empty(t, f.SuspiciousPatterns)
}

func TestAssessBlacklistOverridesTrusted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("http://amazon.com/phish\n"))
	}))
	defer server.Close()

	blacklist := NewBlacklistCache(server.URL, time.Second, logger.NewDefault())
	tls, headers, ager := goodProbes()
	assessor := newTestAssessor(t, tls, headers, ager, nil, blacklist)

	f := assessor.Assess(context.Background(), "https://www.amazon.com/deals", "")

	assert.True(t, f.IsTrustedDomain)
	assert.True(t, f.IsBlacklisted)
	assert.False(t, f.TrustedFloorEligible(), "blacklisting always wins over the trusted allowlist")
	assert.False(t, f.ReputableFloorEligible())
	assert.NotContains(t, f.SafetyIndicators, "Trusted well-known domain")
	assert.Contains(t, f.RiskFactors, "Domain appears on a known threat blacklist")
}

func TestAssessSuspiciousPatterns(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []string
	}{
		{
			name: "ip literal with phishing path",
			url:  "http://192.168.1.1/verify-account",
			want: []string{"verify_account", "ip_literal_host"},
		},
		{
			name: "embedded com label",
			url:  "https://amazon.com.evil.net/login",
			want: []string{"embedded_com_label"},
		},
		{
			name: "punycode label",
			url:  "https://xn--pypal-4ve.com/secure-login",
			want: []string{"secure_login", "punycode_label"},
		},
		{
			name: "suspended keyword",
			url:  "https://example.com/account-suspended",
			want: []string{"suspended"},
		},
		{
			name: "urgent keyword",
			url:  "https://example.com/urgent-action-required",
			want: []string{"urgent"},
		},
		{
			name: "limited keyword",
			url:  "https://example.com/limited-account-access",
			want: []string{"limited"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectSuspiciousPatterns(tt.url, hostOf(tt.url))
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestAssessHTTPSchemeFailsTLS(t *testing.T) {
	assessor := newTestAssessor(t, nil, nil, nil, nil, nil)

	f := assessor.Assess(context.Background(), "http://192.168.1.1/verify-account", "")

	assert.True(t, f.SSLChecked)
	assert.False(t, f.SSLValid)
	assert.True(t, f.HasSuspiciousPattern())
	assert.Contains(t, f.RiskFactors, "Invalid or missing TLS certificate")
}

func TestAssessProbeFailuresDegradeToUnknown(t *testing.T) {
	assessor := newTestAssessor(t,
		fakeTLS{err: assert.AnError},
		fakeHeaders{err: assert.AnError},
		fakeAger{err: assert.AnError},
		nil, nil)

	f := assessor.Assess(context.Background(), "https://example.com/", "")

	assert.False(t, f.SSLChecked)
	assert.False(t, f.HeadersChecked)
	assert.Equal(t, -1, f.DomainAgeDays)
	assert.NotContains(t, f.RiskFactors, "Invalid or missing TLS certificate",
		"a failed probe is unknown, not negative")
}

func TestAssessGatewayDetection(t *testing.T) {
	tls, headers, ager := goodProbes()
	assessor := newTestAssessor(t, tls, headers, ager, nil, nil)

	page := `<html><body><script src="https://js.stripe.com/v3/"></script>
		<a href="https://www.paypal.com/checkout">Pay</a></body></html>`

	f := assessor.Assess(context.Background(), "https://shop.example.com/cart", page)

	assert.Contains(t, f.DetectedGateways, "stripe.com")
	assert.Contains(t, f.DetectedGateways, "paypal.com")
	assert.Contains(t, f.SafetyIndicators, "Uses a recognized payment gateway")
}

func TestAssessVerifiedFraudReportsBlacklist(t *testing.T) {
	tls, headers, ager := goodProbes()
	assessor := newTestAssessor(t, tls, headers, ager, fakeMerchants{verifiedFraud: 3}, nil)

	f := assessor.Assess(context.Background(), "https://shady-shop.example.com/", "")

	assert.True(t, f.IsBlacklisted, "three verified fraud reports blacklist the domain")
}

func TestAssessMalformedURL(t *testing.T) {
	assessor := newTestAssessor(t, nil, nil, nil, nil, nil)

	f := assessor.Assess(context.Background(), "://not a url", "")

	require.NotNil(t, f)
	assert.Contains(t, f.SuspiciousPatterns, "unparseable_url")
	assert.Contains(t, f.RiskFactors, "URL could not be parsed")
}

func TestReputableFloorEligibility(t *testing.T) {
	base := models.DomainTrustFeatures{
		SSLChecked:          true,
		SSLValid:            true,
		DomainAgeDays:       800,
		SecurityHeaderCount: 2,
	}

	eligible := base
	assert.True(t, eligible.ReputableFloorEligible())

	young := base
	young.DomainAgeDays = 100
	assert.False(t, young.ReputableFloorEligible())

	blacklisted := base
	blacklisted.IsBlacklisted = true
	assert.False(t, blacklisted.ReputableFloorEligible())

	noHeaders := base
	noHeaders.SecurityHeaderCount = 0
	assert.False(t, noHeaders.ReputableFloorEligible())

	hstsOnly := noHeaders
	hstsOnly.HSTSEnabled = true
	assert.True(t, hstsOnly.ReputableFloorEligible())
}
