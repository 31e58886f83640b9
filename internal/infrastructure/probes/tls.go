package probes

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"trustlens/internal/domain/models"
	"trustlens/pkg/logger"
)

// TLSProbe performs a real handshake against port 443 and checks whether
// the presented certificate chain verifies and names the host.
type TLSProbe struct {
	timeout time.Duration
	logger  *logger.Logger
}

// NewTLSProbe creates the probe. timeout bounds the dial plus handshake.
func NewTLSProbe(timeout time.Duration, log *logger.Logger) *TLSProbe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TLSProbe{timeout: timeout, logger: log.WithComponent("tls_probe")}
}

// Probe dials host:443 and inspects the certificate. Connection failures
// return an error; a completed handshake with a bad certificate returns
// Valid=false and no error.
func (p *TLSProbe) Probe(ctx context.Context, host string) (models.TLSProbe, error) {
	dialer := &net.Dialer{Timeout: p.timeout}

	// InsecureSkipVerify so a bad chain still hands us the certificate;
	// verification happens explicitly below.
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, "443"), &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
	})
	if err != nil {
		return models.TLSProbe{}, fmt.Errorf("tls dial %s: %w", host, err)
	}
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return models.TLSProbe{}, nil
	}
	leaf := state.PeerCertificates[0]

	result := models.TLSProbe{
		CNMatch:  hostMatchesPattern(host, leaf.Subject.CommonName),
		SANMatch: leaf.VerifyHostname(host) == nil,
	}

	opts := x509.VerifyOptions{
		DNSName:       host,
		Intermediates: x509.NewCertPool(),
	}
	for _, cert := range state.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}
	if _, err := leaf.Verify(opts); err == nil {
		result.Valid = true
	}

	return result, nil
}

// hostMatchesPattern checks a certificate name against the host,
// honoring a single leading wildcard label.
func hostMatchesPattern(host, pattern string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	pattern = strings.ToLower(strings.TrimSuffix(pattern, "."))
	if pattern == "" {
		return false
	}
	if host == pattern {
		return true
	}
	if rest, ok := strings.CutPrefix(pattern, "*."); ok {
		if i := strings.Index(host, "."); i > 0 {
			return host[i+1:] == rest
		}
	}
	return false
}

// Security headers counted by the header probe
var securityHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"Referrer-Policy",
	"Permissions-Policy",
}

// HeaderProbe fetches the site root over HTTPS and counts security
// headers on the response.
type HeaderProbe struct {
	client *http.Client
	logger *logger.Logger
}

// NewHeaderProbe creates the probe with its own bounded HTTP client.
func NewHeaderProbe(timeout time.Duration, log *logger.Logger) *HeaderProbe {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &HeaderProbe{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		logger: log.WithComponent("header_probe"),
	}
}

// Probe issues a GET to https://host/ and inspects response headers.
func (p *HeaderProbe) Probe(ctx context.Context, host string) (models.HeaderProbe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+host+"/", nil)
	if err != nil {
		return models.HeaderProbe{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return models.HeaderProbe{}, fmt.Errorf("header probe %s: %w", host, err)
	}
	defer resp.Body.Close()

	var result models.HeaderProbe
	for _, h := range securityHeaders {
		if resp.Header.Get(h) != "" {
			result.SecurityHeaderCount++
		}
	}
	result.HSTS = resp.Header.Get("Strict-Transport-Security") != ""

	return result, nil
}
