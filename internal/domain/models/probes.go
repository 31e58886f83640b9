package models

// TLSProbe is the result of a TLS handshake against a host
type TLSProbe struct {
	Valid    bool `json:"valid"`
	CNMatch  bool `json:"cn_match"`
	SANMatch bool `json:"san_match"`
}

// HeaderProbe is the result of inspecting a site's HTTP response headers
type HeaderProbe struct {
	HSTS                bool `json:"hsts"`
	SecurityHeaderCount int  `json:"security_header_count"`
}

// DomainTrustFeatures is the merged output of all domain trust probes.
// Probe failures leave the corresponding Checked flag false; the signal is
// then treated as unknown rather than negative.
type DomainTrustFeatures struct {
	Domain string `json:"domain"`

	SSLChecked bool `json:"ssl_checked"`
	SSLValid   bool `json:"ssl_valid"`
	CNMatch    bool `json:"cn_match"`
	SANMatch   bool `json:"san_match"`

	HeadersChecked      bool `json:"headers_checked"`
	HSTSEnabled         bool `json:"hsts_enabled"`
	SecurityHeaderCount int  `json:"security_header_count"`

	// DomainAgeDays is -1 when WHOIS lookup failed or gave no creation date
	DomainAgeDays int `json:"domain_age_days"`

	DetectedGateways []string `json:"detected_gateways,omitempty"`

	Merchant *Merchant `json:"merchant,omitempty"`

	IsTrustedDomain     bool     `json:"is_trusted_domain"`
	IsBlacklisted       bool     `json:"is_blacklisted"`
	VerifiedFraudCount  int      `json:"verified_fraud_count"`
	SuspiciousPatterns  []string `json:"suspicious_patterns,omitempty"`
	RiskFactors         []string `json:"risk_factors"`
	SafetyIndicators    []string `json:"safety_indicators"`
}

// HasSuspiciousPattern reports whether any suspicious URL pattern matched.
func (f *DomainTrustFeatures) HasSuspiciousPattern() bool {
	return len(f.SuspiciousPatterns) > 0
}

// ReputableFloorEligible reports whether the domain qualifies for the
// reputable-domain score floor: valid TLS, at least a year old, some
// security header hygiene, and not blacklisted.
func (f *DomainTrustFeatures) ReputableFloorEligible() bool {
	if f.IsBlacklisted {
		return false
	}
	return f.SSLChecked && f.SSLValid &&
		f.DomainAgeDays >= 365 &&
		(f.HSTSEnabled || f.SecurityHeaderCount >= 2)
}

// TrustedFloorEligible reports whether the domain qualifies for the
// trusted-domain score floor. Blacklisting always wins over trust.
func (f *DomainTrustFeatures) TrustedFloorEligible() bool {
	return f.IsTrustedDomain && !f.IsBlacklisted
}
