package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel buckets a trust or media score into a traffic-light level
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// RiskLevelForTrust maps a trust score (higher = safer) to a level.
// LOW risk at >= 65, MEDIUM at >= 40, HIGH below.
func RiskLevelForTrust(score float64) RiskLevel {
	switch {
	case score >= 65:
		return RiskLevelLow
	case score >= 40:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

// RiskLevelForMedia maps a media risk score (higher = riskier) to a level.
// HIGH at >= 70, MEDIUM at >= 40, LOW below.
func RiskLevelForMedia(score float64) RiskLevel {
	switch {
	case score >= 70:
		return RiskLevelHigh
	case score >= 40:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// RiskScore is the full assessment verdict for a URL
type RiskScore struct {
	ID               uuid.UUID `json:"id"`
	URL              string    `json:"url"`
	Domain           string    `json:"domain"`
	TrustScore       float64   `json:"trust_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
	RiskFactors      []string  `json:"risk_factors"`
	SafetyIndicators []string  `json:"safety_indicators"`
	EducationMessage string    `json:"education_message"`
	SSLValid         bool      `json:"ssl_valid"`
	DomainAgeDays    int       `json:"domain_age_days"`
	DetectedGateways []string  `json:"detected_gateways,omitempty"`
	IsBlacklisted    bool      `json:"is_blacklisted"`
	AssessedAt       time.Time `json:"assessed_at"`
	CacheHit         bool      `json:"cache_hit,omitempty"`
}

// Probability is a benign/malicious class distribution from the URL or
// HTML classifier. The two sides sum to 1.
type Probability struct {
	Benign    float64 `json:"benign"`
	Malicious float64 `json:"malicious"`
}

// Neutral is the fallback distribution used when a classifier call fails.
func NeutralProbability() Probability {
	return Probability{Benign: 0.5, Malicious: 0.5}
}

// HamSpam is the class distribution from the text spam classifier.
type HamSpam struct {
	Ham  float64 `json:"ham"`
	Spam float64 `json:"spam"`
}
