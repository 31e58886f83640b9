package models

import "time"

// MediaRisk is the fused verdict for a screenshot or media capture
type MediaRisk struct {
	URL          string     `json:"url,omitempty"`
	Domain       string     `json:"domain,omitempty"`
	MediaScore   float64    `json:"media_score"`
	MediaColor   RiskLevel  `json:"media_color"`
	Reasons      []string   `json:"reasons"`
	FakeProb     *float64   `json:"fake_prob,omitempty"`
	WarningColor bool       `json:"warning_color"`
	ScamAlert    *ScamAlert `json:"scam_alert,omitempty"`
	AssessedAt   time.Time  `json:"assessed_at"`
}
