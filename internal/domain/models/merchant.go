package models

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is a known seller domain with community reputation data
type Merchant struct {
	ID              uuid.UUID `json:"id"`
	Domain          string    `json:"domain"`
	Name            string    `json:"name"`
	ReputationScore float64   `json:"reputation_score"`
	Verified        bool      `json:"verified"`
	FraudReports    int       `json:"fraud_reports"`
	TotalReports    int       `json:"total_reports"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FraudRate is the share of reports against this merchant that allege fraud.
// Zero when no reports exist.
func (m *Merchant) FraudRate() float64 {
	if m == nil || m.TotalReports == 0 {
		return 0
	}
	return float64(m.FraudReports) / float64(m.TotalReports)
}

// IsReputable reports whether the merchant counts as established and
// trustworthy: a strong reputation score or verified status, and fewer
// than two fraud reports on record.
func (m *Merchant) IsReputable() bool {
	if m == nil {
		return false
	}
	return (m.ReputationScore >= 70 || m.Verified) && m.FraudReports < 2
}

// FraudReport is a single user-filed report against a domain
type FraudReport struct {
	ID        uuid.UUID `json:"id"`
	Domain    string    `json:"domain"`
	Reason    string    `json:"reason"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}
