package models

// TextSource identifies where a piece of analyzed text came from. Screen
// captures (OCR output) get a lower decision threshold than generic text.
type TextSource string

const (
	TextSourceScreen  TextSource = "screen"
	TextSourceGeneric TextSource = "generic"
)

// ScamAlert is the outcome of rule-based scam text analysis
type ScamAlert struct {
	IsScam           bool     `json:"is_scam"`
	Confidence       float64  `json:"confidence"`
	DetectedPatterns []string `json:"detected_patterns"`
	SeniorMessage    string   `json:"senior_message"`
	ActionAdvice     []string `json:"action_advice"`
}

// HasPattern reports whether the alert matched the named category.
func (a *ScamAlert) HasPattern(name string) bool {
	if a == nil {
		return false
	}
	for _, p := range a.DetectedPatterns {
		if p == name {
			return true
		}
	}
	return false
}

// EmailCheck is the outcome of typosquat analysis of an email address
type EmailCheck struct {
	Address     string  `json:"address"`
	Domain      string  `json:"domain"`
	Suspicious  bool    `json:"suspicious"`
	Confidence  float64 `json:"confidence"`
	TargetBrand string  `json:"target_brand,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// SMSScan is the outcome of smishing analysis of an SMS body
type SMSScan struct {
	Suspicious bool     `json:"suspicious"`
	Confidence float64  `json:"confidence"`
	Findings   []string `json:"findings"`
}
