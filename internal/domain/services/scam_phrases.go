package services

import "regexp"

// Category names reported in ScamAlert.DetectedPatterns
const (
	CategoryVirusWarning   = "virus_warning"
	CategoryScareTactic    = "scare_tactic"
	CategoryActionDemand   = "action_demand"
	CategoryPaymentRequest = "payment_request"
	CategoryUrgency        = "urgency"
	CategoryBrandMention   = "brand_mention"
	CategoryDoNotClose     = "do_not_close"
	CategoryPhoneNumber    = "phone_number"
	CategoryFakeErrorCode  = "fake_error_code"
	CategoryPhishingIntent = "phishing_intent"
	CategorySensitiveInput = "sensitive_input"
	CategoryCustomPhrase   = "custom_phrase"
)

// phraseCategory is a weighted scam indicator: matching any phrase (or
// regex) adds Points to the raw score, once per category.
type phraseCategory struct {
	Name    string
	Points  float64
	Phrases []string
	Regexes []*regexp.Regexp
}

// strongCategories are the indicators counted toward the "many independent
// signals" combination floor.
var strongCategories = map[string]bool{
	CategoryVirusWarning:   true,
	CategoryScareTactic:    true,
	CategoryPaymentRequest: true,
	CategoryPhoneNumber:    true,
	CategoryFakeErrorCode:  true,
	CategoryDoNotClose:     true,
	CategoryPhishingIntent: true,
}

var defaultCategories = []phraseCategory{
	{
		Name:   CategoryVirusWarning,
		Points: 15,
		Phrases: []string{
			"virus", "malware", "trojan", "spyware", "ransomware",
			"infected", "infection detected", "security breach",
			"your computer is at risk", "threats detected",
		},
	},
	{
		Name:   CategoryScareTactic,
		Points: 20,
		Phrases: []string{
			"has been locked", "has been blocked", "has been compromised",
			"has been hacked", "has been suspended", "unauthorized access",
			"suspicious activity", "unusual activity", "will be deleted",
			"will be disabled", "will be terminated", "security alert",
			"illegal activity",
		},
	},
	{
		Name:   CategoryActionDemand,
		Points: 15,
		Phrases: []string{
			"call now", "call immediately", "call us", "contact support",
			"contact us immediately", "act now", "click here", "click below",
			"verify now", "sign in now", "log in now",
		},
	},
	{
		Name:   CategoryPaymentRequest,
		Points: 25,
		Phrases: []string{
			"gift card", "gift cards", "itunes card", "google play card",
			"wire transfer", "bitcoin", "cryptocurrency", "western union",
			"moneygram", "send money", "payment required", "pay now",
			"processing fee", "refund fee",
		},
	},
	{
		Name:   CategoryUrgency,
		Points: 10,
		Phrases: []string{
			"urgent", "immediately", "right now", "right away",
			"within 24 hours", "within 48 hours", "expires today",
			"act fast", "hurry", "final notice", "last warning",
			"limited time",
		},
	},
	{
		Name:   CategoryBrandMention,
		Points: 10,
		Phrases: []string{
			"microsoft", "windows", "apple", "amazon", "google", "paypal",
			"netflix", "norton", "mcafee", "geek squad", "irs", "medicare",
			"social security", "wells fargo", "chase", "ebay",
		},
	},
	{
		Name:   CategoryDoNotClose,
		Points: 15,
		Phrases: []string{
			"do not close", "don t close", "do not restart",
			"do not shut down", "do not turn off", "do not ignore",
		},
	},
	{
		Name:   CategoryFakeErrorCode,
		Points: 15,
		Regexes: []*regexp.Regexp{
			regexp.MustCompile(`error\s*(code|#|id)?\s*[:#]?\s*0x[0-9a-f]{2,}`),
			regexp.MustCompile(`error\s+(code\s+)?[a-z]{0,4}-?\d{2,}`),
			regexp.MustCompile(`(code|ref(erence)?)\s*[:#]\s*[a-z0-9-]{4,}`),
		},
	},
}

// phishing_intent scores differently by phrasing: explicit credential
// requests are worth more than generic link bait.
var credentialPhrases = []string{
	"verify your account", "verify your identity", "confirm your identity",
	"confirm your account", "update your payment", "update your billing",
	"enter your password", "confirm your password", "validate your account",
	"provide your social security",
}

var linkBaitPhrases = []string{
	"click the link", "click on the link", "follow the link",
	"open the attachment", "use the link below",
}

const (
	credentialIntentPoints = 20
	linkBaitIntentPoints   = 15
	phoneNumberPoints      = 20
	customPhrasePoints     = 10
	sensitiveInputPoints   = 15
)

// sensitiveInputLabels only score when they co-occur with a phishing-intent
// or brand-mention match; a bare settings page that says "password" is fine.
var sensitiveInputLabels = []string{
	"password", "passcode", "social security number", "ssn",
	"card number", "credit card", "cvv", "account number", "routing number",
	"pin number", "security code",
}

// phoneNumberRe matches North American phone numbers; the engine only
// scores them when a call verb appears shortly before the number.
var phoneNumberRe = regexp.MustCompile(`(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

var callVerbs = []string{"call", "dial", "phone", "contact", "text", "reach"}

// legitimateUIPhrases suppress alerts on ordinary system/application
// screens that happen to mention security.
var legitimateUIPhrases = []string{
	"system preferences", "control panel", "checking for updates",
	"software update", "terms of service", "privacy policy",
	"all rights reserved", "keyboard shortcuts", "update history",
	"scan complete no threats",
}
