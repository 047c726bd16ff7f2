package guard

// Action denotes what the route layer should do with a request.
type Action int

const (
	_ Action = iota

	// Serve means that the request should be handled normally.
	Serve

	// Challenge means that the client should be shown a challenge page instead of the content.
	Challenge

	// Deny means that the request should be rejected with a 429-style response.
	Deny
)

func (a Action) String() string {
	switch a {
	case Serve:
		return "serve"
	case Challenge:
		return "challenge"
	case Deny:
		return "deny"
	}
	return "unknown"
}

// Attack type labels produced by the protection orchestrator.
const (
	AttackBlacklisted       = "blacklisted"
	AttackRateLimitExceeded = "rate_limit_exceeded"
	AttackBotDetected       = "bot_detected"
	AttackSuspiciousPattern = "suspicious_pattern"
)

// Decision is the outcome of evaluating one request.
type Decision struct {
	Allowed    bool             `json:"allowed"`
	Reason     string           `json:"reason,omitempty"`
	Challenge  bool             `json:"challenge,omitempty"`
	AttackType string           `json:"attackType,omitempty"`
	Patterns   []string         `json:"patterns,omitempty"`
	Reputation ReputationRecord `json:"reputation"`
	RateLimit  RateStatus       `json:"rateLimit"`
}

// Action maps the decision onto the three responses the route layer knows about.
func (d Decision) Action() Action {
	switch {
	case d.Allowed:
		return Serve
	case d.Challenge:
		return Challenge
	default:
		return Deny
	}
}
