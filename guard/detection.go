package guard

// Suspicious pattern names reported by a PatternDetector.
const (
	PatternMissingHeaders      = "missing_headers"
	PatternSuspiciousUserAgent = "suspicious_user_agent"
	PatternSuspiciousPath      = "suspicious_path"
)

// BotDetector reports whether a request looks like it comes from an automation tool.
type BotDetector interface {
	IsBot(req HTTPRequest) bool
}

// PatternDetector returns the names of all suspicious patterns the request matches. Empty means clean.
type PatternDetector interface {
	Detect(req HTTPRequest) []string
}
