package attacklog

import "edgeguard/guard"

var severities = map[string]string{
	guard.AttackBlacklisted:       guard.SeverityHigh,
	guard.AttackRateLimitExceeded: guard.SeverityMedium,
	guard.AttackBotDetected:       guard.SeverityLow,
	guard.AttackSuspiciousPattern: guard.SeverityMedium,
	"brute_force":                 guard.SeverityHigh,
	"path_traversal":              guard.SeverityHigh,
	"sql_injection":               guard.SeverityCritical,
	"xss":                         guard.SeverityCritical,
}

// Severity returns the severity of an attack type. Unknown types are low.
func Severity(attackType string) string {
	if s, ok := severities[attackType]; ok {
		return s
	}
	return guard.SeverityLow
}
