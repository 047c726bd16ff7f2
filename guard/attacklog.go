package guard

import (
	"context"
	"time"
)

// Severity levels of an attack log entry.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// AttackLogEntry is an immutable record of a denied or suspicious request.
type AttackLogEntry struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	SourceID   string        `json:"sourceId"`
	Country    string        `json:"country"`
	UserAgent  string        `json:"userAgent"`
	AttackType string        `json:"attackType"`
	Severity   string        `json:"severity"`
	Details    AttackDetails `json:"details"`
}

// AttackDetails is the request context attached to an attack log entry.
type AttackDetails struct {
	Path          string `json:"path"`
	Method        string `json:"method"`
	CorrelationID string `json:"correlationId"`
}

// RecentAttack is the minimal entry kept in a source's recent attacks list.
type RecentAttack struct {
	Timestamp  time.Time `json:"timestamp"`
	AttackType string    `json:"attackType"`
	Severity   string    `json:"severity"`
}

// AttackLogger persists denied requests. Failures never propagate to the caller.
type AttackLogger interface {
	Record(ctx context.Context, req HTTPRequest, attackType string)
	Recent(ctx context.Context, sourceID string) []RecentAttack
}
