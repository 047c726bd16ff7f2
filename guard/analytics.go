package guard

import (
	"context"
	"time"
)

// HourlyBucket counts attacks in one hour-of-day slot.
type HourlyBucket struct {
	Hour    int `json:"hour"`
	Attacks int `json:"attacks"`
	Blocked int `json:"blocked"`
}

// AttackData is the aggregated view over the attack log.
type AttackData struct {
	TotalAttacks       int              `json:"totalAttacks"`
	TotalLogged        int              `json:"totalLogged"`
	RequestsLastMinute int              `json:"requestsLastMinute"`
	UniqueSources      int              `json:"uniqueSources"`
	AttackTypes        map[string]int   `json:"attackTypes"`
	HourlyData         [24]HourlyBucket `json:"hourlyData"`
	RecentAttacks      []AttackLogEntry `json:"recentAttacks"`
	Partial            bool             `json:"partial"`
	GeneratedAt        time.Time        `json:"generatedAt"`
}

// ReputationStats is the aggregated view over the reputation ledger.
type ReputationStats struct {
	TrackedSources     int                `json:"trackedSources"`
	BlacklistedSources int                `json:"blacklistedSources"`
	ActiveThreats      int                `json:"activeThreats"`
	TopThreats         []ReputationRecord `json:"topThreats"`
	Partial            bool               `json:"partial"`
	GeneratedAt        time.Time          `json:"generatedAt"`
}

// Protection levels reported by LiveMetrics.
const (
	ProtectionLow    = "low"
	ProtectionMedium = "medium"
	ProtectionHigh   = "high"
)

// LiveMetrics are the coarse counters shown on status surfaces.
type LiveMetrics struct {
	RequestsLastMinute int    `json:"requestsLastMinute"`
	TotalBlocked       int    `json:"totalBlocked"`
	ActiveThreats      int    `json:"activeThreats"`
	ProtectionLevel    string `json:"protectionLevel"`
}

// Analytics produces cached aggregates over the attack log and the reputation ledger.
type Analytics interface {
	AttackData(ctx context.Context) AttackData
	ReputationStats(ctx context.Context) ReputationStats
	Metrics(ctx context.Context) LiveMetrics
	ClearCache()
}
