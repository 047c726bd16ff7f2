package guard

import (
	"context"
	"time"
)

// RateStatus is the non-mutating view of a source's rate consumption at decision time.
type RateStatus struct {
	MinuteCount  int       `json:"minuteCount"`
	HourCount    int       `json:"hourCount"`
	MaxPerMinute int       `json:"maxPerMinute"`
	MaxPerHour   int       `json:"maxPerHour"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"resetAt"`
	Blocked      bool      `json:"blocked"`
}

// RateLimiter keeps fixed-window request counters per source.
type RateLimiter interface {
	Check(ctx context.Context, sourceID string, now time.Time) RateStatus
	Commit(ctx context.Context, sourceID string, now time.Time)
}
