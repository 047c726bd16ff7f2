package guard

import (
	"context"
	"time"
)

// Reputation score bounds. Higher is more trustworthy.
const (
	MinScore     = 0
	MaxScore     = 100
	NeutralScore = 50
	DefaultScore = MinScore
)

// ReputationRecord is the persisted trust state of a single source.
type ReputationRecord struct {
	SourceID      string    `json:"sourceId"`
	Score         int       `json:"score"`
	LastSeen      time.Time `json:"lastSeen"`
	AttackCount   int       `json:"attackCount"`
	IsBlacklisted bool      `json:"isBlacklisted"`

	// Whitelisted is set by an administrator override and exempts the source from blocked networks.
	Whitelisted bool `json:"whitelisted,omitempty"`

	// Reserved for a challenge verification flow. Persisted, never updated.
	ChallengesPassed int `json:"challengesPassed"`
	ChallengesFailed int `json:"challengesFailed"`
}

// NewReputationRecord returns the record a source has before anything is known about it.
func NewReputationRecord(sourceID string) ReputationRecord {
	return ReputationRecord{SourceID: sourceID, Score: DefaultScore}
}

// ReputationLedger maps a source identifier to its reputation record.
type ReputationLedger interface {
	Get(ctx context.Context, sourceID string) ReputationRecord
	ApplyDelta(ctx context.Context, sourceID string, delta int)
	SetAbsolute(ctx context.Context, sourceID string, score int, isBlacklisted bool) error
}
