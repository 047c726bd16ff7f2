package kvstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key prefixes of the entity kinds kept in the store.
const (
	ReputationPrefix    = "reputation:"
	RateLimitPrefix     = "ratelimit:"
	AttackPrefix        = "attack:"
	RecentAttacksPrefix = "recent_attacks:"
)

// SanitizeKeyPart replaces every character that is not an ASCII letter or digit with '_'.
func SanitizeKeyPart(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			b.WriteByte(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ReputationKey is the key of a source's reputation record.
func ReputationKey(sourceID string) string {
	return ReputationPrefix + SanitizeKeyPart(sourceID)
}

// RateWindowKey is the key of a source's request counter for one window.
func RateWindowKey(sourceID string, granularity string, windowIndex int64) string {
	return RateLimitPrefix + SanitizeKeyPart(sourceID) + ":" + granularity + ":" + strconv.FormatInt(windowIndex, 10)
}

// maxKeyMillis is the largest timestamp representable in the 13 digit key field.
const maxKeyMillis = 9999999999999

// AttackKey is the key of one attack log entry.
// The timestamp is stored as maxKeyMillis minus its Unix milliseconds, zero padded,
// so ordered stores list the newest entries first.
func AttackKey(ts time.Time, sourceID string, id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s%013d:%s:%s", AttackPrefix, maxKeyMillis-ts.UnixMilli(), SanitizeKeyPart(sourceID), SanitizeKeyPart(id))
}

// RecentAttacksKey is the key of a source's recent attacks list.
func RecentAttacksKey(sourceID string) string {
	return RecentAttacksPrefix + SanitizeKeyPart(sourceID)
}
