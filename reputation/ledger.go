// Package reputation keeps a trust score per source in the key-value store.
package reputation

import (
	"context"
	"fmt"
	"time"

	"edgeguard/guard"
	"edgeguard/kvstore"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
)

// RecordTTL is how long an untouched reputation record is kept.
const RecordTTL = 24 * time.Hour

type ledgerImpl struct {
	logger  zerolog.Logger
	store   guard.Store
	blocked *networkTrie
	now     func() time.Time
}

// NewLedger creates a reputation ledger on top of store.
// Sources inside blockedNetworks are reported as blacklisted unless an administrator whitelisted them.
func NewLedger(logger zerolog.Logger, store guard.Store, blockedNetworks []string, now func() time.Time) (l guard.ReputationLedger, err error) {
	blocked, err := newNetworkTrie(blockedNetworks)
	if err != nil {
		return
	}

	if now == nil {
		now = time.Now
	}

	if blocked.size > 0 {
		logger.Info().Int("networks", blocked.size).Msg("Loaded blocked networks")
	}

	l = &ledgerImpl{logger: logger, store: store, blocked: blocked, now: now}
	return
}

func (l *ledgerImpl) Get(ctx context.Context, sourceID string) guard.ReputationRecord {
	rec, _, err := l.load(ctx, sourceID)
	if err != nil {
		l.logger.Warn().Err(err).Str("source", sourceID).Msg("Reputation read failed, using defaults")
		rec = guard.NewReputationRecord(sourceID)
	}

	if !rec.Whitelisted && l.blocked.contains(sourceID) {
		rec.IsBlacklisted = true
		rec.Score = guard.MinScore
	}

	return rec
}

func (l *ledgerImpl) ApplyDelta(ctx context.Context, sourceID string, delta int) {
	rec, _, err := l.load(ctx, sourceID)
	if err != nil {
		l.logger.Warn().Err(err).Str("source", sourceID).Msg("Reputation read failed, applying delta to defaults")
		rec = guard.NewReputationRecord(sourceID)
	}

	rec.Score = clamp(rec.Score + delta)
	rec.LastSeen = l.now()
	if delta < 0 {
		rec.AttackCount++
	}
	if rec.Score <= guard.MinScore {
		rec.IsBlacklisted = true
	}

	if err = l.save(ctx, rec); err != nil {
		l.logger.Error().Err(err).Str("source", sourceID).Int("delta", delta).Msg("Failed to persist reputation")
	}
}

func (l *ledgerImpl) SetAbsolute(ctx context.Context, sourceID string, score int, isBlacklisted bool) error {
	rec, _, err := l.load(ctx, sourceID)
	if err != nil {
		return err
	}

	rec.Score = clamp(score)
	rec.IsBlacklisted = isBlacklisted
	rec.Whitelisted = !isBlacklisted
	rec.LastSeen = l.now()

	if err = l.save(ctx, rec); err != nil {
		return err
	}

	l.logger.Info().Str("source", sourceID).Int("score", rec.Score).Bool("blacklisted", isBlacklisted).Msg("Reputation overridden")
	return nil
}

func (l *ledgerImpl) load(ctx context.Context, sourceID string) (rec guard.ReputationRecord, found bool, err error) {
	rec = guard.NewReputationRecord(sourceID)

	data, found, err := l.store.Get(ctx, kvstore.ReputationKey(sourceID))
	if err != nil {
		err = fmt.Errorf("failed to read reputation of %v: %w", sourceID, err)
		return
	}
	if !found {
		return
	}

	if uerr := sonic.Unmarshal(data, &rec); uerr != nil {
		l.logger.Warn().Err(uerr).Str("source", sourceID).Msg("Discarding unreadable reputation record")
		rec = guard.NewReputationRecord(sourceID)
		found = false
		return
	}

	rec.SourceID = sourceID
	rec.Score = clamp(rec.Score)
	return
}

func (l *ledgerImpl) save(ctx context.Context, rec guard.ReputationRecord) error {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode reputation of %v: %w", rec.SourceID, err)
	}

	if err = l.store.Put(ctx, kvstore.ReputationKey(rec.SourceID), data, RecordTTL); err != nil {
		return fmt.Errorf("failed to write reputation of %v: %w", rec.SourceID, err)
	}
	return nil
}

func clamp(score int) int {
	if score < guard.MinScore {
		return guard.MinScore
	}
	if score > guard.MaxScore {
		return guard.MaxScore
	}
	return score
}
