// Package attacklog persists denied requests as attack log entries and keeps a short recent attacks list per source.
package attacklog

import (
	"context"
	"fmt"
	"time"

	"edgeguard/guard"
	"edgeguard/ipaddresses"
	"edgeguard/kvstore"
	"edgeguard/metrics"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Retention of attack log entries and of recent attacks lists.
const (
	EntryTTL         = 7 * 24 * time.Hour
	RecentTTL        = time.Hour
	DefaultRecentLen = 10
)

// Headers an upstream proxy or CDN may use to pass the client's country.
var countryHeaders = []string{"X-Country-Code", "CF-IPCountry", "CloudFront-Viewer-Country"}

// Config holds the optional parts of an attack logger.
type Config struct {
	// RecentLen bounds each source's recent attacks list. Zero means DefaultRecentLen.
	RecentLen int

	// Journal, if set, also receives every entry.
	Journal Journal

	Metrics *metrics.Recorder
	Now     func() time.Time
}

type loggerImpl struct {
	logger    zerolog.Logger
	store     guard.Store
	journal   Journal
	metrics   *metrics.Recorder
	recentLen int
	now       func() time.Time
}

// NewAttackLogger creates an attack logger writing to store.
func NewAttackLogger(logger zerolog.Logger, store guard.Store, c Config) guard.AttackLogger {
	l := &loggerImpl{
		logger:    logger,
		store:     store,
		journal:   c.Journal,
		metrics:   c.Metrics,
		recentLen: c.RecentLen,
		now:       c.Now,
	}
	if l.recentLen <= 0 {
		l.recentLen = DefaultRecentLen
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

func (l *loggerImpl) Record(ctx context.Context, req guard.HTTPRequest, attackType string) {
	entry := l.newEntry(req, attackType)
	lg := l.logger.With().Str("txid", entry.Details.CorrelationID).Str("source", entry.SourceID).Logger()

	if err := l.putEntry(ctx, entry); err != nil {
		l.metrics.AttackLogFailure()
		lg.Error().Err(err).Str("attackType", attackType).Msg("Failed to persist attack log entry")
	}

	if err := l.pushRecent(ctx, entry); err != nil {
		l.metrics.AttackLogFailure()
		lg.Error().Err(err).Msg("Failed to update recent attacks list")
	}

	if l.journal != nil {
		l.journal.Write(entry)
	}

	lg.Warn().
		Str("attackType", entry.AttackType).
		Str("severity", entry.Severity).
		Str("method", entry.Details.Method).
		Str("path", entry.Details.Path).
		Msg("Attack recorded")
}

func (l *loggerImpl) Recent(ctx context.Context, sourceID string) []guard.RecentAttack {
	list, err := l.readRecent(ctx, sourceID)
	if err != nil {
		l.logger.Warn().Err(err).Str("source", sourceID).Msg("Failed to read recent attacks")
		return []guard.RecentAttack{}
	}
	return list
}

func (l *loggerImpl) newEntry(req guard.HTTPRequest, attackType string) guard.AttackLogEntry {
	id := uuid.NewString()

	correlationID := req.TransactionID()
	if correlationID == "" {
		correlationID = id
	}

	ua, _ := guard.HeaderValue(req, "User-Agent")
	source := ipaddresses.NormalizeSourceID(req.RemoteAddr())

	return guard.AttackLogEntry{
		ID:         id,
		Timestamp:  l.now().UTC(),
		SourceID:   source,
		Country:    country(req),
		UserAgent:  ua,
		AttackType: attackType,
		Severity:   Severity(attackType),
		Details: guard.AttackDetails{
			Path:          guard.RequestPath(req),
			Method:        req.Method(),
			CorrelationID: correlationID,
		},
	}
}

func (l *loggerImpl) putEntry(ctx context.Context, entry guard.AttackLogEntry) error {
	bb, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode attack log entry: %w", err)
	}
	return l.store.Put(ctx, kvstore.AttackKey(entry.Timestamp, entry.SourceID, entry.ID), bb, EntryTTL)
}

// pushRecent prepends the entry to the source's list. Concurrent pushes may overwrite each other.
func (l *loggerImpl) pushRecent(ctx context.Context, entry guard.AttackLogEntry) error {
	list, err := l.readRecent(ctx, entry.SourceID)
	if err != nil {
		l.logger.Warn().Err(err).Str("source", entry.SourceID).Msg("Recent attacks unreadable, starting a new list")
		list = nil
	}

	recent := guard.RecentAttack{Timestamp: entry.Timestamp, AttackType: entry.AttackType, Severity: entry.Severity}
	list = append([]guard.RecentAttack{recent}, list...)
	if len(list) > l.recentLen {
		list = list[:l.recentLen]
	}

	bb, err := sonic.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode recent attacks: %w", err)
	}
	return l.store.Put(ctx, kvstore.RecentAttacksKey(entry.SourceID), bb, RecentTTL)
}

func (l *loggerImpl) readRecent(ctx context.Context, sourceID string) (list []guard.RecentAttack, err error) {
	list = []guard.RecentAttack{}

	bb, found, err := l.store.Get(ctx, kvstore.RecentAttacksKey(sourceID))
	if err != nil || !found {
		return
	}

	if err = sonic.Unmarshal(bb, &list); err != nil {
		list = []guard.RecentAttack{}
		err = fmt.Errorf("failed to decode recent attacks: %w", err)
	}
	return
}

func country(req guard.HTTPRequest) string {
	for _, h := range countryHeaders {
		if v, ok := guard.HeaderValue(req, h); ok && v != "" {
			return v
		}
	}
	return ""
}
