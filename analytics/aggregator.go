// Package analytics turns the attack log and the reputation ledger into cached aggregate views.
package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"edgeguard/guard"
	"edgeguard/kvstore"
	"edgeguard/metrics"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// View names, as used in metrics and for collapsing concurrent recomputations.
const (
	AttackView     = "attacks"
	ReputationView = "reputation"
)

// Protection level thresholds, by number of active threats.
const (
	HighThreatLevel   = 10
	MediumThreatLevel = 3
)

// Config bounds the work of one view recomputation and how long views are cached.
type Config struct {
	PageSize    int
	KeyBudget   int
	Concurrency int
	RecentLimit int
	TopThreats  int

	AttackTTL     time.Duration
	ReputationTTL time.Duration

	Metrics *metrics.Recorder
	Now     func() time.Time
}

// DefaultConfig returns the default analytics bounds.
func DefaultConfig() Config {
	return Config{
		PageSize:      100,
		KeyBudget:     1000,
		Concurrency:   10,
		RecentLimit:   20,
		TopThreats:    10,
		AttackTTL:     30 * time.Second,
		ReputationTTL: 60 * time.Second,
	}
}

type aggregatorImpl struct {
	logger zerolog.Logger
	store  guard.Store
	config Config
	group  singleflight.Group

	attacks    *viewCache[guard.AttackData]
	reputation *viewCache[guard.ReputationStats]
}

// NewAggregator creates an analytics aggregator. Zero fields of c take their DefaultConfig value.
func NewAggregator(logger zerolog.Logger, store guard.Store, c Config) guard.Analytics {
	d := DefaultConfig()
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.KeyBudget <= 0 {
		c.KeyBudget = d.KeyBudget
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = d.RecentLimit
	}
	if c.TopThreats <= 0 {
		c.TopThreats = d.TopThreats
	}
	if c.AttackTTL <= 0 {
		c.AttackTTL = d.AttackTTL
	}
	if c.ReputationTTL <= 0 {
		c.ReputationTTL = d.ReputationTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	return &aggregatorImpl{
		logger:     logger,
		store:      store,
		config:     c,
		attacks:    newViewCache[guard.AttackData](c.AttackTTL),
		reputation: newViewCache[guard.ReputationStats](c.ReputationTTL),
	}
}

func (a *aggregatorImpl) AttackData(ctx context.Context) guard.AttackData {
	return cached(ctx, a, AttackView, a.attacks, a.computeAttackData)
}

func (a *aggregatorImpl) ReputationStats(ctx context.Context) guard.ReputationStats {
	return cached(ctx, a, ReputationView, a.reputation, a.computeReputationStats)
}

func (a *aggregatorImpl) Metrics(ctx context.Context) (m guard.LiveMetrics) {
	var attacks guard.AttackData
	var reputation guard.ReputationStats

	var g errgroup.Group
	g.Go(func() error {
		attacks = a.AttackData(ctx)
		return nil
	})
	g.Go(func() error {
		reputation = a.ReputationStats(ctx)
		return nil
	})
	g.Wait()

	m = guard.LiveMetrics{
		RequestsLastMinute: attacks.RequestsLastMinute,
		TotalBlocked:       attacks.TotalLogged,
		ActiveThreats:      reputation.ActiveThreats,
		ProtectionLevel:    ProtectionLevel(reputation.ActiveThreats),
	}
	return
}

func (a *aggregatorImpl) ClearCache() {
	a.attacks.clear()
	a.reputation.clear()
	a.logger.Info().Msg("Analytics cache cleared")
}

// ProtectionLevel grades the number of active threats.
func ProtectionLevel(activeThreats int) string {
	switch {
	case activeThreats >= HighThreatLevel:
		return guard.ProtectionHigh
	case activeThreats >= MediumThreatLevel:
		return guard.ProtectionMedium
	default:
		return guard.ProtectionLow
	}
}

// cached serves a view from its cache, or recomputes it once for all concurrent callers.
// Partial results are returned but not cached.
func cached[T any](ctx context.Context, a *aggregatorImpl, view string, cache *viewCache[T], compute func(context.Context) (T, bool)) T {
	if v, _, ok := cache.get(a.config.Now()); ok {
		a.config.Metrics.AnalyticsCache(view, true)
		return v
	}
	a.config.Metrics.AnalyticsCache(view, false)

	v, _, _ := a.group.Do(view, func() (interface{}, error) {
		v, generation, ok := cache.get(a.config.Now())
		if ok {
			return v, nil
		}

		start := time.Now()
		v, partial := compute(context.WithoutCancel(ctx))
		a.config.Metrics.AnalyticsScan(view, time.Since(start))

		if !partial {
			cache.set(v, generation, a.config.Now())
		}
		return v, nil
	})
	return v.(T)
}

func (a *aggregatorImpl) computeAttackData(ctx context.Context) (data guard.AttackData, partial bool) {
	now := a.config.Now().UTC()
	res := a.scan(ctx, kvstore.AttackPrefix)

	data = guard.AttackData{
		AttackTypes: map[string]int{},
		GeneratedAt: now,
	}
	for h := range data.HourlyData {
		data.HourlyData[h].Hour = h
	}

	sources := map[string]struct{}{}
	entries := make([]guard.AttackLogEntry, 0, len(res.values))
	for key, bb := range res.values {
		var e guard.AttackLogEntry
		if err := sonic.Unmarshal(bb, &e); err != nil {
			a.logger.Warn().Err(err).Str("key", key).Msg("Skipping unreadable attack log entry")
			res.partial = true
			continue
		}
		entries = append(entries, e)

		data.TotalLogged++
		data.AttackTypes[e.AttackType]++
		sources[e.SourceID] = struct{}{}

		ts := e.Timestamp.UTC()
		if ts.After(now.Add(-24*time.Hour)) && !ts.After(now) {
			data.TotalAttacks++
			b := &data.HourlyData[ts.Hour()]
			b.Attacks++
			b.Blocked++
		}
		if ts.After(now.Add(-time.Minute)) && !ts.After(now) {
			data.RequestsLastMinute++
		}
	}
	data.UniqueSources = len(sources)

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > a.config.RecentLimit {
		entries = entries[:a.config.RecentLimit]
	}
	data.RecentAttacks = entries

	data.Partial = res.partial
	partial = res.partial
	a.logger.Debug().Int("processed", res.processed).Bool("partial", partial).Msg("Attack data recomputed")
	return
}

func (a *aggregatorImpl) computeReputationStats(ctx context.Context) (stats guard.ReputationStats, partial bool) {
	res := a.scan(ctx, kvstore.ReputationPrefix)
	stats = guard.ReputationStats{
		TopThreats:  []guard.ReputationRecord{},
		GeneratedAt: a.config.Now().UTC(),
	}

	for key, bb := range res.values {
		var r guard.ReputationRecord
		if err := sonic.Unmarshal(bb, &r); err != nil {
			a.logger.Warn().Err(err).Str("key", key).Msg("Skipping unreadable reputation record")
			res.partial = true
			continue
		}
		if r.SourceID == "" {
			r.SourceID = strings.TrimPrefix(key, kvstore.ReputationPrefix)
		}

		stats.TrackedSources++
		if r.IsBlacklisted {
			stats.BlacklistedSources++
		}
		if r.AttackCount > 0 {
			stats.TopThreats = append(stats.TopThreats, r)
			if r.Score < guard.NeutralScore {
				stats.ActiveThreats++
			}
		}
	}

	sort.Slice(stats.TopThreats, func(i, j int) bool {
		ti, tj := stats.TopThreats[i], stats.TopThreats[j]
		if ti.AttackCount != tj.AttackCount {
			return ti.AttackCount > tj.AttackCount
		}
		if ti.Score != tj.Score {
			return ti.Score < tj.Score
		}
		return ti.SourceID < tj.SourceID
	})
	if len(stats.TopThreats) > a.config.TopThreats {
		stats.TopThreats = stats.TopThreats[:a.config.TopThreats]
	}

	stats.Partial = res.partial
	partial = res.partial
	return
}
