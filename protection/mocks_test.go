package protection

import (
	"context"
	"errors"
	"sync"
	"time"

	"edgeguard/guard"
)

type mockHeaderPair struct {
	k string
	v string
}

func (h *mockHeaderPair) Key() string   { return h.k }
func (h *mockHeaderPair) Value() string { return h.v }

type mockHTTPRequest struct {
	remoteAddr string
	uri        string
	headers    []guard.HeaderPair
}

func (r *mockHTTPRequest) Method() string              { return "GET" }
func (r *mockHTTPRequest) URI() string                 { return r.uri }
func (r *mockHTTPRequest) RemoteAddr() string          { return r.remoteAddr }
func (r *mockHTTPRequest) Headers() []guard.HeaderPair { return r.headers }
func (r *mockHTTPRequest) TransactionID() string       { return "tx" }

type mockLedger struct {
	mu       sync.Mutex
	records  map[string]guard.ReputationRecord
	deltas   []int
	setErr   error
	setCalls int
}

func newMockLedger() *mockLedger {
	return &mockLedger{records: map[string]guard.ReputationRecord{}}
}

func (l *mockLedger) Get(ctx context.Context, sourceID string) guard.ReputationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.records[sourceID]; ok {
		return r
	}
	return guard.NewReputationRecord(sourceID)
}

func (l *mockLedger) ApplyDelta(ctx context.Context, sourceID string, delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deltas = append(l.deltas, delta)
}

func (l *mockLedger) SetAbsolute(ctx context.Context, sourceID string, score int, isBlacklisted bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setCalls++
	if l.setErr != nil {
		return l.setErr
	}
	r := l.records[sourceID]
	r.SourceID, r.Score, r.IsBlacklisted = sourceID, score, isBlacklisted
	l.records[sourceID] = r
	return nil
}

type mockLimiter struct {
	mu      sync.Mutex
	blocked bool
	commits []string
	ctxErr  error
}

func (l *mockLimiter) Check(ctx context.Context, sourceID string, now time.Time) guard.RateStatus {
	return guard.RateStatus{Blocked: l.blocked, MaxPerMinute: 60, MaxPerHour: 1000}
}

func (l *mockLimiter) Commit(ctx context.Context, sourceID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commits = append(l.commits, sourceID)
	l.ctxErr = ctx.Err()
}

type mockBotDetector struct {
	bot bool
}

func (d *mockBotDetector) IsBot(req guard.HTTPRequest) bool {
	return d.bot
}

type mockPatternDetector struct {
	patterns []string
	calls    int
}

func (d *mockPatternDetector) Detect(req guard.HTTPRequest) []string {
	d.calls++
	return d.patterns
}

type mockAttackLogger struct {
	recorded []string
	recent   []guard.RecentAttack
	ctxErr   error
}

func (l *mockAttackLogger) Record(ctx context.Context, req guard.HTTPRequest, attackType string) {
	l.recorded = append(l.recorded, attackType)
	l.ctxErr = ctx.Err()
}

func (l *mockAttackLogger) Recent(ctx context.Context, sourceID string) []guard.RecentAttack {
	return l.recent
}

type mockAnalytics struct {
	cleared int
}

func (a *mockAnalytics) AttackData(ctx context.Context) guard.AttackData { return guard.AttackData{} }
func (a *mockAnalytics) ReputationStats(ctx context.Context) guard.ReputationStats {
	return guard.ReputationStats{}
}
func (a *mockAnalytics) Metrics(ctx context.Context) guard.LiveMetrics { return guard.LiveMetrics{} }
func (a *mockAnalytics) ClearCache()                                   { a.cleared++ }

var errStoreDown = errors.New("store down")
