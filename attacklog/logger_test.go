package attacklog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"edgeguard/guard"
	"edgeguard/kvstore"
	"edgeguard/metrics"
	"edgeguard/testutils"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

type mockHeaderPair struct {
	k string
	v string
}

func (h *mockHeaderPair) Key() string   { return h.k }
func (h *mockHeaderPair) Value() string { return h.v }

type mockHTTPRequest struct {
	remoteAddr string
	uri        string
	txid       string
	headers    []guard.HeaderPair
}

func (r *mockHTTPRequest) Method() string              { return "POST" }
func (r *mockHTTPRequest) URI() string                 { return r.uri }
func (r *mockHTTPRequest) RemoteAddr() string          { return r.remoteAddr }
func (r *mockHTTPRequest) Headers() []guard.HeaderPair { return r.headers }
func (r *mockHTTPRequest) TransactionID() string       { return r.txid }

func newRequest() *mockHTTPRequest {
	return &mockHTTPRequest{
		remoteAddr: "203.0.113.9",
		uri:        "/login?next=/",
		txid:       "tx-1",
		headers: []guard.HeaderPair{
			&mockHeaderPair{k: "User-Agent", v: "sqlmap/1.7"},
			&mockHeaderPair{k: "CF-IPCountry", v: "NL"},
		},
	}
}

func newTestLogger(t *testing.T, c Config) (guard.AttackLogger, *kvstore.MemoryStore, *testutils.FakeClock) {
	clock := testutils.NewFakeClock(testStart)
	store := kvstore.NewMemoryStoreWithClock(clock.Now)
	c.Now = clock.Now
	return NewAttackLogger(testutils.NewTestLogger(t), store, c), store, clock
}

func TestRecordPersistsEntry(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	ctx := context.Background()
	l, store, clock := newTestLogger(t, Config{})

	// Act
	l.Record(ctx, newRequest(), guard.AttackSuspiciousPattern)

	// Assert
	page, err := store.List(ctx, kvstore.AttackPrefix, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Keys, 1)
	assert.True(strings.HasPrefix(page.Keys[0], "attack:8290696599999:203_0_113_9:"))

	bb, found, err := store.Get(ctx, page.Keys[0])
	require.NoError(t, err)
	require.True(t, found)
	var entry guard.AttackLogEntry
	require.NoError(t, sonic.Unmarshal(bb, &entry))
	assert.Equal("203.0.113.9", entry.SourceID)
	assert.Equal("NL", entry.Country)
	assert.Equal("sqlmap/1.7", entry.UserAgent)
	assert.Equal(guard.SeverityMedium, entry.Severity)
	assert.Equal(guard.AttackDetails{Path: "/login", Method: "POST", CorrelationID: "tx-1"}, entry.Details)
	assert.Equal(testStart, entry.Timestamp)
	assert.Len(entry.ID, 36)

	clock.Advance(EntryTTL - time.Minute)
	_, found, _ = store.Get(ctx, page.Keys[0])
	assert.True(found)
	clock.Advance(2 * time.Minute)
	_, found, _ = store.Get(ctx, page.Keys[0])
	assert.False(found)
}

func TestRecentListBoundAndOrder(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	ctx := context.Background()
	l, _, clock := newTestLogger(t, Config{})
	types := []string{guard.AttackBotDetected, guard.AttackRateLimitExceeded, guard.AttackBlacklisted}

	// Act
	for i := 0; i < 12; i++ {
		l.Record(ctx, newRequest(), types[i%len(types)])
		clock.Advance(time.Second)
	}
	recent := l.Recent(ctx, "203.0.113.9")

	// Assert
	require.Len(t, recent, DefaultRecentLen)
	assert.Equal(testStart.Add(11*time.Second), recent[0].Timestamp)
	assert.Equal(guard.AttackBlacklisted, recent[0].AttackType)
	assert.Equal(guard.SeverityHigh, recent[0].Severity)
	assert.Equal(testStart.Add(2*time.Second), recent[9].Timestamp)
	for i := 1; i < len(recent); i++ {
		assert.True(recent[i-1].Timestamp.After(recent[i].Timestamp))
	}
}

func TestRecentListExpires(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l, _, clock := newTestLogger(t, Config{RecentLen: 3})
	l.Record(ctx, newRequest(), guard.AttackBotDetected)

	assert.Len(l.Recent(ctx, "203.0.113.9"), 1)
	clock.Advance(RecentTTL + time.Second)
	assert.Empty(l.Recent(ctx, "203.0.113.9"))
	assert.NotNil(l.Recent(ctx, "198.51.100.1"))
}

func TestCorrelationIDFallsBackToEntryID(t *testing.T) {
	ctx := context.Background()
	j := &mockJournal{}
	l, _, _ := newTestLogger(t, Config{Journal: j})
	req := newRequest()
	req.txid = ""

	l.Record(ctx, req, "xss")

	require.Len(t, j.entries, 1)
	assert.Equal(t, j.entries[0].ID, j.entries[0].Details.CorrelationID)
	assert.Equal(t, guard.SeverityCritical, j.entries[0].Severity)
}

func TestSeverity(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(guard.SeverityHigh, Severity("blacklisted"))
	assert.Equal(guard.SeverityMedium, Severity("rate_limit_exceeded"))
	assert.Equal(guard.SeverityLow, Severity("bot_detected"))
	assert.Equal(guard.SeverityMedium, Severity("suspicious_pattern"))
	assert.Equal(guard.SeverityHigh, Severity("brute_force"))
	assert.Equal(guard.SeverityHigh, Severity("path_traversal"))
	assert.Equal(guard.SeverityCritical, Severity("sql_injection"))
	assert.Equal(guard.SeverityCritical, Severity("xss"))
	assert.Equal(guard.SeverityLow, Severity("something_new"))
}

type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("unavailable")
}

func (brokenStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("unavailable")
}

func (brokenStore) List(ctx context.Context, prefix string, limit int, cursor string) (guard.ListPage, error) {
	return guard.ListPage{}, errors.New("unavailable")
}

func TestStoreFailuresAreSwallowedAndCounted(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	m := metrics.NewRecorder()
	logger, logs := testutils.NewCapturingLogger()
	l := NewAttackLogger(logger, brokenStore{}, Config{Metrics: m})

	// Act
	assert.NotPanics(func() { l.Record(context.Background(), newRequest(), guard.AttackBotDetected) })
	recent := l.Recent(context.Background(), "203.0.113.9")

	// Assert
	expected := `
# HELP edgeguard_attack_log_write_failures_total Attack log entries that could not be persisted
# TYPE edgeguard_attack_log_write_failures_total counter
edgeguard_attack_log_write_failures_total 2
`
	assert.Nil(testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "edgeguard_attack_log_write_failures_total"))
	assert.Empty(recent)
	assert.Contains(logs.String(), "Failed to persist attack log entry")
	assert.Contains(logs.String(), `"txid":"tx-1"`)
}

type mockJournal struct {
	entries []guard.AttackLogEntry
}

func (j *mockJournal) Write(entry guard.AttackLogEntry) {
	j.entries = append(j.entries, entry)
}
