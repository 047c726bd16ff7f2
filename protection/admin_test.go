package protection

import (
	"context"
	"errors"
	"strings"
	"testing"

	"edgeguard/guard"
	"edgeguard/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdmin(t *testing.T) (guard.Administrator, *mockLedger, *mockAttackLogger, *mockAnalytics) {
	ledger := newMockLedger()
	attacks := &mockAttackLogger{}
	analytics := &mockAnalytics{}
	return NewAdministrator(testutils.NewTestLogger(t), ledger, attacks, analytics), ledger, attacks, analytics
}

func TestWhitelistAndBlacklist(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	ctx := context.Background()
	a, ledger, _, analytics := newTestAdmin(t)

	// Act
	blackSource, errBlack := a.Blacklist(ctx, " 10.0.0.1 ")
	black := ledger.records["10.0.0.1"]
	whiteSource, errWhite := a.Whitelist(ctx, "10.0.0.1")
	white, err := a.Reputation(ctx, "10.0.0.1")

	// Assert
	assert.Nil(errBlack)
	assert.Equal("10.0.0.1", blackSource)
	assert.Equal("10.0.0.1", whiteSource)
	assert.Equal(guard.MinScore, black.Score)
	assert.True(black.IsBlacklisted)
	assert.Nil(errWhite)
	assert.Nil(err)
	assert.Equal(guard.MaxScore, white.Score)
	assert.False(white.IsBlacklisted)
	assert.Equal(2, analytics.cleared)
}

func TestOverrideReturnsNormalizedSource(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	a, ledger, _, _ := newTestAdmin(t)

	source, err := a.Whitelist(ctx, "2001:DB8::1")

	assert.Nil(err)
	assert.Equal("2001:db8::1", source)
	assert.Equal(guard.MaxScore, ledger.records["2001:db8::1"].Score)
}

func TestMalformedSourceIsInputError(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	a, ledger, _, _ := newTestAdmin(t)

	for _, raw := range []string{"", "   ", "a b", "bad\x01id", strings.Repeat("a", 300), "unknown"} {
		source, err := a.Whitelist(ctx, raw)

		var inputErr *InputError
		assert.True(errors.As(err, &inputErr), raw)
		assert.Empty(source)
	}
	assert.Equal(0, ledger.setCalls)

	_, err := a.Reputation(ctx, "")
	var inputErr *InputError
	assert.True(errors.As(err, &inputErr))
	assert.Equal("sourceId", inputErr.Field)
}

func TestStoreFailureIsNotInputError(t *testing.T) {
	assert := assert.New(t)
	a, ledger, _, analytics := newTestAdmin(t)
	ledger.setErr = errStoreDown

	_, err := a.Blacklist(context.Background(), "10.0.0.1")

	require.NotNil(t, err)
	var inputErr *InputError
	assert.False(errors.As(err, &inputErr))
	assert.ErrorIs(err, errStoreDown)
	assert.Equal(0, analytics.cleared)
}

func TestRecentAttacksAndClearCache(t *testing.T) {
	assert := assert.New(t)
	a, _, attacks, analytics := newTestAdmin(t)
	attacks.recent = []guard.RecentAttack{{AttackType: guard.AttackBotDetected}}

	list, err := a.RecentAttacks(context.Background(), "[2001:DB8::1]:443")
	a.ClearCache()

	assert.Nil(err)
	assert.Equal(attacks.recent, list)
	assert.Equal(1, analytics.cleared)
}
