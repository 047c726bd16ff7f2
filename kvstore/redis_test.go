package kvstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"edgeguard/testutils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStorePutGet(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	// Act
	err := s.Put(ctx, "reputation:a", []byte(`{"score":5}`), 24*time.Hour)
	v, found, getErr := s.Get(ctx, "reputation:a")
	_, missingFound, missingErr := s.Get(ctx, "reputation:none")

	// Assert
	assert.Nil(err)
	assert.Nil(getErr)
	assert.True(found)
	assert.Equal(`{"score":5}`, string(v))
	assert.Equal(24*time.Hour, mr.TTL("reputation:a"))
	assert.Nil(missingErr)
	assert.False(missingFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	require.NoError(t, s.Put(ctx, "k", []byte("v"), time.Minute))

	mr.FastForward(2 * time.Minute)
	_, found, err := s.Get(ctx, "k")

	assert.Nil(err)
	assert.False(found)
}

func TestRedisStoreRequiresTTL(t *testing.T) {
	s, _ := newTestRedisStore(t)

	err := s.Put(context.Background(), "k", []byte("v"), 0)

	assert.ErrorIs(t, err, ErrMissingTTL)
}

func TestRedisStoreList(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	ctx := context.Background()
	s, _ := newTestRedisStore(t)
	for i := 0; i < 25; i++ {
		require.NoError(t, s.Put(ctx, fmt.Sprintf("attack:%03d", i), []byte("x"), time.Hour))
	}
	require.NoError(t, s.Put(ctx, "reputation:a", []byte("x"), time.Hour))

	// Act
	seen := map[string]bool{}
	cursor := ""
	for i := 0; i < 100; i++ {
		page, err := s.List(ctx, "attack:", 10, cursor)
		require.NoError(t, err)
		for _, k := range page.Keys {
			seen[k] = true
		}
		if page.Complete {
			break
		}
		cursor = page.Cursor
	}

	// Assert
	assert.Len(seen, 25)
	assert.False(seen["reputation:a"])
}

func TestRedisStoreListInvalidCursor(t *testing.T) {
	s, _ := newTestRedisStore(t)

	_, err := s.List(context.Background(), "attack:", 10, "not-a-number")

	assert.NotNil(t, err)
}

func TestRedisStoreUnavailable(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	s, mr := newTestRedisStore(t)
	mr.Close()

	// Act
	_, found, err := s.Get(context.Background(), "k")

	// Assert
	assert.False(found)
	assert.NotNil(err)
}

func TestDialRedis(t *testing.T) {
	assert := assert.New(t)
	mr := miniredis.RunT(t)

	s, err := DialRedis(context.Background(), testutils.NewTestLogger(t), "redis://"+mr.Addr())

	require.NoError(t, err)
	defer s.Close()
	assert.Nil(s.Put(context.Background(), "k", []byte("v"), time.Second))
	assert.True(mr.Exists("k"))
}

func TestDialRedisBadURL(t *testing.T) {
	_, err := DialRedis(context.Background(), testutils.NewTestLogger(t), "http://nope")

	assert.NotNil(t, err)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `attack:\*\?\[x\]`, escapeGlob("attack:*?[x]"))
}
