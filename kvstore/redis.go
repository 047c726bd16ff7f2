package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"edgeguard/guard"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore is a guard.Store backed by Redis strings with expiry.
// List pages through SCAN, so a page may repeat keys seen on an earlier page.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to the Redis server at url (redis:// or rediss://) and verifies it answers PING.
func DialRedis(ctx context.Context, logger zerolog.Logger, url string) (store *RedisStore, err error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		err = fmt.Errorf("failed to parse redis url: %w", err)
		return
	}

	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		client.Close()
		err = fmt.Errorf("failed to connect to redis at %v: %w", opts.Addr, err)
		return
	}

	logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to redis")
	store = NewRedisStore(client)
	return
}

// Get returns the value stored under key. A missing key is not an error.
func (s *RedisStore) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	value, err = s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		value, err = nil, nil
		return
	}
	if err != nil {
		err = s.wrap("get", err)
		value = nil
		return
	}

	found = true
	return
}

// Put stores value under key with the given expiry.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrMissingTTL
	}

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return s.wrap("put", err)
	}
	return nil
}

// List returns one SCAN page of keys starting with prefix. limit is passed as the COUNT hint.
func (s *RedisStore) List(ctx context.Context, prefix string, limit int, cursor string) (page guard.ListPage, err error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var from uint64
	if cursor != "" {
		from, err = strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			err = fmt.Errorf("invalid scan cursor %q: %w", cursor, err)
			return
		}
	}

	keys, next, err := s.client.Scan(ctx, from, escapeGlob(prefix)+"*", int64(limit)).Result()
	if err != nil {
		err = s.wrap("list", err)
		return
	}

	page.Keys = keys
	if next == 0 {
		page.Complete = true
	} else {
		page.Cursor = strconv.FormatUint(next, 10)
	}
	return
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) wrap(op string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("redis %v failed: %w", op, err)
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
