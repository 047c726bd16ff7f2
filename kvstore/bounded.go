package kvstore

import (
	"context"
	"time"

	"edgeguard/guard"
	"edgeguard/metrics"
)

// DefaultOpTimeout bounds every store operation made through a BoundedStore.
const DefaultOpTimeout = 250 * time.Millisecond

// BoundedStore decorates a guard.Store with a per-operation deadline and failure counting.
type BoundedStore struct {
	inner   guard.Store
	timeout time.Duration
	metrics *metrics.Recorder
}

// NewBoundedStore wraps inner. A non-positive timeout selects DefaultOpTimeout; recorder may be nil.
func NewBoundedStore(inner guard.Store, timeout time.Duration, recorder *metrics.Recorder) *BoundedStore {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return &BoundedStore{inner: inner, timeout: timeout, metrics: recorder}
}

func (s *BoundedStore) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	value, found, err = s.inner.Get(ctx, key)
	if err != nil {
		s.metrics.StoreFailure("get")
	}
	return
}

func (s *BoundedStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.inner.Put(ctx, key, value, ttl)
	if err != nil {
		s.metrics.StoreFailure("put")
	}
	return err
}

func (s *BoundedStore) List(ctx context.Context, prefix string, limit int, cursor string) (page guard.ListPage, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	page, err = s.inner.List(ctx, prefix, limit, cursor)
	if err != nil {
		s.metrics.StoreFailure("list")
	}
	return
}
