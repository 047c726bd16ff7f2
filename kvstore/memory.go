package kvstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"edgeguard/guard"

	"github.com/google/btree"
	"github.com/rs/zerolog"
)

// DefaultListLimit is used when List is called without a positive limit.
const DefaultListLimit = 100

var (
	// ErrMissingTTL is returned by Put when a record would be stored without expiry.
	ErrMissingTTL = errors.New("kvstore: every record needs a positive ttl")

	// ErrClosed is returned by operations on a store that has been closed.
	ErrClosed = errors.New("kvstore: store is closed")
)

type memoryItem struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (i *memoryItem) Less(other btree.Item) bool {
	return i.key < other.(*memoryItem).key
}

// MemoryStore is an in-process guard.Store ordered by key, so List pages are stable and resumable.
// Expired records are invisible to readers and removed by Sweep.
type MemoryStore struct {
	mu     sync.RWMutex
	tree   *btree.BTree
	now    func() time.Time
	closed bool
}

// NewMemoryStore creates an empty MemoryStore using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an empty MemoryStore that judges expiry by the given clock.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{tree: btree.New(2), now: now}
}

// Get returns the value stored under key, if present and unexpired.
func (s *MemoryStore) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		err = ErrClosed
		return
	}

	item := s.tree.Get(&memoryItem{key: key})
	if item == nil {
		return
	}

	it := item.(*memoryItem)
	if !it.expiresAt.After(s.now()) {
		return
	}

	value = append([]byte(nil), it.value...)
	found = true
	return
}

// Put stores value under key until ttl has elapsed.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrMissingTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.tree.ReplaceOrInsert(&memoryItem{
		key:       key,
		value:     append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	})
	return nil
}

// List returns up to limit unexpired keys with the given prefix that sort after cursor.
func (s *MemoryStore) List(ctx context.Context, prefix string, limit int, cursor string) (page guard.ListPage, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		err = ErrClosed
		return
	}

	pivot := prefix
	if cursor > pivot {
		pivot = cursor
	}

	now := s.now()
	more := false
	s.tree.AscendGreaterOrEqual(&memoryItem{key: pivot}, func(item btree.Item) bool {
		it := item.(*memoryItem)
		if !strings.HasPrefix(it.key, prefix) {
			return false
		}
		if it.key == cursor || !it.expiresAt.After(now) {
			return true
		}
		if len(page.Keys) == limit {
			more = true
			return false
		}
		page.Keys = append(page.Keys, it.key)
		return true
	})

	if more {
		page.Cursor = page.Keys[len(page.Keys)-1]
	} else {
		page.Complete = true
	}
	return
}

// Close drops all records. Later operations fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.tree.Clear(false)
	return nil
}

// Len returns the number of records held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Sweep removes expired records and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []btree.Item
	s.tree.Ascend(func(item btree.Item) bool {
		if !item.(*memoryItem).expiresAt.After(now) {
			expired = append(expired, item)
		}
		return true
	})

	for _, item := range expired {
		s.tree.Delete(item)
	}
	return len(expired)
}

// StartJanitor sweeps the store every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, logger zerolog.Logger, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					logger.Debug().Int("removed", n).Int("remaining", s.Len()).Msg("Swept expired records")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
