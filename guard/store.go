package guard

import (
	"context"
	"time"
)

// Store is the eventually-consistent, TTL-capable key-value store the engine persists all of its state in.
// Implementations must treat a missing or expired key as found == false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	List(ctx context.Context, prefix string, limit int, cursor string) (ListPage, error)
}

// ListPage is one page of keys returned by Store.List.
// Cursor is passed back to List to continue. Complete is set once the store has no more keys for the prefix.
type ListPage struct {
	Keys     []string
	Cursor   string
	Complete bool
}
