package analytics

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// scanResult is what a bounded scan over one key prefix produced.
type scanResult struct {
	values    map[string][]byte
	processed int
	partial   bool
}

// scan pages through prefix until the store reports completion or the key budget is spent,
// fetching each page's values with bounded concurrency. Keys repeated across pages are fetched once.
func (a *aggregatorImpl) scan(ctx context.Context, prefix string) (res scanResult) {
	res.values = map[string][]byte{}
	seen := map[string]struct{}{}
	cursor := ""

	for res.processed < a.config.KeyBudget {
		page, err := a.store.List(ctx, prefix, a.config.PageSize, cursor)
		if err != nil {
			a.logger.Warn().Err(err).Str("prefix", prefix).Int("processed", res.processed).Msg("Analytics scan interrupted")
			res.partial = true
			return
		}

		var keys []string
		for _, k := range page.Keys {
			if _, ok := seen[k]; ok {
				continue
			}
			if res.processed+len(keys) >= a.config.KeyBudget {
				break
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}

		values, failed := a.fetch(ctx, keys)
		for i, k := range keys {
			if values[i] != nil {
				res.values[k] = values[i]
			}
		}
		res.processed += len(keys)
		if failed {
			res.partial = true
		}

		if page.Complete || page.Cursor == "" {
			return
		}
		cursor = page.Cursor
	}

	return
}

// fetch reads keys with at most Concurrency reads in flight. Missing keys yield nil values.
func (a *aggregatorImpl) fetch(ctx context.Context, keys []string) (values [][]byte, failed bool) {
	values = make([][]byte, len(keys))
	var failures atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Concurrency)
	for i, k := range keys {
		i, k := i, k
		g.Go(func() error {
			v, found, err := a.store.Get(gctx, k)
			if err != nil {
				failures.Add(1)
				return nil
			}
			if found {
				values[i] = v
			}
			return nil
		})
	}
	g.Wait()

	if n := failures.Load(); n > 0 {
		a.logger.Warn().Int32("failed", n).Int("keys", len(keys)).Msg("Some analytics reads failed")
		failed = true
	}
	return
}
