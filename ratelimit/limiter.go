// Package ratelimit counts requests per source in fixed minute and hour windows.
// Counters are read-modify-written without locking, so concurrent commits can lose increments.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"edgeguard/guard"
	"edgeguard/kvstore"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type window struct {
	name        string
	granularity time.Duration
	ttl         time.Duration
}

var (
	minuteWindow = window{name: "minute", granularity: time.Minute, ttl: 2 * time.Minute}
	hourWindow   = window{name: "hour", granularity: time.Hour, ttl: 2 * time.Hour}
)

// index returns the fixed window now falls into.
func (w window) index(now time.Time) int64 {
	return now.Unix() / int64(w.granularity/time.Second)
}

func (w window) start(idx int64) time.Time {
	return time.Unix(idx*int64(w.granularity/time.Second), 0).UTC()
}

type counter struct {
	Requests    int       `json:"requests"`
	WindowStart time.Time `json:"windowStart"`
}

type limiterImpl struct {
	logger       zerolog.Logger
	store        guard.Store
	maxPerMinute int
	maxPerHour   int
}

// NewLimiter creates a rate limiter enforcing the per-minute and per-hour limits of settings.
func NewLimiter(logger zerolog.Logger, store guard.Store, settings guard.Settings) guard.RateLimiter {
	return &limiterImpl{
		logger:       logger,
		store:        store,
		maxPerMinute: settings.MaxRequestsPerMinute,
		maxPerHour:   settings.MaxRequestsPerHour,
	}
}

func (l *limiterImpl) Check(ctx context.Context, sourceID string, now time.Time) (status guard.RateStatus) {
	var minute, hour counter
	minuteIdx := minuteWindow.index(now)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		minute = l.read(gctx, sourceID, minuteWindow, minuteIdx)
		return nil
	})
	g.Go(func() error {
		hour = l.read(gctx, sourceID, hourWindow, hourWindow.index(now))
		return nil
	})
	g.Wait()

	status = guard.RateStatus{
		MinuteCount:  minute.Requests,
		HourCount:    hour.Requests,
		MaxPerMinute: l.maxPerMinute,
		MaxPerHour:   l.maxPerHour,
		Remaining:    l.maxPerMinute - minute.Requests,
		ResetAt:      minuteWindow.start(minuteIdx + 1),
		Blocked:      minute.Requests >= l.maxPerMinute || hour.Requests >= l.maxPerHour,
	}
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	return
}

func (l *limiterImpl) Commit(ctx context.Context, sourceID string, now time.Time) {
	for _, w := range []window{minuteWindow, hourWindow} {
		idx := w.index(now)
		c := l.read(ctx, sourceID, w, idx)
		c.Requests++

		if err := l.write(ctx, sourceID, w, idx, c); err != nil {
			l.logger.Error().Err(err).Str("source", sourceID).Str("window", w.name).Msg("Failed to commit rate counter")
		}
	}
}

// read returns the counter of one window. Missing or unreadable counters are empty.
func (l *limiterImpl) read(ctx context.Context, sourceID string, w window, idx int64) (c counter) {
	c.WindowStart = w.start(idx)

	data, found, err := l.store.Get(ctx, kvstore.RateWindowKey(sourceID, w.name, idx))
	if err != nil {
		l.logger.Warn().Err(err).Str("source", sourceID).Str("window", w.name).Msg("Rate counter read failed, counting as zero")
		return
	}
	if !found {
		return
	}

	if err = sonic.Unmarshal(data, &c); err != nil {
		l.logger.Warn().Err(err).Str("source", sourceID).Str("window", w.name).Msg("Discarding unreadable rate counter")
		c = counter{WindowStart: w.start(idx)}
	}
	return
}

func (l *limiterImpl) write(ctx context.Context, sourceID string, w window, idx int64, c counter) error {
	data, err := sonic.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode rate counter: %w", err)
	}
	return l.store.Put(ctx, kvstore.RateWindowKey(sourceID, w.name, idx), data, w.ttl)
}
