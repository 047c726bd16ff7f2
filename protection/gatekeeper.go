// Package protection combines reputation, rate limiting and the heuristic detectors into one decision per request.
package protection

import (
	"context"
	"strings"
	"time"

	"edgeguard/guard"
	"edgeguard/ipaddresses"
	"edgeguard/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Decision reasons.
const (
	ReasonBlacklisted        = "blacklisted"
	ReasonRateLimitExceeded  = "rate limit exceeded"
	ReasonBotDetected        = "bot detected"
	ReasonSuspiciousPatterns = "suspicious patterns"
)

type gatekeeperImpl struct {
	logger   zerolog.Logger
	settings guard.Settings
	ledger   guard.ReputationLedger
	limiter  guard.RateLimiter
	bots     guard.BotDetector
	patterns guard.PatternDetector
	attacks  guard.AttackLogger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// NewGatekeeper creates the protection orchestrator. recorder may be nil, now defaults to time.Now.
func NewGatekeeper(logger zerolog.Logger, settings guard.Settings, ledger guard.ReputationLedger, limiter guard.RateLimiter, bots guard.BotDetector, patterns guard.PatternDetector, attacks guard.AttackLogger, recorder *metrics.Recorder, now func() time.Time) guard.Gatekeeper {
	if now == nil {
		now = time.Now
	}
	return &gatekeeperImpl{
		logger:   logger,
		settings: settings,
		ledger:   ledger,
		limiter:  limiter,
		bots:     bots,
		patterns: patterns,
		attacks:  attacks,
		metrics:  recorder,
		now:      now,
	}
}

func (g *gatekeeperImpl) Evaluate(ctx context.Context, req guard.HTTPRequest) (d guard.Decision) {
	source := ipaddresses.NormalizeSourceID(req.RemoteAddr())
	logger := g.logger.With().Str("txid", req.TransactionID()).Str("source", source).Logger()

	startTime := time.Now()
	defer func() {
		g.metrics.Decision(d.Action().String(), d.AttackType)
		logger.Debug().Dur("timeTaken", time.Since(startTime)).Str("uri", req.URI()).Str("action", d.Action().String()).Str("reason", d.Reason).Msg("Request evaluated")
	}()

	d = g.decide(ctx, logger, source, req, g.now())
	return
}

// decide applies the checks in priority order and stops at the first denial.
func (g *gatekeeperImpl) decide(ctx context.Context, logger zerolog.Logger, source string, req guard.HTTPRequest, now time.Time) (d guard.Decision) {
	var eg errgroup.Group
	eg.Go(func() error {
		d.Reputation = g.ledger.Get(ctx, source)
		return nil
	})
	eg.Go(func() error {
		d.RateLimit = g.limiter.Check(ctx, source, now)
		return nil
	})
	eg.Wait()

	if d.Reputation.IsBlacklisted {
		d.Reason = ReasonBlacklisted
		d.AttackType = guard.AttackBlacklisted
		return
	}

	if d.RateLimit.Blocked {
		d.Reason = ReasonRateLimitExceeded
		d.AttackType = guard.AttackRateLimitExceeded
		d.Challenge = g.settings.ChallengeEnabled && d.Reputation.Score < g.settings.ReputationThreshold
		return
	}

	if g.settings.BotDetectionEnabled && g.bots.IsBot(req) {
		g.ledger.ApplyDelta(ctx, source, g.settings.BotPenalty)
		d.Reason = ReasonBotDetected
		d.AttackType = guard.AttackBotDetected
		d.Challenge = g.settings.ChallengeEnabled
		return
	}

	if patterns := g.patterns.Detect(req); len(patterns) > 0 {
		g.ledger.ApplyDelta(ctx, source, g.settings.PatternPenalty)
		logger.Info().Strs("patterns", patterns).Msg("Suspicious patterns matched")
		d.Reason = ReasonSuspiciousPatterns + ": " + strings.Join(patterns, ", ")
		d.AttackType = guard.AttackSuspiciousPattern
		d.Patterns = patterns
		d.Challenge = g.settings.ChallengeEnabled
		return
	}

	d.Allowed = true
	return
}

func (g *gatekeeperImpl) Protect(ctx context.Context, req guard.HTTPRequest) guard.Decision {
	d := g.Evaluate(ctx, req)

	// Side effects must survive the client disconnecting.
	sctx := context.WithoutCancel(ctx)
	source := ipaddresses.NormalizeSourceID(req.RemoteAddr())

	if d.Allowed {
		g.limiter.Commit(sctx, source, g.now())
		g.ledger.ApplyDelta(sctx, source, g.settings.CleanReward)
	} else {
		g.attacks.Record(sctx, req, d.AttackType)
	}

	return d
}
