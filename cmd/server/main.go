package main

import (
	"context"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edgeguard/analytics"
	"edgeguard/attacklog"
	"edgeguard/config"
	"edgeguard/detection"
	"edgeguard/grpc"
	"edgeguard/guard"
	"edgeguard/httpserver"
	"edgeguard/kvstore"
	"edgeguard/metrics"
	"edgeguard/protection"
	"edgeguard/ratelimit"
	"edgeguard/reputation"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Dependency injection composition root
func main() {
	logLevel := flag.String("loglevel", "info", "sets log level. Can be one of: debug, info, warn, error, fatal, panic.")
	profiling := flag.Bool("profiling", false, "whether to enable the :6060/debug/pprof/ endpoint")
	configPath := flag.String("config", "", "path to a YAML config file. Defaults and EDGEGUARD_* environment variables apply without one.")
	flag.Parse()

	if *profiling {
		go func() {
			http.ListenAndServe(":6060", nil)
		}()
	}

	loglevel, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		loglevel = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(loglevel).With().Timestamp().Caller().Logger()

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Fatal().Err(err).Msg("Error while loading .env file")
	}

	c, err := config.Load(config.OSFileSystem{}, *configPath, os.Getenv)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error while loading config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()

	store, closeStore := openStore(ctx, logger, c.Store)
	defer closeStore()
	bs := kvstore.NewBoundedStore(store, c.Store.OpTimeout, recorder)

	ledger, err := reputation.NewLedger(logger, bs, c.BlockedNetworks, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error while creating reputation ledger")
	}
	limiter := ratelimit.NewLimiter(logger, bs, c.Protection)

	paths, closePaths, err := newPathMatcher(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error while creating path matcher")
	}
	defer closePaths()
	bots := detection.NewBotDetector()
	patterns := detection.NewPatternDetector(paths)

	var journal attacklog.Journal
	if c.AttackLog.JournalDir != "" {
		fj, err := attacklog.NewFileJournal(logger, attacklog.OSFileSystem{}, c.AttackLog.JournalDir, c.AttackLog.JournalFile, recorder)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error while opening attack journal")
		}
		defer fj.Close()
		journal = fj
	}
	attacks := attacklog.NewAttackLogger(logger, bs, attacklog.Config{
		RecentLen: c.AttackLog.RecentLen,
		Journal:   journal,
		Metrics:   recorder,
	})

	agg := analytics.NewAggregator(logger, bs, analytics.Config{
		PageSize:      c.Analytics.PageSize,
		KeyBudget:     c.Analytics.KeyBudget,
		Concurrency:   c.Analytics.Concurrency,
		RecentLimit:   c.Analytics.RecentLimit,
		TopThreats:    c.Analytics.TopThreats,
		AttackTTL:     c.Analytics.AttackTTL,
		ReputationTTL: c.Analytics.ReputationTTL,
		Metrics:       recorder,
	})

	gk := protection.NewGatekeeper(logger, c.Protection, ledger, limiter, bots, patterns, attacks, recorder, nil)
	admin := protection.NewAdministrator(logger, ledger, attacks, agg)

	logger.Info().
		Int("maxPerMinute", c.Protection.MaxRequestsPerMinute).
		Int("maxPerHour", c.Protection.MaxRequestsPerHour).
		Int("reputationThreshold", c.Protection.ReputationThreshold).
		Bool("botDetection", c.Protection.BotDetectionEnabled).
		Bool("challenge", c.Protection.ChallengeEnabled).
		Msg("Protection engine ready")

	run(ctx, logger, c, gk, admin, agg, recorder)
}

func openStore(ctx context.Context, logger zerolog.Logger, c config.Store) (store guard.Store, closeFn func()) {
	switch c.Backend {
	case "redis":
		rs, err := kvstore.DialRedis(ctx, logger, c.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error while connecting to Redis")
		}
		return rs, func() { rs.Close() }
	default:
		ms := kvstore.NewMemoryStore()
		ms.StartJanitor(ctx, logger, c.SweepInterval)
		logger.Info().Dur("sweepInterval", c.SweepInterval).Msg("Using in-memory store")
		return ms, func() { ms.Close() }
	}
}

func run(ctx context.Context, logger zerolog.Logger, c config.Main, gk guard.Gatekeeper, admin guard.Administrator, agg guard.Analytics, recorder *metrics.Recorder) {
	eg, ctx := errgroup.WithContext(ctx)

	hs := httpserver.NewServer(logger, c.HTTP, c.TrustedProxies, gk, admin, agg, recorder)
	eg.Go(hs.Listen)
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down HTTP server")
		return hs.Shutdown()
	})

	if c.GRPC.Enabled {
		gs := grpc.NewServer(logger, gk, admin, agg, c.GRPC.MaxConnections)
		eg.Go(func() error {
			return gs.Serve("tcp", c.GRPC.Addr)
		})
		eg.Go(func() error {
			<-ctx.Done()
			logger.Info().Msg("Shutting down gRPC server")
			gs.GracefulStop()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Error while running edgeguard")
	}
	logger.Info().Msg("Stopped")
}
