package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tradewages/common/cache"
	"tradewages/common/cache/memory"
	"tradewages/common/cache/redis"
	"tradewages/common/telemetry"
	"tradewages/services/ingestion/internal/api"
	"tradewages/services/ingestion/internal/config"
	"tradewages/services/ingestion/internal/messaging"
	"tradewages/services/ingestion/internal/pipeline"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newCache(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) cache.Cache {
	opts := cache.DefaultOptions()
	opts.DefaultTTL = cfg.CacheTTL
	opts.Size = cfg.CacheSize
	opts.RedisURL = cfg.RedisAddr
	opts.RedisPassword = cfg.RedisPassword
	opts.RedisDB = cfg.RedisDB

	var c cache.Cache
	if cfg.CacheEnabled && cfg.RedisAddr != "" {
		rc := redis.New(opts)
		if err := rc.Ping(context.Background()); err != nil {
			logger.Warn("redis unreachable, using in-memory cache",
				zap.String("addr", cfg.RedisAddr),
				zap.Error(err))
			_ = rc.Close()
			c = memory.New(opts)
		} else {
			logger.Info("using redis cache", zap.String("addr", cfg.RedisAddr))
			c = rc
		}
	} else {
		c = memory.New(opts)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return c
}

// sources pairs the chosen upstreams with the errors raised while choosing
// them, so every run reports a mock standing in for a live source.
type sources struct {
	programs  api.ProgramSource
	salaries  api.SalarySource
	fallbacks []error
}

func newSources(logger *zap.Logger, cfg *config.Config, c cache.Cache) sources {
	salaries, salaryErr := api.NewSalarySource(logger, cfg, c)
	programs, programErr := api.NewProgramSource(logger, cfg, c)
	return sources{
		programs:  programs,
		salaries:  salaries,
		fallbacks: []error{salaryErr, programErr},
	}
}

func newPublisher(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (messaging.Publisher, error) {
	publisher, err := messaging.NewPublisher(logger, cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			publisher.Close()
			return nil
		},
	})
	return publisher, nil
}

func newRunner(src sources, publisher messaging.Publisher, logger *zap.Logger, cfg *config.Config) (*pipeline.Runner, error) {
	runner, err := pipeline.NewRunner(src.programs, src.salaries, publisher, logger, cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	return runner.WithFallbacks(src.fallbacks...), nil
}

func initTracer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) error {
	shutdown, err := telemetry.InitTracer(context.Background(), "tradewages-ingestion", cfg.OTELCollectorURL)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			shutdown()
			return nil
		},
	})
	return nil
}

func startRunner(lc fx.Lifecycle, shutdowner fx.Shutdowner, runner *pipeline.Runner, cfg *config.Config, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting ingestion service",
				zap.String("state", cfg.State),
				zap.Strings("cip_families", cfg.CIPFamilies),
				zap.Int("batch_size", cfg.BLSBatchSize),
				zap.Duration("polling_interval", cfg.PollingInterval))

			go func() {
				defer close(done)
				exitCode := 0
				if err := runner.Start(ctx); err != nil && ctx.Err() == nil {
					logger.Error("pipeline failed", zap.Error(err))
					exitCode = 1
				}
				if ctx.Err() == nil {
					_ = shutdowner.Shutdown(fx.ExitCode(exitCode))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newCache,
			newSources,
			newPublisher,
			newRunner,
		),
		fx.Invoke(initTracer, startRunner),
	)

	startCtx := context.Background()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	exitCode := 0
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	select {
	case <-c:
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
	os.Exit(exitCode)
}
