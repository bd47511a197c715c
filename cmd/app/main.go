package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"botpanel/internal/analytics"
	"botpanel/internal/auth"
	"botpanel/internal/bots"
	"botpanel/internal/broadcast"
	"botpanel/internal/cache"
	"botpanel/internal/config"
	"botpanel/internal/httpserver"
	"botpanel/internal/ingest"
	"botpanel/internal/logging"
	"botpanel/internal/metrics"
	"botpanel/internal/repo"
	"botpanel/internal/scheduler"
	"botpanel/internal/store"
	"botpanel/internal/telegram"
	"botpanel/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting botpanel", "env", cfg.AppEnv, "storage", cfg.StorageDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	var redisClient *cache.Redis
	if cfg.RedisAddr != "" {
		redisClient = cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			UseTLS:   cfg.RedisTLS,
		}, logger)
		if err := redisClient.Ping(ctx); err != nil {
			_ = redisClient.Close()
			if cfg.StorageDriver == config.DriverRedis {
				return fmt.Errorf("redis ping: %w", err)
			}
			logger.Warn("redis ping failed, falling back to in-process sync guard", "error", err)
			redisClient = nil
		} else {
			defer func(r *cache.Redis) {
				if err := r.Close(); err != nil {
					logger.Warn("failed closing redis", "error", err)
				}
			}(redisClient)
		}
	}

	var blobs repo.BlobStore
	if cfg.StorageDriver == config.DriverRedis {
		blobs = redisClient
	} else {
		blobs, err = repo.Open(ctx, repo.Options{
			Driver:         cfg.StorageDriver,
			SQLitePath:     cfg.SQLitePath,
			DatabaseURL:    cfg.DatabaseURL,
			DatabaseSchema: cfg.DatabaseSchema,
			Migrations:     migrations.Files,
		}, logger)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer blobs.Close()
	}
	logger.Info("storage ready", "driver", cfg.StorageDriver)

	st := store.New(blobs, logger, store.WithMetrics(metricRegistry))

	tg := telegram.New(telegram.Config{
		Endpoint: cfg.TelegramAPIEndpoint,
		Timeout:  cfg.TelegramTimeout,
	}, logger, metricRegistry)

	var locker ingest.Locker
	if redisClient != nil {
		locker = redisClient
	}
	guard := ingest.NewGuard(locker, 2*cfg.SyncInterval)
	syncer := ingest.NewSyncer(st, tg, guard, cfg.SyncPageSize, metricRegistry, logger)
	ingestor := ingest.NewIngestor(st, guard, metricRegistry, logger)

	agg := analytics.New(st)
	statsCache := analytics.NewStatsCache()
	botSvc := bots.New(st, agg, statsCache, tg, syncer, logger, bots.WithMetrics(metricRegistry))

	engine := broadcast.NewEngine(st, tg, cfg.BroadcastDelay, metricRegistry, logger)
	jobs := broadcast.NewJobs(ctx, engine)

	authSvc, err := auth.New(blobs, auth.Config{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL}, logger)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	if err := authSvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	if cfg.SeedDemoBot {
		if err := seedDemo(ctx, botSvc, cfg.AdminUsername); err != nil {
			return fmt.Errorf("seed demo bot: %w", err)
		}
	}

	sched := scheduler.NewScheduler(logger, metricRegistry)
	if cfg.SchedulerEnabled {
		if err := scheduler.RegisterTasks(sched, botSvc, cfg.StatsRefreshInterval, cfg.SyncInterval); err != nil {
			return fmt.Errorf("register tasks: %w", err)
		}
		sched.Start()
	}

	httpSrv := httpserver.New(httpserver.Options{
		Addr:          cfg.HTTPListenAddr,
		BasePath:      cfg.PublicBasePath,
		PublicBaseURL: cfg.PublicBaseURL,
		WebhookSecret: cfg.WebhookSecret,
	}, httpserver.Dependencies{
		Auth:       authSvc,
		Bots:       botSvc,
		Store:      st,
		Analytics:  agg,
		Broadcast:  engine,
		Broadcasts: jobs,
		Ingestor:   ingestor,
	}, logger, metricRegistry)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	sched.Stop(shutdownCtx)
	jobs.Wait()

	return nil
}

// seedDemo creates the demo bot once; an existing demo bot for owner is kept.
func seedDemo(ctx context.Context, svc *bots.Service, owner string) error {
	views, err := svc.ListBots(ctx, owner)
	if err != nil {
		return err
	}
	for _, v := range views {
		if v.Demo {
			return nil
		}
	}
	_, err = svc.SeedDemoBot(ctx, owner, uint64(time.Now().UnixNano()))
	return err
}
