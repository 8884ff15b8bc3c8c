package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/api"
	"github.com/hackgods/clinic-shift-scheduling/internal/appointment"
	"github.com/hackgods/clinic-shift-scheduling/internal/config"
	"github.com/hackgods/clinic-shift-scheduling/internal/db"
	"github.com/hackgods/clinic-shift-scheduling/internal/logger"
	"github.com/hackgods/clinic-shift-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-shift-scheduling/internal/redis"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	lg.Info("api-server starting up",
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
		zap.String("time_zone", cfg.TimeZone),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.PostgresMaxConns})
	cancelPg()
	if err != nil {
		lg.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	lg.Info("connected to Postgres")

	if cfg.MigrateOnStart {
		n, err := db.NewMigrator(pgPool).Up(rootCtx)
		if err != nil {
			lg.Fatal("migration error", zap.Error(err))
		}
		lg.Info("migrations applied", zap.Int("count", n))
	}

	locker := redisclient.NewNoopLocker()
	var redisProbe api.Pinger
	if cfg.RedisEnabled {
		rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			lg.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				lg.Warn("error closing redis", zap.Error(err))
			}
		}()
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		redisProbe = api.RedisPinger(rdb)
		lg.Info("connected to Redis", zap.Duration("lock_ttl", cfg.LockTTL))
	} else {
		lg.Warn("redis disabled, slot bookings rely on the database unique index only")
	}

	m := metrics.New()
	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(repo, locker, schedule.SystemClock{Location: cfg.Location()}, lg.Named("appointment"), m)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Service:  svc,
			Postgres: pgPool,
			Redis:    redisProbe,
			Logger:   lg.Named("http"),
			Metrics:  m,
			Env:      cfg.Env,
			Version:  version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		lg.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-serveErr:
		if err != nil {
			lg.Error("http server error", zap.Error(err))
		}
	}

	lg.Info("shutting down api-server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
}
