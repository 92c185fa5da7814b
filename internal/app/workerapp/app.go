package workerapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/config"
	"github.com/ivankudzin/mediapages/internal/jobs/lifecycle"
	pgrepo "github.com/ivankudzin/mediapages/internal/repo/postgres"
	redrepo "github.com/ivankudzin/mediapages/internal/repo/redis"
)

const defaultInterval = time.Hour

type sweeper interface {
	Run(ctx context.Context) (lifecycle.Result, error)
}

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	job      sweeper
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, pgrepo.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient := redrepo.NewClient(redrepo.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	job := lifecycle.New(pgrepo.NewPageRepo(pool), redrepo.NewLocker(redisClient), lifecycle.Config{
		ArchiveAfter: cfg.Jobs.ArchiveAfter,
		LockTTL:      cfg.Jobs.LockTTL,
		BatchSize:    cfg.Jobs.BatchSize,
	}, log.Named("lifecycle"))

	return &App{
		cfg:      cfg,
		logger:   log,
		postgres: pool,
		redis:    redisClient,
		job:      job,
	}, nil
}

// Run sweeps once at start and then every interval until ctx is done.
func (a *App) Run(ctx context.Context) error {
	interval := a.cfg.Jobs.LifecycleInterval
	if interval <= 0 {
		interval = defaultInterval
	}

	a.logger.Info("worker started", zap.Duration("interval", interval))
	a.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("worker stopped")
			return nil
		case <-ticker.C:
			a.runOnce(ctx)
		}
	}
}

func (a *App) runOnce(ctx context.Context) {
	start := time.Now()
	res, err := a.job.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// A failed sweep is retried on the next tick.
		a.logger.Error("lifecycle sweep failed", zap.Error(err))
		return
	}
	if res.Skipped {
		return
	}
	a.logger.Info("lifecycle sweep finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("refreshed", res.Refreshed),
		zap.Int("archived", res.Archived),
		zap.Duration("duration", time.Since(start)),
	)
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
