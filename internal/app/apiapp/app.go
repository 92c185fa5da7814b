package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/config"
	s3infra "github.com/ivankudzin/mediapages/internal/infra/s3"
	pgrepo "github.com/ivankudzin/mediapages/internal/repo/postgres"
	redrepo "github.com/ivankudzin/mediapages/internal/repo/redis"
	"github.com/ivankudzin/mediapages/internal/services/admission"
	authsvc "github.com/ivankudzin/mediapages/internal/services/auth"
	contentsvc "github.com/ivankudzin/mediapages/internal/services/content"
	"github.com/ivankudzin/mediapages/internal/services/ledger"
	mediasvc "github.com/ivankudzin/mediapages/internal/services/media"
	pagesvc "github.com/ivankudzin/mediapages/internal/services/pages"
	ratesvc "github.com/ivankudzin/mediapages/internal/services/rate"
	userssvc "github.com/ivankudzin/mediapages/internal/services/users"
	"github.com/ivankudzin/mediapages/internal/transport/http/handlers"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, cfg.HTTP.RequestTimeout)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, pgrepo.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns}); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}
	if pool != nil && cfg.Postgres.AutoMigrate {
		if err := pgrepo.Migrate(cfg.Postgres.DSN, log); err != nil {
			log.Warn("postgres migrations failed, continuing in degraded mode", zap.Error(err))
		}
	}

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	redisClient := redrepo.NewClient(redrepo.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	chatPublisher := redrepo.NewChatPublisher(redisClient)

	// Repos over a nil pool answer ErrStoreUnavailable.
	pageRepo := pgrepo.NewPageRepo(pool)
	ledgerRepo := pgrepo.NewLedgerRepo(pool)
	contentRepo := pgrepo.NewContentRepo(pool)
	userRepo := pgrepo.NewUserRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, cfg.Auth.RefreshTTL)

	pageManager := pagesvc.NewManager(pageRepo, pagesvc.NewRandomGenerator(cfg.Pages.CodeLength), pagesvc.Config{
		PublicBaseURL:       cfg.Pages.PublicBaseURL,
		DefaultSizeLimitMB:  cfg.Pages.DefaultSizeLimitMB,
		DefaultDurationDays: cfg.Pages.DefaultDurationDays,
		MaxCodeAttempts:     cfg.Pages.MaxCodeAttempts,
	}, log.Named("pages"))

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket, cfg.S3.PresignTTL)
	registrar := contentsvc.NewRegistrar(
		ledger.New(ledgerRepo),
		admission.NewPolicy(cfg.Pages.AllowedMIMETypes),
		contentRepo,
		mediaStorage,
		log.Named("content"),
	)
	registrar.AttachPublisher(chatPublisher)

	userService := userssvc.NewService(pageManager, userRepo, authService, log.Named("users"))
	rateLimiter := ratesvc.NewLimiter(rateRepo, map[ratesvc.Action]ratesvc.Rule{
		ratesvc.ActionUpload:  {PerMinute: cfg.Rate.UploadsPerMinute, Per10Sec: cfg.Rate.UploadsPer10Sec},
		ratesvc.ActionMessage: {PerMinute: cfg.Rate.MessagesPerMinute, Per10Sec: cfg.Rate.MessagesPer10Sec},
	})

	checks := map[string]handlers.Check{
		"redis": func(ctx context.Context) error { return redrepo.Ping(ctx, redisClient) },
		"postgres": func(ctx context.Context) error {
			if pool == nil {
				return fmt.Errorf("postgres pool is nil")
			}
			return pool.Ping(ctx)
		},
	}

	RegisterRoutes(r, Dependencies{
		AuthService:  authService,
		UserService:  userService,
		UserReader:   userRepo,
		PageManager:  pageManager,
		Registrar:    registrar,
		RateLimiter:  rateLimiter,
		HealthChecks: checks,
		Logger:       log,
		Config:       cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
