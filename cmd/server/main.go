package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/suatgpt/suatgpt-backend/docs"
	"github.com/suatgpt/suatgpt-backend/internal/api"
	"github.com/suatgpt/suatgpt-backend/internal/api/handler"
	"github.com/suatgpt/suatgpt-backend/internal/core/ports"
	"github.com/suatgpt/suatgpt-backend/internal/core/service"
	"github.com/suatgpt/suatgpt-backend/internal/infrastructure/db/mongo"
	"github.com/suatgpt/suatgpt-backend/internal/infrastructure/db/redis"
	"github.com/suatgpt/suatgpt-backend/internal/infrastructure/db/sqlstore"
	"github.com/suatgpt/suatgpt-backend/internal/infrastructure/llm"
	"github.com/suatgpt/suatgpt-backend/internal/infrastructure/ratelimit"
	"github.com/suatgpt/suatgpt-backend/internal/pkg/config"
	"github.com/suatgpt/suatgpt-backend/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title                      suatgpt API
// @version                    1.0
// @description                Chat backend: accounts, bearer tokens and LLM completions.
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "suatgpt",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// stores bundles the repositories of the selected storage driver.
type stores struct {
	users  ports.UserRepository
	turns  ports.TurnRepository
	checks map[string]handler.PingFunc
	close  func(context.Context) error
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()
	log.Info().Str("driver", cfg.Storage.Driver).Msg("storage ready")

	limiter, closeLimiter, err := openLimiter(ctx, cfg, st.checks, logger.Component("ratelimit"))
	if err != nil {
		return err
	}
	defer closeLimiter()

	codec, err := service.NewJWTCodec(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	authService, err := service.NewAuthService(st.users, codec, cfg.BcryptCost, logger.Component("auth"))
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	router, err := service.NewStaticModelRouter(cfg.AI.Routes())
	if err != nil {
		return fmt.Errorf("model router: %w", err)
	}

	dispatcher := llm.NewDispatcher(llm.Config{
		Timeout: cfg.AI.RequestTimeout,
		Retry: llm.RetryPolicy{
			MaxAttempts:    cfg.AI.MaxAttempts,
			InitialBackoff: cfg.AI.RetryBackoff,
		},
	}, logger.Component("dispatcher"))

	chatService := service.NewChatService(st.users, st.turns, router, dispatcher, logger.Component("chat"))
	probeService := service.NewProbeService(router, logger.Component("probe"))

	docs.SwaggerInfo.BasePath = cfg.BasePath

	ipExtractor, err := api.IPExtractor(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}

	e := api.NewRouter(api.Options{
		BasePath:       cfg.BasePath,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
		IPExtractor:    ipExtractor,
	}, api.Deps{
		Auth:    authService,
		Chat:    chatService,
		Probe:   probeService,
		Codec:   codec,
		Users:   st.users,
		Limiter: limiter,
		Checks:  st.checks,
		Log:     logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("base_path", cfg.BasePath).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.StorageMongo:
		st, err := mongo.Open(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  cfg.Mongo.AppName,
			Timeout:  cfg.Mongo.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return &stores{
			users:  st.Users,
			turns:  st.Turns,
			checks: map[string]handler.PingFunc{"mongo": st.Ping},
			close:  st.Close,
		}, nil

	default:
		sqlCfg := sqlstore.Config{Dialect: sqlstore.SQLite, DSN: cfg.Storage.SQLitePath}
		if cfg.Storage.Driver == config.StoragePostgres {
			sqlCfg = sqlstore.Config{Dialect: sqlstore.Postgres, DSN: cfg.Storage.DatabaseURL}
		}
		db, err := sqlstore.Open(ctx, sqlCfg)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &stores{
			users:  sqlstore.NewUserRepository(db),
			turns:  sqlstore.NewTurnRepository(db),
			checks: map[string]handler.PingFunc{string(sqlCfg.Dialect): db.PingContext},
			close:  func(context.Context) error { return db.Close() },
		}, nil
	}
}

// openLimiter returns nil when rate limiting is disabled. A configured Redis
// is added to checks so readiness reflects it.
func openLimiter(ctx context.Context, cfg *config.Config, checks map[string]handler.PingFunc, log zerolog.Logger) (ports.RateLimiter, func(), error) {
	noop := func() {}
	if cfg.RateLimit.PerMinute <= 0 {
		log.Info().Msg("rate limiting disabled")
		return nil, noop, nil
	}

	if cfg.RateLimit.Backend == config.RateLimitRedis {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, noop, err
		}
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		log.Info().Int("per_minute", cfg.RateLimit.PerMinute).Str("backend", "redis").Msg("rate limiting enabled")
		return redis.NewFixedWindowLimiter(client, cfg.RateLimit.PerMinute, time.Minute), func() { _ = client.Close() }, nil
	}

	l := ratelimit.NewMemoryLimiter(cfg.RateLimit.PerMinute, 5*time.Minute)
	log.Info().Int("per_minute", cfg.RateLimit.PerMinute).Str("backend", "memory").Msg("rate limiting enabled")
	return l, l.Stop, nil
}
