package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/security"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/config"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	pgstore "github.com/99minutos/auth-service/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	httpserver "github.com/99minutos/auth-service/internal/infrastructure/http"
	"github.com/99minutos/auth-service/internal/infrastructure/http/handlers"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/pkg/logger"
)

const serviceName = "auth-service"

// @title                       Auth Service API
// @version                     1.0
// @description                 Registration, login and bearer-token authorization.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.New(logger.Options{Service: serviceName})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	checks := make(map[string]handlers.Check)

	// --- User store ---
	repo, closeStore, err := openStore(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Security ---
	hasher, err := security.NewPasswordHasher(cfg.Bcrypt.Cost,
		security.WithMaxConcurrency(cfg.Bcrypt.MaxConcurrency),
		security.WithDurationObserver(metrics.PasswordHashDuration),
	)
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenManager(security.TokenConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		AccessTTL:     cfg.JWT.AccessExpiresIn,
		RefreshSecret: cfg.JWT.RefreshSecret,
		RefreshTTL:    cfg.JWT.RefreshExpiresIn,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
	})
	if err != nil {
		return err
	}

	// --- Login throttling and rate limiting (optional) ---
	var (
		svcOpts   []service.Option
		rateStore echomiddleware.RateLimiterStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, login throttling disabled")
		} else {
			defer rdb.Close()
			checks["redis"] = redisstore.Ping(rdb)
			svcOpts = append(svcOpts, service.WithLoginLimiter(
				redisstore.NewLoginLimiter(rdb, cfg.Login.MaxAttempts, cfg.Login.LockoutWindow),
			))
			if cfg.RateLimit.Enabled {
				rateStore = redisstore.NewRateLimitStore(rdb, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, log)
			}
		}
	}
	if cfg.RateLimit.Enabled && rateStore == nil {
		log.Warn().Msg("rate limiting per process, counters are not shared between replicas")
		rateStore = middleware.NewMemoryRateLimitStore(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}

	// --- Audit fan-out (optional) ---
	var audit ports.AuditPublisher
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	if cfg.Audit.AMQPURL != "" {
		pub, err := queue.DialAMQP(cfg.Audit.AMQPURL, cfg.Audit.Queue)
		if err != nil {
			return err
		}
		defer pub.Close()
		checks["rabbitmq"] = pub.Ping

		dispatcher := queue.NewDispatcher(cfg.Audit.Workers, pub, log, metrics.AuditEventsDroppedTotal.Inc)
		dispatcher.Start(dispatchCtx)
		defer dispatcher.Wait()
		audit = dispatcher
	}

	svc := service.NewAuthService(repo, hasher, tokens, log, svcOpts...)

	e := api.NewRouter(api.Dependencies{
		Log:         log,
		Production:  cfg.IsProduction(),
		AuthService: svc,
		Verifier:    tokens,
		Audit:       audit,
		Checks:      checks,
		BasePath:    cfg.BasePath(),
		CORSOrigins: cfg.CORS.Origins,
		RateLimit:   rateStore,
	})

	err = httpserver.Run(ctx, e, ":"+cfg.Port, log)
	// Let the dispatcher drain before the publisher closes.
	stopDispatch()
	return err
}

// openStore connects the user store selected by STORE_DRIVER and registers
// its readiness check.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger, checks map[string]handlers.Check) (ports.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := pgstore.Connect(ctx, pgstore.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, nil, err
		}
		checks["postgres"] = pool.Ping
		log.Info().Msg("using postgres user store")
		return pgstore.NewUserRepository(pool), pool.Close, nil

	case config.StoreMemory:
		repo := memory.NewUserRepository()
		checks["memory"] = repo.Ping
		log.Warn().Msg("using in-memory user store, data is lost on restart")
		return repo, func() {}, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  serviceName,
		})
		if err != nil {
			return nil, nil, err
		}
		repo := mongostore.NewUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		checks["mongodb"] = mongostore.Ping(db)
		log.Info().Msg("using mongodb user store")
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	}
}
