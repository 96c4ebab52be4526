package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/backtolife/recovery/internal/config"
	"github.com/backtolife/recovery/internal/domain/assessment"
	"github.com/backtolife/recovery/internal/platform/auth"
	"github.com/backtolife/recovery/internal/platform/db"
	"github.com/backtolife/recovery/internal/platform/idempotency"
	"github.com/backtolife/recovery/internal/platform/middleware"
)

const version = "0.1.0"

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// clinicLocation validates cfg and resolves the clinic time zone.
func clinicLocation(cfg *config.Config) (*time.Location, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg.Location()
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	loc, err := clinicLocation(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	memStore := idempotency.NewMemoryStore(cfg.IdempotencyTTL)
	var store idempotency.Store = memStore
	if cfg.RedisURL != "" {
		client, err := idempotency.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		store = idempotency.NewRedisStore(client, cfg.IdempotencyTTL)
		logger.Info().Msg("idempotency keys stored in redis")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	e := newRouter(cfg, pool, store, limiter, loc, logger)

	go sweep(ctx, time.Minute, logger, limiter.Sweep, memStore.Sweep)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("clinic_timezone", loc.String()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newRouter assembles the middleware chain and routes. Requests reach the
// handlers in this order: recovery, request id, access log, security
// headers, CORS, body limit, timeout, authentication, rate limit, clinic
// connection, audit.
func newRouter(cfg *config.Config, pool *pgxpool.Pool, store idempotency.Store, limiter *middleware.RateLimiter, loc *time.Location, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, db.ClinicHeader, idempotency.Header},
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.IsDev() && cfg.AuthSigningKey == "" && cfg.AuthIssuer == "" && cfg.AuthJWKSURL == "" {
		logger.Warn().Msg("development auth enabled: unauthenticated requests run as admin")
		e.Use(auth.DevAuthMiddleware(cfg.DefaultClinic))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	if cfg.RateLimitRPS > 0 {
		e.Use(middleware.RateLimit(limiter, rateLimitKey))
	}
	e.Use(db.ClinicMiddleware(pool, cfg.DefaultClinic, auth.AuthSkipper))
	e.Use(middleware.Audit(logger, nil))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	svc := assessment.NewService(assessment.NewAssessmentRepoPG(pool), logger)
	svc.SetLocation(loc)

	api := e.Group("/api/v1")
	assessment.NewHandler(svc).RegisterRoutes(api, idempotency.Middleware(store, logger))

	return e
}

// rateLimitKey buckets authenticated callers by user and everyone else by
// address.
func rateLimitKey(c echo.Context) string {
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.RealIP()
}

// sweep runs each sweeper every interval until ctx is done.
func sweep(ctx context.Context, interval time.Duration, logger zerolog.Logger, sweepers ...func() int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			for _, fn := range sweepers {
				removed += fn()
			}
			if removed > 0 {
				logger.Debug().Int("removed", removed).Msg("swept idle entries")
			}
		}
	}
}
