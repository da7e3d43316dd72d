// @title        Book Catalog API
// @version      1.0.0
// @description  Book catalog with JWT authentication. Reads are public; writes require an admin token.
// @BasePath     /api
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookshelf/catalog-api/internal/api"
	"github.com/bookshelf/catalog-api/internal/api/handler"
	"github.com/bookshelf/catalog-api/internal/core/service"
	"github.com/bookshelf/catalog-api/internal/infrastructure/config"
	mongodb "github.com/bookshelf/catalog-api/internal/infrastructure/db/mongo"
	redisdb "github.com/bookshelf/catalog-api/internal/infrastructure/db/redis"
	"github.com/bookshelf/catalog-api/internal/infrastructure/queue"
	"github.com/bookshelf/catalog-api/internal/infrastructure/security"
	"github.com/bookshelf/catalog-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "catalog-api",
	})

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure mongodb indexes")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}

	// --- Security ---
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	revocations := redisdb.NewRevocationStore(rdb)

	// --- Audit trail ---
	auditService := service.NewAuditService(mongodb.NewAuditRepository(db), log)
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditService, log)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)

	// --- Core services ---
	authService := service.NewAuthService(
		mongodb.NewUserRepository(db),
		security.NewBcryptHasher(security.DefaultCost),
		tokens,
		log,
		service.AuthOptions{
			AllowAdminSignup: cfg.Auth.AllowAdminSignup,
			Revoker:          revocations,
		},
	)
	bookService := service.NewBookService(mongodb.NewBookRepository(db), dispatcher, log)

	if cfg.Auth.AdminUsername != "" {
		created, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap admin account")
		}
		if created {
			log.Info().Str("username", cfg.Auth.AdminUsername).Msg("admin account created")
		}
	}

	e := api.NewRouter(api.Dependencies{
		Log:                log,
		BasePath:           cfg.BasePath,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AuthService:        authService,
		BookService:        bookService,
		Tokens:             tokens,
		Revocations:        revocations,
		RateLimiter:        redisdb.NewRateLimiter(rdb, "auth", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
		HealthChecks: map[string]handler.PingFunc{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	go func() {
		log.Info().Str("addr", cfg.HTTPAddress()).Str("env", cfg.Env).Msg("catalog api listening")
		if err := e.Start(cfg.HTTPAddress()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}

	// Drain queued audit events before closing the stores they write to.
	dispatcher.Close()
	stopWorkers()

	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("close redis")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("disconnect mongodb")
	}
}
