package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/bookshelf/catalog-api/docs"
	"github.com/bookshelf/catalog-api/internal/api/handler"
	"github.com/bookshelf/catalog-api/internal/api/middleware"
	"github.com/bookshelf/catalog-api/internal/core/ports"
)

// Dependencies collects everything the HTTP layer needs. Revocations,
// RateLimiter and HealthChecks are optional.
type Dependencies struct {
	Log                zerolog.Logger
	BasePath           string
	CORSAllowedOrigins []string

	AuthService ports.AuthService
	BookService ports.BookService
	Tokens      ports.TokenVerifier
	Revocations ports.TokenRevoker
	RateLimiter middleware.Limiter

	HealthChecks map[string]handler.PingFunc

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Rate limiting keys on RealIP; never take it from client-supplied headers.
	e.IPExtractor = echo.ExtractIPDirect()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Pre(echomiddleware.RemoveTrailingSlash())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "catalog",
		Registerer: registerer,
	}))

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/api-docs/*", echoSwagger.WrapHandler)

	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.HealthChecks, deps.Log)
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	requireAuth := middleware.Auth(deps.Tokens, deps.Revocations, deps.Log)
	api := e.Group(deps.BasePath)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	auth := api.Group("/auth")
	if deps.RateLimiter != nil {
		auth.Use(middleware.RateLimit(deps.RateLimiter, deps.Log))
	}
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout, requireAuth)

	// --- Catalog routes: reads are public, writes need a token ---
	bookHandler := handler.NewBookHandler(deps.BookService)
	books := api.Group("/books")
	books.GET("", bookHandler.List)
	books.GET("/:id", bookHandler.Get)
	books.POST("", bookHandler.Create, requireAuth)
	books.PUT("/:id", bookHandler.Update, requireAuth)
	books.DELETE("/:id", bookHandler.Delete, requireAuth)

	return e
}
