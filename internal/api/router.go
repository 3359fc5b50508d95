package api

import (
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/suatgpt/suatgpt-backend/docs"
	"github.com/suatgpt/suatgpt-backend/internal/api/handler"
	"github.com/suatgpt/suatgpt-backend/internal/api/middleware"
	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
	"github.com/suatgpt/suatgpt-backend/internal/core/ports"
)

// Options holds the HTTP-level settings taken from configuration.
type Options struct {
	// BasePath prefixes the auth and ai routes, e.g. "/api".
	BasePath       string
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	// IPExtractor decides the client IP used for rate limiting and logs.
	// Nil uses the connection's peer address and ignores forwarding headers.
	IPExtractor echo.IPExtractor
}

// IPExtractor returns an extractor that honours X-Forwarded-For only when it
// was appended by one of the trusted proxy ranges. With no ranges the peer
// address is used as is.
func IPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect(), nil
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}

// Deps are the services and adapters the router wires into handlers.
type Deps struct {
	Auth  ports.AuthService
	Chat  ports.ChatService
	Probe ports.ProbeService
	Codec ports.TokenCodec
	Users ports.UserRepository
	// Limiter throttles POST /ai/chat. Nil disables rate limiting.
	Limiter ports.RateLimiter
	// Checks are pinged by GET /health/ready.
	Checks map[string]handler.PingFunc
	Log    zerolog.Logger

	// Registerer and Gatherer back the echoprometheus middleware and the
	// /metrics handler. Nil means the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(opts Options, deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.IPExtractor = opts.IPExtractor
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	base := strings.TrimRight(opts.BasePath, "/")

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.PropagateRequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     opts.AllowedMethods,
		AllowHeaders:     opts.AllowedHeaders,
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderAuthorization},
		MaxAge:           3600,
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "suatgpt",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.Gate(middleware.GateConfig{
		Codec: deps.Codec,
		Users: deps.Users,
		PublicPaths: []string{
			base + "/auth/**",
			base + "/ai/chat",
			base + "/ai/test",
			"/health",
			"/health/ready",
			"/metrics",
			"/swagger/**",
		},
		Log: deps.Log,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Log)
	chatHandler := handler.NewChatHandler(deps.Chat, deps.Probe)
	healthHandler := handler.NewHealthHandler(deps.Checks)

	// --- Auth routes ---
	auth := e.Group(base + "/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", authHandler.Me)

	// --- AI routes ---
	ai := e.Group(base + "/ai")
	chatMiddleware := []echo.MiddlewareFunc{}
	if deps.Limiter != nil {
		chatMiddleware = append(chatMiddleware, middleware.RateLimit(deps.Limiter, deps.Log))
	}
	ai.POST("/chat", chatHandler.Chat, chatMiddleware...)
	ai.GET("/history", chatHandler.History, middleware.RBAC(domain.RoleUser, domain.RoleAdmin))
	ai.GET("/test", chatHandler.Test)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: gatherer,
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
