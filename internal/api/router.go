package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/finportal/portal/docs"
	"github.com/finportal/portal/internal/api/handler"
	"github.com/finportal/portal/internal/api/middleware"
	"github.com/finportal/portal/internal/core/domain"
)

// RouterConfig carries what the router needs from the composition root.
type RouterConfig struct {
	Portals      middleware.PortalSource
	Checks       map[string]handler.Checker
	CookieName   string
	SecureCookie bool
	GuardWait    time.Duration
	Heartbeat    time.Duration
	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Log        zerolog.Logger
}

// NewRouter builds the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(cfg.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "portal",
		Registerer: cfg.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Probes and tooling (no visitor) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(cfg.Checks)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: cfg.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Visitor-scoped routes ---
	site := e.Group("", middleware.Visitor(cfg.Portals, cfg.CookieName, cfg.SecureCookie))

	auth := handler.NewAuthHandler()
	sessions := handler.NewSessionHandler(cfg.Heartbeat)
	notices := handler.NewNoticeHandler()
	apply := handler.NewApplyHandler()
	pages := handler.NewPageHandler()

	apiGroup := site.Group("/api")
	apiGroup.GET("/session", sessions.Get)
	apiGroup.GET("/session/watch", sessions.Watch)
	apiGroup.POST("/auth/login", auth.Login)
	apiGroup.POST("/auth/signup", auth.Signup)
	apiGroup.POST("/auth/logout", auth.Logout)
	apiGroup.POST("/employee/login", auth.EmployeeLogin)
	apiGroup.GET("/notices", notices.List)
	apiGroup.DELETE("/notices/:key", notices.Dismiss)
	apiGroup.POST("/apply/:product", apply.Apply)

	// Public pages.
	site.GET("/", pages.Static("home", "Home"))
	site.GET("/login", pages.Static("login", "Sign in"))
	site.GET("/products/:product", pages.Product)

	// Guarded pages. The guard is attached per route so unknown paths
	// still 404 instead of bouncing to the login page.
	guard := middleware.Guard(cfg.GuardWait)
	site.GET("/profile", pages.Static("profile", "Your profile"), guard)
	site.GET("/credit-cards", pages.Static("credit-cards", "Credit card application"), guard)
	site.GET("/loans", pages.Static("loans", "Loan application"), guard)
	site.GET("/insurance", pages.Static("insurance", "Insurance application"), guard)
	site.GET("/employee", pages.Static("employee", "Employee dashboard"), guard, middleware.RequireActor(domain.KindEmployee))

	return e
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
