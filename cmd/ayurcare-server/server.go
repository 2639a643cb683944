package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ayurcare/ayurcare/internal/config"
	"github.com/ayurcare/ayurcare/internal/domain/appointment"
	"github.com/ayurcare/ayurcare/internal/domain/availability"
	"github.com/ayurcare/ayurcare/internal/domain/booking"
	"github.com/ayurcare/ayurcare/internal/domain/subscription"
	"github.com/ayurcare/ayurcare/internal/platform/auth"
	"github.com/ayurcare/ayurcare/internal/platform/db"
	"github.com/ayurcare/ayurcare/internal/platform/middleware"
	"github.com/ayurcare/ayurcare/internal/platform/telemetry"
)

// app holds the wired services behind the HTTP API.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	availability  *availability.Service
	appointments  *appointment.Service
	subscriptions *subscription.Service
	workflow      *booking.Workflow
	gate          *booking.ChatGate
	sweeper       *subscription.Sweeper
}

// newApp wires repositories and services. cache may be nil, in which case
// availability is read straight from postgres.
func newApp(cfg *config.Config, logger zerolog.Logger, pool db.Pool, cache redis.Cmdable, metrics *telemetry.Metrics) *app {
	availRepo := availability.NewRepoPG(pool)
	if cache != nil {
		availRepo = availability.NewCachedRepository(availRepo, cache, cfg.AvailabilityCacheTTL)
	}

	availSvc := availability.NewService(availRepo, metrics)
	apptSvc := appointment.NewService(appointment.NewRepoPG(pool), availSvc, metrics, cfg.DefaultDurationMinutes)
	subSvc := subscription.NewService(subscription.NewRepoPG(pool), metrics, cfg.TrialPeriod())

	return &app{
		cfg:           cfg,
		logger:        logger,
		metrics:       metrics,
		availability:  availSvc,
		appointments:  apptSvc,
		subscriptions: subSvc,
		workflow:      booking.NewWorkflow(apptSvc),
		gate:          booking.NewChatGate(subSvc, metrics),
		sweeper:       subscription.NewSweeper(subSvc, logger),
	}
}

func (a *app) router(pinger db.Pinger) *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-ID", "X-User-Role"},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		a.logger.Warn().Msg("no AUTH_SIGNING_KEY set, using development auth headers")
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pinger))
	if a.metrics != nil {
		e.GET("/metrics", a.metrics.Handler())
	}

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	availability.NewHandler(a.availability).RegisterRoutes(apiV1)
	appointment.NewHandler(a.appointments).RegisterRoutes(apiV1)
	subscription.NewHandler(a.subscriptions).RegisterRoutes(apiV1)
	booking.NewHandler(a.workflow, a.gate).RegisterRoutes(apiV1)

	return e
}
