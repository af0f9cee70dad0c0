package router

import (
	"context"
	"time"

	"restopos/internal/config"
	"restopos/internal/handler"
	"restopos/internal/infra"
	"restopos/internal/middleware"
	"restopos/internal/repository"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps are the infrastructure pieces built by the composition root.
// RDB and MailCB may be nil.
type Deps struct {
	UOW       repository.UnitOfWork
	RDB       *redis.Client
	Locker    service.OutletLocker
	Publisher service.ReportPublisher
	MailCB    *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← UnitOfWork ← DB/memory store
func New(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go limiter.Run(ctx, 5*time.Minute)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(limiter.Handler())

	// ── Services ─────────────────────────────────────────────────────────────
	opts := service.Options{
		Timeout:             cfg.StorageTimeout,
		SessionPrefix:       cfg.SessionNumberPrefix,
		RequireClosingCount: cfg.ZReportRequireClosingCount,
		Location:            cfg.Location(),
	}
	sessionSvc := service.NewSessionService(deps.UOW, deps.Locker, opts)
	xreportSvc := service.NewXReportService(deps.UOW, opts)
	dayEndSvc := service.NewDayEndService(deps.UOW, deps.Locker, deps.Publisher, opts)

	// ── Handlers ─────────────────────────────────────────────────────────────
	sessionsH := handler.NewSessionsHandler(sessionSvc)
	reportsH := handler.NewReportsHandler(xreportSvc, dayEndSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.UOW, deps.RDB, deps.MailCB))

	staff := []string{middleware.RoleCashier, middleware.RoleManager, middleware.RoleAdmin}
	managers := []string{middleware.RoleManager, middleware.RoleAdmin}

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", middleware.RequireRole(staff...), sessionsH.Open)
			sessions.GET("", middleware.RequireRole(managers...), sessionsH.List)
			sessions.GET("/:id", middleware.RequireRole(staff...), sessionsH.Get)
			sessions.POST("/:id/close", middleware.RequireRole(managers...), sessionsH.Close)
			sessions.POST("/:id/recalculate", middleware.RequireRole(managers...), sessionsH.Recalculate)
			// Pushed by the order subsystem under a service token.
			sessions.POST("/:id/settlements", middleware.RequireRole(staff...), sessionsH.ApplySettlement)
		}

		outlets := v1.Group("/outlets/:outlet_id")
		{
			outlets.GET("/session", middleware.RequireRole(staff...), sessionsH.GetActive)
			outlets.GET("/x-report", middleware.RequireRole(staff...), reportsH.XReport)
			outlets.POST("/z-report", middleware.RequireRole(managers...), reportsH.GenerateZReport)
		}

		reports := v1.Group("/day-end-reports", middleware.RequireRole(managers...))
		{
			reports.GET("", reportsH.List)
			reports.GET("/export", reportsH.Export)
			reports.GET("/:id", reportsH.Get)
		}
	}

	return r
}
