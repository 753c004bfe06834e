package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/timeledger/internal/auth"
	"github.com/geocoder89/timeledger/internal/cache"
	"github.com/geocoder89/timeledger/internal/config"
	"github.com/geocoder89/timeledger/internal/db"
	"github.com/geocoder89/timeledger/internal/domain/category"
	"github.com/geocoder89/timeledger/internal/http/handlers"
	"github.com/geocoder89/timeledger/internal/http/middlewares"
	"github.com/geocoder89/timeledger/internal/observability"
	"github.com/geocoder89/timeledger/internal/redisclient"
	"github.com/geocoder89/timeledger/internal/repo/postgres"
	"github.com/geocoder89/timeledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	serviceName    = "timeledger"
	authRateWindow = time.Minute
	categoryTTL    = 30 * time.Second
)

// NewRouter wires stores, services and handlers onto a gin engine. rdb is
// optional; without it rate limits are kept per process.
func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redisclient.Client, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers.RegisterValidators()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	r := gin.New()

	r.Use(middlewares.RequestID())
	r.Use(middlewares.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestLogger())
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(middlewares.DefaultMaxBody))
	r.Use(middlewares.RequireJSON())

	// stores and services
	coord := db.NewCoordinator(pool, cfg.DBAcquireTimeout)
	usersRepo := postgres.NewUsersRepo(prom)

	creds := service.NewCredentialStore(coord, usersRepo, log, prom)
	categories := service.NewCategoryRegistry(coord, postgres.NewCategoriesRepo(prom), log, prom)
	ledger := service.NewLedger(coord, usersRepo, categories, postgres.NewEntriesRepo(prom), log, prom)

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())
	authMW := middlewares.NewAuthMiddleware(tokens)

	var limiter middlewares.Limiter = middlewares.NewMemoryLimiter(cfg.AuthRateLimit, authRateWindow)
	if rdb != nil {
		limiter = middlewares.NewRedisLimiter(rdb, cfg.AuthRateLimit, authRateWindow)
	}

	// health
	checks := map[string]handlers.Check{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
	}
	if rdb != nil {
		checks["redis"] = rdb.Ping
	}

	health := handlers.NewHealthHandler(checks)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	authH := handlers.NewAuthHandler(creds, tokens)
	r.POST("/register", middlewares.RateLimit(limiter, "register"), authH.Register)
	r.POST("/login", middlewares.RateLimit(limiter, "login"), authH.Login)

	categoriesH := handlers.NewCategoriesHandlerWithCache(categories, cache.New[[]category.Category](categoryTTL))
	r.GET("/categories", categoriesH.List)
	r.GET("/categories/:name", categoriesH.Get)

	entriesH := handlers.NewEntriesHandler(ledger)

	protected := r.Group("/", authMW.RequireAuth())
	{
		protected.GET("/me", authH.Me)
		protected.POST("/categories", categoriesH.GetOrCreate)
		protected.POST("/entries", entriesH.Create)
		protected.GET("/entries", entriesH.List)
		protected.PUT("/entries/:id", entriesH.Update)
	}

	return r
}
