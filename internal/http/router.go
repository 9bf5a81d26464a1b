package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/clubstack/memberhub/internal/auth"
	"github.com/clubstack/memberhub/internal/cache"
	"github.com/clubstack/memberhub/internal/config"
	"github.com/clubstack/memberhub/internal/domain/user"
	"github.com/clubstack/memberhub/internal/http/handlers"
	"github.com/clubstack/memberhub/internal/http/middlewares"
	"github.com/clubstack/memberhub/internal/notifications"
	"github.com/clubstack/memberhub/internal/observability"
	"github.com/clubstack/memberhub/internal/redisclient"
	"github.com/clubstack/memberhub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Pool     *pgxpool.Pool
	Redis    *redisclient.Client
	Prom     *observability.Prom
	Metrics  *prometheus.Registry
	Notifier notifications.Notifier
}

// the two limiter implementations share this shape
type rateLimiter interface {
	RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	if len(d.Cfg.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	}

	if d.Cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware(d.Cfg.ServiceName))
	}

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if d.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})))
	}

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(d.Pool, d.Prom)
	resetRepo := postgres.NewResetTokensRepo(d.Pool, d.Prom)
	membersRepo := postgres.NewMembersRepo(d.Pool, d.Prom)

	jwtManager := auth.NewManager(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	authMw := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	// credential endpoints get a shared limiter; redis-backed when available
	var limiter rateLimiter
	if d.Redis != nil {
		limiter = middlewares.NewRedisRateLimiter(d.Redis, 10, time.Minute, "ratelimit:auth")
	} else {
		limiter = middlewares.NewRateLimiter(10, time.Minute)
	}
	limitByIP := limiter.RateLimiterMiddleware(middlewares.KeyByIP)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager)
	resetHandler := handlers.NewPasswordResetHandler(usersRepo, resetRepo, d.Notifier, d.Cfg)
	membersHandler := handlers.NewMembersHandler(membersRepo, cache.New(30*time.Second))

	requireJSON := middlewares.RequireJSON()

	authGroup := r.Group("/auth")
	authGroup.POST("/register", requireJSON, authHandler.Register)
	// login is form-encoded, so no JSON guard here
	authGroup.POST("/login", limitByIP, authHandler.Login)
	authGroup.GET("/me", authMw.RequireAuth(), authHandler.Me)
	authGroup.POST("/forgot-password", limitByIP, requireJSON, resetHandler.ForgotPassword)
	authGroup.POST("/reset-password", requireJSON, resetHandler.ResetPassword)

	members := r.Group("/members", authMw.RequireAuth(), requireJSON)
	members.GET("", membersHandler.ListMembers)
	members.GET("/:id", membersHandler.GetMemberById)

	requireAdmin := authMw.RequireRole(user.RoleAdmin)
	members.POST("", requireAdmin, membersHandler.CreateMember)
	members.PUT("/:id", requireAdmin, membersHandler.UpdateMember)
	members.DELETE("/:id", requireAdmin, membersHandler.DeleteMember)

	return r
}
