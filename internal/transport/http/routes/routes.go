package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/infra/config"
	"github.com/arklim/account-service/internal/transport/http/handlers"
	"github.com/arklim/account-service/internal/transport/http/middleware"
	"github.com/arklim/account-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Profiles     *usecase.ProfileService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for the user store.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

var (
	anyAccount = []domain.Role{domain.RoleUser, domain.RoleAdmin, domain.RoleSuper}
	operators  = []domain.Role{domain.RoleAdmin, domain.RoleSuper}
)

// Register configures the Gin engine. Middleware runs in the order it is
// attached; any stage may abort and skip the rest of the chain.
func Register(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeaders(handlers.DocsPrefix))
	r.Use(middleware.Logger(log))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.CORS(cfg.CORS))
	if rule, ok := globalRateLimitRule(cfg.RateLimit); ok && deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.RateLimit(rule))
	}
	r.Use(middleware.BodyLimit(cfg.HTTP.BodyLimitBytes))
	if deps.Services.Auth != nil {
		r.Use(middleware.OptionalAuth(deps.Services.Auth))
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("store", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/", healthHandler.Banner)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		if deps.Services.Auth != nil && deps.Services.Registration != nil {
			authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Registration, log)
			authHandler.RegisterRoutes(api.Group("/auth"))
		}

		userGroup := api.Group("/user")
		if deps.Services.Profiles != nil {
			profileHandler := handlers.NewProfileHandler(deps.Services.Profiles, log)
			userGroup.GET("/me", middleware.RequireRole(anyAccount...), profileHandler.GetMe)
			userGroup.PUT("/me", middleware.RequireRole(anyAccount...), profileHandler.UpdateMe)

			passwordHandler := handlers.NewPasswordHandler(deps.Services.Profiles, log)
			resetGroup := userGroup.Group("/reset-password")
			resetGroup.POST("/user", middleware.RequireRole(anyAccount...), passwordHandler.ResetBySelf)
			resetGroup.POST("/admin", middleware.RequireRole(operators...), passwordHandler.ResetByAdmin)
		}
	}

	handlers.RegisterSwagger(r)

	return r
}

func globalRateLimitRule(cfg config.RateLimitSettings) (middleware.RateLimitRule, bool) {
	if cfg.Max <= 0 {
		return middleware.RateLimitRule{}, false
	}

	window := cfg.Window
	if window <= 0 {
		window = 15 * time.Minute
	}

	return middleware.RateLimitRule{
		Name:       "global",
		Limit:      cfg.Max,
		Window:     window,
		Message:    cfg.Message,
		Identifier: middleware.ClientIdentifier(cfg.ClientHeader),
	}, true
}
