// Package app assembles authgate: it builds every component from Config,
// mounts the HTTP routes and hands the lifecycle to bootstrap.App.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/auth"
	"github.com/kbukum/authgate/auth/password"
	"github.com/kbukum/authgate/bootstrap"
	"github.com/kbukum/authgate/component"
	"github.com/kbukum/authgate/database"
	"github.com/kbukum/authgate/handler"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/migrations"
	"github.com/kbukum/authgate/observability"
	"github.com/kbukum/authgate/pow"
	"github.com/kbukum/authgate/ratelimit"
	"github.com/kbukum/authgate/redis"
	"github.com/kbukum/authgate/server"
	"github.com/kbukum/authgate/server/endpoint"
	"github.com/kbukum/authgate/server/middleware"
	"github.com/kbukum/authgate/tokenstore"
	"github.com/kbukum/authgate/users"
	"github.com/kbukum/authgate/version"
)

// App is a wired authgate instance.
type App struct {
	*bootstrap.App[*Config]

	Server *server.Server
	Auth   *auth.Service
}

// New builds the components in dependency order. Nothing connects or
// listens until Start or Run.
func New(cfg *Config, opts ...bootstrap.Option) (*App, error) {
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}
	base, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	log := base.Logger

	metrics, err := observability.NewAuthMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("auth metrics: %w", err)
	}

	obs := observability.NewComponent(cfg.Observability, cfg.Name, base.Version, cfg.Environment, log)

	models := append([]interface{}{&users.User{}}, tokenstore.Models()...)
	db := database.NewComponent(cfg.Database, log).
		WithAutoMigrate(models...).
		WithMigrations(migrations.FS, ".")

	var (
		redisComp *redis.Component
		rdb       tokenstore.RedisProvider
	)
	if cfg.Redis.Enabled {
		redisComp = redis.NewComponent(cfg.Redis, log)
		rdb = redisComp
	}

	store, err := tokenstore.New(cfg.TokenStore, cfg.Auth.Token.Secret, db, rdb, log)
	if err != nil {
		return nil, err
	}
	codec, err := auth.NewCodec(cfg.Auth)
	if err != nil {
		return nil, err
	}
	dir := users.NewDirectory(db, password.NewHasher(cfg.Auth.Password), log)
	svc := auth.NewService(cfg.Auth, dir, codec, store, log, auth.WithMetrics(metrics))

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	srv.RegisterDefaultEndpoints(cfg.Name, base.Components.HealthAll)

	comps := []component.Component{obs, db}
	if redisComp != nil {
		comps = append(comps, redisComp)
	}
	comps = append(comps, tokenstore.NewSweeper(store, cfg.TokenStore.PurgeEvery(), log))

	limiters := mountRoutes(srv.GinEngine(), cfg, svc, metrics, base.Components.HealthAll, log)
	for _, l := range limiters {
		comps = append(comps, ratelimit.NewJanitor(l, cfg.RateLimit.JanitorEvery(), log))
	}
	comps = append(comps, server.NewComponent(srv))

	for _, c := range comps {
		if err := base.RegisterComponent(c); err != nil {
			return nil, err
		}
	}

	base.OnReady(func(ctx context.Context) error {
		log.Info("authgate ready", logger.Fields(
			"addr", srv.Addr(),
			"token_store", cfg.TokenStore.Driver,
			"token_format", string(cfg.Auth.Token.Format),
			"pow", cfg.PoW.Enabled,
			"rate_limit", cfg.RateLimit.Enabled,
		))
		return nil
	})

	return &App{App: base, Server: srv, Auth: svc}, nil
}

// mountRoutes registers /api and returns the limiters it created.
func mountRoutes(r *gin.Engine, cfg *Config, svc *auth.Service, metrics *observability.AuthMetrics, health endpoint.HealthChecker, log *logger.Logger) []*ratelimit.Limiter {
	api := r.Group("/api")
	var (
		gates    handler.Gates
		limiters []*ratelimit.Limiter
	)

	if cfg.RateLimit.Enabled {
		global := ratelimit.New("global", cfg.RateLimit.Global)
		authLimit := ratelimit.New("auth", cfg.RateLimit.Auth)
		limiters = append(limiters, global, authLimit)

		api.Use(middleware.RateLimit(global,
			middleware.WithSkip(func(c *gin.Context) bool { return c.FullPath() == "/api/health" }),
			middleware.WithRateLimitMetrics(metrics),
			middleware.WithRateLimitLogger(log),
		))
		gates.AuthLimit = middleware.RateLimit(authLimit,
			middleware.WithRateLimitMetrics(metrics),
			middleware.WithRateLimitLogger(log),
		)
	}
	if cfg.PoW.Enabled {
		gates.ProofOfWork = middleware.ProofOfWork(pow.NewGate(cfg.PoW), metrics)
	}
	gates.RequireAuth = middleware.Auth(svc)

	api.GET("/health", endpoint.Health(cfg.Name, health))
	handler.Register(api, handler.NewAuthHandler(svc), gates)
	return limiters
}
