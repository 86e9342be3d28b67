package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantkit/modules/tenants"
	"github.com/dmitrymomot/tenantkit/modules/users"
	"github.com/dmitrymomot/tenantkit/pkg/authn"
	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/pkg/tenantlimit"
)

type appConfig struct {
	TenantCache    string        `env:"TENANT_CACHE" envDefault:"memory"` // memory | redis | off
	TenantCacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	TenantLimit    bool          `env:"TENANT_LIMIT_ENABLED" envDefault:"true"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		appCfg  appConfig
		logCfg  logger.Config
		pgCfg   pg.Config
		httpCfg httpserver.Config
		authCfg authn.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&logCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&authCfg)

	log := logger.New(logCfg, logger.WithContextExtractors(
		requestid.LoggerExtractor(),
		tenant.LoggerExtractor(),
	))
	slog.SetDefault(log)

	if err := run(ctx, log, appCfg, pgCfg, httpCfg, authCfg); err != nil {
		log.ErrorContext(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, appCfg appConfig, pgCfg pg.Config, httpCfg httpserver.Config, authCfg authn.Config) error {
	// Control-plane pool: tenant registry and migrations only.
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	store := tenant.NewPGStore(pool)
	provisioner := tenantdb.NewProvisioner(pool, nil, log)

	// Schema-scoped pools: constructed once here, owned for the process
	// lifetime, drained on the way out.
	pools := tenantdb.NewPools(tenantdb.NewFactory(pgCfg))
	defer pools.Close()

	metaCache, redisClient, err := buildTenantCache(ctx, appCfg)
	if err != nil {
		return err
	}
	defer func() { _ = metaCache.Close() }()
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	verifier := authn.NewVerifier(authCfg)
	resolver := tenant.NewCompositeResolver(
		tenant.NewPathResolver("tenant"),
		tenant.NewHeaderResolver("X-Tenant-ID"),
		tenant.NewClaimResolver(authn.TenantIDFromContext),
	)

	limitMW, err := buildTenantLimiter(appCfg, redisClient)
	if err != nil {
		return err
	}

	usersSvc := users.NewService(pools, log)
	tenantsSvc := tenants.NewService(store, provisioner, log)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(authn.Middleware(verifier))

	r.Get("/healthz", healthHandler(pg.Healthcheck(pool)))

	// Platform admin surface, always control plane.
	r.Mount("/tenants", tenantsSvc.Router())

	// Tenant-scoped surface: resolution middleware runs only here.
	r.Route("/t/{tenant}", func(r chi.Router) {
		r.Use(tenant.Middleware(resolver, store,
			tenant.WithCache(metaCache),
			tenant.WithCacheTTL(appCfg.TenantCacheTTL),
			tenant.WithLogger(log),
		))
		if limitMW != nil {
			r.Use(limitMW)
		}
		r.Mount("/users", usersSvc.Router())
	})

	return httpserver.New(httpCfg, log).Run(ctx, r)
}

// buildTenantCache returns the tenant metadata cache and, when Redis backs
// it, the shared client so other components can reuse the connection.
func buildTenantCache(ctx context.Context, cfg appConfig) (tenant.Cache, *goredis.Client, error) {
	switch cfg.TenantCache {
	case "redis":
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return tenant.NewRedisCache(client), client, nil
	case "off":
		return tenant.NewNoopCache(), nil, nil
	default:
		return tenant.NewMemoryCache(ctx, tenant.DefaultCacheSize), nil, nil
	}
}

// buildTenantLimiter assembles the per-tenant rate limit middleware, sharing
// the Redis client when one is up so the whole fleet enforces one budget.
func buildTenantLimiter(cfg appConfig, redisClient *goredis.Client) (func(http.Handler) http.Handler, error) {
	if !cfg.TenantLimit {
		return nil, nil
	}

	var limitCfg tenantlimit.Config
	config.MustLoad(&limitCfg)

	var store tenantlimit.Store
	if redisClient != nil {
		store = tenantlimit.NewRedisStore(redisClient)
	} else {
		store = tenantlimit.NewMemoryStore()
	}

	limiter, err := tenantlimit.NewLimiter(store, limitCfg)
	if err != nil {
		return nil, err
	}
	return tenantlimit.Middleware(limiter), nil
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
