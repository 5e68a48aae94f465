// Package server wires the storefront server together: it opens the
// credential store and Redis, builds the services, runs the HTTP API and the
// gRPC health endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/slange/storefront/internal/logging"
	"github.com/slange/storefront/internal/server/auth"
	"github.com/slange/storefront/internal/server/config"
	"github.com/slange/storefront/internal/server/httpapi"
	"github.com/slange/storefront/internal/server/metrics"
	"github.com/slange/storefront/internal/server/ratelimit"
	"github.com/slange/storefront/internal/server/repositories/repomanager"
	"github.com/slange/storefront/internal/server/services"

	gs "github.com/slange/storefront/internal/server/grpc"
)

const (
	redisDialTimeout    = 2 * time.Second
	healthProbeInterval = 15 * time.Second
	rateLimitKeyPrefix  = "ratelimit:"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	flush   func()
	store   repomanager.RepositoryManager
	redis   *redis.Client
	http    *httpapi.HTTPServer
	health  *gs.HealthServer
	metrics *metrics.Metrics
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, flush, err := logging.New(c.LogBackend, c.IsDevelopment(), os.Stdout)
	if err != nil {
		return nil, err
	}

	store, err := repomanager.Open(ctx, c)
	if err != nil {
		flush()
		return nil, fmt.Errorf("store init error: %w", err)
	}

	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close(ctx)
		flush()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, flush: flush, store: store, metrics: metrics.New()}

	limiter := app.initRateLimiter(ctx)

	tokens := auth.NewTokenIssuer(c.SecretKey)
	hasher := auth.NewHasher(c.PasswordHashCost)
	mailer := services.NewLogMailer(logger, c.FrontendURL, c.IsDevelopment())

	us, err := services.NewUserService(store, tokens, hasher, mailer, logger, c)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	deps := httpapi.Deps{
		Users:   us,
		Store:   store,
		Limiter: limiter,
		Metrics: app.metrics,
	}
	if app.redis != nil {
		deps.Cache = httpapi.PingFunc(func(ctx context.Context) error { return app.redis.Ping(ctx).Err() })
	}

	app.http, err = httpapi.NewHTTPServer(c, logger, deps)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	app.health = gs.NewHealthServer(c.GRPCHealthAddr, logger, store, healthProbeInterval)

	return app, nil
}

// initRateLimiter counts requests in Redis when it is configured, falling
// back to an in-process limiter whenever Redis errors.
func (app *App) initRateLimiter(ctx context.Context) ratelimit.Limiter {
	c := app.config
	memory := ratelimit.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow)

	if c.RedisURI == "" {
		app.logger.Info(ctx, "redis not configured, rate limiting in memory")
		return memory
	}

	opts, err := redis.ParseURL(c.RedisURI)
	if err != nil {
		app.logger.Warn(ctx, "invalid redis uri, rate limiting in memory", "error", err)
		return memory
	}
	opts.DialTimeout = redisDialTimeout
	app.redis = redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := app.redis.Ping(pingCtx).Err(); err != nil {
		app.logger.Warn(ctx, "redis unreachable at startup", "error", err)
	} else {
		app.logger.Info(ctx, "connected to redis", "addr", opts.Addr, "db", opts.DB)
	}

	return &ratelimit.Failover{
		Primary:   ratelimit.NewRedisLimiter(app.redis, rateLimitKeyPrefix, c.RateLimitRequests, c.RateLimitWindow),
		Secondary: memory,
		OnError: func(ctx context.Context, err error) {
			app.logger.Warn(ctx, "redis rate limiter failed, using memory", "error", err)
		},
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or a server fails, then closes the
// stores once both servers have drained.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment, "store", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.Background())
	app.logger.Info(context.Background(), "App stopped")
	app.flush()
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err)
		}
	}
	if err := app.store.Close(ctx); err != nil {
		app.logger.Warn(ctx, "store close error", "error", err)
	}
}
