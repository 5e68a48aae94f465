// Package httpapi is the JSON-over-HTTP transport of the storefront server,
// built on gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slange/storefront/internal/logging"
	"github.com/slange/storefront/internal/server/config"
	"github.com/slange/storefront/internal/server/metrics"
	"github.com/slange/storefront/internal/server/ratelimit"
	"github.com/slange/storefront/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// Pinger is a dependency whose reachability is reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Deps are the collaborators of the HTTP server. Cache and Limiter may be
// nil: /health then reports the cache as not configured, and /api is not
// rate limited.
type Deps struct {
	Users   *services.UserService
	Store   Pinger
	Cache   Pinger
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
}

type HTTPServer struct {
	address string
	config  *config.Config
	logger  logging.Logger
	deps    Deps
	engine  *gin.Engine
	started time.Time
	now     func() time.Time
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, deps Deps) (*HTTPServer, error) {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		address: cfg.HTTPAddr,
		config:  cfg,
		logger:  l.With("module", "http_server"),
		deps:    deps,
		started: time.Now(),
		now:     time.Now,
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	s.engine = engine
	s.setUpRoutes()

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String(), "environment", s.config.Environment)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
