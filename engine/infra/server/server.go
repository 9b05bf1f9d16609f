package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/infra/monitoring"
	"github.com/k2brd/k2brd/engine/infra/server/appstate"
	"github.com/k2brd/k2brd/engine/infra/server/middleware/ratelimit"
	"github.com/k2brd/k2brd/engine/infra/server/routes"
	"github.com/k2brd/k2brd/pkg/config"
	"github.com/k2brd/k2brd/pkg/logger"
)

const (
	httpReadTimeout       = 15 * time.Second
	httpIdleTimeout       = 60 * time.Second
	serverShutdownTimeout = 5 * time.Second
)

type Server struct {
	config     *config.Config
	state      *appstate.State
	monitoring *monitoring.Service
	router     *gin.Engine
	limiter    *ratelimit.Manager
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewServer builds the router for state. mon may be nil.
func NewServer(ctx context.Context, state *appstate.State, mon *monitoring.Service) (*Server, error) {
	if state == nil {
		return nil, fmt.Errorf("app state is required")
	}
	serverCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		config:     state.Config,
		state:      state,
		monitoring: mon,
		ctx:        serverCtx,
		cancel:     cancel,
	}
	if err := s.buildRouter(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build router: %w", err)
	}
	return s, nil
}

func convertRateLimitConfig(cfg *config.RateLimitConfig, metricsPath string) *ratelimit.Config {
	rl := ratelimit.DefaultConfig()
	rl.Rate = ratelimit.RateConfig{Limit: cfg.Limit, Period: cfg.Period}
	rl.RedisURL = cfg.RedisURL.Value()
	rl.ExcludedPaths = []string{
		"/health",
		routes.HealthVersioned(),
		metricsPath,
	}
	return rl
}

func (s *Server) buildRouter() error {
	log := logger.FromContext(s.ctx)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware(log))
	if s.monitoring.IsEnabled() {
		r.Use(s.monitoring.GinMiddleware())
	}
	if s.config.RateLimit.Enabled {
		var observer ratelimit.BlockObserver
		if s.monitoring != nil {
			observer = s.monitoring
		}
		manager, err := ratelimit.NewManager(
			s.ctx,
			convertRateLimitConfig(&s.config.RateLimit, s.config.Monitoring.Path),
			observer,
		)
		if err != nil {
			return err
		}
		s.limiter = manager
		r.Use(manager.Middleware())
		log.Info("Rate limiter initialized",
			"driver", manager.Driver(),
			"limit", s.config.RateLimit.Limit,
			"period", s.config.RateLimit.Period,
		)
	}
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware(s.config.Server.CORS))
	r.Use(appstate.StateMiddleware(s.state))
	if s.monitoring.IsEnabled() {
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	RegisterRoutes(r)
	s.router = r
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until SIGINT/SIGTERM or parent context cancellation, then shuts down gracefully.
func (s *Server) Run() error {
	srv := s.createHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return s.handleGracefulShutdown(srv, errCh)
}

func (s *Server) createHTTPServer() *http.Server {
	addr := s.config.Server.FullAddress()
	logger.FromContext(s.ctx).Info("Starting HTTP server",
		"address", fmt.Sprintf("http://%s", addr),
		"api", routes.Base(),
	)
	writeTimeout := s.config.Server.Timeout
	if writeTimeout <= 0 {
		writeTimeout = s.config.LLM.Timeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       httpReadTimeout,
		ReadHeaderTimeout: httpReadTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       httpIdleTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return s.ctx
		},
	}
}

func (s *Server) handleGracefulShutdown(srv *http.Server, errCh <-chan error) error {
	log := logger.FromContext(s.ctx)
	defer s.closeLimiter()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			s.cancel()
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-quit:
		log.Debug("Received shutdown signal, initiating graceful shutdown")
	case <-s.ctx.Done():
		log.Debug("Context canceled, initiating graceful shutdown")
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(s.ctx), serverShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.cancel()
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.cancel()
	log.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) closeLimiter() {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Close(); err != nil {
		logger.FromContext(s.ctx).Warn("Failed to close rate limiter store", "error", err)
	}
}
