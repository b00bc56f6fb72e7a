package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/server/endpoint"
	"github.com/kbukum/authgate/server/middleware"
)

// Server is the authgate HTTP server: a gin engine behind server-wide
// net/http middleware, served over HTTP/1.1 and HTTP/2.
type Server struct {
	engine      *gin.Engine
	middlewares []middleware.Middleware
	config      Config
	log         *logger.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New creates a Server. No middleware is applied yet; call ApplyMiddleware
// or Use before Start.
func New(cfg Config, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("server")

	// Set Gin mode based on global zerolog level.
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", logger.Fields(logger.FieldError, err.Error()))
		_ = engine.SetTrustedProxies(nil)
	}
	if cfg.ExposeErrors {
		engine.Use(func(c *gin.Context) {
			c.Set(exposeErrorsKey, true)
			c.Next()
		})
	}
	engine.NoRoute(func(c *gin.Context) {
		RespondWithError(c, apperrors.NotFound("route", c.Request.URL.Path))
	})

	return &Server{
		engine: engine,
		config: cfg,
		log:    log,
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Use adds server-wide middleware. The first added runs outermost.
func (s *Server) Use(mws ...middleware.Middleware) {
	s.middlewares = append(s.middlewares, mws...)
}

// ApplyMiddleware installs the standard stack: recovery, request ID,
// CORS, body size limit and request logging.
func (s *Server) ApplyMiddleware() {
	s.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(&s.config.CORS),
		middleware.BodySizeLimit(s.config.MaxBodySize),
		middleware.RequestLogger(s.log),
	)
}

// RegisterDefaultEndpoints registers /health, /health/live, /health/ready
// and /version.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/health/live", endpoint.Liveness(serviceName))
	s.engine.GET("/health/ready", endpoint.Readiness(serviceName, checker))
	s.engine.GET("/version", endpoint.Version())
}

// Handler returns the engine wrapped in the server-wide middleware. Tests
// serve it with httptest instead of calling Start.
func (s *Server) Handler() http.Handler {
	return middleware.Chain(s.middlewares...)(s.engine)
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
// With TLS enabled HTTP/2 is negotiated over ALPN, otherwise h2c is used.
func (s *Server) Start(_ context.Context) error {
	tlsCfg, err := s.config.TLS.ServerConfig()
	if err != nil {
		return fmt.Errorf("server tls: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.log.Info("Starting HTTP server", logger.Fields("addr", addr, "tls", tlsCfg != nil))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		TLSConfig:         tlsCfg,
		ReadTimeout:       time.Duration(s.config.ReadTimeout) * time.Second,
		ReadHeaderTimeout: time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(s.config.IdleTimeout) * time.Second,
	}
	if tlsCfg == nil {
		h2s := &http2.Server{
			MaxConcurrentStreams: 250,
			IdleTimeout:          time.Duration(s.config.IdleTimeout) * time.Second,
		}
		srv.Handler = h2c.NewHandler(srv.Handler, h2s)
	}

	s.mu.Lock()
	s.httpServer, s.listener = srv, listener
	s.mu.Unlock()

	go func() {
		var err error
		if tlsCfg != nil {
			err = srv.ServeTLS(listener, "", "")
		} else {
			err = srv.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer, s.listener = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", logger.Fields(logger.FieldError, err.Error()))
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Running reports whether the server is serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpServer != nil
}
