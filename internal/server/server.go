package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"hohparser/internal/metrics"
	"hohparser/internal/rpc"
)

// Server holds the state for the HTTP API server.
type Server struct {
	service  *rpc.Service
	registry *rpc.Registry
	metrics  *metrics.Collector
	logger   *slog.Logger
	router   *gin.Engine
}

// NewServer creates a new Server instance. collector may be nil, in which
// case /metrics is not served.
func NewServer(svc *rpc.Service, reg *rpc.Registry, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("hohparser"))

	s := &Server{
		service:  svc,
		registry: reg,
		metrics:  collector,
		logger:   logger,
		router:   r,
	}
	r.Use(requestID(), s.accessLog())
	s.setupRoutes()
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/parse-file", s.handleParseFile)
	s.router.GET("/symbol-table", s.handleSymbolTable)
	s.router.POST("/jsonrpc", s.handleJSONRPC)
	s.router.POST("/jsonrpc/", s.handleJSONRPC)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}
