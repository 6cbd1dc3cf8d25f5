// Package httpapi exposes the user and metrics services over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/wellness/internal/logging"
	"github.com/dmitrijs2005/wellness/internal/server/services"
	"github.com/gin-gonic/gin"
)

type HTTPServer struct {
	address         string
	users           *services.UserService
	metrics         *services.MetricsService
	logger          logging.Logger
	jwtSecret       []byte
	shutdownTimeout time.Duration
}

// NewHTTPServer builds a server bound to address. An empty secretKey turns
// bearer-token checks off.
func NewHTTPServer(address string, l logging.Logger, us *services.UserService, ms *services.MetricsService, secretKey string, shutdownTimeout time.Duration) *HTTPServer {
	return &HTTPServer{
		address:         address,
		logger:          l.With("module", "http_server"),
		users:           us,
		metrics:         ms,
		jwtSecret:       []byte(secretKey),
		shutdownTimeout: shutdownTimeout,
	}
}

// Router returns the gin engine with every route and middleware installed.
func (s *HTTPServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	r.GET("/home", s.home)
	r.POST("/create_user", s.createUser)

	protected := r.Group("/")
	if len(s.jwtSecret) > 0 {
		protected.Use(s.bearerAuth())
	}

	hm := protected.Group("/health_metrics/:email")
	hm.POST("", s.ingest)
	hm.GET("", s.list)
	hm.GET("/latest", s.latest)
	hm.DELETE("", s.deleteBySteps)
	hm.DELETE("/all", s.deleteAll)
	hm.DELETE("/:id", s.deleteMetric)
	hm.PUT("/:id/score", s.storeScore)

	protected.POST("/predict/:email", s.predict)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

// serve returns only after the shutdown goroutine has finished, whether
// ctx was cancelled or Serve failed on its own.
func (s *HTTPServer) serve(ctx context.Context, listen net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	err := srv.Serve(listen)
	cancel()
	<-done

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
