// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"rubyistrun/internal/feed"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

type Config struct {
	// Site is the public base URL. When nil it is derived from each request.
	Site *url.URL
	// MaxConns caps concurrent connections. Zero means no limit.
	MaxConns        int
	ShutdownTimeout time.Duration
}

// Pinger is the health capability of the content store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	store     Pinger
	generator *feed.Generator
	logger    *zap.Logger
	metrics   *Metrics
	config    Config

	siteWarning sync.Once
}

func NewServer(store Pinger, generator *feed.Generator, logger *zap.Logger, metrics *Metrics, config Config) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		store:     store,
		generator: generator,
		logger:    logger.Named("server"),
		metrics:   metrics,
		config:    config,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/rss.xml", s.handleRSS)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/healthz/", s.handleHealthz)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/", s.handle404)

	return requestIDMiddleware(s.instrument(gzipMiddleware(mux)))
}

// Start listens on addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.config.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConns)
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting server", zap.String("addr", ln.Addr().String()), zap.Int("max_conns", s.config.MaxConns))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
