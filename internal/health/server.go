// Package health serves the liveness page and Prometheus metrics next to the bot.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/datepoll/core/logger"
)

const (
	// DefaultAddr mirrors the hosting platforms' default PORT.
	DefaultAddr = ":10000"

	// RootText is what the liveness page answers.
	RootText = "Bot is running"

	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// NewRouter wires the liveness routes and, when gatherer is set, /metrics.
func NewRouter(gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(RootText))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Server is the HTTP listener.
type Server struct {
	addr       string
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

// NewServer prepares a server on addr; an empty addr means DefaultAddr.
func NewServer(addr string, handler http.Handler) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
	}
}

// Start binds the address and serves in the background. Bind errors are
// returned to the caller.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("health: listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.done = make(chan struct{})

	logger.HTTP.Info("listening",
		slog.String("event", "start"),
		slog.String("addr", ln.Addr().String()),
	)
	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.HTTP.Error("serve failed",
				slog.String("event", "serve"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	<-s.done
	logger.HTTP.Info("stopped", slog.String("event", "shutdown"))
	return err
}
