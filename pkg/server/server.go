package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/routefilter/pkg/filter"
	"github.com/vango-dev/routefilter/pkg/loop"
	"github.com/vango-dev/routefilter/pkg/router"
)

// Server serves a router over HTTP.
type Server struct {
	config   Config
	router   *router.Router
	loop     *loop.Loop
	gate     *filter.Gate
	hub      *Hub
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	mux        chi.Router
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithGate exposes the gate's tickets under /gates.
func WithGate(g *filter.Gate) Option {
	return func(s *Server) {
		s.gate = g
	}
}

// WithHub serves the hub under /events. The hub must also be registered as
// an observer on the router's interceptor.
func WithHub(h *Hub) Option {
	return func(s *Server) {
		s.hub = h
	}
}

// WithGatherer sets the metrics source. Defaults to prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server for r. Router work is submitted to l, which the caller
// must run.
func New(cfg Config, r *router.Router, l *loop.Loop, opts ...Option) *Server {
	s := &Server{
		config:   cfg.withDefaults(),
		router:   r,
		loop:     l,
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(s.accessLog)

	mux.Post("/navigate", s.handleNavigate)
	mux.Get("/routes", s.handleListRoutes)
	mux.Post("/routes", s.handleAddRoute)

	mux.Route("/gates", func(gr chi.Router) {
		gr.Get("/", s.handleListTickets)
		gr.Post("/{id}/resolve", s.handleResolve)
		gr.Post("/{id}/reject", s.handleReject)
	})

	if s.config.Events && s.hub != nil {
		mux.Handle("/events", s.hub)
	}
	if s.config.MetricsPath != "" {
		mux.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.mux,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server and disconnects event
// subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.hub != nil {
		s.hub.Close()
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// onLoop runs fn on the loop, bounded by the request timeout.
func (s *Server) onLoop(r *http.Request, fn func()) error {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()
	return s.loop.Do(ctx, fn)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
