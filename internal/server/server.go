// Package server exposes journey flows over HTTP: a JSON API, a Plotly
// figure endpoint and datastar SSE fragments for a live page.
package server

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
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/mgb22/chatbotjourney/internal/config"
	"github.com/mgb22/chatbotjourney/internal/flow"
	"github.com/mgb22/chatbotjourney/internal/server/notifier"
	"github.com/mgb22/chatbotjourney/internal/source"
)

// Config holds configuration for the server.
type Config struct {
	Server config.ServerConfig
	Chart  config.ChartConfig
	Window config.WindowConfig
	Title  string
}

// Server serves one transition source.
type Server struct {
	cfg      Config
	src      source.Source
	builder  *flow.Builder
	logger   *slog.Logger
	notifier *notifier.Notifier
}

// New creates a server over an opened source. A zero Config gets the
// stock defaults.
func New(cfg Config, src source.Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Server.Addr == "" {
		cfg.Server = config.DefaultServer()
	}
	if cfg.Chart == (config.ChartConfig{}) {
		cfg.Chart = config.DefaultChart()
	}
	if cfg.Window == (config.WindowConfig{}) {
		cfg.Window = config.DefaultWindow()
	}
	if cfg.Title == "" {
		cfg.Title = "Chatbot Journey"
	}
	return &Server{
		cfg:      cfg,
		src:      src,
		builder:  flow.NewBuilder(cfg.Chart.Palette()),
		logger:   logger,
		notifier: notifier.New(),
	}
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.logger),
		middleware.Recoverer,
		middleware.Compress(5, "application/json", "text/html"),
	)

	r.Get("/", s.handlePage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		if len(s.cfg.Server.AllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: s.cfg.Server.AllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
		}
		r.Get("/events", s.handleEvents)
		r.Get("/flow", s.handleFlow)
		r.Get("/flow/figure", s.handleFigure)
	})

	r.Get("/flow", s.handleFlowSSE)
	r.Get("/flow/updates", s.handleFlowUpdates)
	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting journey server", slog.String("addr", "http://"+ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}

	if w, ok := s.src.(source.Watchable); ok && s.cfg.Server.Watch && w.WatchPath() != "" {
		eg.Go(func() error {
			return s.watch(egctx, w.WatchPath())
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdown
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Debug("shutting down journey server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger logs each request at debug level through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Duration("took", time.Since(start)),
					slog.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
