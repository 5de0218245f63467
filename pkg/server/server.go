// Package server exposes annotation and the personal vocabulary over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/japaniel/zhreader/pkg/app"
	"github.com/japaniel/zhreader/pkg/config"
	"github.com/japaniel/zhreader/pkg/server/middleware"
)

// Server is the HTTP front end for an app.App.
type Server struct {
	cfg     config.ServerConfig
	log     *slog.Logger
	limiter *middleware.RateLimiter
	handler http.Handler
	http    *http.Server
}

// New builds the routes and middleware for a.
func New(a *app.App) *Server {
	cfg := a.Config.Server
	logger := a.Logger.With("component", "http")

	health := NewHealthHandler(a.Store, app.BuildVersion())
	ann := NewAnnotateHandler(a.Pipeline.Annotator, a.Vocab, cfg.MaxTextLength, logger)
	voc := NewVocabularyHandler(a.Vocab, logger)
	gen := NewGenerateHandler(a.Pipeline.Generator, a.Pipeline.Annotator, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", index)
	mux.HandleFunc("GET /live", health.Live)
	mux.HandleFunc("GET /ready", health.Ready)
	mux.HandleFunc("GET /health", health.Health)

	mux.HandleFunc("POST /api/annotate", ann.Annotate)
	mux.HandleFunc("POST /api/generate", gen.Generate)
	mux.HandleFunc("GET /api/generate/topics", gen.Topics)

	mux.HandleFunc("GET /api/vocabulary", voc.List)
	mux.HandleFunc("GET /api/vocabulary/stats", voc.Stats)
	mux.HandleFunc("GET /api/vocabulary/export", voc.Export)
	mux.HandleFunc("GET /api/vocabulary/level/{level}", voc.ByLevel)
	mux.HandleFunc("GET /api/vocabulary/word/{word}", voc.Word)
	mux.HandleFunc("POST /api/vocabulary", voc.Save)
	mux.HandleFunc("POST /api/vocabulary/import", voc.Import)
	mux.HandleFunc("PUT /api/vocabulary/{word}", voc.Update)
	mux.HandleFunc("DELETE /api/vocabulary/{word}", voc.Delete)
	mux.HandleFunc("DELETE /api/vocabulary", voc.Clear)

	limiter := middleware.NewRateLimiter(time.Minute)
	handler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Identity,
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins()),
		limiter.Limit(cfg.RateLimitPerMinute),
	)(mux)

	return &Server{
		cfg:     cfg,
		log:     logger,
		limiter: limiter,
		handler: handler,
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.limiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.log.Info("http server shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "zhreader",
		"version": app.Version,
		"endpoints": map[string]string{
			"annotate":   "/api/annotate",
			"generate":   "/api/generate",
			"vocabulary": "/api/vocabulary",
			"health":     "/health",
		},
	})
}
