// Package server exposes a coding session and the collaborator backends
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/richinex/mentorspace/analysis"
	"github.com/richinex/mentorspace/internal/logging"
	"github.com/richinex/mentorspace/model"
	"github.com/richinex/mentorspace/session"
)

const maxBodyBytes = 8 << 20

// IntentAnalyzer is an analyzer that also accepts an analysis intent.
type IntentAnalyzer interface {
	session.Analyzer
	AnalyzeIntent(ctx context.Context, files model.FileMap, intent analysis.Intent) (model.AnalysisReport, error)
}

// Server routes HTTP requests to a session controller and, when
// configured, to local collaborator backends.
type Server struct {
	ctrl   *session.Controller
	logger *slog.Logger

	analyzer session.Analyzer
	runner   session.Runner
	chat     session.ChatCollaborator
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithBackends serves the collaborator backend routes with the given
// implementations. A nil collaborator leaves its route unmounted.
func WithBackends(analyzer session.Analyzer, runner session.Runner, chat session.ChatCollaborator) Option {
	return func(s *Server) {
		s.analyzer = analyzer
		s.runner = runner
		s.chat = chat
	}
}

// New creates a server for ctrl.
func New(ctrl *session.Controller, opts ...Option) *Server {
	s := &Server{ctrl: ctrl, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(withSecurityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/workspace", func(r chi.Router) {
			r.Get("/", s.getWorkspace)
			r.Get("/tree", s.listTree)
			r.Get("/search", s.searchWorkspace)
			r.Post("/files", s.addFile)
			r.Put("/files/*", s.updateFile)
			r.Delete("/files/*", s.removeFile)
			r.Put("/active", s.setActive)
			r.Post("/analyze", s.analyzeWorkspace)
			r.Post("/run", s.runWorkspace)
		})

		r.Route("/actions", func(r chi.Router) {
			r.Get("/", s.listActions)
			r.Get("/{id}", s.getAction)
			r.Get("/{id}/diff", s.previewAction)
			r.Post("/{id}/apply", s.applyAction)
			r.Post("/{id}/undo", s.undoAction)
		})

		r.Get("/chat", s.getTranscript)
		r.Post("/chat", s.postChat)

		if s.analyzer != nil {
			r.Post("/projects/analyze", s.backendAnalyze)
		}
		if s.runner != nil {
			r.Post("/sandbox/run", s.backendRun)
		}
		if s.chat != nil {
			r.Post("/agent/chat", s.backendChat)
		}
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server.shutting_down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
