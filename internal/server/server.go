// Package server exposes the scraping and analysis operations over HTTP.
// Handlers are thin adapters: they translate requests into tracker, store
// and runner calls and map the domain errors onto status codes.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/internal/analysis"
	"github.com/law-makers/reviewlens/internal/jobs"
	"github.com/law-makers/reviewlens/internal/store"
)

// Server wires the HTTP surface over the module's core components.
type Server struct {
	tracker *jobs.Tracker
	store   store.Store
	runner  *analysis.Runner
	http    *http.Server
}

// New builds the server. Call ListenAndServe to start it.
func New(addr string, tracker *jobs.Tracker, st store.Store, runner *analysis.Runner) *Server {
	s := &Server{
		tracker: tracker,
		store:   st,
		runner:  runner,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogging)
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scrape", s.handleScrapeCreate)
		r.Get("/scrape/{jobID}/status", s.handleScrapeStatus)
		r.Delete("/scrape/{jobID}", s.handleScrapeCancel)

		r.Get("/products", s.handleProductList)
		r.Get("/products/{productID}", s.handleProductGet)
		r.Delete("/products/{productID}", s.handleProductDelete)

		r.Get("/analysis/{productID}/{stage}", s.handleAnalysisStage)
		r.Post("/analysis/{productID}/reanalyze", s.handleReanalyze)
	})

	return r
}

// ListenAndServe blocks until the server stops or the context is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down HTTP server")
		return s.http.Shutdown(shutdownCtx)
	}
}

// Handler exposes the routed handler, used by httptest in the server tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
