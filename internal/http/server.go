package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/services"
	"tally/internal/storage"
)

// Config holds the server settings.
type Config struct {
	Addr            string
	UploadDir       string
	DefaultPageSize int64
	MaxPageSize     int64
}

// Server serves the transaction API over HTTP.
type Server struct {
	http.Server

	store      *storage.Store
	query      *services.QueryService
	mutations  *services.MutationService
	categories *services.CategoryService

	limiter *ratelimit.Limiter

	defaultPageSize int64
	maxPageSize     int64
	uploadDir       string

	shutdownOnce sync.Once
}

// NewServer wires the router and middleware around the given services.
func NewServer(cfg Config, store *storage.Store, query *services.QueryService, mutations *services.MutationService, categories *services.CategoryService) (*Server, error) {
	if store == nil || query == nil || mutations == nil || categories == nil {
		return nil, fmt.Errorf("server requires store and services")
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}

	s := &Server{
		store:           store,
		query:           query,
		mutations:       mutations,
		categories:      categories,
		limiter:         ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		uploadDir:       cfg.UploadDir,
	}

	s.Server = http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(trace.Middleware)
	r.Use(headers.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	if s.uploadDir != "" {
		files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir)))
		r.Handle("/uploads/*", security.StaticAssetMiddleware(3600)(files))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.withUser)

		r.Get("/categories", s.handleListCategories)
		r.Get("/transactions", s.handleListTransactions)

		// Writes go through the rate limiter; reads stay cheap.
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(trace.ClientIP, nil))

			r.Post("/transactions", s.handleCreateTransaction)
			r.Patch("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		})
	})

	return r
}

// Shutdown stops the rate limiter's janitor and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		slog.InfoContext(ctx, "Shutting down HTTP server")
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
