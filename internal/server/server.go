// Package server provides the HTTP API for Tansaku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/index"
)

// Server is the HTTP server for the Tansaku API.
type Server struct {
	index     *index.Index
	extractor *extract.Extractor
	root      string
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
	building  atomic.Bool
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ix *index.Index,
	extractor *extract.Extractor,
	root string,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		index:     ix,
		extractor: extractor,
		root:      root,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/read", s.handleRead)
	r.Post("/api/v1/list", s.handleList)
	r.Post("/api/v1/reindex", s.handleReindex)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// TriggerReindex runs a build pass unless one is already in flight. It returns
// false when skipped. Used by both the reindex endpoint and the file watcher.
func (s *Server) TriggerReindex() bool {
	if !s.building.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer s.building.Store(false)
		if err := s.index.Build(context.Background()); err != nil {
			s.logger.Error("reindex failed", zap.Error(err))
		}
	}()
	return true
}
