// Package server provides the HTTP API over ingestion, documents and search.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docintelhq/docintel/internal/blob"
	"github.com/docintelhq/docintel/internal/common"
	"github.com/docintelhq/docintel/internal/export"
	"github.com/docintelhq/docintel/internal/ingest"
	"github.com/docintelhq/docintel/internal/repository"
	"github.com/docintelhq/docintel/internal/search"
)

// Server is the HTTP front of the pipeline.
type Server struct {
	cfg       common.ServerConfig
	searchCfg common.SearchConfig
	ingestor  *ingest.Service
	repo      repository.DocumentRepository
	blobs     *blob.Store
	exporter  *export.Service
	index     *search.Index
	logger    *slog.Logger
	server    *http.Server
}

func NewServer(
	cfg common.ServerConfig,
	searchCfg common.SearchConfig,
	ingestor *ingest.Service,
	repo repository.DocumentRepository,
	blobs *blob.Store,
	exporter *export.Service,
	index *search.Index,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		searchCfg: searchCfg,
		ingestor:  ingestor,
		repo:      repo,
		blobs:     blobs,
		exporter:  exporter,
		index:     index,
		logger:    logger,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Upload (runs OCR) and process (runs model calls) carry no request
	// timeout; each inner call is bounded on its own.
	timeout := middleware.Timeout(60 * time.Second)

	r.Post("/upload", s.handleUpload)
	r.With(timeout).Get("/documents", s.handleListDocuments)
	r.Route("/documents/{id}", func(r chi.Router) {
		r.With(timeout).Get("/status", s.handleStatus)
		r.With(timeout).Get("/structured", s.handleStructured)
		r.With(timeout).Get("/download", s.handleDownload)
		r.With(timeout).Get("/export", s.handleExport)
		r.Post("/process", s.handleReprocess)
		r.With(timeout).Delete("/", s.handleDelete)
	})
	r.With(timeout).Get("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server.start", "addr", s.cfg.Addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
