// Command docinteld runs the document intelligence daemon: HTTP API, drop
// directory watcher and background structuring.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/docintelhq/docintel/internal/blob"
	"github.com/docintelhq/docintel/internal/common"
	"github.com/docintelhq/docintel/internal/export"
	"github.com/docintelhq/docintel/internal/extract"
	"github.com/docintelhq/docintel/internal/ingest"
	"github.com/docintelhq/docintel/internal/llm"
	"github.com/docintelhq/docintel/internal/llm/openai"
	"github.com/docintelhq/docintel/internal/pipeline"
	"github.com/docintelhq/docintel/internal/repository"
	"github.com/docintelhq/docintel/internal/search"
	"github.com/docintelhq/docintel/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
		logger.Error("db health failed", "error", err)
		os.Exit(1)
	}

	blobs, err := blob.NewStore(cfg.Server.BlobDir, logger)
	if err != nil {
		logger.Error("open blob store", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Server.UploadTmpDir, 0o755); err != nil {
		logger.Error("create upload tmp dir", "error", err)
		os.Exit(1)
	}

	index, err := search.NewIndex(cfg.Search.IndexPath)
	if err != nil {
		logger.Error("open search index", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := index.Close(); err != nil {
			logger.Error("close search index", "error", err)
		}
	}()

	chat := openai.NewClient(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	engine := llm.NewEngine(llm.EngineConfig{
		APIKey:        cfg.LLM.APIKey,
		MaxChars:      cfg.LLM.MaxChars,
		StructureTemp: cfg.LLM.StructureTemp,
		SummaryTemp:   cfg.LLM.SummaryTemp,
	}, chat, logger)

	repo := repository.NewDocumentRepository(db, logger)
	orch := pipeline.NewOrchestrator(pipeline.Config{CallTimeout: 2 * cfg.LLM.Timeout}, repo, engine, index, logger)
	extractor := extract.NewExtractor(extract.Config{
		OCRMyPDF:      cfg.Extract.OCRMyPDF,
		Pdftoppm:      cfg.Extract.Pdftoppm,
		Tesseract:     cfg.Extract.Tesseract,
		TesseractLang: cfg.Extract.TesseractLang,
		DPI:           cfg.Extract.DPI,
		OCRTimeout:    cfg.Extract.OCRTimeout,
	}, logger)
	ingestor := ingest.NewService(extractor, repo, blobs, orch, logger)
	exporter := export.NewService(repo, logger)

	if cfg.Ingest.WatchDir != "" {
		startWatcher(ctx, cfg.Ingest, ingestor, logger)
	}

	srv := server.NewServer(cfg.Server, cfg.Search, ingestor, repo, blobs, exporter, index, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
}

func startWatcher(ctx context.Context, cfg common.IngestConfig, ingestor *ingest.Service, logger *slog.Logger) {
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.WatchDir},
		InitialScan: cfg.InitialScan,
		Debounce:    cfg.Debounce,
	})
	if err != nil {
		logger.Error("start watcher", "dir", cfg.WatchDir, "error", err)
		return
	}
	logger.Info("watching drop directory", "dir", cfg.WatchDir)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-paths:
				if !ok {
					return
				}
				if docID, pages, err := ingestor.IngestFile(ctx, p); err != nil {
					logger.Error("watch ingest failed", "path", p, "error", err)
				} else {
					logger.Info("watch ingest ok", "path", p, "doc_id", docID, "pages", pages)
				}
			case err, ok := <-errs:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
			}
		}
	}()
}
