// Command docbatch ingests every PDF under a directory and waits for each
// document's structuring to finish before moving to the next.
package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/docintelhq/docintel/constants"
	"github.com/docintelhq/docintel/internal/blob"
	"github.com/docintelhq/docintel/internal/common"
	"github.com/docintelhq/docintel/internal/extract"
	"github.com/docintelhq/docintel/internal/llm"
	"github.com/docintelhq/docintel/internal/llm/openai"
	"github.com/docintelhq/docintel/internal/pipeline"
	"github.com/docintelhq/docintel/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "docbatch <directory>")
		os.Exit(2)
	}
	root := os.Args[1]

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	blobs, err := blob.NewStore(cfg.Server.BlobDir, logger)
	if err != nil {
		logger.Error("open blob store", "error", err)
		os.Exit(1)
	}

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
	orch := pipeline.NewOrchestrator(pipeline.Config{CallTimeout: 2 * cfg.LLM.Timeout}, repo, engine, nil, logger)
	extractor := extract.NewExtractor(extract.Config{
		OCRMyPDF:      cfg.Extract.OCRMyPDF,
		Pdftoppm:      cfg.Extract.Pdftoppm,
		Tesseract:     cfg.Extract.Tesseract,
		TesseractLang: cfg.Extract.TesseractLang,
		DPI:           cfg.Extract.DPI,
		OCRTimeout:    cfg.Extract.OCRTimeout,
	}, logger)

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && constants.IsAllowedExt(filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		logger.Error("walk directory", "root", root, "error", err)
		os.Exit(1)
	}
	logger.Info("batch start", "root", root, "files", len(paths))

	failed := 0
	for _, path := range paths {
		start := time.Now()
		docID, err := ingestOne(ctx, path, extractor, repo, blobs, orch, logger)
		if err != nil {
			failed++
			logger.Error("batch file failed", "path", path, "error", err)
			continue
		}
		logger.Info("batch file done", "path", path, "doc_id", docID,
			"elapsed_ms", time.Since(start).Milliseconds())
	}
	logger.Info("batch done", "files", len(paths), "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// ingestOne extracts, persists and structures a single PDF synchronously.
func ingestOne(ctx context.Context, path string, extractor *extract.Extractor,
	repo repository.DocumentRepository, blobs *blob.Store, orch *pipeline.Orchestrator,
	logger *slog.Logger) (string, error) {

	res, err := extractor.Extract(ctx, path)
	if err != nil {
		return "", err
	}
	pages := make([]repository.NewPage, len(res.Pages))
	for i, p := range res.Pages {
		pages[i] = repository.NewPage{PageNum: p.PageNum, RawText: p.RawText, TextLength: p.TextLength}
	}
	docID, err := repo.CreateWithPages(ctx, filepath.Base(path), true, pages)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err == nil {
		if perr := blobs.Put(docID, f); perr != nil {
			logger.Warn("store original failed", "doc_id", docID, "error", perr)
		}
		_ = f.Close()
	}
	if _, err := orch.ProcessDocument(ctx, docID); err != nil {
		return docID, err
	}
	return docID, nil
}
