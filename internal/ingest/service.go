// Package ingest turns uploaded or dropped PDFs into stored documents and
// kicks off structuring.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docintelhq/docintel/constants"
	"github.com/docintelhq/docintel/internal/blob"
	"github.com/docintelhq/docintel/internal/common"
	"github.com/docintelhq/docintel/internal/extract"
	"github.com/docintelhq/docintel/internal/pipeline"
	"github.com/docintelhq/docintel/internal/repository"
)

// Service coordinates extraction, storage and background structuring for one
// incoming file.
type Service struct {
	extractor *extract.Extractor
	repo      repository.DocumentRepository
	blobs     *blob.Store
	orch      *pipeline.Orchestrator
	logger    *slog.Logger
}

func NewService(extractor *extract.Extractor, repo repository.DocumentRepository, blobs *blob.Store, orch *pipeline.Orchestrator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{extractor: extractor, repo: repo, blobs: blobs, orch: orch, logger: logger}
}

// IngestFile extracts the PDF at path, persists the document with its pages
// and the original file, and starts structuring in the background. Returns
// the new document ID and page count.
func (s *Service) IngestFile(ctx context.Context, path string) (string, int, error) {
	filename := filepath.Base(path)
	if !constants.IsAllowedExt(filepath.Ext(filename)) {
		return "", 0, common.NewAppError("INGEST_ERROR",
			fmt.Sprintf("unsupported file type: %s", filename), common.ErrInvalidInput)
	}

	res, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return "", 0, fmt.Errorf("extract %s: %w", filename, err)
	}
	if len(res.Pages) == 0 {
		return "", 0, common.NewAppError("INGEST_ERROR", "no pages extracted", common.ErrInvalidInput)
	}

	pages := make([]repository.NewPage, len(res.Pages))
	for i, p := range res.Pages {
		pages[i] = repository.NewPage{PageNum: p.PageNum, RawText: p.RawText, TextLength: p.TextLength}
	}

	docID, err := s.repo.CreateWithPages(ctx, filename, true, pages)
	if err != nil {
		return "", 0, fmt.Errorf("save document: %w", err)
	}

	if err := s.storeOriginal(docID, path); err != nil {
		// The document is still usable without its original file; download is
		// just unavailable.
		s.logger.Warn("ingest.blob.store_failed", "doc_id", docID, "error", err)
	}

	s.logger.Info("ingest.accepted", "doc_id", docID, "filename", filename,
		"pages", len(pages), "method", res.Method)

	// Structuring runs detached from the request context.
	go func() {
		if _, err := s.orch.ProcessDocument(context.Background(), docID); err != nil {
			s.logger.Error("ingest.process_failed", "doc_id", docID, "error", err)
		}
	}()

	return docID, len(pages), nil
}

// Reprocess re-runs structuring for an existing document, picking up pages
// that previously failed or degraded.
func (s *Service) Reprocess(ctx context.Context, docID string) (*pipeline.Result, error) {
	return s.orch.ProcessDocument(ctx, docID)
}

func (s *Service) storeOriginal(docID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.blobs.Put(docID, f)
}
