// Package pipeline drives per-page structuring and document-level synthesis.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docintelhq/docintel/constants"
	"github.com/docintelhq/docintel/internal/entity"
	"github.com/docintelhq/docintel/internal/llm"
	"github.com/docintelhq/docintel/internal/repository"
)

// noAPIKeySummary marks pages completed without any model call, so they are
// not re-submitted on later runs.
const noAPIKeySummary = "[No API key - processing skipped]"

// PageIndexer receives pages after their structured fields are persisted.
// Implemented by the search index; nil disables indexing.
type PageIndexer interface {
	IndexPage(ctx context.Context, filename string, page *entity.PageRecord) error
}

// Config holds orchestrator knobs.
type Config struct {
	// CallTimeout bounds each individual model call.
	CallTimeout time.Duration
}

// Result summarizes one ProcessDocument run.
type Result struct {
	DocID            string `json:"doc_id"`
	TotalPages       int    `json:"total_pages"`
	Processed        int    `json:"processed"`
	Skipped          int    `json:"skipped"`
	Failed           int    `json:"failed"`
	SummaryGenerated bool   `json:"summary_generated"`
}

// Orchestrator walks a document's pages through structuring and then
// synthesizes the document-level summary and keywords.
type Orchestrator struct {
	cfg        Config
	repo       repository.DocumentRepository
	structurer llm.Structurer
	indexer    PageIndexer
	logger     *slog.Logger
}

func NewOrchestrator(cfg Config, repo repository.DocumentRepository, structurer llm.Structurer, indexer PageIndexer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 90 * time.Second
	}
	return &Orchestrator{cfg: cfg, repo: repo, structurer: structurer, indexer: indexer, logger: logger}
}

// ProcessDocument structures every page of the document that still needs it,
// persisting each result as it lands, then regenerates document metadata from
// whatever page summaries exist. Per-page failures never abort the run; they
// are counted and the page stays eligible for the next run.
func (o *Orchestrator) ProcessDocument(ctx context.Context, docID string) (*Result, error) {
	doc, err := o.repo.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	pages, err := o.repo.LoadPages(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	res := &Result{DocID: docID, TotalPages: len(pages)}
	o.logger.Info("pipeline.process.start", "doc_id", docID, "pages", len(pages),
		"llm_configured", o.structurer.Configured())

	var summaries []string
	var keywords []string

	for i := range pages {
		page := &pages[i]
		if !ShouldProcess(page) {
			res.Skipped++
			if page.PageSummary != noAPIKeySummary {
				summaries = append(summaries, page.PageSummary)
				keywords = append(keywords, page.Keywords...)
			}
			continue
		}

		rec, pageSummary := o.structurePage(ctx, page)
		if !o.repo.UpdatePageData(ctx, docID, page.PageNum, rec, pageSummary, rec.Keywords) {
			res.Failed++
			o.logger.Error("pipeline.page.persist_failed", "doc_id", docID, "page", page.PageNum)
			continue
		}
		res.Processed++
		o.logger.Info("pipeline.page.done", "doc_id", docID, "page", page.PageNum,
			"processing_status", string(rec.ProcessingStatus))

		if rec.Summary != "" {
			summaries = append(summaries, rec.Summary)
			keywords = append(keywords, rec.Keywords...)
		}
		if o.indexer != nil {
			indexed := *page
			indexed.Status = constants.PageStatusStructured
			indexed.PageSummary = pageSummary
			indexed.Keywords = rec.Keywords
			indexed.StructuredData = rec
			indexed.HasStructured = true
			if err := o.indexer.IndexPage(ctx, doc.Filename, &indexed); err != nil {
				o.logger.Warn("pipeline.page.index_failed", "doc_id", docID, "page", page.PageNum, "error", err)
			}
		}
	}

	if len(summaries) > 0 {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		docSummary := o.structurer.SummarizeDocument(callCtx, summaries)
		cancel()
		docKeywords := DedupeKeywords(keywords)
		if err := o.repo.UpdateDocumentMetadata(ctx, docID, docSummary, docKeywords); err != nil {
			return res, fmt.Errorf("update document metadata: %w", err)
		}
		res.SummaryGenerated = true
	}

	o.logger.Info("pipeline.process.done", "doc_id", docID,
		"processed", res.Processed, "skipped", res.Skipped, "failed", res.Failed,
		"summary_generated", res.SummaryGenerated)
	return res, nil
}

// structurePage runs one model attempt for the page. Without a configured
// model the page is completed immediately with an empty record and a sentinel
// summary so it is not retried forever.
func (o *Orchestrator) structurePage(ctx context.Context, page *entity.PageRecord) (llm.StructuredRecord, string) {
	if !o.structurer.Configured() {
		rec := llm.DefaultRecord()
		rec.ProcessingStatus = constants.StatusNoAPIKey
		return rec, noAPIKeySummary
	}
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	rec := o.structurer.StructureText(callCtx, page.RawText)
	return rec, rec.Summary
}
