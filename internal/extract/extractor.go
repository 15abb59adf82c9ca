package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docintelhq/docintel/constants"
)

// Config holds the external-tool knobs for PDF extraction.
type Config struct {
	OCRMyPDF      string // binary name or absolute path; empty disables preprocessing
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	DPI           int
	OCRTimeout    time.Duration // bound per external OCR invocation
}

// Extractor produces per-page text for a PDF, deciding per document whether
// OCR preprocessing is needed and falling back to per-page OCR when the
// document-level pass was skipped or unavailable.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "deu+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = 5 * time.Minute
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// opCtx bounds one external OCR invocation. The caller's context may have no
// deadline at all (daemon uploads, batch runs); a hung tool must not stall
// them forever.
func (e *Extractor) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.OCRTimeout)
}

// Extract reads per-page text from the PDF at path.
//
// Process:
//  1. Extract the text layer of all pages.
//  2. Sample the first pages; if any is under the scannable threshold the
//     whole document goes through ocrmypdf (when configured) and is re-read.
//  3. Pages still under the threshold get an individual rasterize+tesseract
//     pass. A failed page OCR stores a marker text instead of failing the
//     document.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	res := ExtractionResult{Method: "pdf-text"}

	pages, err := readPDFPages(path)
	if err != nil {
		// Unreadable text layer: bias toward OCR rather than giving up.
		e.logger.Warn("extract.pdf.unreadable", "path", path, "error", err)
		if e.cfg.OCRMyPDF == "" {
			return res, fmt.Errorf("read pdf pages: %w", err)
		}
		pages = nil
	}

	if pages == nil || NeedsOCR(SamplePages(pages, constants.OCRSamplePages)) {
		if e.cfg.OCRMyPDF != "" {
			processed, cleanup, warns := e.preprocessWithOCRMyPDF(ctx, path)
			res.Warnings = append(res.Warnings, warns...)
			if cleanup != nil {
				defer cleanup()
			}
			if processed != path {
				res.Method = "ocrmypdf"
				if reread, err := readPDFPages(processed); err == nil {
					pages = reread
				} else {
					res.Warnings = append(res.Warnings, fmt.Sprintf("reread after ocrmypdf: %v", err))
				}
			}
		}
		if pages == nil {
			return res, fmt.Errorf("could not extract any pages from %s", path)
		}

		// Secondary per-page pass for pages the document-level run did not fix.
		if res.Method != "ocrmypdf" {
			for i := range pages {
				if !IsTextScannable(pages[i].TextLength, constants.ScannableThreshold) {
					continue
				}
				e.logger.Info("extract.page.ocr", "path", path, "page", pages[i].PageNum)
				text, err := e.ocrPage(ctx, path, pages[i].PageNum)
				if err != nil {
					e.logger.Error("extract.page.ocr_failed", "page", pages[i].PageNum, "error", err)
					text = ocrFailedText
				}
				pages[i].RawText = text
				pages[i].TextLength = len(text)
				res.Method = "page-ocr"
			}
		}
	}

	res.Pages = pages
	res.Duration = time.Since(start)
	e.logger.Info("extract.done",
		"path", path, "pages", len(pages), "method", res.Method,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}
