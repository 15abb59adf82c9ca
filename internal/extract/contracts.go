package extract

import (
	"context"
	"time"
)

// PageText is the extraction output for one page.
type PageText struct {
	PageNum    int    // 1-based
	RawText    string
	TextLength int
}

// ExtractionResult summarizes one document extraction.
type ExtractionResult struct {
	Pages    []PageText
	Method   string // "pdf-text" | "ocrmypdf" | "page-ocr"
	Duration time.Duration
	Warnings []string
}

// TextExtractor is Stage 1: PDF file -> per-page text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ExtractionResult, error)
}
