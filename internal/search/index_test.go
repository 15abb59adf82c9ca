package search

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/docintelhq/docintel/internal/entity"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := NewIndex(filepath.Join(t.TempDir(), "pages.bleve"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func page(docID string, pageNum int, text, summary string, keywords ...string) *entity.PageRecord {
	return &entity.PageRecord{
		DocID:       docID,
		PageNum:     pageNum,
		RawText:     text,
		PageSummary: summary,
		Keywords:    keywords,
	}
}

func TestIndexAndSearch(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	if err := ix.IndexPage(ctx, "blood.pdf", page("doc-1", 1, "hemoglobin level measured", "lab values", "hemoglobin")); err != nil {
		t.Fatal(err)
	}
	if err := ix.IndexPage(ctx, "invoice.pdf", page("doc-2", 1, "invoice total due", "billing page", "invoice")); err != nil {
		t.Fatal(err)
	}

	hits, err := ix.Search(ctx, "hemoglobin", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d", len(hits))
	}
	h := hits[0]
	if h.DocID != "doc-1" || h.PageNum != 1 || h.Filename != "blood.pdf" {
		t.Errorf("hit = %+v", h)
	}
	if h.PageSummary != "lab values" {
		t.Errorf("page summary = %q", h.PageSummary)
	}
	if len(h.Keywords) != 1 || h.Keywords[0] != "hemoglobin" {
		t.Errorf("keywords = %v", h.Keywords)
	}
	if h.Snippet != "lab values" {
		t.Errorf("snippet = %q, want the page summary", h.Snippet)
	}
	if h.Score <= 0 {
		t.Errorf("score = %f", h.Score)
	}
}

func TestSearchSnippetFallsBackToRawText(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	if err := ix.IndexPage(ctx, "raw.pdf", page("doc-1", 1, "unprocessed scanner output", "")); err != nil {
		t.Fatal(err)
	}
	hits, err := ix.Search(ctx, "scanner", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d", len(hits))
	}
	if hits[0].Snippet != "unprocessed scanner output" {
		t.Errorf("snippet = %q", hits[0].Snippet)
	}
}

func TestClipKeepsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("Blutdruckmessgerät ", 30)
	for n := 1; n < 40; n++ {
		got := clip(long, n)
		if !utf8.ValidString(got) {
			t.Fatalf("clip(%d) produced invalid UTF-8: %q", n, got)
		}
		if len(got) > n+len("...") {
			t.Fatalf("clip(%d) = %d bytes", n, len(got))
		}
	}
	if got := clip("kurz", 300); got != "kurz" {
		t.Errorf("short input must pass through, got %q", got)
	}
}

func TestIndexPageReplacesExisting(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	if err := ix.IndexPage(ctx, "a.pdf", page("doc-1", 1, "old content", "")); err != nil {
		t.Fatal(err)
	}
	if err := ix.IndexPage(ctx, "a.pdf", page("doc-1", 1, "new content", "")); err != nil {
		t.Fatal(err)
	}

	n, err := ix.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("doc count = %d, re-index must replace", n)
	}
	hits, _ := ix.Search(ctx, "old", 10)
	if len(hits) != 0 {
		t.Errorf("stale content still searchable: %v", hits)
	}
}

func TestDeleteDocumentRemovesAllPages(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := ix.IndexPage(ctx, "a.pdf", page("doc-1", i, "shared content", "")); err != nil {
			t.Fatal(err)
		}
	}
	if err := ix.IndexPage(ctx, "b.pdf", page("doc-2", 1, "shared content", "")); err != nil {
		t.Fatal(err)
	}

	if err := ix.DeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatal(err)
	}

	n, err := ix.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("doc count = %d, want only the other document's page", n)
	}
	hits, _ := ix.Search(ctx, "shared", 10)
	for _, h := range hits {
		if h.DocID == "doc-1" {
			t.Errorf("deleted document still in results: %+v", h)
		}
	}
}
