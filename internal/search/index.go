// Package search provides a Bleve-backed full-text index over document pages.
package search

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/docintelhq/docintel/internal/entity"
)

// pageDoc is the shape stored in the index, one entry per page.
type pageDoc struct {
	DocID    string `json:"doc_id"`
	PageNum  int    `json:"page_num"`
	Filename string `json:"filename"`
	RawText  string `json:"raw_text"`
	Summary  string `json:"summary"`
	Keywords string `json:"keywords"`
}

// Result is a single search hit.
type Result struct {
	DocID       string   `json:"doc_id"`
	PageNum     int      `json:"page_num"`
	Filename    string   `json:"filename"`
	Score       float64  `json:"score"`
	PageSummary string   `json:"page_summary"`
	Keywords    []string `json:"keywords"`
	Snippet     string   `json:"snippet"`
}

// Index wraps a Bleve index over pages. IDs are "<docID>:<pageNum>" so a
// document's pages can be removed as a group.
type Index struct {
	index bleve.Index
}

// NewIndex creates or opens a Bleve index at path. An existing index is
// reopened and reused; delete the directory to force a rebuild after a
// mapping change.
func NewIndex(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open search index: %w", openErr)
		}
		return &Index{index: idx}, nil
	}

	im := bleve.NewIndexMapping()
	pageMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so exact words
	// from OCR text match as typed.
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	pageMapping.AddFieldMappingsAt("raw_text", textField)
	pageMapping.AddFieldMappingsAt("summary", textField)
	pageMapping.AddFieldMappingsAt("keywords", textField)
	keywordField := bleve.NewKeywordFieldMapping()
	pageMapping.AddFieldMappingsAt("doc_id", keywordField)
	im.DefaultMapping = pageMapping

	idx, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &Index{index: idx}, nil
}

func pageID(docID string, pageNum int) string {
	return fmt.Sprintf("%s:%d", docID, pageNum)
}

// IndexPage adds or replaces one page in the index.
func (ix *Index) IndexPage(ctx context.Context, filename string, page *entity.PageRecord) error {
	doc := pageDoc{
		DocID:    page.DocID,
		PageNum:  page.PageNum,
		Filename: filename,
		RawText:  page.RawText,
		Summary:  page.PageSummary,
		Keywords: strings.Join(page.Keywords, " "),
	}
	return ix.index.Index(pageID(page.DocID, page.PageNum), doc)
}

// Search runs a match query over raw text, summaries and keywords.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"doc_id", "page_num", "filename", "summary", "keywords", "raw_text"}
	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{Score: hit.Score}
		if v, ok := hit.Fields["doc_id"].(string); ok {
			r.DocID = v
		}
		if v, ok := hit.Fields["page_num"].(float64); ok {
			r.PageNum = int(v)
		}
		if v, ok := hit.Fields["filename"].(string); ok {
			r.Filename = v
		}
		if v, ok := hit.Fields["summary"].(string); ok {
			r.PageSummary = v
		}
		// Keywords are stored space-joined for matching; split them back out.
		if v, ok := hit.Fields["keywords"].(string); ok {
			r.Keywords = strings.Fields(v)
		}
		r.Snippet = snippet(hit.Fields)
		out = append(out, r)
	}
	return out, nil
}

// DeleteDocument removes every indexed page of docID.
func (ix *Index) DeleteDocument(ctx context.Context, docID string) error {
	q := bleve.NewTermQuery(docID)
	q.SetField("doc_id")
	req := bleve.NewSearchRequestOptions(q, 10000, 0, false)
	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("search for delete: %w", err)
	}
	batch := ix.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	return ix.index.Batch(batch)
}

// DocCount returns the number of indexed pages.
func (ix *Index) DocCount() (uint64, error) {
	return ix.index.DocCount()
}

func (ix *Index) Close() error {
	return ix.index.Close()
}

const snippetLen = 300

// snippet prefers the page summary and falls back to the head of the raw text.
func snippet(fields map[string]interface{}) string {
	if v, ok := fields["summary"].(string); ok && strings.TrimSpace(v) != "" {
		return clip(v, snippetLen)
	}
	if v, ok := fields["raw_text"].(string); ok {
		return clip(strings.TrimSpace(v), snippetLen)
	}
	return ""
}

// clip truncates s to at most n bytes without splitting a rune. OCR text is
// mostly German, so multi-byte characters near the cut are common.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
