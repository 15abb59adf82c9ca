package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/docintelhq/docintel/constants"
	"github.com/docintelhq/docintel/internal/entity"
	"github.com/docintelhq/docintel/internal/llm"
	"github.com/docintelhq/docintel/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo is an in-memory DocumentRepository covering what the orchestrator
// touches.
type fakeRepo struct {
	doc          *entity.DocumentRecord
	pages        []entity.PageRecord
	failPersist  map[int]bool
	metaSummary  string
	metaKeywords []string
	metaCalls    int
}

func (r *fakeRepo) CreateWithPages(ctx context.Context, filename string, hasFile bool, pages []repository.NewPage) (string, error) {
	return "unused", nil
}

func (r *fakeRepo) LoadPages(ctx context.Context, docID string) ([]entity.PageRecord, error) {
	out := make([]entity.PageRecord, len(r.pages))
	copy(out, r.pages)
	return out, nil
}

func (r *fakeRepo) UpdatePageData(ctx context.Context, docID string, pageNum int, structured llm.StructuredRecord, pageSummary string, keywords []string) bool {
	if r.failPersist[pageNum] {
		return false
	}
	for i := range r.pages {
		if r.pages[i].PageNum == pageNum {
			r.pages[i].Status = constants.PageStatusStructured
			r.pages[i].StructuredData = structured
			r.pages[i].HasStructured = true
			r.pages[i].PageSummary = pageSummary
			r.pages[i].Keywords = keywords
			return true
		}
	}
	return false
}

func (r *fakeRepo) UpdateDocumentMetadata(ctx context.Context, docID, summary string, keywords []string) error {
	r.metaCalls++
	r.metaSummary = summary
	r.metaKeywords = keywords
	return nil
}

func (r *fakeRepo) GetDocument(ctx context.Context, docID string) (*entity.DocumentRecord, error) {
	return r.doc, nil
}

func (r *fakeRepo) GetStatus(ctx context.Context, docID string) (*entity.DocumentStatus, error) {
	return nil, nil
}

func (r *fakeRepo) ListDocuments(ctx context.Context) ([]*entity.DocumentRecord, error) {
	return nil, nil
}

func (r *fakeRepo) Delete(ctx context.Context, docID string) (bool, error) {
	return false, nil
}

// fakeStructurer returns scripted records keyed by raw text.
type fakeStructurer struct {
	configured    bool
	records       map[string]llm.StructuredRecord
	docSummary    string
	structured    []string // raw texts seen, in order
	summaryInputs []string // pageSummaries of the last SummarizeDocument call
	summaryCalls  int
}

func (f *fakeStructurer) Configured() bool { return f.configured }

func (f *fakeStructurer) StructureText(ctx context.Context, rawText string) llm.StructuredRecord {
	f.structured = append(f.structured, rawText)
	if rec, ok := f.records[rawText]; ok {
		return rec
	}
	return llm.DefaultRecord()
}

func (f *fakeStructurer) SummarizeDocument(ctx context.Context, pageSummaries []string) string {
	f.summaryCalls++
	f.summaryInputs = append([]string(nil), pageSummaries...)
	return f.docSummary
}

func successRecord(summary string, keywords ...string) llm.StructuredRecord {
	rec := llm.DefaultRecord()
	rec.Summary = summary
	rec.Keywords = keywords
	rec.ProcessingStatus = constants.StatusSuccess
	return rec
}

func rawPage(pageNum int, text string) entity.PageRecord {
	return entity.PageRecord{
		DocID:      "doc-1",
		PageNum:    pageNum,
		RawText:    text,
		TextLength: len(text),
		Status:     constants.PageStatusRaw,
	}
}

func newTestRepo(pages ...entity.PageRecord) *fakeRepo {
	return &fakeRepo{
		doc:   &entity.DocumentRecord{DocID: "doc-1", Filename: "a.pdf", TotalPages: len(pages)},
		pages: pages,
	}
}

func TestShouldProcess(t *testing.T) {
	tests := []struct {
		name string
		page entity.PageRecord
		want bool
	}{
		{"raw page", entity.PageRecord{Status: constants.PageStatusRaw}, true},
		{"structured with summary", entity.PageRecord{Status: constants.PageStatusStructured, PageSummary: "done"}, false},
		{"structured but degraded", entity.PageRecord{Status: constants.PageStatusStructured, PageSummary: ""}, true},
		{"raw with stale summary", entity.PageRecord{Status: constants.PageStatusRaw, PageSummary: "odd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldProcess(&tt.page); got != tt.want {
				t.Errorf("ShouldProcess = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessDocumentEndToEnd(t *testing.T) {
	repo := newTestRepo(rawPage(1, "text one"), rawPage(2, "text two"))
	rateLimited := llm.DefaultRecord()
	rateLimited.ProcessingStatus = constants.StatusRateLimitError
	st := &fakeStructurer{
		configured: true,
		records: map[string]llm.StructuredRecord{
			"text one": successRecord("page one summary", "alpha", "beta"),
			"text two": rateLimited,
		},
		docSummary: "whole document",
	}

	o := NewOrchestrator(Config{}, repo, st, nil, testLogger())
	res, err := o.ProcessDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 || res.Failed != 0 || res.Skipped != 0 {
		t.Errorf("result = %+v", res)
	}

	// Both pages persisted, the failed one with the tagged default record.
	if repo.pages[1].Status != constants.PageStatusStructured {
		t.Error("failed page must still be marked structured")
	}
	if repo.pages[1].StructuredData.ProcessingStatus != constants.StatusRateLimitError {
		t.Errorf("page 2 tag = %q", repo.pages[1].StructuredData.ProcessingStatus)
	}
	if repo.pages[1].PageSummary != "" {
		t.Errorf("failed page summary = %q, want empty", repo.pages[1].PageSummary)
	}

	// Synthesis input excludes the failed page's empty summary.
	if st.summaryCalls != 1 {
		t.Fatalf("summary calls = %d", st.summaryCalls)
	}
	if len(st.summaryInputs) != 1 || st.summaryInputs[0] != "page one summary" {
		t.Errorf("summary inputs = %v", st.summaryInputs)
	}
	if repo.metaSummary != "whole document" {
		t.Errorf("document summary = %q", repo.metaSummary)
	}
	if len(repo.metaKeywords) != 2 {
		t.Errorf("document keywords = %v", repo.metaKeywords)
	}
}

func TestProcessDocumentSkipsCompletedPages(t *testing.T) {
	done := rawPage(1, "already done")
	done.Status = constants.PageStatusStructured
	done.PageSummary = "old summary"
	done.Keywords = []string{"kept"}
	repo := newTestRepo(done, rawPage(2, "fresh text"))
	st := &fakeStructurer{
		configured: true,
		records:    map[string]llm.StructuredRecord{"fresh text": successRecord("fresh summary", "new")},
		docSummary: "synthesized",
	}

	o := NewOrchestrator(Config{}, repo, st, nil, testLogger())
	res, err := o.ProcessDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Processed != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(st.structured) != 1 || st.structured[0] != "fresh text" {
		t.Errorf("structured calls = %v, completed page must not be re-sent", st.structured)
	}

	// The skipped page still contributes to synthesis.
	if len(st.summaryInputs) != 2 {
		t.Fatalf("summary inputs = %v", st.summaryInputs)
	}
	if st.summaryInputs[0] != "old summary" || st.summaryInputs[1] != "fresh summary" {
		t.Errorf("summary inputs = %v", st.summaryInputs)
	}
}

func TestProcessDocumentRetriesDegradedPages(t *testing.T) {
	degraded := rawPage(1, "retry me")
	degraded.Status = constants.PageStatusStructured // structured but no summary
	repo := newTestRepo(degraded)
	st := &fakeStructurer{
		configured: true,
		records:    map[string]llm.StructuredRecord{"retry me": successRecord("recovered")},
		docSummary: "doc",
	}

	o := NewOrchestrator(Config{}, repo, st, nil, testLogger())
	res, err := o.ProcessDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 || res.Skipped != 0 {
		t.Errorf("result = %+v", res)
	}
	if repo.pages[0].PageSummary != "recovered" {
		t.Errorf("page summary = %q", repo.pages[0].PageSummary)
	}
}

func TestProcessDocumentNoAPIKey(t *testing.T) {
	repo := newTestRepo(rawPage(1, "text one"), rawPage(2, "text two"))
	st := &fakeStructurer{configured: false}

	o := NewOrchestrator(Config{}, repo, st, nil, testLogger())
	res, err := o.ProcessDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(st.structured) != 0 {
		t.Error("no model calls expected without a key")
	}
	for _, p := range repo.pages {
		if p.Status != constants.PageStatusStructured {
			t.Errorf("page %d status = %q", p.PageNum, p.Status)
		}
		if p.StructuredData.ProcessingStatus != constants.StatusNoAPIKey {
			t.Errorf("page %d tag = %q", p.PageNum, p.StructuredData.ProcessingStatus)
		}
	}
	if repo.metaCalls != 0 {
		t.Error("document metadata must not be synthesized without real summaries")
	}

	// A second run finds the sentinel summaries and does nothing.
	res2, err := o.ProcessDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if res2.Skipped != 2 || res2.Processed != 0 {
		t.Errorf("second run = %+v", res2)
	}
	if st.summaryCalls != 0 {
		t.Error("sentinel summaries must not feed synthesis")
	}
}

func TestProcessDocumentCountsPersistFailures(t *testing.T) {
	repo := newTestRepo(rawPage(1, "ok text"), rawPage(2, "doomed text"))
	repo.failPersist = map[int]bool{2: true}
	st := &fakeStructurer{
		configured: true,
		records: map[string]llm.StructuredRecord{
			"ok text":     successRecord("ok summary"),
			"doomed text": successRecord("lost summary"),
		},
		docSummary: "doc",
	}

	o := NewOrchestrator(Config{}, repo, st, nil, testLogger())
	res, err := o.ProcessDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	// A page that failed to persist must not feed synthesis.
	if len(st.summaryInputs) != 1 || st.summaryInputs[0] != "ok summary" {
		t.Errorf("summary inputs = %v", st.summaryInputs)
	}
}
