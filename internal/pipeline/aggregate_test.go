package pipeline

import (
	"strconv"
	"testing"

	"github.com/docintelhq/docintel/internal/entity"
	"github.com/docintelhq/docintel/internal/llm"
)

func structuredPage(pageNum int, rec llm.StructuredRecord) entity.PageRecord {
	return entity.PageRecord{
		DocID:          "doc-1",
		PageNum:        pageNum,
		StructuredData: rec,
		HasStructured:  true,
	}
}

func TestBuildAggregateKeyFieldsLastPageWins(t *testing.T) {
	doc := &entity.DocumentRecord{DocID: "doc-1", Filename: "a.pdf", TotalPages: 7}
	r3 := llm.DefaultRecord()
	r3.KeyFields = map[string]any{"date": "2020-01-01", "author": "early"}
	r7 := llm.DefaultRecord()
	r7.KeyFields = map[string]any{"date": "2021-06-30"}

	agg := BuildAggregate(doc, []entity.PageRecord{
		structuredPage(3, r3),
		structuredPage(7, r7),
	})

	if agg.AllKeyFields["date"] != "2021-06-30" {
		t.Errorf("date = %v, page 7 must win", agg.AllKeyFields["date"])
	}
	if agg.AllKeyFields["author"] != "early" {
		t.Errorf("author = %v, page-3-only key must survive", agg.AllKeyFields["author"])
	}
}

func TestBuildAggregateConcatenatesInPageOrder(t *testing.T) {
	doc := &entity.DocumentRecord{DocID: "doc-1", TotalPages: 2}
	r1 := llm.DefaultRecord()
	r1.Sections = []llm.Section{{Title: "Intro"}}
	r1.Measurements = []llm.Measurement{{Value: 1.0, Unit: "m"}}
	r2 := llm.DefaultRecord()
	r2.Sections = []llm.Section{{Title: "Results"}, {Title: "Appendix"}}

	agg := BuildAggregate(doc, []entity.PageRecord{
		structuredPage(1, r1),
		structuredPage(2, r2),
	})

	if len(agg.AllSections) != 3 {
		t.Fatalf("sections = %d", len(agg.AllSections))
	}
	if agg.AllSections[0].Title != "Intro" || agg.AllSections[2].Title != "Appendix" {
		t.Errorf("section order wrong: %v", agg.AllSections)
	}
	if len(agg.AllMeasurements) != 1 {
		t.Errorf("measurements = %d", len(agg.AllMeasurements))
	}
}

func TestBuildAggregateSkipsPagesWithoutRecord(t *testing.T) {
	doc := &entity.DocumentRecord{DocID: "doc-1", TotalPages: 2}
	r1 := llm.DefaultRecord()
	r1.Sections = []llm.Section{{Title: "Only"}}

	raw := entity.PageRecord{DocID: "doc-1", PageNum: 2, HasStructured: false}
	agg := BuildAggregate(doc, []entity.PageRecord{structuredPage(1, r1), raw})

	if len(agg.AllSections) != 1 {
		t.Errorf("sections = %d, unstructured page must contribute nothing", len(agg.AllSections))
	}
	if len(agg.Pages) != 2 {
		t.Errorf("pages = %d, raw pages still appear in the page list", len(agg.Pages))
	}
}

func TestBuildAggregateEmptyCollectionsNotNil(t *testing.T) {
	doc := &entity.DocumentRecord{DocID: "doc-1"}
	agg := BuildAggregate(doc, nil)
	if agg.AllSections == nil || agg.AllMeasurements == nil || agg.AllKeyFields == nil || agg.AllTables == nil {
		t.Error("aggregate collections must never be nil")
	}
}

func TestDedupeKeywords(t *testing.T) {
	got := DedupeKeywords([]string{"a", "b", "a", "c"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q (first-seen order)", i, got[i], want[i])
		}
	}
}

func TestDedupeKeywordsCap(t *testing.T) {
	var in []string
	for i := 0; i < 40; i++ {
		in = append(in, "kw"+strconv.Itoa(i))
	}
	got := DedupeKeywords(in)
	if len(got) != 30 {
		t.Fatalf("len = %d, want capped at 30", len(got))
	}
	if got[0] != "kw0" || got[29] != "kw29" {
		t.Errorf("cap must keep the first 30: %v", got)
	}
}
