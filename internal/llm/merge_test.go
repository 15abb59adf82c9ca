package llm

import (
	"encoding/json"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := StripCodeFences(tt.in); got != tt.want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeRecordDropsIllTypedFields(t *testing.T) {
	var m map[string]any
	raw := `{
		"summary": 42,
		"keywords": ["ok", 7, "also ok"],
		"sections": "not a list",
		"measurements": [{"value": 1, "unit": "kg", "context": "weight"}, "junk"],
		"key_fields": {"a": 1},
		"tables": [[1,2],[3,4]]
	}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	rec := DecodeRecord(m)

	if rec.Summary != "" {
		t.Errorf("non-string summary should be dropped, got %q", rec.Summary)
	}
	if len(rec.Keywords) != 2 {
		t.Errorf("keywords = %v, want the two strings", rec.Keywords)
	}
	if len(rec.Sections) != 0 {
		t.Errorf("sections = %v, want empty for ill-typed input", rec.Sections)
	}
	if len(rec.Measurements) != 1 || rec.Measurements[0].Unit != "kg" {
		t.Errorf("measurements = %v", rec.Measurements)
	}
	if rec.KeyFields["a"] != float64(1) {
		t.Errorf("key_fields = %v", rec.KeyFields)
	}
	if len(rec.Tables) != 2 {
		t.Errorf("tables = %v", rec.Tables)
	}
}

func TestMergeRecordsFieldSemantics(t *testing.T) {
	base := DefaultRecord()
	base.Summary = "base summary"
	base.Keywords = []string{"base"}
	base.KeyFields = map[string]any{"kept": "yes", "clash": "old"}

	incoming := DefaultRecord()
	incoming.KeyFields = map[string]any{"clash": "new", "added": true}

	out := MergeRecords(base, incoming)

	if out.Summary != "base summary" {
		t.Errorf("empty incoming summary must not clobber base, got %q", out.Summary)
	}
	if len(out.Keywords) != 1 || out.Keywords[0] != "base" {
		t.Errorf("empty incoming keywords must not clobber base, got %v", out.Keywords)
	}
	if out.KeyFields["kept"] != "yes" {
		t.Error("base-only key field lost")
	}
	if out.KeyFields["clash"] != "new" {
		t.Errorf("incoming must win key collisions, got %v", out.KeyFields["clash"])
	}
	if out.KeyFields["added"] != true {
		t.Error("incoming-only key field lost")
	}

	incoming2 := DefaultRecord()
	incoming2.Summary = "newer"
	incoming2.Keywords = []string{"x", "y"}
	out2 := MergeRecords(base, incoming2)
	if out2.Summary != "newer" || len(out2.Keywords) != 2 {
		t.Errorf("non-empty incoming fields must replace base: %q %v", out2.Summary, out2.Keywords)
	}
}
