package llm

import (
	"encoding/json"
	"strings"
)

// StripCodeFences removes markdown code-fence markers the model may emit
// despite being told not to. Applied before parsing, always.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// DecodeRecord converts a parsed generic JSON object into a StructuredRecord,
// keeping only values of the expected shape. Ill-typed fields are dropped
// rather than failing the whole record: the caller recovers them as empties
// via the merge step.
func DecodeRecord(m map[string]any) StructuredRecord {
	rec := DefaultRecord()

	if s, ok := m["summary"].(string); ok {
		rec.Summary = s
	}
	if ks, ok := m["keywords"].([]any); ok {
		for _, k := range ks {
			if s, ok := k.(string); ok {
				rec.Keywords = append(rec.Keywords, s)
			}
		}
	}
	if ss, ok := m["sections"].([]any); ok {
		for _, s := range ss {
			obj, ok := s.(map[string]any)
			if !ok {
				continue
			}
			var sec Section
			sec.Title, _ = obj["title"].(string)
			sec.Content, _ = obj["content"].(string)
			rec.Sections = append(rec.Sections, sec)
		}
	}
	if ms, ok := m["measurements"].([]any); ok {
		for _, mv := range ms {
			obj, ok := mv.(map[string]any)
			if !ok {
				continue
			}
			var meas Measurement
			meas.Value = obj["value"]
			meas.Unit, _ = obj["unit"].(string)
			meas.Context, _ = obj["context"].(string)
			rec.Measurements = append(rec.Measurements, meas)
		}
	}
	if kf, ok := m["key_fields"].(map[string]any); ok {
		rec.KeyFields = kf
	}
	if ts, ok := m["tables"].([]any); ok {
		for _, t := range ts {
			raw, err := json.Marshal(t)
			if err != nil {
				continue
			}
			rec.Tables = append(rec.Tables, raw)
		}
	}
	return rec
}
