package llm

import "maps"

// MergeRecords lays incoming over base with explicit per-field semantics:
//   - summary: non-empty incoming wins
//   - keywords/sections/measurements/tables: incoming replaces base only when
//     present and non-empty
//   - key_fields: shallow union, incoming wins on key collision
//
// ProcessingStatus is not touched; the caller tags the result.
func MergeRecords(base, incoming StructuredRecord) StructuredRecord {
	out := base

	if incoming.Summary != "" {
		out.Summary = incoming.Summary
	}
	if len(incoming.Keywords) > 0 {
		out.Keywords = incoming.Keywords
	}
	if len(incoming.Sections) > 0 {
		out.Sections = incoming.Sections
	}
	if len(incoming.Measurements) > 0 {
		out.Measurements = incoming.Measurements
	}
	if len(incoming.Tables) > 0 {
		out.Tables = incoming.Tables
	}
	if len(incoming.KeyFields) > 0 {
		merged := make(map[string]any, len(base.KeyFields)+len(incoming.KeyFields))
		maps.Copy(merged, base.KeyFields)
		maps.Copy(merged, incoming.KeyFields)
		out.KeyFields = merged
	}
	return out
}
