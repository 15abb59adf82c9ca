package pipeline

import (
	"encoding/json"

	"github.com/docintelhq/docintel/constants"
	"github.com/docintelhq/docintel/internal/entity"
	"github.com/docintelhq/docintel/internal/llm"
)

// BuildAggregate merges all pages' structured records into one document-wide
// view. Pages are walked in ascending page order; pages without a stored
// record are skipped without comment. Collections concatenate in page order,
// key fields overwrite so the highest page number wins each key.
func BuildAggregate(doc *entity.DocumentRecord, pages []entity.PageRecord) *entity.AggregateStructure {
	agg := &entity.AggregateStructure{
		DocID:            doc.DocID,
		Filename:         doc.Filename,
		TotalPages:       doc.TotalPages,
		AllSections:      []llm.Section{},
		AllMeasurements:  []llm.Measurement{},
		AllKeyFields:     map[string]any{},
		AllTables:        []json.RawMessage{},
		DocumentSummary:  doc.DocumentSummary,
		DocumentKeywords: doc.Keywords,
		Pages:            pages,
	}
	for i := range pages {
		if !pages[i].HasStructured {
			continue
		}
		rec := pages[i].StructuredData
		agg.AllSections = append(agg.AllSections, rec.Sections...)
		agg.AllMeasurements = append(agg.AllMeasurements, rec.Measurements...)
		agg.AllTables = append(agg.AllTables, rec.Tables...)
		for k, v := range rec.KeyFields {
			agg.AllKeyFields[k] = v
		}
	}
	return agg
}

// DedupeKeywords removes duplicates keeping first-seen order, capped at the
// document keyword limit.
func DedupeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
		if len(out) == constants.MaxDocumentKeywords {
			break
		}
	}
	return out
}
