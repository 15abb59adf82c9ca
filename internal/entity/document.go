package entity

import (
	"encoding/json"
	"time"

	"github.com/docintelhq/docintel/constants"
	"github.com/docintelhq/docintel/internal/llm"
)

// DocumentRecord is the document-level metadata row.
type DocumentRecord struct {
	DocID           string              `json:"doc_id"`
	Filename        string              `json:"filename"`
	TotalPages      int                 `json:"total_pages"`
	Status          constants.DocStatus `json:"status"`
	DocumentSummary string              `json:"document_summary"`
	Keywords        []string            `json:"keywords"`
	ProcessedPages  int                 `json:"processed_pages,omitempty"`
	HasFile         bool                `json:"has_file"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// PageRecord is one extracted page. RawText is immutable once extracted;
// the structured fields are rewritten as a unit by each structuring attempt.
type PageRecord struct {
	DocID          string               `json:"doc_id"`
	PageNum        int                  `json:"page_num"`
	RawText        string               `json:"raw_text"`
	TextLength     int                  `json:"text_length"`
	Status         constants.PageStatus `json:"status"`
	PageSummary    string               `json:"page_summary"`
	Keywords       []string             `json:"keywords"`
	StructuredData llm.StructuredRecord `json:"structured_data"`
	HasStructured  bool                 `json:"-"` // false when no attempt has stored a record yet
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// AggregateStructure is the document-wide merge of all pages' structured
// records. It is derived on demand and never persisted.
type AggregateStructure struct {
	DocID            string            `json:"doc_id"`
	Filename         string            `json:"filename"`
	TotalPages       int               `json:"total_pages"`
	AllSections      []llm.Section     `json:"all_sections"`
	AllMeasurements  []llm.Measurement `json:"all_measurements"`
	AllKeyFields     map[string]any    `json:"all_key_fields"`
	AllTables        []json.RawMessage `json:"all_tables"`
	DocumentSummary  string            `json:"document_summary"`
	DocumentKeywords []string          `json:"document_keywords"`
	Pages            []PageRecord      `json:"pages"`
}

// DocumentStatus is the computed processing view of one document.
type DocumentStatus struct {
	DocID          string `json:"doc_id"`
	Filename       string `json:"filename"`
	TotalPages     int    `json:"total_pages"`
	ProcessedPages int    `json:"processed_pages"`
	IsComplete     bool   `json:"is_complete"`
	HasFile        bool   `json:"has_pdf_file"`
}
