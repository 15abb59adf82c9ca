package llm

import (
	"context"
	"encoding/json"

	"github.com/docintelhq/docintel/constants"
)

// Section is one titled region the model identified on a page.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Measurement is one value/unit pair with the text around it.
type Measurement struct {
	Value   any    `json:"value"`
	Unit    string `json:"unit"`
	Context string `json:"context"`
}

// StructuredRecord is the normalized shape we want from the LLM for one page.
// All six content fields are always present with correct container types;
// ProcessingStatus carries the outcome of the attempt that produced it.
type StructuredRecord struct {
	Summary          string                     `json:"summary"`
	Keywords         []string                   `json:"keywords"`
	Sections         []Section                  `json:"sections"`
	Measurements     []Measurement              `json:"measurements"`
	KeyFields        map[string]any             `json:"key_fields"`
	Tables           []json.RawMessage          `json:"tables"`
	ProcessingStatus constants.ProcessingStatus `json:"processing_status"`
}

// DefaultRecord returns the empty fallback structure. Every failure path
// hands one of these (retagged) to the caller so the schema stays total.
func DefaultRecord() StructuredRecord {
	return StructuredRecord{
		Keywords:         []string{},
		Sections:         []Section{},
		Measurements:     []Measurement{},
		KeyFields:        map[string]any{},
		Tables:           []json.RawMessage{},
		ProcessingStatus: constants.StatusFailed,
	}
}

// ChatRequest is one call to the text-structuring/summarization collaborator.
type ChatRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// ChatClient is the transport our engine depends on. Implementations must
// surface failures as *CallError so the engine can map them onto the
// processing-status taxonomy.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Structurer is the interface the pipeline depends on.
type Structurer interface {
	// Configured reports whether a model-access credential is available.
	Configured() bool
	// StructureText never returns an error: all failures degrade to a valid
	// default record with a diagnostic tag.
	StructureText(ctx context.Context, rawText string) StructuredRecord
	// SummarizeDocument is best-effort; on failure it falls back to a
	// deterministic synthesis instead of propagating an error.
	SummarizeDocument(ctx context.Context, pageSummaries []string) string
}
