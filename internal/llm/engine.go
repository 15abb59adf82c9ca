package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/docintelhq/docintel/constants"
)

// EngineConfig holds the knobs for one structuring engine. The credential is
// injected here; the engine never reads ambient process state.
type EngineConfig struct {
	APIKey              string
	MaxChars            int     // page-text budget, default 8000
	StructureTemp       float32 // default 0
	SummaryTemp         float32 // default 0.3
	StructureMaxTokens  int     // default 2500
	SummaryMaxTokens    int     // default 500
	SummaryContextChars int     // default 12000
	SummaryHeadChars    int     // default 6000
	SummaryTailChars    int     // default 6000
}

// Engine turns raw page text into validated structured records and
// synthesizes document-level summaries. All failure modes of StructureText
// degrade to a tagged default record: the orchestrator processes many pages
// per document and a single failure must not abort the batch.
type Engine struct {
	cfg    EngineConfig
	chat   ChatClient
	schema *jsonschema.Schema
	logger *slog.Logger
}

func NewEngine(cfg EngineConfig, chat ChatClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = constants.StructureMaxChars
	}
	if cfg.SummaryTemp <= 0 {
		cfg.SummaryTemp = 0.3
	}
	if cfg.StructureMaxTokens <= 0 {
		cfg.StructureMaxTokens = 2500
	}
	if cfg.SummaryMaxTokens <= 0 {
		cfg.SummaryMaxTokens = 500
	}
	if cfg.SummaryContextChars <= 0 {
		cfg.SummaryContextChars = constants.SummaryContextMaxChars
	}
	if cfg.SummaryHeadChars <= 0 {
		cfg.SummaryHeadChars = 6000
	}
	if cfg.SummaryTailChars <= 0 {
		cfg.SummaryTailChars = 6000
	}
	schema, err := CompilePageSchema()
	if err != nil {
		// Static schema; compilation failing means a programming error.
		// Degrade to the presence-only check rather than refusing to start.
		logger.Error("llm.schema.compile_failed", "error", err)
		schema = nil
	}
	if cfg.APIKey == "" {
		logger.Error("llm.engine.no_api_key",
			"hint", "structuring will be skipped; set OPENAI_API_KEY")
	}
	return &Engine{cfg: cfg, chat: chat, schema: schema, logger: logger}
}

// Configured reports whether the engine can make external calls.
func (e *Engine) Configured() bool {
	return e.cfg.APIKey != "" && e.chat != nil
}

// StructureText sends one page's raw text to the structuring collaborator and
// returns a record whose six content fields are always present with correct
// types. It never returns an error; the ProcessingStatus tag carries the
// outcome.
func (e *Engine) StructureText(ctx context.Context, rawText string) StructuredRecord {
	if !e.Configured() {
		e.logger.Error("llm.structure.no_api_key")
		return tagged(DefaultRecord(), constants.StatusNoAPIKey)
	}
	if strings.TrimSpace(rawText) == "" {
		e.logger.Warn("llm.structure.empty_text")
		return tagged(DefaultRecord(), constants.StatusEmptyText)
	}

	text := rawText
	if len(rawText) > e.cfg.MaxChars {
		e.logger.Info("llm.structure.truncate",
			"text_len", len(rawText), "max_chars", e.cfg.MaxChars)
		text = TruncateProportional(rawText, e.cfg.MaxChars)
	}

	rid := uuid.New().String()
	start := time.Now()
	e.logger.Info("llm.structure.start", "req_id", rid, "chars", len(text))

	content, err := e.chat.Complete(ctx, ChatRequest{
		System:      BuildStructureSystemPrompt(),
		User:        BuildStructureUserPrompt(text),
		Temperature: e.cfg.StructureTemp,
		MaxTokens:   e.cfg.StructureMaxTokens,
	})
	if err != nil {
		tag := TagForError(err)
		e.logger.Error("llm.structure.call_failed",
			"req_id", rid, "tag", string(tag), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return tagged(DefaultRecord(), tag)
	}

	clean := StripCodeFences(content)
	var parsed map[string]any
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		e.logger.Error("llm.structure.json_error",
			"req_id", rid, "error", err, "content_head", head(content, 500))
		return tagged(DefaultRecord(), constants.StatusJSONError)
	}

	if err := e.validateShape(parsed); err != nil {
		e.logger.Warn("llm.structure.partial",
			"req_id", rid, "error", err, "keys", mapKeys(parsed))
		rec := MergeRecords(DefaultRecord(), DecodeRecord(parsed))
		return tagged(rec, constants.StatusPartialSuccess)
	}

	rec := DecodeRecord(parsed)
	e.logger.Info("llm.structure.ok",
		"req_id", rid,
		"summary_len", len(rec.Summary),
		"keywords", len(rec.Keywords),
		"elapsed_ms", time.Since(start).Milliseconds())
	return tagged(rec, constants.StatusSuccess)
}

// SummarizeDocument synthesizes a document summary from per-page summaries.
// Zero pages yields ""; one page is returned verbatim with no call made; on
// any call failure it degrades to a deterministic fallback.
func (e *Engine) SummarizeDocument(ctx context.Context, pageSummaries []string) string {
	if len(pageSummaries) == 0 {
		return ""
	}
	if len(pageSummaries) == 1 {
		return pageSummaries[0]
	}

	fallback := fmt.Sprintf("Document with %d pages. %s", len(pageSummaries), pageSummaries[0])
	if !e.Configured() {
		return fallback
	}

	sctx := BuildSummaryContext(pageSummaries)
	if len(sctx) > e.cfg.SummaryContextChars {
		sctx = TruncateAbsolute(sctx, e.cfg.SummaryHeadChars, e.cfg.SummaryTailChars)
	}

	e.logger.Info("llm.summarize.start", "pages", len(pageSummaries), "context_chars", len(sctx))
	content, err := e.chat.Complete(ctx, ChatRequest{
		System:      BuildSummarySystemPrompt(),
		User:        BuildSummaryUserPrompt(sctx),
		Temperature: e.cfg.SummaryTemp,
		MaxTokens:   e.cfg.SummaryMaxTokens,
	})
	if err != nil {
		e.logger.Error("llm.summarize.call_failed", "error", err)
		return fallback
	}
	return strings.TrimSpace(content)
}

func (e *Engine) validateShape(parsed map[string]any) error {
	if e.schema != nil {
		return ValidateAgainstSchema(e.schema, map[string]any(parsed))
	}
	for _, k := range []string{"summary", "keywords", "sections", "measurements", "key_fields", "tables"} {
		if _, ok := parsed[k]; !ok {
			return fmt.Errorf("missing key %q", k)
		}
	}
	return nil
}

func tagged(rec StructuredRecord, tag constants.ProcessingStatus) StructuredRecord {
	rec.ProcessingStatus = tag
	return rec
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
