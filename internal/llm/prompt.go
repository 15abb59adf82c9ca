package llm

import (
	"fmt"
	"strings"
)

// BuildStructureSystemPrompt is the fixed instruction for turning one page's
// raw text into the six-field record. It forbids markdown fencing; the engine
// still strips fences before parsing.
func BuildStructureSystemPrompt() string {
	return `You are a highly capable document extraction assistant.
Analyze the provided text (German or English) and extract structured data into a valid JSON object.

REQUIRED OUTPUT STRUCTURE:
{
  "summary": "A concise 50-100 word summary of the page content",
  "keywords": ["keyword1", "keyword2", ...],
  "sections": [{"title": "Section Title", "content": "Section content summary..."}],
  "measurements": [{"value": 12.5, "unit": "mm", "context": "description of measurement"}],
  "key_fields": {"invoice_date": "YYYY-MM-DD", "document_number": "...", "names": ["..."]},
  "tables": [[{"col1": "val1", "col2": "val2"}]]
}

RULES:
1. Output valid JSON only. NO markdown blocks (e.g. ` + "```json" + `).
2. 'summary' should be concise but informative (50-100 words).
3. 'keywords' should include important terms, names, technical terms (5-15 keywords).
4. If a field is empty, return an empty list [] or empty dict {}.
5. 'tables' should be a list of lists (rows) or list of list of dicts.
6. Extract all dates, numbers, and important entity names into 'key_fields'.
7. Be robust against OCR errors.
8. Focus on accuracy over completeness for large documents.`
}

// BuildStructureUserPrompt wraps the (possibly truncated) page text.
func BuildStructureUserPrompt(text string) string {
	return "Text to structure:\n\n" + text
}

// BuildSummarySystemPrompt is the instruction for the document-level
// synthesis of page summaries.
func BuildSummarySystemPrompt() string {
	return `You are an expert executive assistant.
Create a coherent, concise executive summary (100-200 words) of the ENTIRE document based on the provided page summaries.

GUIDELINES:
1. Synthesize the information, do not just list what is on each page.
2. Identify the core purpose, main results, and key dates/entities.
3. Write in the same language as the document (German or English).
4. Focus on the "Big Picture".`
}

// BuildSummaryContext concatenates page summaries in order, one line per page.
func BuildSummaryContext(pageSummaries []string) string {
	parts := make([]string, 0, len(pageSummaries))
	for i, s := range pageSummaries {
		parts = append(parts, fmt.Sprintf("Page %d: %s", i+1, s))
	}
	return strings.Join(parts, "\n\n")
}

// BuildSummaryUserPrompt wraps the (possibly truncated) summary context.
func BuildSummaryUserPrompt(context string) string {
	return "Here are the summaries of the document pages:\n\n" + context
}
