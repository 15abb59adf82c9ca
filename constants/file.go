package constants

import "strings"

// AllowedExtensions holds the file extensions accepted for ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether a filename extension is ingestible.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// Pipeline tuning values that must stay stable across the codebase.
const (
	// OCRSamplePages is how many leading pages are inspected when deciding
	// whether a document needs OCR preprocessing.
	OCRSamplePages = 3

	// ScannableThreshold is the extracted-text length below which a page is
	// considered scanned and routed through OCR.
	ScannableThreshold = 50

	// StructureMaxChars bounds the text sent to one structuring call.
	StructureMaxChars = 8000

	// SummaryContextMaxChars bounds the concatenated page summaries sent to
	// the document-summary call.
	SummaryContextMaxChars = 12000

	// MaxDocumentKeywords caps the deduplicated document-level keyword list.
	MaxDocumentKeywords = 30
)
