package extract

import (
	"strings"

	"github.com/docintelhq/docintel/constants"
)

// NeedsOCR decides whether a document requires OCR preprocessing, given the
// extracted text of its first few pages (the caller samples at most
// constants.OCRSamplePages). Any sampled page under the threshold triggers
// OCR for the whole document: a false positive only wastes an OCR pass, a
// false negative feeds empty text to structuring.
func NeedsOCR(sampleTexts []string) bool {
	if len(sampleTexts) == 0 {
		// Nothing inspectable; when in doubt, apply OCR.
		return true
	}
	for _, text := range sampleTexts {
		if IsTextScannable(len(strings.TrimSpace(text)), constants.ScannableThreshold) {
			return true
		}
	}
	return false
}

// IsTextScannable reports whether a page's extracted text is short enough
// that the page is likely a scan needing OCR.
func IsTextScannable(textLength, threshold int) bool {
	return textLength < threshold
}

// SamplePages returns the texts of up to n leading pages.
func SamplePages(pages []PageText, n int) []string {
	if len(pages) < n {
		n = len(pages)
	}
	out := make([]string, 0, n)
	for _, p := range pages[:n] {
		out = append(out, p.RawText)
	}
	return out
}
