package llm

// Elision markers inserted where text was cut. The structuring marker matches
// what page texts have carried historically, so downstream consumers can spot
// truncated inputs.
const (
	pageElisionMarker    = "\n\n[...middle content truncated...]\n\n"
	summaryElisionMarker = "\n\n[...intermediate pages omitted...]\n\n"
)

// TruncateProportional keeps the first 70% and last 30% of the maxChars
// budget, preserving header/footer context on long pages while bounding
// request size. Text at or under budget is returned unchanged.
func TruncateProportional(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	head := int(float64(maxChars) * 0.7)
	tail := int(float64(maxChars) * 0.3)
	return text[:head] + pageElisionMarker + text[len(text)-tail:]
}

// TruncateAbsolute keeps fixed-size head and tail slices. Used for the
// document-summary context, whose bounds are absolute rather than
// proportional.
func TruncateAbsolute(text string, head, tail int) string {
	if len(text) <= head+tail {
		return text
	}
	return text[:head] + summaryElisionMarker + text[len(text)-tail:]
}
