package extract

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// readPDFPages extracts the text layer of every page in the PDF at path.
// Pages whose text layer is absent or unreadable come back empty rather than
// failing the document; the OCR fallback fills them in.
func readPDFPages(path string) ([]PageText, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}
	r, err := pdf.NewReader(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]PageText, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		var text string
		if !page.V.IsNull() {
			if t, err := page.GetPlainText(nil); err == nil {
				text = t
			}
		}
		pages = append(pages, PageText{
			PageNum:    i,
			RawText:    text,
			TextLength: len(text),
		})
	}
	return pages, nil
}
