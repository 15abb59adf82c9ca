package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ocrFailedText is stored as a page's text when its OCR pass fails, so the
// page is never silently empty.
const ocrFailedText = "[OCR FAILED]"

// preprocessWithOCRMyPDF runs ocrmypdf to add a searchable text layer to the
// whole document, writing to a temp file. Returns the processed path and a
// cleanup func; on any failure it falls back to the original path.
func (e *Extractor) preprocessWithOCRMyPDF(ctx context.Context, path string) (string, func(), []string) {
	out, err := os.CreateTemp("", "docintel-ocr-*.pdf")
	if err != nil {
		return path, nil, []string{fmt.Sprintf("temp file: %v", err)}
	}
	outPath := out.Name()
	_ = out.Close()

	// --skip-text keeps existing text layers and only OCRs image pages.
	args := []string{
		"--skip-text",
		"-l", e.cfg.TesseractLang,
		"--deskew",
		"--optimize", "1",
		"--quiet",
		path,
		outPath,
	}
	runCtx, cancel := e.opCtx(ctx)
	defer cancel()
	if _, errb, err := e.runner.Run(runCtx, e.cfg.OCRMyPDF, args...); err != nil {
		_ = os.Remove(outPath)
		e.logger.Warn("extract.ocrmypdf.failed", "path", path, "error", err)
		return path, nil, []string{string(errb)}
	}
	cleanup := func() { _ = os.Remove(outPath) }
	return outPath, cleanup, nil
}

// ocrPage rasterizes a single page with pdftoppm and runs tesseract on it.
// Both invocations share one timeout: the page either makes it within the
// bound or gets the failure marker.
func (e *Extractor) ocrPage(ctx context.Context, path string, pageNum int) (string, error) {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "docintel-page-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("extract.ocr.tmp_cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -f N -l N -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", fmt.Sprintf("%d", pageNum),
		"-l", fmt.Sprintf("%d", pageNum),
		"-r", fmt.Sprintf("%d", e.cfg.DPI),
		"-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", pageNum)
	}

	// tesseract <img> stdout -l deu+eng
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, matches[0], "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
