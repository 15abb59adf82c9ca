// Package export renders a document's aggregated structure as an XLSX
// workbook.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/docintelhq/docintel/internal/entity"
	"github.com/docintelhq/docintel/internal/pipeline"
	"github.com/docintelhq/docintel/internal/repository"
)

// Service is a tiny façade over the repository that produces XLSX bytes for
// document exports.
type Service struct {
	repo   repository.DocumentRepository
	logger *slog.Logger
}

func NewService(repo repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportDocumentXLSX returns a workbook with one sheet per aggregated view:
// overview, key fields, measurements and sections.
func (s *Service) ExportDocumentXLSX(ctx context.Context, docID string) ([]byte, error) {
	start := time.Now()

	doc, err := s.repo.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	pages, err := s.repo.LoadPages(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	agg := pipeline.BuildAggregate(doc, pages)

	f := excelize.NewFile()
	if err := writeOverview(f, agg); err != nil {
		return nil, err
	}
	writeKeyFields(f, agg)
	writeMeasurements(f, agg)
	writeSections(f, agg)
	writePages(f, agg)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"doc_id", docID,
		"pages", len(pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeOverview(f *excelize.File, agg *entity.AggregateStructure) error {
	const sheet = "Overview"
	// The default sheet is renamed so the workbook has no stray "Sheet1".
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	write := cellWriter(f, sheet)
	rows := [][2]any{
		{"Document ID", agg.DocID},
		{"Filename", agg.Filename},
		{"Total Pages", agg.TotalPages},
		{"Summary", agg.DocumentSummary},
		{"Keywords", joinKeywords(agg.DocumentKeywords)},
		{"Sections", len(agg.AllSections)},
		{"Measurements", len(agg.AllMeasurements)},
		{"Tables", len(agg.AllTables)},
	}
	for i, r := range rows {
		write(1, i+1, r[0])
		write(2, i+1, r[1])
	}
	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "B", 80)
	return nil
}

func writeKeyFields(f *excelize.File, agg *entity.AggregateStructure) {
	const sheet = "Key Fields"
	_, _ = f.NewSheet(sheet)
	write := cellWriter(f, sheet)
	write(1, 1, "Field")
	write(2, 1, "Value")

	keys := make([]string, 0, len(agg.AllKeyFields))
	for k := range agg.AllKeyFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		write(1, i+2, k)
		write(2, i+2, fmt.Sprintf("%v", agg.AllKeyFields[k]))
	}
	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "B", 60)
}

func writeMeasurements(f *excelize.File, agg *entity.AggregateStructure) {
	const sheet = "Measurements"
	_, _ = f.NewSheet(sheet)
	write := cellWriter(f, sheet)
	for i, h := range []string{"Value", "Unit", "Context"} {
		write(i+1, 1, h)
	}
	for i, m := range agg.AllMeasurements {
		write(1, i+2, fmt.Sprintf("%v", m.Value))
		write(2, i+2, m.Unit)
		write(3, i+2, m.Context)
	}
	_ = f.SetColWidth(sheet, "A", "B", 14)
	_ = f.SetColWidth(sheet, "C", "C", 60)
}

func writeSections(f *excelize.File, agg *entity.AggregateStructure) {
	const sheet = "Sections"
	_, _ = f.NewSheet(sheet)
	write := cellWriter(f, sheet)
	write(1, 1, "Title")
	write(2, 1, "Content")
	for i, sec := range agg.AllSections {
		write(1, i+2, sec.Title)
		write(2, i+2, clip(sec.Content, 1000))
	}
	_ = f.SetColWidth(sheet, "A", "A", 32)
	_ = f.SetColWidth(sheet, "B", "B", 100)
}

func writePages(f *excelize.File, agg *entity.AggregateStructure) {
	const sheet = "Pages"
	_, _ = f.NewSheet(sheet)
	write := cellWriter(f, sheet)
	for i, h := range []string{"Page", "Status", "Processing Status", "Summary", "Keywords", "Tables"} {
		write(i+1, 1, h)
	}
	for i, p := range agg.Pages {
		write(1, i+2, p.PageNum)
		write(2, i+2, string(p.Status))
		write(3, i+2, string(p.StructuredData.ProcessingStatus))
		write(4, i+2, p.PageSummary)
		write(5, i+2, joinKeywords(p.Keywords))
		write(6, i+2, tablesPreview(p.StructuredData.Tables))
	}
	_ = f.SetColWidth(sheet, "D", "D", 80)
	_ = f.SetColWidth(sheet, "E", "F", 40)
}

func cellWriter(f *excelize.File, sheet string) func(col, row int, v any) {
	return func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func joinKeywords(ks []string) string {
	return strings.Join(ks, ", ")
}

func tablesPreview(tables []json.RawMessage) string {
	if len(tables) == 0 {
		return ""
	}
	b, err := json.Marshal(tables)
	if err != nil {
		return fmt.Sprintf("%d tables", len(tables))
	}
	return clip(string(b), 500)
}

// clip truncates s to roughly n bytes, backing up to a rune boundary so
// umlauts near the cut are never split.
func clip(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	n--
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
