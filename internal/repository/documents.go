package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docintelhq/docintel/constants"
	"github.com/docintelhq/docintel/internal/common"
	"github.com/docintelhq/docintel/internal/entity"
	"github.com/docintelhq/docintel/internal/llm"
)

// NewPage is one extracted page handed to document creation.
type NewPage struct {
	PageNum    int
	RawText    string
	TextLength int
}

// DocumentRepository is the storage collaborator the pipeline depends on.
type DocumentRepository interface {
	// CreateWithPages inserts the document row and all page rows in bulk,
	// status raw, empty structured fields. Returns the generated doc ID.
	CreateWithPages(ctx context.Context, filename string, hasFile bool, pages []NewPage) (string, error)

	// LoadPages returns all pages of a document in ascending page order.
	LoadPages(ctx context.Context, docID string) ([]entity.PageRecord, error)

	// UpdatePageData persists a completed structuring attempt: status
	// becomes structured and the structured record, summary and keywords are
	// written together in one statement. Returns false on any failure and
	// never raises; the orchestrator counts failures instead of aborting.
	UpdatePageData(ctx context.Context, docID string, pageNum int, structured llm.StructuredRecord, pageSummary string, keywords []string) bool

	// UpdateDocumentMetadata writes the aggregated summary/keywords and
	// marks the document structured with a fresh updated timestamp.
	UpdateDocumentMetadata(ctx context.Context, docID, summary string, keywords []string) error

	GetDocument(ctx context.Context, docID string) (*entity.DocumentRecord, error)
	GetStatus(ctx context.Context, docID string) (*entity.DocumentStatus, error)
	ListDocuments(ctx context.Context) ([]*entity.DocumentRecord, error)

	// Delete removes the document and all its pages. Whole-document deletion
	// is the only way pages are ever removed.
	Delete(ctx context.Context, docID string) (bool, error)
}

type documentRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

func (r *documentRepository) CreateWithPages(ctx context.Context, filename string, hasFile bool, pages []NewPage) (string, error) {
	if len(pages) == 0 {
		return "", common.NewAppError("INGEST_ERROR", "no pages to save", common.ErrInvalidInput)
	}

	docID := uuid.New().String()
	now := time.Now().UTC()

	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return "", common.WrapError(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, r.db.rebind(
		`INSERT INTO documents (doc_id, filename, total_pages, status, document_summary, keywords, has_file, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '', '[]', ?, ?, ?)`),
		docID, filename, len(pages), string(constants.DocStatusRaw), hasFile, now, now)
	if err != nil {
		return "", common.WrapError(err, "insert document")
	}

	for _, p := range pages {
		_, err = tx.ExecContext(ctx, r.db.rebind(
			`INSERT INTO pages (doc_id, page_num, raw_text, text_length, status, page_summary, keywords, structured_data, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, '', '[]', '', ?, ?)`),
			docID, p.PageNum, p.RawText, p.TextLength, string(constants.PageStatusRaw), now, now)
		if err != nil {
			return "", common.WrapError(err, "insert page")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", common.WrapError(err, "commit")
	}
	r.logger.Info("repo.document.created", "doc_id", docID, "filename", filename, "pages", len(pages))
	return docID, nil
}

func (r *documentRepository) LoadPages(ctx context.Context, docID string) ([]entity.PageRecord, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(
		`SELECT doc_id, page_num, raw_text, text_length, status, page_summary, keywords, structured_data, created_at, updated_at
		 FROM pages WHERE doc_id = ? ORDER BY page_num ASC`), docID)
	if err != nil {
		return nil, common.WrapError(err, "query pages")
	}
	defer rows.Close()

	var pages []entity.PageRecord
	for rows.Next() {
		var p entity.PageRecord
		var status, keywordsJSON, structuredJSON string
		if err := rows.Scan(&p.DocID, &p.PageNum, &p.RawText, &p.TextLength, &status,
			&p.PageSummary, &keywordsJSON, &structuredJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, common.WrapError(err, "scan page")
		}
		p.Status = constants.PageStatus(status)
		p.Keywords = decodeKeywords(keywordsJSON)
		p.StructuredData, p.HasStructured = decodeStructured(structuredJSON)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (r *documentRepository) UpdatePageData(ctx context.Context, docID string, pageNum int, structured llm.StructuredRecord, pageSummary string, keywords []string) bool {
	structuredJSON, err := json.Marshal(structured)
	if err != nil {
		r.logger.Error("repo.page.marshal_failed", "doc_id", docID, "page", pageNum, "error", err)
		return false
	}
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		r.logger.Error("repo.page.marshal_failed", "doc_id", docID, "page", pageNum, "error", err)
		return false
	}

	res, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`UPDATE pages SET status = ?, structured_data = ?, page_summary = ?, keywords = ?, updated_at = ?
		 WHERE doc_id = ? AND page_num = ?`),
		string(constants.PageStatusStructured), string(structuredJSON), pageSummary, string(keywordsJSON),
		time.Now().UTC(), docID, pageNum)
	if err != nil {
		r.logger.Error("repo.page.update_failed", "doc_id", docID, "page", pageNum, "error", err)
		return false
	}
	n, err := res.RowsAffected()
	if err != nil {
		r.logger.Error("repo.page.rows_affected", "doc_id", docID, "page", pageNum, "error", err)
		return false
	}
	return n > 0
}

func (r *documentRepository) UpdateDocumentMetadata(ctx context.Context, docID, summary string, keywords []string) error {
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return common.WrapError(err, "marshal keywords")
	}
	_, err = r.db.SQL.ExecContext(ctx, r.db.rebind(
		`UPDATE documents SET document_summary = ?, keywords = ?, status = ?, updated_at = ? WHERE doc_id = ?`),
		summary, string(keywordsJSON), string(constants.DocStatusStructured), time.Now().UTC(), docID)
	if err != nil {
		return common.WrapError(err, "update document metadata")
	}
	r.logger.Info("repo.document.metadata_updated", "doc_id", docID,
		"summary_len", len(summary), "keywords", len(keywords))
	return nil
}

func (r *documentRepository) GetDocument(ctx context.Context, docID string) (*entity.DocumentRecord, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT doc_id, filename, total_pages, status, document_summary, keywords, has_file, created_at, updated_at
		 FROM documents WHERE doc_id = ?`), docID)
	return scanDocument(row)
}

func (r *documentRepository) GetStatus(ctx context.Context, docID string) (*entity.DocumentStatus, error) {
	doc, err := r.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	var total, processed int
	err = r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM pages WHERE doc_id = ?`),
		string(constants.PageStatusStructured), docID).Scan(&total, &processed)
	if err != nil {
		return nil, common.WrapError(err, "count pages")
	}
	return &entity.DocumentStatus{
		DocID:          docID,
		Filename:       doc.Filename,
		TotalPages:     total,
		ProcessedPages: processed,
		IsComplete:     total > 0 && total == processed,
		HasFile:        doc.HasFile,
	}, nil
}

func (r *documentRepository) ListDocuments(ctx context.Context) ([]*entity.DocumentRecord, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT d.doc_id, d.filename, d.total_pages, d.status, d.document_summary, d.keywords, d.has_file, d.created_at, d.updated_at,
			(SELECT COUNT(*) FROM pages p WHERE p.doc_id = d.doc_id AND p.status = 'structured')
		 FROM documents d ORDER BY d.created_at DESC`)
	if err != nil {
		return nil, common.WrapError(err, "query documents")
	}
	defer rows.Close()

	var docs []*entity.DocumentRecord
	for rows.Next() {
		var d entity.DocumentRecord
		var status, keywordsJSON string
		if err := rows.Scan(&d.DocID, &d.Filename, &d.TotalPages, &status, &d.DocumentSummary,
			&keywordsJSON, &d.HasFile, &d.CreatedAt, &d.UpdatedAt, &d.ProcessedPages); err != nil {
			return nil, common.WrapError(err, "scan document")
		}
		d.Keywords = decodeKeywords(keywordsJSON)
		// Status is a computed view: structured iff every page made it.
		if d.TotalPages > 0 && d.ProcessedPages == d.TotalPages {
			d.Status = constants.DocStatusStructured
		} else {
			d.Status = constants.DocStatusProcessing
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

func (r *documentRepository) Delete(ctx context.Context, docID string) (bool, error) {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return false, common.WrapError(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM pages WHERE doc_id = ?`), docID); err != nil {
		return false, common.WrapError(err, "delete pages")
	}
	res, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM documents WHERE doc_id = ?`), docID)
	if err != nil {
		return false, common.WrapError(err, "delete document")
	}
	if err := tx.Commit(); err != nil {
		return false, common.WrapError(err, "commit")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	r.logger.Info("repo.document.deleted", "doc_id", docID)
	return true, nil
}

func scanDocument(row *sql.Row) (*entity.DocumentRecord, error) {
	var d entity.DocumentRecord
	var status, keywordsJSON string
	err := row.Scan(&d.DocID, &d.Filename, &d.TotalPages, &status, &d.DocumentSummary,
		&keywordsJSON, &d.HasFile, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "scan document")
	}
	d.Status = constants.DocStatus(status)
	d.Keywords = decodeKeywords(keywordsJSON)
	return &d, nil
}

func decodeKeywords(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var ks []string
	if err := json.Unmarshal([]byte(raw), &ks); err != nil || ks == nil {
		return []string{}
	}
	return ks
}

// decodeStructured reports whether a stored record exists. An empty column
// means no structuring attempt has persisted yet; a corrupt one is treated
// the same so aggregation skips it silently.
func decodeStructured(raw string) (llm.StructuredRecord, bool) {
	if raw == "" {
		return llm.DefaultRecord(), false
	}
	var rec llm.StructuredRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return llm.DefaultRecord(), false
	}
	if rec.Keywords == nil {
		rec.Keywords = []string{}
	}
	if rec.KeyFields == nil {
		rec.KeyFields = map[string]any{}
	}
	return rec, true
}
