package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/docintelhq/docintel/constants"
	"github.com/docintelhq/docintel/internal/pipeline"
)

// handleUpload accepts a multipart PDF, ingests it and returns the new
// document ID. Structuring continues in the background; poll /status.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadMB << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !constants.IsAllowedExt(filepath.Ext(header.Filename)) {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type: %s", header.Filename))
		return
	}

	tmpPath, cleanup, err := s.spoolUpload(header.Filename, file)
	if err != nil {
		s.logger.Error("server.upload.spool_failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	defer cleanup()

	docID, pages, err := s.ingestor.IngestFile(r.Context(), tmpPath)
	if err != nil {
		s.logger.Error("server.upload.ingest_failed", "filename", header.Filename, "error", err)
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]any{
		"doc_id":      docID,
		"filename":    header.Filename,
		"total_pages": pages,
		"status":      "processing",
	})
}

// spoolUpload writes the upload to the tmp dir under its original base name
// so ingestion records a meaningful filename.
func (s *Server) spoolUpload(filename string, src io.Reader) (string, func(), error) {
	dir, err := os.MkdirTemp(s.cfg.UploadTmpDir, "upload-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(filename))
	dst, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		cleanup()
		return "", nil, err
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.repo.ListDocuments(r.Context())
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.repo.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleStructured(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	doc, err := s.repo.GetDocument(r.Context(), docID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	pages, err := s.repo.LoadPages(r.Context(), docID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, pipeline.BuildAggregate(doc, pages))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	doc, err := s.repo.GetDocument(r.Context(), docID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	rc, err := s.blobs.Open(docID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("server.download.copy_failed", "doc_id", docID, "error", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	data, err := s.exporter.ExportDocumentXLSX(r.Context(), docID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", docID+".xlsx"))
	if _, err := w.Write(data); err != nil {
		s.logger.Error("server.export.write_failed", "doc_id", docID, "error", err)
	}
}

// handleReprocess re-runs structuring synchronously, picking up pages a
// previous run left raw or degraded.
func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	res, err := s.ingestor.Reprocess(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	found, err := s.repo.Delete(r.Context(), docID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	if err := s.blobs.Delete(docID); err != nil {
		s.logger.Warn("server.delete.blob_failed", "doc_id", docID, "error", err)
	}
	if s.index != nil {
		if err := s.index.DeleteDocument(r.Context(), docID); err != nil {
			s.logger.Warn("server.delete.index_failed", "doc_id", docID, "error", err)
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"doc_id": docID, "status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.respondError(w, http.StatusServiceUnavailable, "search index unavailable")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit := s.searchCfg.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if s.searchCfg.MaxLimit > 0 && limit > s.searchCfg.MaxLimit {
		limit = s.searchCfg.MaxLimit
	}

	hits, err := s.index.Search(r.Context(), q, limit)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": q, "results": hits, "count": len(hits)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
