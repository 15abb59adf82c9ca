// Package blob stores original uploaded PDFs on disk, keyed by document ID.
package blob

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docintelhq/docintel/internal/common"
)

// Store keeps one file per document under a flat directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(docID string) string {
	return filepath.Join(s.dir, docID+".pdf")
}

// Put copies r into the store. An existing blob for the same ID is replaced.
func (s *Store) Put(docID string, r io.Reader) error {
	f, err := os.Create(s.path(docID))
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(s.path(docID))
		return fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close blob: %w", err)
	}
	return nil
}

// Open returns a reader over the stored PDF. Callers must close it.
func (s *Store) Open(docID string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(docID))
	if os.IsNotExist(err) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Exists reports whether a blob is stored for docID.
func (s *Store) Exists(docID string) bool {
	_, err := os.Stat(s.path(docID))
	return err == nil
}

// Delete removes the stored PDF; missing blobs are not an error.
func (s *Store) Delete(docID string) error {
	err := os.Remove(s.path(docID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	if err == nil {
		s.logger.Info("blob.deleted", "doc_id", docID)
	}
	return nil
}
