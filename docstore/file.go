package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
)

// FileStore reads the document from the local filesystem.
type FileStore struct {
	path string
	log  *slog.Logger
}

// newFileStore creates a FileStore from a file:// URI. A URI host is
// treated as the first path element so relative locations like
// file://openapi_3_1_0_spec.json work.
func newFileStore(u *url.URL, log *slog.Logger) (*FileStore, error) {
	path := u.Path
	if u.Host != "" {
		path = filepath.Join(u.Host, path)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty file path", ErrInvalidLocationURI)
	}
	return &FileStore{path: path, log: log}, nil
}

// Fetch reads the document from disk. A missing file maps to
// ErrDocumentNotFound.
func (s *FileStore) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	s.log.Debug("Fetched document from file", "path", s.path, "size", len(data))
	return data, nil
}

// Name returns a unique identifier for this store.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.path))
}
