package persistence

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore keeps uploaded blobs on the local filesystem, one file per
// upload id.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Put streams the blob to disk, returning the number of bytes written.
func (s *FileStore) Put(key string, r io.Reader) (int64, error) {
	f, err := os.Create(s.path(key))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(f, r)
}

// Open returns a reader over the stored blob.
func (s *FileStore) Open(key string) (io.ReadCloser, error) {
	return os.Open(s.path(key))
}

// Size reports the stored blob length.
func (s *FileStore) Size(key string) (int64, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *FileStore) path(key string) string {
	// keys are base58 ids, but never trust them as path components
	return filepath.Join(s.dir, filepath.Base(key))
}
