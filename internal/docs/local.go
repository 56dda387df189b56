package docs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore writes documents to a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed and returns a LocalStore.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating document dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the document under a random name, keeping only the original
// extension. The returned ref is the generated filename.
func (s *LocalStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	ref := uuid.NewString() + filepath.Ext(filepath.Base(filename))
	f, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating document file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}
	return ref, nil
}
