package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FSStore keeps blobs on the local filesystem, one directory per container
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore creates a filesystem blob store rooted at root. URLs are built
// against baseURL.
func NewFSStore(root, baseURL string) *FSStore {
	return &FSStore{root: root, baseURL: baseURL}
}

// Upload stores the reader's contents under a fresh uuid
func (s *FSStore) Upload(ctx context.Context, r io.Reader, container string) (uuid.UUID, error) {
	dir := filepath.Join(s.root, container)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create blob container: %w", err)
	}

	id := uuid.New()
	path := filepath.Join(dir, id.String())
	f, err := os.Create(path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return uuid.Nil, fmt.Errorf("failed to write blob: %w", err)
	}
	return id, nil
}

// Delete removes a blob; deleting a missing blob is not an error
func (s *FSStore) Delete(ctx context.Context, id uuid.UUID, container string) error {
	err := os.Remove(filepath.Join(s.root, container, id.String()))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// URL returns the public URL for a blob. The zero uuid maps to the
// placeholder image.
func (s *FSStore) URL(id uuid.UUID, container string) string {
	if id == uuid.Nil {
		return s.baseURL + "/noimage.png"
	}
	return fmt.Sprintf("%s/%s/%s", s.baseURL, container, id)
}
