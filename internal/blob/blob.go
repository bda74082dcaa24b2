// Package blob stores uploaded binary objects keyed by uuid.
package blob

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Store is the blob storage collaborator. Objects live in named containers
// and are addressed by the uuid assigned at upload.
type Store interface {
	Upload(ctx context.Context, r io.Reader, container string) (uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID, container string) error
	URL(id uuid.UUID, container string) string
}
