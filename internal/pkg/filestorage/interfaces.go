package filestorage

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey is returned for keys that escape the storage root.
var ErrInvalidKey = errors.New("invalid file key")

// FileStorage stores uploaded attachments under opaque keys of the form
// "<category>/<timestamp>_<name>".
type FileStorage interface {
	// Save writes data under category and returns the generated key
	Save(ctx context.Context, category, filename string, data io.Reader) (string, error)

	// Open returns a reader for the stored file
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file. Deleting a missing file is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present
	Exists(ctx context.Context, key string) (bool, error)
}
