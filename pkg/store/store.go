package store

import (
	"context"
	"errors"

	"github.com/audimetria/audimetria/pkg/ratings"
)

var (
	// ErrNotFound means the dataset has never been written.
	ErrNotFound = errors.New("dataset not found")
	// ErrConflict means the stored dataset moved on since it was loaded.
	ErrConflict = errors.New("dataset changed since it was loaded")
)

// Version is an opaque token identifying the stored revision a dataset was
// loaded from. The empty Version means there is no stored dataset yet.
type Version string

// Store reads and writes the dataset file.
type Store interface {
	// Load returns the stored dataset and its version, or ErrNotFound.
	Load(ctx context.Context) (*ratings.Dataset, Version, error)
	// Save writes d. With a version it only succeeds if the stored
	// revision is still that version; without one it only creates.
	Save(ctx context.Context, d *ratings.Dataset, v Version) error
	// Location describes where the dataset lives, for logs.
	Location() string
}
