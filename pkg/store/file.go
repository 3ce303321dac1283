package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/audimetria/audimetria/pkg/ratings"
)

// File keeps the dataset in a local file. Its Version is the SHA-256 of the
// bytes on disk.
type File struct {
	Path string
}

func NewFile(path string) *File { return &File{Path: path} }

func (f *File) Location() string { return f.Path }

func (f *File) Load(_ context.Context) (*ratings.Dataset, Version, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	d, err := ratings.Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return d, digest(data), nil
}

func (f *File) Save(_ context.Context, d *ratings.Dataset, v Version) error {
	current, err := os.ReadFile(f.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if v != "" {
			return fmt.Errorf("%w: %s was removed", ErrConflict, f.Path)
		}
	case err != nil:
		return err
	case v == "":
		return fmt.Errorf("%w: %s already exists", ErrConflict, f.Path)
	case digest(current) != v:
		return fmt.Errorf("%w: %s", ErrConflict, f.Path)
	}

	data, err := ratings.Encode(d)
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

func digest(data []byte) Version {
	sum := sha256.Sum256(data)
	return Version(hex.EncodeToString(sum[:]))
}
