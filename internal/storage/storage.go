// Package storage persists uploaded image files on local disk.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir stores files under a single root directory.
type Dir struct {
	root string
}

// NewDir creates the root directory if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// Root returns the storage root path.
func (d *Dir) Root() string { return d.root }

// Save writes data under the given filename and returns the full path.
func (d *Dir) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(d.root, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Read returns the stored file's bytes.
func (d *Dir) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (d *Dir) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
