// Package upload persists uploaded files under a local directory.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const DefaultDir = "./uploads"

var ErrInvalidFilename = errors.New("invalid filename")

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}

	return &Store{dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes r to <dir>/<fileID>_<name> and returns the fresh file id and
// the stored path. Only the base name of name is kept.
func (s *Store) Save(r io.Reader, name string) (string, string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", "", err
	}

	fileID := uuid.NewString()
	path := filepath.Join(s.dir, fileID+"_"+base)

	f, err := os.Create(path)
	if err != nil {
		return "", "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", "", err
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", "", err
	}

	return fileID, path, nil
}
