// Package storage keeps uploaded product images on disk. Files are stored
// under random names; the returned path is what the product record carries
// and what /images serves.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("unsupported image type")

var extByType = map[string]string{
	"image/png":  ".png",
	"image/jpg":  ".jpg",
	"image/jpeg": ".jpeg",
}

type FileStore struct {
	Dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

// Save writes the uploaded file under a fresh random name and returns the
// stored path. Only png and jpeg uploads are accepted.
func (s *FileStore) Save(fh *multipart.FileHeader) (string, error) {
	ext, ok := extByType[fh.Header.Get("Content-Type")]
	if !ok {
		return "", ErrUnsupportedType
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}

	return filepath.ToSlash(filepath.Join(s.Dir, name)), nil
}

// Remove deletes a previously stored image. Paths outside the store
// directory are refused.
func (s *FileStore) Remove(path string) error {
	rel, err := filepath.Rel(s.Dir, filepath.FromSlash(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path %q is outside the image dir", path)
	}
	if err := os.Remove(filepath.Join(s.Dir, rel)); err != nil {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}
