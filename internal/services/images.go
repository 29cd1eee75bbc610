package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nimasrn/xpensemate/pkg/logger"
)

// ImageStore owns the copies of category images kept under one directory.
type ImageStore struct {
	dir string
}

func NewImageStore(dir string) *ImageStore {
	return &ImageStore{dir: dir}
}

// Import copies the file at src into the store under a fresh name and returns the stored path.
func (s *ImageStore) Import(src string) (string, error) {
	if s.Owns(src) {
		return src, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	dst := filepath.Join(s.dir, uuid.NewString()+strings.ToLower(filepath.Ext(src)))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close image: %w", err)
	}
	return dst, nil
}

// Owns reports whether path lives inside the store directory.
func (s *ImageStore) Owns(path string) bool {
	if path == "" || s.dir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(s.dir), filepath.Clean(path))
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// Remove deletes a stored image. Paths outside the store are left alone.
func (s *ImageStore) Remove(path *string) {
	if path == nil || !s.Owns(*path) {
		return
	}
	if err := os.Remove(*path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove category image", "path", *path, "error", err)
	}
}
