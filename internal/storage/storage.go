// Package storage holds uploaded files (business logos) behind a small
// object-store interface: save by path, resolve a public URL, remove.
// Paths are namespaced by user id by the caller.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage is the object-store boundary the profile service talks to.
type Storage interface {
	Save(path string, r io.Reader) error
	PublicURL(path string) string
	// FilePath resolves a stored object to a local file path, or "" when
	// the backend has no local representation.
	FilePath(path string) string
	Remove(path string) error
}

// DiskStorage keeps objects under a root directory and serves them from a
// static route, so PublicURL is just baseURL + path.
type DiskStorage struct {
	root    string
	baseURL string
}

func NewDiskStorage(root, baseURL string) *DiskStorage {
	return &DiskStorage{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *DiskStorage) Save(path string, r io.Reader) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	return f.Sync()
}

func (s *DiskStorage) PublicURL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (s *DiskStorage) FilePath(path string) string {
	full, err := s.resolve(path)
	if err != nil {
		return ""
	}
	return full
}

func (s *DiskStorage) Remove(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// resolve joins path under root and refuses traversal outside it.
func (s *DiskStorage) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid storage path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}
