package blob

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
)

// Store persists uploaded documents on local disk and hands back the
// stored path as the blob reference.
type Store interface {
	Save(name string, r io.Reader) (string, error)
}

type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the content under a uuid-prefixed name so two uploads with
// the same client file name never collide, and returns the stored path.
func (s *DiskStore) Save(name string, r io.Reader) (string, error) {
	base := sanitizeName(name)
	if base == "" {
		return "", ErrInvalidName
	}

	stored := uuid.NewString() + "_" + base
	path := filepath.Join(s.dir, stored)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write blob file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close blob file: %w", err)
	}
	return path, nil
}

// ServeFile writes a stored file by its base name. Names carrying path
// separators or dot-dot segments are rejected before touching the disk.
func (s *DiskStore) ServeFile(w http.ResponseWriter, r *http.Request, name string) error {
	if sanitizeName(name) != name || name == "" {
		return ErrInvalidName
	}

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ErrNotFound
	}

	http.ServeFile(w, r, path)
	return nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ""
	}
	return name
}
