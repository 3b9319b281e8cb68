// Package storage persists uploaded file content under opaque keys; the
// database only holds the metadata.
package storage

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Store is the file content interface the handlers use.
type Store interface {
	Save(key string, data []byte) error
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// LocalStore keeps file content in a flat directory keyed by opaque ids.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(key string) string {
	// keys are uuids we generated, but never trust them as path segments
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *LocalStore) Save(key string, data []byte) error {
	return os.WriteFile(s.path(key), data, 0o644)
}

func (s *LocalStore) Open(key string) (io.ReadCloser, error) {
	return os.Open(s.path(key))
}

func (s *LocalStore) Delete(key string) error {
	return os.Remove(s.path(key))
}

// SecureFilename strips path components and unsafe characters from an
// uploaded filename, falling back to a default name when nothing safe
// remains.
func SecureFilename(name, fallback string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// ContentType derives the content type from the filename extension,
// falling back to the upload's declared type, falling back to a generic
// binary type.
func ContentType(filename, declared string) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}
