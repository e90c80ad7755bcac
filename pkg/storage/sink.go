package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ghmirror/pkg/crawler"
)

// ErrInvalidFilename is returned for names that cannot be a plain file
var ErrInvalidFilename = errors.New("invalid filename")

// JSONSink stores records as indented JSON files under a root directory.
// It implements crawler.Sink and is safe for concurrent use.
type JSONSink struct {
	root string

	mu      sync.Mutex
	created map[string]bool
}

var _ crawler.Sink = (*JSONSink)(nil)

// NewJSONSink creates root if needed and returns a sink writing below it
func NewJSONSink(root string) (*JSONSink, error) {
	if root == "" {
		return nil, errors.New("storage root is empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &JSONSink{root: root, created: make(map[string]bool)}, nil
}

// Root returns the directory all resources are written below
func (s *JSONSink) Root() string {
	return s.root
}

// Path returns where a record of resource named filename is stored
func (s *JSONSink) Path(resource, filename string) (string, error) {
	dir, err := SanitizeFilename(resource)
	if err != nil {
		return "", fmt.Errorf("resource: %w", err)
	}
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, dir, name), nil
}

// Write serializes record and stores it, replacing any previous version.
// It returns the number of bytes in the file.
func (s *JSONSink) Write(ctx context.Context, resource, filename string, record crawler.Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path, err := s.Path(resource, filename)
	if err != nil {
		return 0, err
	}
	data, err := Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := s.ensureDir(filepath.Dir(path)); err != nil {
		return 0, err
	}
	if err := writeAtomic(path, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (s *JSONSink) ensureDir(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.created[dir] {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create resource directory: %w", err)
	}
	s.created[dir] = true
	return nil
}

// writeAtomic writes data to a temporary file next to path and renames it
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Marshal renders record as two-space indented JSON without HTML escaping
// and without a trailing newline
func Marshal(record crawler.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// SanitizeFilename makes name usable as a single path element. Separators,
// characters Windows rejects and control characters become underscores; empty names and dot names are
// rejected.
func SanitizeFilename(name string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`/\<>:"|?*`, r):
			return '_'
		case r < 0x20 || r == 0x7f:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	switch cleaned {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return cleaned, nil
}
