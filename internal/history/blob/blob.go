// Package blob stores original document bytes on the local filesystem,
// namespaced by owner. The DB row keeps the path; retrieval is byte-exact.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"docscan/pkg/platform/sentinel"
)

// Store writes and reads document blobs under a base directory.
type Store struct {
	baseDir string
}

// New constructs a Store, creating the base directory if needed.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob base directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save writes document bytes under <base>/<owner>/<uuid>_<filename> and
// returns the path relative to the base directory.
func (s *Store) Save(ownerID int64, id uuid.UUID, filename string, data []byte) (string, error) {
	ownerDir := filepath.Join(s.baseDir, strconv.FormatInt(ownerID, 10))
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", fmt.Errorf("create owner directory: %w", err)
	}

	key := filepath.Join(strconv.FormatInt(ownerID, 10), id.String()+"_"+sanitizeFilename(filename))
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return key, nil
}

// Open returns a reader over the stored bytes. A missing file yields
// sentinel.ErrStaleFile: the record exists but its bytes are gone.
func (s *Store) Open(key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", sentinel.ErrStaleFile, key)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return file, nil
}

// Remove deletes the stored bytes. A missing file yields
// sentinel.ErrStaleFile so callers can log the orphan and move on.
func (s *Store) Remove(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", sentinel.ErrStaleFile, key)
		}
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// resolve joins the key onto the base directory and rejects traversal
// outside it.
func (s *Store) resolve(key string) (string, error) {
	path := filepath.Join(s.baseDir, key)
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.baseDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key %q: path traversal detected", key)
	}
	return path, nil
}

// sanitizeFilename strips any directory components from a client-supplied
// filename.
func sanitizeFilename(filename string) string {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "document.pdf"
	}
	return name
}
