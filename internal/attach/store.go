// Package attach keeps attachment files on disk. Database rows for
// attachments live in the storage package; the mutation coordinator holds
// the two in step.
package attach

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tally/internal/core"

	"github.com/google/uuid"
)

type Store struct {
	dir      string
	baseURL  string
	maxBytes int64
}

func NewStore(dir, baseURL string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Digest returns the SHA-256 hex digest of content. Two uploads are the
// same attachment exactly when their digests match.
func Digest(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// ValidateUpload rejects an upload before anything touches disk or the
// database.
func (s *Store) ValidateUpload(u core.FileUpload) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if int64(len(u.Data)) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", core.ErrFileTooLarge, len(u.Data), s.maxBytes)
	}
	return nil
}

// Persist writes the upload under a fresh unique name and returns the
// stored name. The original file name only contributes its extension, so
// collisions and path tricks in user-supplied names cannot reach the
// filesystem.
func (s *Store) Persist(u core.FileUpload) (string, error) {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(filepath.Base(u.FileName)))
	if err := os.WriteFile(filepath.Join(s.dir, name), u.Data, 0644); err != nil {
		return "", fmt.Errorf("write attachment file: %w", err)
	}
	return name, nil
}

// Remove unlinks a stored file. A file that is already gone counts as
// removed.
func (s *Store) Remove(storedName string) error {
	err := os.Remove(filepath.Join(s.dir, storedName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove attachment file: %w", err)
	}
	return nil
}

// URL renders the public URL for a stored name.
func (s *Store) URL(storedName string) string {
	return s.baseURL + "/uploads/" + storedName
}

// Dir returns the directory files are stored under.
func (s *Store) Dir() string {
	return s.dir
}
