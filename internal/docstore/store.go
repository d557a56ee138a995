// Package docstore stores uploaded source documents on the local
// filesystem, content-addressed by SHA-256 hash. The store is the single
// owner of document bytes; the database keeps only metadata and the storage
// path handed out by Save.
package docstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MIME types accepted for upload.
const (
	MimePDF  = "application/pdf"
	MimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MimePPT  = "application/vnd.ms-powerpoint"
)

// ErrUnsupportedType is returned for uploads that are not PDF or PowerPoint.
var ErrUnsupportedType = errors.New("unsupported document type")

// Supported reports whether the MIME type is accepted for upload.
func Supported(mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case MimePDF, MimePPTX, MimePPT:
		return true
	}
	return false
}

// Hash returns the hex SHA-256 of data: the document identity and the
// provider cache key. Pure function of the content bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store is a filesystem-backed document store rooted at a base directory.
type Store struct {
	base string
}

// New creates the base directory if needed and returns the store.
func New(base string) (*Store, error) {
	if strings.TrimSpace(base) == "" {
		return nil, errors.New("docstore: base directory must not be empty")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &Store{base: base}, nil
}

// Save writes data under its content hash and returns (hash, storagePath).
// Saving identical bytes twice is a no-op that returns the same path, which
// keeps uploads idempotent.
func (s *Store) Save(data []byte, mimeType string) (string, string, error) {
	if !Supported(mimeType) {
		return "", "", ErrUnsupportedType
	}
	hash := Hash(data)
	rel := filepath.Join(hash[:2], hash)
	abs := filepath.Join(s.base, rel)

	if _, err := os.Stat(abs); err == nil {
		return hash, rel, nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", "", err
	}
	// Write via temp file + rename so a crashed upload never leaves a
	// half-written object at the final path.
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".upload-*")
	if err != nil {
		return "", "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", err
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		os.Remove(tmp.Name())
		return "", "", err
	}
	return hash, rel, nil
}

// ReadBytes returns the stored bytes for a storage path handed out by Save.
func (s *Store) ReadBytes(storagePath string) ([]byte, error) {
	clean := filepath.Clean(storagePath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("docstore: invalid storage path %q", storagePath)
	}
	return os.ReadFile(filepath.Join(s.base, clean))
}
