package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidRef is returned for references that escape the storage root
var ErrInvalidRef = errors.New("invalid document reference")

// LocalStorage keeps payment receipts on the local filesystem. Documents are
// addressed by their path relative to the root, which is what installments
// store as their receipt reference.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the root directory if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: abs}, nil
}

// Save writes r under subDir/YYYY/MM with a random name keeping filename's
// extension, and returns the document reference.
func (s *LocalStorage) Save(r io.Reader, filename, subDir string, now time.Time) (string, error) {
	dir := filepath.Join(s.basePath, subDir, now.Format("2006/01"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	name := generateID() + strings.ToLower(filepath.Ext(filename))
	filePath := filepath.Join(dir, name)

	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	// One byte past the limit tells an oversized upload apart
	written, err := io.Copy(dst, io.LimitReader(r, MaxFileSize()+1))
	if err == nil && written > MaxFileSize() {
		err = fmt.Errorf("document exceeds %d bytes", MaxFileSize())
	}
	if err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	rel, err := filepath.Rel(s.basePath, filePath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// FullPath resolves a reference to an absolute path inside the root
func (s *LocalStorage) FullPath(ref string) (string, error) {
	if ref == "" || filepath.IsAbs(ref) {
		return "", ErrInvalidRef
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(ref))
	if !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		return "", ErrInvalidRef
	}
	return full, nil
}

// Exists checks if a document exists
func (s *LocalStorage) Exists(ref string) bool {
	full, err := s.FullPath(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// Delete removes a document
func (s *LocalStorage) Delete(ref string) error {
	full, err := s.FullPath(ref)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// generateID creates a unique identifier for filenames
func generateID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// ValidContentTypes returns allowed MIME types for receipts
func ValidContentTypes() map[string]bool {
	return map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"image/jpg":       true,
		"image/png":       true,
	}
}

// MaxFileSize returns the maximum allowed document size (10MB)
func MaxFileSize() int64 {
	return 10 * 1024 * 1024
}

// IsValidContentType checks if the content type is allowed
func IsValidContentType(contentType string) bool {
	return ValidContentTypes()[contentType]
}
