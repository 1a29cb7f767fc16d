package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicware/backend/internal/application/ingestion"
)

// Ensure LocalDocumentStore implements DocumentStore
var _ ingestion.DocumentStore = (*LocalDocumentStore)(nil)

// LocalDocumentStore keeps invoice documents on the local filesystem.
// It is meant for development and single-instance deployments; keys map
// directly to file paths under the root directory.
type LocalDocumentStore struct {
	root       string
	tempPrefix string
}

// NewLocalDocumentStore creates a store rooted at dir, creating the
// directory if needed.
func NewLocalDocumentStore(dir, tempPrefix string) (*LocalDocumentStore, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalDocumentStore{
		root:       dir,
		tempPrefix: tempPrefixOrDefault(tempPrefix),
	}, nil
}

// SaveTemp writes the raw upload to the temp area and returns its key.
func (s *LocalDocumentStore) SaveTemp(ctx context.Context, tenantID uuid.UUID, filename string, data []byte) (string, error) {
	key := TempDocumentKey(s.tempPrefix, tenantID, filename)

	p, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return key, nil
}

// Read returns the stored bytes for a key.
func (s *LocalDocumentStore) Read(ctx context.Context, key string) ([]byte, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Promote moves the object from the temp key to the durable key. The
// durable copy is written before the temp file is removed so a failure
// never loses the upload.
func (s *LocalDocumentStore) Promote(ctx context.Context, tempKey, durableKey string) error {
	if tempKey == "" || durableKey == "" {
		return errors.New("both temp and durable keys are required")
	}

	src, err := s.pathFor(tempKey)
	if err != nil {
		return err
	}
	dst, err := s.pathFor(durableKey)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to promote object %s: %w", tempKey, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to promote object %s: %w", tempKey, err)
	}

	// Durable copy is on disk; removing the temp file is best effort.
	_ = os.Remove(src)
	return nil
}

// Delete removes an object; missing keys are not an error.
func (s *LocalDocumentStore) Delete(ctx context.Context, key string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// pathFor maps a storage key to a file path, rejecting keys that would
// escape the root directory.
func (s *LocalDocumentStore) pathFor(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return filepath.Join(s.root, clean), nil
}
