// Package blobstore archives uploaded source documents. Callers hand it bytes
// that are already vault-encrypted; backends never see plaintext.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrEmptyKey     = errors.New("blob key is required")
)

// BlobStore is the contract for archive backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// UploadKey names the archived upload behind an analysis record.
func UploadKey(ownerID, recordID uuid.UUID) string {
	return fmt.Sprintf("uploads/%s/%s", ownerID, recordID)
}

// InMemoryBlobStore is a thread-safe BlobStore for tests and development.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryBlobStore) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.blobs[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *InMemoryBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrBlobNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Delete is idempotent, matching S3 semantics.
func (s *InMemoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

// Len reports how many blobs are held.
func (s *InMemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
