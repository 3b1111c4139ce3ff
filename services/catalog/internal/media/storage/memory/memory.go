package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/utafrali/marketplace/services/catalog/internal/media/storage"
)

type object struct {
	contentType string
	data        []byte
}

// Storage implements storage.Storage using an in-memory map. It is meant for
// development and tests.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// New creates a new in-memory storage whose URLs start with baseURL.
func New(baseURL string) *Storage {
	return &Storage{
		objects: make(map[string]object),
		baseURL: baseURL,
	}
}

// Upload reads the whole input and keeps it under its key.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, input.Data); err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[input.Key] = object{contentType: input.ContentType, data: buf.Bytes()}

	return &storage.UploadResult{
		Key: input.Key,
		URL: fmt.Sprintf("%s/media/%s", s.baseURL, input.Key),
	}, nil
}

// Delete removes the object stored under key.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		return fmt.Errorf("delete %s: %w", key, storage.ErrObjectNotFound)
	}

	delete(s.objects, key)
	return nil
}

// Object returns a copy of the bytes and content type stored under key.
func (s *Storage) Object(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return bytes.Clone(o.data), o.contentType, true
}

// Len returns the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
