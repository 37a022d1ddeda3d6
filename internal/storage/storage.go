// Package storage persists uploaded recipe images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

// allowedImageTypes maps accepted MIME types to the key extension used.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageStore writes an object and returns its public URL.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// DetectImage sniffs data and returns its MIME type and file extension.
// Declared content types are ignored.
func DetectImage(data []byte) (contentType, ext string, err error) {
	mt := mimetype.Detect(data)
	for candidate := mt; candidate != nil; candidate = candidate.Parent() {
		if ext, ok := allowedImageTypes[candidate.String()]; ok {
			return candidate.String(), ext, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
}

// MemoryStore keeps objects in memory. It backs tests.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string]memoryObject
}

type memoryObject struct {
	ContentType string
	Body        []byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: baseURL, objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) Put(_ context.Context, key, contentType string, body []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memoryObject{ContentType: contentType, Body: append([]byte(nil), body...)}
	return m.BaseURL + "/" + key, nil
}

// Get returns a stored object's content type and body.
func (m *MemoryStore) Get(key string) (string, []byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[key]
	return obj.ContentType, obj.Body, ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
