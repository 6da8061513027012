// Package memory provides an in-memory blob store for tests.
package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/wavespeak/marquee/pkg/marquee"
)

var errBlobNotFound = errors.New("blob not found")

// Backend is an in-memory implementation of marquee.BlobStore.
type Backend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates an empty in-memory blob store.
func New() *Backend {
	return &Backend{blobs: make(map[string][]byte)}
}

func (b *Backend) Upload(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data
	return nil
}

func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, errBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[key]; !ok {
		return errBlobNotFound
	}
	delete(b.blobs, key)
	return nil
}

func (b *Backend) URL(key string) string {
	return "memory://" + key
}

var _ marquee.BlobStore = (*Backend)(nil)
