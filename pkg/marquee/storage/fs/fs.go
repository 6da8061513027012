// Package fs provides a filesystem blob store, suitable for single-node
// deployments that serve avatar images from local disk.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wavespeak/marquee/pkg/marquee"
)

// Config options for the filesystem backend.
type Config struct {
	BaseDir   string // base directory files are stored under
	URLPrefix string // optional prefix for the reference URLs
}

// Backend is a filesystem implementation of marquee.BlobStore.
type Backend struct {
	baseDir   string
	urlPrefix string
}

// New creates a filesystem blob store, creating the base directory when
// needed.
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}, nil
}

func (b *Backend) path(key string) (string, error) {
	p := filepath.Join(b.baseDir, filepath.FromSlash(key))
	// Keys must stay inside the base directory.
	if !strings.HasPrefix(p, filepath.Clean(b.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return p, nil
}

func (b *Backend) Upload(ctx context.Context, key string, r io.Reader) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("blob not found")
		}
		return nil, err
	}
	return f, nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return errors.New("blob not found")
		}
		return err
	}
	return nil
}

func (b *Backend) URL(key string) string {
	if b.urlPrefix == "" {
		return "/" + key
	}
	return b.urlPrefix + "/" + key
}

var _ marquee.BlobStore = (*Backend)(nil)
