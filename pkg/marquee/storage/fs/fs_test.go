package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavespeak/marquee/pkg/marquee/storage/fs"
)

func newBackend(t *testing.T, urlPrefix string) *fs.Backend {
	t.Helper()
	backend, err := fs.New(fs.Config{BaseDir: t.TempDir(), URLPrefix: urlPrefix})
	require.NoError(t, err)
	return backend
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}

func TestNewCreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "blobs")
	_, err := fs.New(fs.Config{BaseDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestUploadDownloadDelete(t *testing.T) {
	backend := newBackend(t, "")
	ctx := context.Background()

	err := backend.Upload(ctx, "avatar/m1_large.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	rc, err := backend.Download(ctx, "avatar/m1_large.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, backend.Delete(ctx, "avatar/m1_large.png"))
	_, err = backend.Download(ctx, "avatar/m1_large.png")
	assert.Error(t, err)
}

func TestRejectsEscapingKeys(t *testing.T) {
	backend := newBackend(t, "")
	ctx := context.Background()

	err := backend.Upload(ctx, "../outside.txt", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	backend := newBackend(t, "https://cdn.example.com/media/")
	assert.Equal(t, "https://cdn.example.com/media/avatar/m1_small.png", backend.URL("avatar/m1_small.png"))

	plain := newBackend(t, "")
	assert.Equal(t, "/avatar/m1_small.png", plain.URL("avatar/m1_small.png"))
}
