package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavespeak/marquee/pkg/marquee/storage/memory"
)

func TestUploadDownloadDelete(t *testing.T) {
	backend := memory.New()
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
	assert.Error(t, backend.Delete(ctx, "avatar/m1_large.png"))
}

func TestUploadOverwrites(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "k", strings.NewReader("one")))
	require.NoError(t, backend.Upload(ctx, "k", strings.NewReader("two")))

	rc, err := backend.Download(ctx, "k")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "two", string(data))
}

func TestURL(t *testing.T) {
	backend := memory.New()
	assert.Equal(t, "memory://avatar/m1_large.png", backend.URL("avatar/m1_large.png"))
}
