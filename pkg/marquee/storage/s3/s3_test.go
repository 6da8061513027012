package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		backend *Backend
		want    string
	}{
		{
			name: "url prefix wins",
			backend: &Backend{
				bucket:    "media",
				urlPrefix: "https://cdn.example.com",
				config:    Config{Region: "us-east-1"},
			},
			want: "https://cdn.example.com/avatar/m1_small.png",
		},
		{
			name: "custom endpoint",
			backend: &Backend{
				bucket: "media",
				config: Config{Region: "us-east-1", Endpoint: "http://localhost:9000"},
			},
			want: "http://localhost:9000/media/avatar/m1_small.png",
		},
		{
			name: "aws default",
			backend: &Backend{
				bucket: "media",
				config: Config{Region: "eu-west-1"},
			},
			want: "https://media.s3.eu-west-1.amazonaws.com/avatar/m1_small.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.backend.URL("avatar/m1_small.png"))
		})
	}
}

// TestS3Backend_Integration requires a running MinIO instance or S3
// credentials.
func TestS3Backend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	bucket := os.Getenv("AWS_S3_BUCKET")
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		t.Skip("Skipping integration test: S3/MinIO environment variables not set")
	}

	ctx := context.Background()
	backend, err := New(ctx, Config{
		Bucket:                 bucket,
		Region:                 "us-east-1",
		AccessKeyID:            accessKey,
		SecretAccessKey:        secretKey,
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err, "Failed to create S3 backend")

	key := fmt.Sprintf("test/%d/avatar.png", time.Now().Unix())
	payload := []byte("png-bytes")

	require.NoError(t, backend.Upload(ctx, key, bytes.NewReader(payload)))

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, payload, data)

	require.NoError(t, backend.Delete(ctx, key))
	_, err = backend.Download(ctx, key)
	assert.Error(t, err)
}
