package config_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavespeak/marquee/pkg/marquee/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory://", cfg.StorageURL)
	assert.Equal(t, "zh", cfg.DefaultLanguage)
	assert.False(t, cfg.AdminEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MARQUEE_ADDR", ":9090")
	t.Setenv("MARQUEE_ENV", "production")
	t.Setenv("MARQUEE_DEFAULT_LANGUAGE", "en")
	t.Setenv("MARQUEE_REDIS_ADDR", "localhost:6379")
	t.Setenv("MARQUEE_JWT_SECRET", "s3cret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.True(t, cfg.AdminEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *config.Config) {},
		},
		{
			name:    "unknown default language",
			mutate:  func(c *config.Config) { c.DefaultLanguage = "fr" },
			wantErr: true,
		},
		{
			name:    "unknown environment",
			mutate:  func(c *config.Config) { c.Environment = "staging" },
			wantErr: true,
		},
		{
			name:    "redis without jwt secret",
			mutate:  func(c *config.Config) { c.RedisAddr = "localhost:6379" },
			wantErr: true,
		},
		{
			name: "redis with jwt secret",
			mutate: func(c *config.Config) {
				c.RedisAddr = "localhost:6379"
				c.JWTSecret = "s3cret"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildStoreDefaultsToMemory(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	store, err := cfg.BuildStore(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestBuildBlobStore(t *testing.T) {
	tests := []struct {
		name       string
		storageURL string
		wantErr    bool
	}{
		{"memory", "memory://", false},
		{"filesystem", "", false}, // set per test below
		{"unknown scheme", "ftp://nope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load()
			require.NoError(t, err)
			if tt.name == "filesystem" {
				cfg.StorageURL = "file://" + t.TempDir()
			} else {
				cfg.StorageURL = tt.storageURL
			}

			blobs, err := cfg.BuildBlobStore(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, blobs)
		})
	}
}

func TestBuildService(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	svc, err := cfg.BuildService(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
