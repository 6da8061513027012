// Package config loads server configuration from the environment and
// builds the wired components from it.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wavespeak/marquee/pkg/marquee"
	repomemory "github.com/wavespeak/marquee/pkg/marquee/repo/memory"
	repopg "github.com/wavespeak/marquee/pkg/marquee/repo/postgres"
	fsstorage "github.com/wavespeak/marquee/pkg/marquee/storage/fs"
	memorystorage "github.com/wavespeak/marquee/pkg/marquee/storage/memory"
	s3storage "github.com/wavespeak/marquee/pkg/marquee/storage/s3"
)

// Config is the server configuration, read from the environment.
type Config struct {
	Addr        string `env:"MARQUEE_ADDR" env-default:":8080"`
	Environment string `env:"MARQUEE_ENV" env-default:"development"`

	// DatabaseURL selects the store: empty means the in-memory backend,
	// anything else is a postgres connection string.
	DatabaseURL      string        `env:"MARQUEE_DATABASE_URL"`
	DBConnectTimeout time.Duration `env:"MARQUEE_DB_CONNECT_TIMEOUT" env-default:"10s"`

	// StorageURL selects the blob backend by scheme: memory://,
	// file:///path, or s3://bucket.
	StorageURL      string `env:"MARQUEE_STORAGE_URL" env-default:"memory://"`
	AvatarURLPrefix string `env:"MARQUEE_AVATAR_URL_PREFIX"`

	S3Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	S3Endpoint        string `env:"AWS_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	S3CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`

	// Admin auth. Admin routes are disabled unless RedisAddr and JWTSecret
	// are both set.
	RedisAddr     string        `env:"MARQUEE_REDIS_ADDR"`
	RedisPassword string        `env:"MARQUEE_REDIS_PASSWORD"`
	SessionTTL    time.Duration `env:"MARQUEE_SESSION_TTL" env-default:"12h"`
	JWTSecret     string        `env:"MARQUEE_JWT_SECRET"`
	AdminUser     string        `env:"MARQUEE_ADMIN_USER" env-default:"admin"`
	AdminPassword string        `env:"MARQUEE_ADMIN_PASSWORD"`

	DefaultLanguage string `env:"MARQUEE_DEFAULT_LANGUAGE" env-default:"zh"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if _, err := marquee.ParseLanguage(c.DefaultLanguage); err != nil {
		return fmt.Errorf("MARQUEE_DEFAULT_LANGUAGE: %w", err)
	}
	switch c.Environment {
	case "development", "production", "testing":
	default:
		return fmt.Errorf("MARQUEE_ENV: unknown environment %q", c.Environment)
	}
	if c.RedisAddr != "" && c.JWTSecret == "" {
		return errors.New("MARQUEE_JWT_SECRET is required when MARQUEE_REDIS_ADDR is set")
	}
	return nil
}

// AdminEnabled reports whether the admin surface can be mounted.
func (c *Config) AdminEnabled() bool {
	return c.RedisAddr != "" && c.JWTSecret != ""
}

// BuildStore creates the resource store: in-memory when no database URL is
// configured, postgres otherwise.
func (c *Config) BuildStore(ctx context.Context) (marquee.Store, error) {
	if c.DatabaseURL == "" {
		return repomemory.New(), nil
	}

	poolCfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.ConnConfig.ConnectTimeout = c.DBConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return repopg.NewStore(pool), nil
}

// BuildBlobStore creates the blob backend selected by StorageURL's scheme.
func (c *Config) BuildBlobStore(ctx context.Context) (marquee.BlobStore, error) {
	u, err := url.Parse(c.StorageURL)
	if err != nil {
		return nil, fmt.Errorf("parse storage URL: %w", err)
	}

	switch u.Scheme {
	case "memory", "":
		return memorystorage.New(), nil
	case "file":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   u.Path,
			URLPrefix: c.AvatarURLPrefix,
		})
	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:                 c.S3Region,
			Bucket:                 u.Host,
			AccessKeyID:            c.S3AccessKeyID,
			SecretAccessKey:        c.S3SecretAccessKey,
			Endpoint:               c.S3Endpoint,
			UsePathStyle:           c.S3UsePathStyle,
			URLPrefix:              c.AvatarURLPrefix,
			CreateBucketIfNotExist: c.S3CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage scheme %q", u.Scheme)
	}
}

// BuildRedis creates the Redis client for the session store.
func (c *Config) BuildRedis(ctx context.Context) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// BuildService wires the store and blob backend into a Service.
func (c *Config) BuildService(ctx context.Context) (marquee.Service, error) {
	store, err := c.BuildStore(ctx)
	if err != nil {
		return nil, err
	}
	blobs, err := c.BuildBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	return marquee.New(
		marquee.WithStore(store),
		marquee.WithBlobStore(blobs),
	)
}
