// Package session keeps admin login sessions in Redis. Sessions are
// opaque random identifiers mapped to the principal that logged in, with
// a sliding expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session id is unknown or has expired.
var ErrNotFound = errors.New("session: not found")

const defaultTTL = 12 * time.Hour

// Store persists sessions in Redis.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// New creates a session store. A zero ttl uses the default of 12 hours.
func New(client redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		client: client,
		ttl:    ttl,
		prefix: "session:",
	}
}

// Create starts a session for principal and returns its id.
func (s *Store) Create(ctx context.Context, principal string) (string, error) {
	id := uuid.New().String()
	if err := s.client.Set(ctx, s.prefix+id, principal, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session: create: %w", err)
	}
	return id, nil
}

// Validate returns the principal bound to id, or ErrNotFound.
func (s *Store) Validate(ctx context.Context, id string) (string, error) {
	principal, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("session: validate: %w", err)
	}
	return principal, nil
}

// Refresh extends the session's expiry by the configured ttl.
func (s *Store) Refresh(ctx context.Context, id string) error {
	ok, err := s.client.Expire(ctx, s.prefix+id, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("session: refresh: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Destroy removes the session. Destroying an unknown session is not an
// error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("session: destroy: %w", err)
	}
	return nil
}
