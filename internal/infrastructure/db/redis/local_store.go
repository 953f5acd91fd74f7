package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LocalStore is the persisted key/value storage of one visitor. Every write
// refreshes the key's TTL so abandoned visitors are eventually forgotten.
type LocalStore struct {
	client    *redis.Client
	visitorID string
	ttl       time.Duration
}

// NewLocalStore binds a store to visitorID. A zero ttl keeps keys forever.
func NewLocalStore(client *redis.Client, visitorID string, ttl time.Duration) *LocalStore {
	return &LocalStore{client: client, visitorID: visitorID, ttl: ttl}
}

func (s *LocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, visitorKey(s.visitorID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("local get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *LocalStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, visitorKey(s.visitorID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("local set %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, visitorKey(s.visitorID, key)).Err(); err != nil {
		return fmt.Errorf("local delete %s: %w", key, err)
	}
	return nil
}

// Take reads and removes key with GETDEL.
func (s *LocalStore) Take(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.GetDel(ctx, visitorKey(s.visitorID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("local take %s: %w", key, err)
	}
	return v, true, nil
}
