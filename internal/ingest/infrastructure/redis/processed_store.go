// Package redis shares processed run folders between watcher replicas.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix namespaces dedup keys.
const DefaultKeyPrefix = "mpc:processed:"

// ProcessedStore claims folders with SETNX so only one replica ingests each run.
type ProcessedStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewProcessedStore constructs a store. A zero ttl keeps claims forever.
func NewProcessedStore(client *redis.Client, prefix string, ttl time.Duration) (*ProcessedStore, error) {
	if client == nil {
		return nil, errors.New("redis processed store: nil client")
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &ProcessedStore{client: client, prefix: prefix, ttl: ttl}, nil
}

// Claim sets the key if absent.
func (s *ProcessedStore) Claim(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
}

// Release deletes the key.
func (s *ProcessedStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Ping checks connectivity.
func (s *ProcessedStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
