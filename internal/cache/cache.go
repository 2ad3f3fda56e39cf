package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent from the cache.
var ErrMiss = errors.New("cache: miss")

// Cache is the key/value and list surface the ledger and blacklist gate need.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetList(ctx context.Context, key string) ([]string, error)
	SetList(ctx context.Context, key string, values []string, ttl time.Duration) error
}
