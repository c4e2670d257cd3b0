package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or hash field has no value.
var ErrNotFound = errors.New("store: not found")

// Store is the key-value contract the bot persists through. Values are
// opaque strings; callers serialize structured records before writing.
// List indices follow Redis semantics: inclusive ranges, negative indices
// count from the tail.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	ListAppend(ctx context.Context, key string, values ...string) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ListTrim(ctx context.Context, key string, start, stop int64) error
	HashIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HashGet(ctx context.Context, key, field string) (string, error)
}
