// Package cache stores short-lived serialized responses. Redis is used when
// configured; otherwise each warm process keeps its own LRU.
package cache

import (
	"context"
	"time"
)

// Cache stores raw payloads under string keys with a TTL.
type Cache interface {
	// Get returns the payload and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string)
	Health(ctx context.Context) error
}

// Nop disables caching.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Nop) Set(context.Context, string, []byte, time.Duration) {}
func (Nop) Delete(context.Context, ...string)                  {}
func (Nop) DeletePrefix(context.Context, string)               {}
func (Nop) Health(context.Context) error                       { return nil }
