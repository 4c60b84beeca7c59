package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type item struct {
	data      []byte
	expiresAt time.Time
}

type memoryCache struct {
	lru *lru.Cache[string, item]
	now func() time.Time
}

// NewMemory returns an in-process cache bounded to size entries.
func NewMemory(size int) (Cache, error) {
	if size <= 0 {
		size = 512
	}
	l, err := lru.New[string, item](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &memoryCache{lru: l, now: time.Now}, nil
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	if m.now().After(v.expiresAt) {
		m.lru.Remove(key)
		return nil, false
	}
	return v.data, true
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.lru.Add(key, item{data: value, expiresAt: m.now().Add(ttl)})
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) {
	for _, k := range keys {
		m.lru.Remove(k)
	}
}

func (m *memoryCache) DeletePrefix(_ context.Context, prefix string) {
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
}

func (m *memoryCache) Health(context.Context) error { return nil }
