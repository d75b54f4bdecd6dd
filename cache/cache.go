// Package cache holds the response cache backends used by the GET cache
// middleware: an in-process go-cache store and a shared redis store.
package cache

import (
	"context"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedResponse is a captured GET response.
type CachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// ResponseCache stores captured responses by key. Flush drops every entry and
// is called after any successful write.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration)
	Flush(ctx context.Context) error
}

// MemoryCache keeps responses in process memory.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*CachedResponse, bool) {
	v, found := m.store.Get(key)
	if !found {
		return nil, false
	}
	resp, ok := v.(*CachedResponse)
	return resp, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	m.store.Set(key, resp, ttl)
}

func (m *MemoryCache) Flush(_ context.Context) error {
	m.store.Flush()
	return nil
}

// ItemCount is used by tests.
func (m *MemoryCache) ItemCount() int {
	return m.store.ItemCount()
}
