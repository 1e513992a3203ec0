// Copyright 2026 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides an in-memory, per-dictionary read-through cache.
package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ianlewis/sdcatalog/internal/ctxlog"
	"github.com/ianlewis/sdcatalog/internal/identity"
)

const (
	// DefaultExpiration is the default lifetime of a cached value.
	DefaultExpiration = 10 * time.Minute

	// DefaultCleanupInterval is the default interval between purges of
	// expired values.
	DefaultCleanupInterval = 30 * time.Minute
)

// sep separates the dictionary id from the key. It cannot appear in an id.
const sep = "\x00"

// Cache caches values of type V per dictionary. A nil *Cache is valid and
// caches nothing.
type Cache[V any] struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// New returns a Cache. A non-positive expiration disables caching and New
// returns nil.
func New[V any](expiration, cleanupInterval time.Duration) *Cache[V] {
	if expiration <= 0 {
		return nil
	}
	return &Cache[V]{
		cache: gocache.New(expiration, cleanupInterval),
		ttl:   expiration,
	}
}

func cacheKey(id identity.ID, key string) string {
	return string(id) + sep + key
}

// Get returns the value cached for key in dictionary id.
func (c *Cache[V]) Get(ctx context.Context, id identity.ID, key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	value, found := c.cache.Get(cacheKey(id, key))
	if !found {
		return zero, false
	}
	v, ok := value.(V)
	if !ok {
		ctxlog.FromContext(ctx).Error("wrong type in cache", "id", id, "key", key)
		return zero, false
	}
	return v, true
}

// Set caches value for key in dictionary id.
func (c *Cache[V]) Set(_ context.Context, id identity.ID, key string, value V) {
	if c == nil {
		return
	}
	c.cache.Set(cacheKey(id, key), value, c.ttl)
}

// Purge removes every value cached for dictionary id.
func (c *Cache[V]) Purge(_ context.Context, id identity.ID) {
	if c == nil {
		return
	}
	prefix := string(id) + sep
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

// Flush removes every cached value.
func (c *Cache[V]) Flush() {
	if c == nil {
		return
	}
	c.cache.Flush()
}

// ReadThrough returns the cached value for key or calls fn and caches its
// result. Errors are not cached.
func (c *Cache[V]) ReadThrough(
	ctx context.Context,
	id identity.ID,
	key string,
	fn func(ctx context.Context) (V, error),
) (V, error) {
	if v, ok := c.Get(ctx, id, key); ok {
		ctxlog.FromContext(ctx).Debug("cache hit", "id", id, "key", key)
		return v, nil
	}
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	c.Set(ctx, id, key, v)
	return v, nil
}
