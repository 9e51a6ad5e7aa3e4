/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cache provides the in-memory store behind result caching advice.
// Expired entries are invisible to readers immediately and are physically removed
// by DeleteExpired, which callers schedule themselves.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache is a key/value store with per entry expiration.
type Cache interface {
	// Set stores value under key. A ttl <= 0 means the entry never expires.
	Set(key string, value interface{}, ttl time.Duration)
	// Get returns the value and whether a live entry was found.
	Get(key string) (interface{}, bool)
	Has(key string) bool
	Delete(key string)
	// DeleteByPrefix removes all entries whose key starts with prefix.
	DeleteByPrefix(prefix string)
}

// MemoryCache is an in-memory cache implementation.
// It stores key-value pairs with optional expiration.
type MemoryCache struct {
	items map[string]item
	mu    sync.RWMutex
	now   func() time.Time
}

// item represents a cached item with its value and expiration time.
// The expiration time is stored as Unix nano timestamp (int64).
// If expiration is 0, the item will never expire.
type item struct {
	value      interface{}
	expiration int64
}

func (it item) expired(now int64) bool {
	return it.expiration > 0 && now > it.expiration
}

// NewMemoryCache creates a new empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]item),
		now:   time.Now,
	}
}

func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	var expiration int64
	if ttl > 0 {
		expiration = c.now().Add(ttl).UnixNano()
	}
	c.mu.Lock()
	c.items[key] = item{value: value, expiration: expiration}
	c.mu.Unlock()
}

func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, found := c.items[key]
	if !found || it.expired(c.now().UnixNano()) {
		return nil, false
	}
	return it.value, true
}

func (c *MemoryCache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *MemoryCache) DeleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
}

// Len returns the number of stored entries, including expired ones not yet removed.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// DeleteExpired removes all expired items and returns how many were removed.
// Expired keys are collected under a read lock first, then deleted in batches,
// re-checking each one because it may have been refreshed in between.
func (c *MemoryCache) DeleteExpired() int {
	now := c.now().UnixNano()

	c.mu.RLock()
	var expiredKeys []string
	for k, v := range c.items {
		if v.expired(now) {
			expiredKeys = append(expiredKeys, k)
		}
	}
	c.mu.RUnlock()

	const batchSize = 300
	removed := 0
	for i := 0; i < len(expiredKeys); i += batchSize {
		end := i + batchSize
		if end > len(expiredKeys) {
			end = len(expiredKeys)
		}
		c.mu.Lock()
		for _, k := range expiredKeys[i:end] {
			if it, found := c.items[k]; found && it.expired(now) {
				delete(c.items, k)
				removed++
			}
		}
		c.mu.Unlock()
	}
	return removed
}

// NamespaceCache prepends all keys in the underlying cache with a namespace, so
// several aspects can share one store without key collisions.
type NamespaceCache struct {
	Cache     Cache  // 底层缓存实现
	Namespace string // 命名空间前缀
}

// NewNamespaceCache creates a new namespace-based cache instance.
// It returns nil if cache is nil.
func NewNamespaceCache(cache Cache, namespace string) *NamespaceCache {
	if cache == nil {
		return nil
	}
	return &NamespaceCache{Cache: cache, Namespace: namespace}
}

func (c *NamespaceCache) Set(key string, value interface{}, ttl time.Duration) {
	c.Cache.Set(c.Namespace+key, value, ttl)
}

func (c *NamespaceCache) Get(key string) (interface{}, bool) {
	return c.Cache.Get(c.Namespace + key)
}

func (c *NamespaceCache) Has(key string) bool {
	return c.Cache.Has(c.Namespace + key)
}

func (c *NamespaceCache) Delete(key string) {
	c.Cache.Delete(c.Namespace + key)
}

func (c *NamespaceCache) DeleteByPrefix(prefix string) {
	c.Cache.DeleteByPrefix(c.Namespace + prefix)
}

// Clear removes every entry of the namespace.
func (c *NamespaceCache) Clear() {
	c.Cache.DeleteByPrefix(c.Namespace)
}

var _ Cache = (*NamespaceCache)(nil)
var _ Cache = (*MemoryCache)(nil)
