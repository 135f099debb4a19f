/*
 * Copyright 2024 The Spindle Authors
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

// Package memory is the in-memory implementation of the Spindle Backend
// and uses a sync.Map to manage cache entries
package memory

import (
	"sync"

	"github.com/spindlecache/spindle/pkg/cache"
	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
)

// Cache implements the cache.Backend interface
var _ cache.Backend = &Cache{}

// Cache defines an in-memory cache that conforms to the Backend interface
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *logging.Logger
	client sync.Map
}

// New returns a new memory cache as a Spindle Backend
func New(name string, cfg *config.CachingConfig, lg *logging.Logger) *Cache {
	if cfg == nil {
		cfg = config.NewCachingConfig(name)
	}
	return &Cache{Name: name, Config: cfg, Logger: lg}
}

// Configuration returns the Configuration for the Cache object
func (c *Cache) Configuration() *config.CachingConfig {
	return c.Config
}

// Connect initializes the Cache
func (c *Cache) Connect() error {
	c.Logger.Info("memory cache setup", logging.Pairs{"name": c.Name})
	return nil
}

// Store places an envelope in the cache using the specified key; a nil data
// slice removes any existing entry
func (c *Cache) Store(cacheKey string, data []byte, md entry.Metadata) error {
	if data == nil {
		c.Remove(cacheKey)
		return nil
	}
	cache.ObserveCacheOperation(c.Name, c.Config.Provider, "set", "none", float64(len(data)))
	c.client.Store(cacheKey, &entry.Entry{Metadata: md, Value: data})
	return nil
}

// Retrieve looks up the payload bytes for the provided key
func (c *Cache) Retrieve(cacheKey string) ([]byte, error) {
	record, ok := c.client.Load(cacheKey)
	if !ok {
		cache.ObserveCacheMiss(c.Name, c.Config.Provider)
		return nil, cache.ErrKNF
	}
	e := record.(*entry.Entry)
	cache.ObserveCacheOperation(c.Name, c.Config.Provider, "get", "hit", float64(len(e.Value)))
	return e.Value, nil
}

// Metadata looks up the write-time metadata for the provided key
func (c *Cache) Metadata(cacheKey string) (entry.Metadata, error) {
	record, ok := c.client.Load(cacheKey)
	if !ok {
		return entry.Metadata{}, cache.ErrKNF
	}
	return record.(*entry.Entry).Metadata, nil
}

// Remove removes an entry from the cache, if present
func (c *Cache) Remove(cacheKey string) {
	c.client.Delete(cacheKey)
	cache.ObserveCacheDel(c.Name, c.Config.Provider, 0)
}

// BulkRemove removes a list of entries from the cache
func (c *Cache) BulkRemove(cacheKeys []string) {
	for _, k := range cacheKeys {
		c.client.Delete(k)
		cache.ObserveCacheDel(c.Name, c.Config.Provider, 0)
	}
}

// Keys returns the keys of all entries currently held in the cache
func (c *Cache) Keys() []string {
	keys := make([]string, 0)
	c.client.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}

// Close drops all entries held in the cache
func (c *Cache) Close() error {
	c.client.Range(func(k, _ any) bool {
		c.client.Delete(k)
		return true
	})
	return nil
}
