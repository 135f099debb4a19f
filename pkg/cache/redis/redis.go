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

// Package redis is the redis implementation of the Spindle Backend and
// supports Standard, Sentinel and Cluster client types. Like badger, redis
// is handed finite lifespans as native TTLs and may evict on its own.
package redis

import (
	"github.com/go-redis/redis"

	"github.com/spindlecache/spindle/pkg/cache"
	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
)

// Cache implements the cache.Backend interface
var _ cache.Backend = &Cache{}

// Client types
const (
	clientTypeStandard = "standard"
	clientTypeSentinel = "sentinel"
	clientTypeCluster  = "cluster"
)

// Cache represents a redis cache client that conforms to the Backend interface
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *logging.Logger
	client redis.Cmdable
	closer func() error
}

// New returns a new redis cache as a Spindle Backend
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

// Connect connects to the configured Redis endpoint
func (c *Cache) Connect() error {
	c.Logger.Info("connecting to redis", logging.Pairs{
		"clientType": c.Config.Redis.ClientType, "protocol": c.Config.Redis.Protocol,
		"endpoint": c.Config.Redis.Endpoint})

	switch c.Config.Redis.ClientType {
	case clientTypeSentinel:
		client := redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    c.Config.Redis.SentinelMaster,
			SentinelAddrs: c.Config.Redis.Endpoints,
			Password:      c.Config.Redis.Password,
			DB:            c.Config.Redis.DB,
		})
		c.client = client
		c.closer = client.Close
	case clientTypeCluster:
		client := redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    c.Config.Redis.Endpoints,
			Password: c.Config.Redis.Password,
		})
		c.client = client
		c.closer = client.Close
	default:
		client := redis.NewClient(&redis.Options{
			Network:  c.Config.Redis.Protocol,
			Addr:     c.Config.Redis.Endpoint,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		c.client = client
		c.closer = client.Close
	}
	return c.client.Ping().Err()
}

// Store writes the envelope for the provided key; a nil data slice removes
// the entry
func (c *Cache) Store(cacheKey string, data []byte, md entry.Metadata) error {
	if data == nil {
		c.Remove(cacheKey)
		return nil
	}
	b := cache.EncodeEnvelope(c.Config, &entry.Entry{Metadata: md, Value: data})
	var ttl = md.Lifespan
	if ttl < 0 || ttl == entry.NeverExpires {
		ttl = 0 // redis treats 0 as no expiration
	}
	if err := c.client.Set(cacheKey, b, ttl).Err(); err != nil {
		return err
	}
	cache.ObserveCacheOperation(c.Name, c.Config.Provider, "set", "none", float64(len(data)))
	c.Logger.Debug("redis cache store", logging.Pairs{"key": cacheKey})
	return nil
}

// Retrieve looks up the payload bytes for the provided key
func (c *Cache) Retrieve(cacheKey string) ([]byte, error) {
	e, err := c.retrieveEntry(cacheKey)
	if err != nil {
		cache.ObserveCacheMiss(c.Name, c.Config.Provider)
		return nil, cache.ErrKNF
	}
	cache.ObserveCacheOperation(c.Name, c.Config.Provider, "get", "hit", float64(len(e.Value)))
	return e.Value, nil
}

// Metadata looks up the write-time metadata for the provided key
func (c *Cache) Metadata(cacheKey string) (entry.Metadata, error) {
	e, err := c.retrieveEntry(cacheKey)
	if err != nil {
		return entry.Metadata{}, cache.ErrKNF
	}
	return e.Metadata, nil
}

func (c *Cache) retrieveEntry(cacheKey string) (*entry.Entry, error) {
	raw, err := c.client.Get(cacheKey).Bytes()
	if err != nil {
		return nil, err
	}
	return cache.DecodeEnvelope(c.Config, raw)
}

// Remove removes an entry from the cache, if present
func (c *Cache) Remove(cacheKey string) {
	c.client.Del(cacheKey)
	cache.ObserveCacheDel(c.Name, c.Config.Provider, 0)
}

// BulkRemove removes a list of entries from the cache
func (c *Cache) BulkRemove(cacheKeys []string) {
	c.client.Del(cacheKeys...)
	cache.ObserveCacheDel(c.Name, c.Config.Provider, float64(len(cacheKeys)))
}

// Keys returns the keys of all entries currently held in the cache
func (c *Cache) Keys() []string {
	keys, err := c.client.Keys("*").Result()
	if err != nil {
		return nil
	}
	return keys
}

// Close disconnects from the Redis endpoint
func (c *Cache) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}
