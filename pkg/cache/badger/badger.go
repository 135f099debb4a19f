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

// Package badger is the badger implementation of the Spindle Backend.
// Badger is handed the entry lifespan as a native TTL where one is finite,
// so the store may reclaim expired records on its own in addition to the
// coordinator's purge.
package badger

import (
	"github.com/dgraph-io/badger"

	"github.com/spindlecache/spindle/pkg/cache"
	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
)

// Cache implements the cache.Backend interface
var _ cache.Backend = &Cache{}

// Cache describes a Badger Cache
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *logging.Logger
	dbh    *badger.DB
}

// New returns a new badger cache as a Spindle Backend
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

// Connect opens the configured Badger key-value store
func (c *Cache) Connect() error {
	c.Logger.Info("badger cache setup", logging.Pairs{"cacheDir": c.Config.Badger.Directory})

	opts := badger.DefaultOptions(c.Config.Badger.Directory)
	opts.ValueDir = c.Config.Badger.ValueDirectory
	opts.Logger = nil

	var err error
	c.dbh, err = badger.Open(opts)
	return err
}

// Store writes the envelope for the provided key; a nil data slice removes
// the entry
func (c *Cache) Store(cacheKey string, data []byte, md entry.Metadata) error {
	if data == nil {
		c.Remove(cacheKey)
		return nil
	}
	b := cache.EncodeEnvelope(c.Config, &entry.Entry{Metadata: md, Value: data})
	err := c.dbh.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(cacheKey), b)
		if md.Lifespan > 0 && md.Lifespan != entry.NeverExpires {
			e = e.WithTTL(md.Lifespan)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return err
	}
	cache.ObserveCacheOperation(c.Name, c.Config.Provider, "set", "none", float64(len(data)))
	c.Logger.Debug("badger cache store", logging.Pairs{"key": cacheKey, "lifespan": md.Lifespan})
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
	var raw []byte
	err := c.dbh.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cache.DecodeEnvelope(c.Config, raw)
}

// Remove removes an entry from the cache, if present
func (c *Cache) Remove(cacheKey string) {
	c.dbh.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(cacheKey))
	})
	cache.ObserveCacheDel(c.Name, c.Config.Provider, 0)
}

// BulkRemove removes a list of entries from the cache
func (c *Cache) BulkRemove(cacheKeys []string) {
	c.dbh.Update(func(txn *badger.Txn) error {
		for _, key := range cacheKeys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
			cache.ObserveCacheDel(c.Name, c.Config.Provider, 0)
		}
		return nil
	})
}

// Keys returns the keys of all entries currently held in the cache
func (c *Cache) Keys() []string {
	keys := make([]string, 0)
	c.dbh.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys
}

// Close closes the badger database handle
func (c *Cache) Close() error {
	return c.dbh.Close()
}
