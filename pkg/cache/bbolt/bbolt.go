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

// Package bbolt is the bbolt implementation of the Spindle Backend: a
// single-file key value store in the role the platform preference store
// plays on the client
package bbolt

import (
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/spindlecache/spindle/pkg/cache"
	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
)

// Cache implements the cache.Backend interface
var _ cache.Backend = &Cache{}

// Cache describes a BBolt Cache
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *logging.Logger
	dbh    *bbolt.DB
}

// New returns a new bbolt cache as a Spindle Backend
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

// Connect opens the configured bbolt database and ensures the bucket exists
func (c *Cache) Connect() error {
	c.Logger.Info("bbolt cache setup", logging.Pairs{"cacheFile": c.Config.BBolt.Filename})

	var err error
	c.dbh, err = bbolt.Open(c.Config.BBolt.Filename, 0o644, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}

	return c.dbh.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(c.Config.BBolt.Bucket)); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return nil
	})
}

// Store writes the envelope for the provided key into the bucket; a nil
// data slice removes the entry
func (c *Cache) Store(cacheKey string, data []byte, md entry.Metadata) error {
	if data == nil {
		c.Remove(cacheKey)
		return nil
	}
	b := cache.EncodeEnvelope(c.Config, &entry.Entry{Metadata: md, Value: data})
	err := c.dbh.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(c.Config.BBolt.Bucket)).Put([]byte(cacheKey), b)
	})
	if err != nil {
		return err
	}
	cache.ObserveCacheOperation(c.Name, c.Config.Provider, "set", "none", float64(len(data)))
	c.Logger.Debug("bbolt cache store", logging.Pairs{"key": cacheKey})
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
	err := c.dbh.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(c.Config.BBolt.Bucket)).Get([]byte(cacheKey))
		if v == nil {
			return cache.ErrKNF
		}
		raw = make([]byte, len(v))
		copy(raw, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cache.DecodeEnvelope(c.Config, raw)
}

// Remove removes an entry from the cache, if present
func (c *Cache) Remove(cacheKey string) {
	c.dbh.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(c.Config.BBolt.Bucket)).Delete([]byte(cacheKey))
	})
	cache.ObserveCacheDel(c.Name, c.Config.Provider, 0)
}

// BulkRemove removes a list of entries from the cache
func (c *Cache) BulkRemove(cacheKeys []string) {
	c.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		for _, key := range cacheKeys {
			if err := b.Delete([]byte(key)); err != nil {
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
	c.dbh.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(c.Config.BBolt.Bucket)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys
}

// Close closes the bbolt database handle
func (c *Cache) Close() error {
	return c.dbh.Close()
}
