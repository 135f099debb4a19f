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

// Package filesystem is the on-disk implementation of the Spindle Backend,
// storing one envelope file per key. File reads that fail for any reason
// are reported as cache misses rather than faults.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spindlecache/spindle/pkg/cache"
	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/locks"
	"github.com/spindlecache/spindle/pkg/logging"
)

// Cache implements the cache.Backend interface
var _ cache.Backend = &Cache{}

const dataSuffix = ".data"

// the escape character is escaped first so the mapping is injective: a
// literal "~1" in a key encodes as "~01" and cannot collide with "/"
var fileEncoder = strings.NewReplacer("~", "~0", "/", "~1", "\\", "~2", "..", "~3", ".", "~4")
var fileDecoder = strings.NewReplacer("~0", "~", "~1", "/", "~2", "\\", "~3", "..", "~4", ".")

// Cache describes a Filesystem Cache
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *logging.Logger
	locker locks.NamedLocker
}

// New returns a new filesystem cache as a Spindle Backend
func New(name string, cfg *config.CachingConfig, lg *logging.Logger) *Cache {
	if cfg == nil {
		cfg = config.NewCachingConfig(name)
	}
	return &Cache{Name: name, Config: cfg, Logger: lg, locker: locks.NewNamedLocker()}
}

// Configuration returns the Configuration for the Cache object
func (c *Cache) Configuration() *config.CachingConfig {
	return c.Config
}

// Connect creates the cache directory and verifies it is writeable
func (c *Cache) Connect() error {
	c.Logger.Info("filesystem cache setup", logging.Pairs{"cachePath": c.Config.Filesystem.CachePath})
	if c.locker == nil {
		c.locker = locks.NewNamedLocker()
	}
	return makeDirectory(c.Config.Filesystem.CachePath)
}

// Store writes the envelope for the provided key to its data file; a nil
// data slice removes the entry
func (c *Cache) Store(cacheKey string, data []byte, md entry.Metadata) error {
	if cacheKey == "" {
		return fmt.Errorf("cacheKey required")
	}
	if data == nil {
		c.Remove(cacheKey)
		return nil
	}
	b := cache.EncodeEnvelope(c.Config, &entry.Entry{Metadata: md, Value: data})
	nl, _ := c.locker.Acquire(cacheKey)
	err := os.WriteFile(c.getFileName(cacheKey), b, 0o644)
	nl.Release()
	if err != nil {
		return err
	}
	cache.ObserveCacheOperation(c.Name, c.Config.Provider, "set", "none", float64(len(data)))
	c.Logger.Debug("filesystem cache store", logging.Pairs{"key": cacheKey})
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
	nl, _ := c.locker.RAcquire(cacheKey)
	data, err := os.ReadFile(c.getFileName(cacheKey))
	nl.RRelease()
	if err != nil {
		return nil, err
	}
	return cache.DecodeEnvelope(c.Config, data)
}

// Remove removes an entry from the cache, if present
func (c *Cache) Remove(cacheKey string) {
	nl, _ := c.locker.Acquire(cacheKey)
	os.Remove(c.getFileName(cacheKey))
	nl.Release()
	cache.ObserveCacheDel(c.Name, c.Config.Provider, 0)
}

// BulkRemove removes a list of entries from the cache
func (c *Cache) BulkRemove(cacheKeys []string) {
	for _, cacheKey := range cacheKeys {
		c.Remove(cacheKey)
	}
}

// Keys returns the keys of all entries currently held in the cache
func (c *Cache) Keys() []string {
	files, err := os.ReadDir(c.Config.Filesystem.CachePath)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, dataSuffix) {
			continue
		}
		keys = append(keys, fileDecoder.Replace(strings.TrimSuffix(name, dataSuffix)))
	}
	return keys
}

// Close is not used for the filesystem cache
func (c *Cache) Close() error {
	return nil
}

func (c *Cache) getFileName(cacheKey string) string {
	return filepath.Join(c.Config.Filesystem.CachePath, fileEncoder.Replace(cacheKey)+dataSuffix)
}

// makeDirectory creates a directory on the filesystem and returns the error in the event of a failure
func makeDirectory(path string) error {
	err := os.MkdirAll(path, 0o755)
	if err == nil {
		// verify writability by attempting to touch a test file in the cache path
		tf := filepath.Join(path, ".test."+strconv.FormatInt(time.Now().Unix(), 10))
		err = os.WriteFile(tf, []byte(""), 0o600)
		if err == nil {
			os.Remove(tf)
		}
	}
	if err != nil {
		return fmt.Errorf("[%s] directory is not writeable by spindle: %w", path, err)
	}
	return nil
}
