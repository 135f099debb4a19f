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

// Package registry maps configured cache providers to connected Backends
package registry

import (
	"github.com/spindlecache/spindle/pkg/cache"
	"github.com/spindlecache/spindle/pkg/cache/badger"
	"github.com/spindlecache/spindle/pkg/cache/bbolt"
	"github.com/spindlecache/spindle/pkg/cache/filesystem"
	"github.com/spindlecache/spindle/pkg/cache/memory"
	"github.com/spindlecache/spindle/pkg/cache/redis"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
)

// Cache provider names
const (
	Memory     = "memory"
	Filesystem = "filesystem"
	BBolt      = "bbolt"
	Badger     = "badger"
	Redis      = "redis"
)

// NewBackend returns a connected Backend for the provided CachingConfig
func NewBackend(cfg *config.CachingConfig, lg *logging.Logger) (cache.Backend, error) {
	var c cache.Backend
	switch cfg.Provider {
	case Filesystem:
		c = filesystem.New(cfg.Name, cfg, lg)
	case BBolt:
		c = bbolt.New(cfg.Name, cfg, lg)
	case Badger:
		c = badger.New(cfg.Name, cfg, lg)
	case Redis:
		c = redis.New(cfg.Name, cfg, lg)
	default:
		c = memory.New(cfg.Name, cfg, lg)
	}
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCachesFromConfig connects a Backend for each configured cache
func LoadCachesFromConfig(conf *config.Config, lg *logging.Logger) (map[string]cache.Backend, error) {
	caches := make(map[string]cache.Backend)
	for name, cfg := range conf.Caches {
		c, err := NewBackend(cfg, lg)
		if err != nil {
			for _, connected := range caches {
				connected.Close()
			}
			return nil, err
		}
		caches[name] = c
	}
	return caches, nil
}
