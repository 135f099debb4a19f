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

// Package cache defines the Spindle storage backend interface and provides
// general cache functionality
package cache

import (
	"errors"

	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/config"
)

// ErrKNF represents the error "key not found in cache"
var ErrKNF = errors.New("key not found in cache")

// Backend is the interface for the supported storage backends. It stores
// payload bytes and their Metadata atomically as one envelope per key and
// performs no interpretation of the payload. When making new backends,
// Retrieve() and Metadata() must return ErrKNF on cache miss, and disk
// read failures must be reported as misses rather than faults (fail open).
// Implementations are internally synchronized and safe for concurrent use.
type Backend interface {
	Connect() error
	Store(cacheKey string, data []byte, md entry.Metadata) error
	Retrieve(cacheKey string) ([]byte, error)
	Metadata(cacheKey string) (entry.Metadata, error)
	Remove(cacheKey string)
	BulkRemove(cacheKeys []string)
	Keys() []string
	Close() error
	Configuration() *config.CachingConfig
}
