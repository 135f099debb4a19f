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

package bbolt

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spindlecache/spindle/pkg/cache"
	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
	"github.com/spindlecache/spindle/pkg/metrics"
)

func init() {
	metrics.Init()
}

const cacheKey = "cacheKey"

func newCacheConfig(t *testing.T) *config.CachingConfig {
	cfg := config.NewCachingConfig("test")
	cfg.Provider = "bbolt"
	cfg.BBolt.Filename = filepath.Join(t.TempDir(), "spindle.db")
	return cfg
}

func TestBBoltCache_StoreRetrieve(t *testing.T) {
	bc := New("test", newCacheConfig(t), logging.ConsoleLogger("error"))
	if err := bc.Connect(); err != nil {
		t.Fatal(err)
	}
	defer bc.Close()

	if err := bc.Store(cacheKey, []byte("data"), entry.NewMetadata(time.Minute)); err != nil {
		t.Error(err)
	}

	data, err := bc.Retrieve(cacheKey)
	if err != nil {
		t.Error(err)
	}
	if !bytes.Equal(data, []byte("data")) {
		t.Errorf("expected %q got %q", "data", data)
	}

	md, err := bc.Metadata(cacheKey)
	if err != nil {
		t.Error(err)
	}
	if md.Lifespan != time.Minute {
		t.Errorf("expected lifespan %d got %d", time.Minute, md.Lifespan)
	}

	if _, err := bc.Retrieve("absent"); err != cache.ErrKNF {
		t.Errorf("expected %v got %v", cache.ErrKNF, err)
	}
}

func TestBBoltCache_Persistence(t *testing.T) {
	cfg := newCacheConfig(t)
	bc := New("test", cfg, logging.ConsoleLogger("error"))
	if err := bc.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := bc.Store(cacheKey, []byte("data"), entry.NewMetadata(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := bc.Close(); err != nil {
		t.Fatal(err)
	}

	// entries survive a close and reopen of the database file
	bc = New("test", cfg, logging.ConsoleLogger("error"))
	if err := bc.Connect(); err != nil {
		t.Fatal(err)
	}
	defer bc.Close()
	data, err := bc.Retrieve(cacheKey)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("data")) {
		t.Errorf("expected %q got %q", "data", data)
	}
}

func TestBBoltCache_RemoveAndKeys(t *testing.T) {
	bc := New("test", newCacheConfig(t), logging.ConsoleLogger("error"))
	if err := bc.Connect(); err != nil {
		t.Fatal(err)
	}
	defer bc.Close()

	md := entry.NewMetadata(time.Minute)
	bc.Store("key1", []byte("1"), md)
	bc.Store("key2", []byte("2"), md)

	if keys := bc.Keys(); len(keys) != 2 {
		t.Errorf("expected 2 keys got %d", len(keys))
	}

	bc.Remove("key1")
	if _, err := bc.Retrieve("key1"); err != cache.ErrKNF {
		t.Errorf("expected %v got %v", cache.ErrKNF, err)
	}

	bc.Store("key2", nil, md)
	if keys := bc.Keys(); len(keys) != 0 {
		t.Errorf("expected 0 keys got %d", len(keys))
	}
}
