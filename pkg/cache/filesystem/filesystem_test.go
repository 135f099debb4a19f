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

package filesystem

import (
	"bytes"
	"os"
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

func newCache(t *testing.T, compression bool) *Cache {
	cfg := config.NewCachingConfig("test")
	cfg.Provider = "filesystem"
	cfg.Compression = compression
	cfg.Filesystem.CachePath = t.TempDir()
	fc := New("test", cfg, logging.ConsoleLogger("error"))
	if err := fc.Connect(); err != nil {
		t.Fatal(err)
	}
	return fc
}

func TestFilesystemCache_ConnectFailure(t *testing.T) {
	// a plain file where the cache directory should be makes MkdirAll fail
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte(""), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.NewCachingConfig("test")
	cfg.Filesystem.CachePath = blocker
	fc := New("test", cfg, logging.ConsoleLogger("error"))
	if err := fc.Connect(); err == nil {
		t.Error("expected connect failure for unwritable path")
	}
}

func TestFilesystemCache_StoreRetrieve(t *testing.T) {
	for _, compression := range []bool{false, true} {
		fc := newCache(t, compression)

		err := fc.Store(cacheKey, []byte("data"), entry.NewMetadata(time.Minute))
		if err != nil {
			t.Error(err)
		}

		data, err := fc.Retrieve(cacheKey)
		if err != nil {
			t.Error(err)
		}
		if !bytes.Equal(data, []byte("data")) {
			t.Errorf("expected %q got %q", "data", data)
		}

		md, err := fc.Metadata(cacheKey)
		if err != nil {
			t.Error(err)
		}
		if md.Lifespan != time.Minute {
			t.Errorf("expected lifespan %d got %d", time.Minute, md.Lifespan)
		}
	}
}

func TestFilesystemCache_EmptyKey(t *testing.T) {
	fc := newCache(t, false)
	if err := fc.Store("", []byte("data"), entry.NewMetadata(time.Minute)); err == nil {
		t.Error("expected error for empty cacheKey")
	}
}

func TestFilesystemCache_FailOpen(t *testing.T) {
	fc := newCache(t, false)

	// a missing file reads as a miss
	if _, err := fc.Retrieve("absent"); err != cache.ErrKNF {
		t.Errorf("expected %v got %v", cache.ErrKNF, err)
	}

	// a file that does not decode as an envelope also reads as a miss
	if err := os.WriteFile(fc.getFileName(cacheKey), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := fc.Retrieve(cacheKey); err != cache.ErrKNF {
		t.Errorf("expected %v got %v", cache.ErrKNF, err)
	}
	if _, err := fc.Metadata(cacheKey); err != cache.ErrKNF {
		t.Errorf("expected %v got %v", cache.ErrKNF, err)
	}
}

func TestFilesystemCache_Keys(t *testing.T) {
	fc := newCache(t, false)
	md := entry.NewMetadata(time.Minute)

	// keys containing path characters must survive the filename round trip
	stored := []string{"plain", "artwork/low-res/wxyc", "dotted.key", "tilde~key", "literal~1escape"}
	for _, k := range stored {
		if err := fc.Store(k, []byte("x"), md); err != nil {
			t.Fatal(err)
		}
	}

	keys := fc.Keys()
	if len(keys) != len(stored) {
		t.Fatalf("expected %d keys got %d", len(stored), len(keys))
	}
	found := make(map[string]bool)
	for _, k := range keys {
		found[k] = true
	}
	for _, k := range stored {
		if !found[k] {
			t.Errorf("expected key %q in enumeration", k)
		}
	}
}

func TestFilesystemCache_NoKeyCollision(t *testing.T) {
	fc := newCache(t, false)
	md := entry.NewMetadata(time.Minute)

	// "a/b" and "a~1b" must map to distinct files
	if err := fc.Store("a/b", []byte("slash"), md); err != nil {
		t.Fatal(err)
	}
	if err := fc.Store("a~1b", []byte("tilde"), md); err != nil {
		t.Fatal(err)
	}

	data, err := fc.Retrieve("a/b")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("slash")) {
		t.Errorf("expected %q got %q", "slash", data)
	}
	data, err = fc.Retrieve("a~1b")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("tilde")) {
		t.Errorf("expected %q got %q", "tilde", data)
	}

	if keys := fc.Keys(); len(keys) != 2 {
		t.Errorf("expected 2 keys got %d: %v", len(keys), keys)
	}
}

func TestFilesystemCache_Remove(t *testing.T) {
	fc := newCache(t, false)
	md := entry.NewMetadata(time.Minute)
	fc.Store("key1", []byte("1"), md)
	fc.Store("key2", []byte("2"), md)

	fc.Remove("key1")
	if _, err := fc.Retrieve("key1"); err != cache.ErrKNF {
		t.Errorf("expected %v got %v", cache.ErrKNF, err)
	}

	// a nil data slice removes the entry
	fc.Store("key2", nil, md)
	if _, err := fc.Retrieve("key2"); err != cache.ErrKNF {
		t.Errorf("expected %v got %v", cache.ErrKNF, err)
	}
}
