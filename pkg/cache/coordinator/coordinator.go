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

// Package coordinator provides the typed, single-writer policy layer over a
// storage Backend. A Coordinator owns the JSON encode/decode of caller
// values, enforces TTL expiry on read, and purges expired or corrupt
// entries once at construction. All public operations on one Coordinator
// execute one at a time on a single command-queue goroutine, so no read
// ever observes a half-written entry and no two writes interleave their
// backend calls.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spindlecache/spindle/pkg/cache"
	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/logging"
)

// ErrNoCachedResult represents a cache miss: the key is absent or its entry
// has expired. Callers should respond by fetching fresh data.
var ErrNoCachedResult = errors.New("no cached result")

// ErrClosed is returned for operations submitted after Close
var ErrClosed = errors.New("coordinator is closed")

type operation struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	errc chan error
}

// Coordinator serializes typed access to a single storage Backend. One
// Coordinator per physical store is the supported configuration; two
// Coordinators over the same store fall back to the backend's own
// synchronization for atomicity.
type Coordinator struct {
	name      string
	backend   cache.Backend
	logger    *logging.Logger
	ops       chan *operation
	quit      chan struct{}
	closeOnce sync.Once
}

// New returns a Coordinator over the provided Backend and starts its
// command queue. A purge of expired and corrupt entries is enqueued ahead
// of any caller-submitted operation and runs asynchronously.
func New(name string, b cache.Backend, lg *logging.Logger) *Coordinator {
	c := &Coordinator{
		name:    name,
		backend: b,
		logger:  lg,
		ops:     make(chan *operation, 16),
		quit:    make(chan struct{}),
	}
	go c.run()
	c.ops <- &operation{
		ctx:  context.Background(),
		fn:   c.purgeExpiredEntries,
		errc: make(chan error, 1),
	}
	return c
}

func (c *Coordinator) run() {
	for {
		select {
		case op := <-c.ops:
			if err := op.ctx.Err(); err != nil {
				op.errc <- err
				continue
			}
			op.errc <- op.fn(op.ctx)
		case <-c.quit:
			return
		}
	}
}

// submit enqueues fn on the command queue and blocks until it has executed.
// Cancellation before execution is honored; once fn begins it runs to
// completion so the backend is never left mid-write.
func (c *Coordinator) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	op := &operation{ctx: ctx, fn: fn, errc: make(chan error, 1)}
	select {
	case c.ops <- op:
	case <-c.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-op.errc:
		return err
	case <-c.quit:
		return ErrClosed
	}
}

// Fetch retrieves the live entry for the provided key and decodes it into
// dst, which must be a non-nil pointer. An absent or expired entry yields
// ErrNoCachedResult; expiry also removes the physical entry. A payload that
// fails to decode yields the decode error and the entry is retained: the
// bytes may be valid for a different requested type, and decode failures
// are only cleaned up by the construction-time purge or explicit removal.
func (c *Coordinator) Fetch(ctx context.Context, key string, dst any) error {
	return c.submit(ctx, func(ctx context.Context) error {
		md, err := c.backend.Metadata(key)
		if err != nil {
			return ErrNoCachedResult
		}
		if md.IsExpired(time.Now()) {
			c.backend.Remove(key)
			cache.ObserveCacheEvent(c.name, c.backend.Configuration().Provider, "eviction", "ttl")
			c.logger.Debug("expired cache entry removed on read", logging.Pairs{"cacheName": c.name, "key": key})
			return ErrNoCachedResult
		}
		data, err := c.backend.Retrieve(key)
		if err != nil {
			return ErrNoCachedResult
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("cached value for key [%s] failed to decode: %w", key, err)
		}
		return nil
	})
}

// Store encodes value and writes it with fresh metadata for the provided
// key, unconditionally superseding any prior entry. A nil value removes the
// entry instead.
func (c *Coordinator) Store(ctx context.Context, key string, value any, lifespan time.Duration) error {
	return c.submit(ctx, func(ctx context.Context) error {
		if value == nil {
			c.backend.Remove(key)
			return nil
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("value for key [%s] failed to encode: %w", key, err)
		}
		return c.backend.Store(key, data, entry.NewMetadata(lifespan))
	})
}

// Delete removes the entry for the provided key unconditionally
func (c *Coordinator) Delete(ctx context.Context, key string) error {
	return c.submit(ctx, func(ctx context.Context) error {
		c.backend.Remove(key)
		return nil
	})
}

// Close stops the command queue. Operations submitted after Close return
// ErrClosed. The underlying Backend is not closed; its owner closes it.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	return nil
}

// purgeExpiredEntries sweeps the backend once, removing every entry whose
// metadata is expired or whose stored envelope no longer decodes. This is
// the only place corrupt entries are cleaned up; regular reads deliberately
// do not self-heal.
func (c *Coordinator) purgeExpiredEntries(_ context.Context) error {
	now := time.Now()
	var expired, corrupt []string
	for _, key := range c.backend.Keys() {
		md, err := c.backend.Metadata(key)
		if err != nil {
			corrupt = append(corrupt, key)
			continue
		}
		if md.IsExpired(now) {
			expired = append(expired, key)
		}
	}
	provider := c.backend.Configuration().Provider
	if len(expired) > 0 {
		c.backend.BulkRemove(expired)
		cache.ObserveCacheEvent(c.name, provider, "purge", "ttl")
	}
	if len(corrupt) > 0 {
		c.backend.BulkRemove(corrupt)
		cache.ObserveCacheEvent(c.name, provider, "purge", "corrupt")
	}
	c.logger.Info("cache purge complete", logging.Pairs{
		"cacheName": c.name, "expired": len(expired), "corrupt": len(corrupt)})
	return nil
}

// Value retrieves and decodes the live entry for the provided key as a T
func Value[T any](ctx context.Context, c *Coordinator, key string) (T, error) {
	var v T
	err := c.Fetch(ctx, key, &v)
	return v, err
}

// Set encodes value and stores it for the provided key with the provided lifespan
func Set[T any](ctx context.Context, c *Coordinator, key string, value T, lifespan time.Duration) error {
	return c.Store(ctx, key, value, lifespan)
}
