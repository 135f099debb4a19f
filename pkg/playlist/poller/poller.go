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

// Package poller maintains exactly one background playlist polling loop per
// Service regardless of how many observers are attached, and broadcasts
// each distinct fetched snapshot to all of them. The loop starts lazily on
// the first observer attach and is cancelled when the last observer
// detaches.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/spindlecache/spindle/pkg/cache/coordinator"
	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
	"github.com/spindlecache/spindle/pkg/metrics"
	"github.com/spindlecache/spindle/pkg/playlist"
)

// subscriberBuffer is the per-observer channel depth; a slower observer
// drops snapshots rather than stalling the broadcast
const subscriberBuffer = 16

// Service is the playlist poll-and-broadcast service
type Service struct {
	fetcher  playlist.Fetcher
	interval time.Duration
	logger   *logging.Logger

	// optional write-through of snapshots to a cache coordinator
	cache    *coordinator.Coordinator
	cacheKey string
	lifespan time.Duration

	mtx         sync.Mutex
	subscribers map[uint64]chan *playlist.Playlist
	nextID      uint64
	current     *playlist.Playlist
	cancel      context.CancelFunc
	done        chan struct{}
}

// Subscription is one observer's attachment to a Service. Snapshots are
// delivered on C; Cancel detaches the observer and closes C.
type Subscription struct {
	C    <-chan *playlist.Playlist
	id   uint64
	svc  *Service
	once sync.Once
}

// New returns a Service polling with the provided fetcher per the provided
// configuration. When co is non-nil, snapshots are read from and written
// through the coordinator under cfg.CacheKey.
func New(f playlist.Fetcher, cfg *config.PlaylistConfig, co *coordinator.Coordinator, lg *logging.Logger) *Service {
	lifespan := time.Duration(cfg.LifespanSecs) * time.Second
	if cfg.LifespanSecs < 0 {
		lifespan = entry.NeverExpires
	}
	return &Service{
		fetcher:     f,
		interval:    time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		logger:      lg,
		cache:       co,
		cacheKey:    cfg.CacheKey,
		lifespan:    lifespan,
		subscribers: make(map[uint64]chan *playlist.Playlist),
	}
}

// Subscribe attaches a new observer. The first attach starts the polling
// loop; an observer attaching while a snapshot is already held receives it
// immediately.
func (s *Service) Subscribe() *Subscription {
	s.mtx.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan *playlist.Playlist, subscriberBuffer)
	s.subscribers[id] = ch
	if s.current != nil {
		ch <- s.current
	}
	if len(s.subscribers) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.run(ctx, s.done)
	}
	metrics.PlaylistObservers.Set(float64(len(s.subscribers)))
	s.mtx.Unlock()
	return &Subscription{C: ch, id: id, svc: s}
}

// Cancel detaches the observer. Detaching the last observer cancels the
// in-flight fetch or sleep and fully stops the loop; a later Subscribe
// starts a fresh one.
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		s := sub.svc
		s.mtx.Lock()
		if ch, ok := s.subscribers[sub.id]; ok {
			delete(s.subscribers, sub.id)
			close(ch)
			if len(s.subscribers) == 0 && s.cancel != nil {
				s.cancel()
				s.cancel = nil
			}
		}
		metrics.PlaylistObservers.Set(float64(len(s.subscribers)))
		s.mtx.Unlock()
	})
}

// ObserverCount returns the number of currently attached observers
func (s *Service) ObserverCount() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.subscribers)
}

// Done returns a channel closed when the current polling loop has fully
// stopped, or nil if no loop has ever started
func (s *Service) Done() <-chan struct{} {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.done
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	s.logger.Debug("playlist polling started", logging.Pairs{"interval": s.interval})

	// yield a previously-cached snapshot before the first network fetch so
	// observers are not left idle when recent data exists
	s.mtx.Lock()
	cur := s.current
	s.mtx.Unlock()
	if cur == nil && s.cache != nil {
		if p, err := coordinator.Value[playlist.Playlist](ctx, s.cache, s.cacheKey); err == nil && !p.IsEmpty() {
			s.update(ctx, &p, false)
		}
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		s.poll(ctx)
		select {
		case <-ctx.Done():
			s.logger.Debug("playlist polling stopped", logging.Pairs{})
			return
		case <-t.C:
		}
	}
}

// poll performs one fetch-compare-broadcast step. Fetch failures are
// swallowed and retried on the next tick.
func (s *Service) poll(ctx context.Context) {
	p, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.PlaylistFetches.WithLabelValues("error").Inc()
		s.logger.Warn("playlist fetch failed", logging.Pairs{"detail": err.Error()})
		return
	}
	metrics.PlaylistFetches.WithLabelValues("ok").Inc()
	s.update(ctx, p, true)
}

// update replaces the held snapshot and fans it out to all observers when
// it differs structurally from the previous one; an identical snapshot is
// suppressed
func (s *Service) update(ctx context.Context, p *playlist.Playlist, persist bool) {
	// a fetch that was in flight when the loop was cancelled may still
	// complete; its result must not reach observers of a later loop
	if ctx.Err() != nil {
		return
	}
	s.mtx.Lock()
	if p.Equal(s.current) {
		s.mtx.Unlock()
		return
	}
	s.current = p
	for _, ch := range s.subscribers {
		select {
		case ch <- p:
		default:
			s.logger.Warn("slow playlist observer, snapshot dropped", logging.Pairs{})
		}
	}
	metrics.PlaylistBroadcasts.Inc()
	s.mtx.Unlock()

	if persist && s.cache != nil {
		if err := s.cache.Store(ctx, s.cacheKey, p, s.lifespan); err != nil && ctx.Err() == nil {
			s.logger.Warn("unable to cache playlist snapshot", logging.Pairs{"detail": err.Error()})
		}
	}
}
