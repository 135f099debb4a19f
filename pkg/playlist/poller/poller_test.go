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

package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spindlecache/spindle/pkg/cache/coordinator"
	"github.com/spindlecache/spindle/pkg/cache/memory"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
	"github.com/spindlecache/spindle/pkg/metrics"
	"github.com/spindlecache/spindle/pkg/playlist"
)

func init() {
	metrics.Init()
}

// scriptedFetcher blocks each Fetch until the test pushes a response; a nil
// response scripts a fetch failure
type scriptedFetcher struct {
	mtx       sync.Mutex
	count     int
	responses chan *playlist.Playlist
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{responses: make(chan *playlist.Playlist, 16)}
}

func (f *scriptedFetcher) Fetch(ctx context.Context) (*playlist.Playlist, error) {
	f.mtx.Lock()
	f.count++
	f.mtx.Unlock()
	select {
	case p := <-f.responses:
		if p == nil {
			return nil, errors.New("scripted fetch failure")
		}
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *scriptedFetcher) fetchCount() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.count
}

func testConfig() *config.PlaylistConfig {
	return &config.PlaylistConfig{
		PollIntervalMS: 10,
		CacheKey:       config.DefaultPlaylistCacheKey,
		LifespanSecs:   -1,
	}
}

func snapshot(ids ...int64) *playlist.Playlist {
	p := &playlist.Playlist{}
	for _, id := range ids {
		p.Playcuts = append(p.Playcuts, playlist.Playcut{ID: id, SongTitle: "Cairo"})
	}
	return p
}

func receive(t *testing.T, sub *Subscription) *playlist.Playlist {
	t.Helper()
	select {
	case p := <-sub.C:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out awaiting a broadcast")
		return nil
	}
}

func newTestCoordinator(t *testing.T) *coordinator.Coordinator {
	mc := memory.New("test", config.NewCachingConfig("test"), logging.ConsoleLogger("error"))
	if err := mc.Connect(); err != nil {
		t.Fatal(err)
	}
	co := coordinator.New("test", mc, logging.ConsoleLogger("error"))
	t.Cleanup(func() { co.Close() })
	return co
}

func TestBroadcastAndDedupe(t *testing.T) {
	f := newScriptedFetcher()
	svc := New(f, testConfig(), nil, logging.ConsoleLogger("error"))

	sub := svc.Subscribe()
	defer sub.Cancel()

	f.responses <- snapshot(1, 2)
	p := receive(t, sub)
	if len(p.Playcuts) != 2 || p.Playcuts[0].ID != 1 {
		t.Errorf("unexpected snapshot %+v", p)
	}

	// a structurally identical snapshot is suppressed; the next distinct
	// snapshot must be the next delivery
	f.responses <- snapshot(1, 2)
	f.responses <- snapshot(3, 1, 2)
	p = receive(t, sub)
	if len(p.Playcuts) != 3 || p.Playcuts[0].ID != 3 {
		t.Errorf("expected the duplicate to be suppressed, got %+v", p)
	}
}

func TestLazyStart(t *testing.T) {
	f := newScriptedFetcher()
	svc := New(f, testConfig(), nil, logging.ConsoleLogger("error"))

	// no observers, no polling
	time.Sleep(50 * time.Millisecond)
	if n := f.fetchCount(); n != 0 {
		t.Fatalf("expected no fetches before the first attach, got %d", n)
	}
	if svc.Done() != nil {
		t.Error("expected no loop before the first attach")
	}

	sub := svc.Subscribe()
	defer sub.Cancel()
	f.responses <- snapshot(1)
	receive(t, sub)
	if f.fetchCount() == 0 {
		t.Error("expected polling to start on the first attach")
	}
}

func TestLastDetachStopsLoop(t *testing.T) {
	f := newScriptedFetcher()
	svc := New(f, testConfig(), nil, logging.ConsoleLogger("error"))

	sub1 := svc.Subscribe()
	sub2 := svc.Subscribe()
	if n := svc.ObserverCount(); n != 2 {
		t.Fatalf("expected 2 observers got %d", n)
	}

	f.responses <- snapshot(1)
	receive(t, sub1)
	receive(t, sub2)

	sub1.Cancel()
	if n := svc.ObserverCount(); n != 1 {
		t.Fatalf("expected 1 observer got %d", n)
	}
	select {
	case <-svc.Done():
		t.Fatal("expected the loop to survive a non-final detach")
	default:
	}

	sub2.Cancel()
	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out awaiting loop shutdown")
	}

	// a stopped loop performs no further fetches
	n := f.fetchCount()
	time.Sleep(50 * time.Millisecond)
	if f.fetchCount() != n {
		t.Error("expected no fetches after the last detach")
	}
}

func TestCancelIdempotent(t *testing.T) {
	f := newScriptedFetcher()
	svc := New(f, testConfig(), nil, logging.ConsoleLogger("error"))

	sub := svc.Subscribe()
	sub.Cancel()
	sub.Cancel()
	if n := svc.ObserverCount(); n != 0 {
		t.Errorf("expected 0 observers got %d", n)
	}
}

func TestResubscribeRestartsLoop(t *testing.T) {
	f := newScriptedFetcher()
	svc := New(f, testConfig(), nil, logging.ConsoleLogger("error"))

	sub := svc.Subscribe()
	f.responses <- snapshot(1)
	receive(t, sub)
	sub.Cancel()
	<-svc.Done()

	sub2 := svc.Subscribe()
	defer sub2.Cancel()

	// the retained snapshot is delivered immediately, before any fetch
	p := receive(t, sub2)
	if len(p.Playcuts) != 1 || p.Playcuts[0].ID != 1 {
		t.Errorf("unexpected snapshot %+v", p)
	}

	f.responses <- snapshot(2)
	p = receive(t, sub2)
	if p.Playcuts[0].ID != 2 {
		t.Errorf("expected the fresh loop to broadcast, got %+v", p)
	}
}

func TestLateObserverReceivesCurrent(t *testing.T) {
	f := newScriptedFetcher()
	svc := New(f, testConfig(), nil, logging.ConsoleLogger("error"))

	sub1 := svc.Subscribe()
	defer sub1.Cancel()
	f.responses <- snapshot(1)
	receive(t, sub1)

	sub2 := svc.Subscribe()
	defer sub2.Cancel()
	p := receive(t, sub2)
	if len(p.Playcuts) != 1 || p.Playcuts[0].ID != 1 {
		t.Errorf("expected the held snapshot on attach, got %+v", p)
	}
}

func TestFetchFailureRetried(t *testing.T) {
	f := newScriptedFetcher()
	svc := New(f, testConfig(), nil, logging.ConsoleLogger("error"))

	sub := svc.Subscribe()
	defer sub.Cancel()

	f.responses <- nil // first fetch fails
	f.responses <- snapshot(1)
	p := receive(t, sub)
	if len(p.Playcuts) != 1 {
		t.Errorf("expected the retry to succeed, got %+v", p)
	}
}

func TestCachedSnapshotYield(t *testing.T) {
	co := newTestCoordinator(t)
	cfg := testConfig()
	if err := coordinator.Set(context.Background(), co, cfg.CacheKey, *snapshot(7), time.Hour); err != nil {
		t.Fatal(err)
	}

	// the fetcher never responds; the first delivery must come from the cache
	f := newScriptedFetcher()
	svc := New(f, cfg, co, logging.ConsoleLogger("error"))
	sub := svc.Subscribe()
	defer sub.Cancel()

	p := receive(t, sub)
	if len(p.Playcuts) != 1 || p.Playcuts[0].ID != 7 {
		t.Errorf("expected the cached snapshot, got %+v", p)
	}
}

// detachedFetcher ignores cancellation, so a scripted response can land
// after the loop that requested it has been cancelled
type detachedFetcher struct {
	calls     int32
	responses chan *playlist.Playlist
}

func (f *detachedFetcher) Fetch(context.Context) (*playlist.Playlist, error) {
	atomic.AddInt32(&f.calls, 1)
	return <-f.responses, nil
}

func TestStaleFetchDiscardedAfterDetach(t *testing.T) {
	f := &detachedFetcher{responses: make(chan *playlist.Playlist, 16)}
	svc := New(f, testConfig(), nil, logging.ConsoleLogger("error"))

	sub := svc.Subscribe()
	f.responses <- snapshot(1)
	receive(t, sub)
	done := svc.Done()

	// wait until the next fetch is in flight, cancel, then let it complete
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&f.calls) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timed out awaiting the second fetch")
		}
		time.Sleep(time.Millisecond)
	}
	sub.Cancel()
	f.responses <- snapshot(2)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out awaiting loop shutdown")
	}

	// the cancelled loop's late result must not have replaced the held
	// snapshot; a fresh observer still sees the last broadcast one
	sub2 := svc.Subscribe()
	p := receive(t, sub2)
	if len(p.Playcuts) != 1 || p.Playcuts[0].ID != 1 {
		t.Errorf("expected the pre-detach snapshot, got %+v", p)
	}
	sub2.Cancel()
	f.responses <- snapshot(3) // unblock the second loop so it can exit
}

// blockingFetcher blocks until its loop is cancelled, so each polling loop
// invokes Fetch exactly once and the call count equals the loop-start count
type blockingFetcher struct {
	count int32
}

func (f *blockingFetcher) Fetch(ctx context.Context) (*playlist.Playlist, error) {
	atomic.AddInt32(&f.count, 1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *blockingFetcher) loopStarts() int {
	return int(atomic.LoadInt32(&f.count))
}

func awaitLoopStarts(t *testing.T, f *blockingFetcher, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.loopStarts() < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out awaiting loop start %d", want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConcurrentAttachDetach(t *testing.T) {
	f := &blockingFetcher{}
	svc := New(f, testConfig(), nil, logging.ConsoleLogger("error"))

	const n = 32
	subs := make([]*Subscription, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			subs[i] = svc.Subscribe()
		}(i)
	}
	wg.Wait()

	if c := svc.ObserverCount(); c != n {
		t.Fatalf("expected %d observers got %d", n, c)
	}
	// exactly one loop serves all concurrently attached observers
	awaitLoopStarts(t, f, 1)
	if s := f.loopStarts(); s != 1 {
		t.Fatalf("expected 1 loop start got %d", s)
	}
	done := svc.Done()
	select {
	case <-done:
		t.Fatal("expected the loop to be running")
	default:
	}

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			subs[i].Cancel()
		}(i)
	}
	wg.Wait()

	if c := svc.ObserverCount(); c != 0 {
		t.Fatalf("expected 0 observers got %d", c)
	}
	// exactly one loop stop for the 1->0 transition
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out awaiting loop shutdown")
	}
	if s := f.loopStarts(); s != 1 {
		t.Errorf("expected no further loop starts during detach, got %d", s)
	}

	// the next attach starts exactly one fresh loop
	sub := svc.Subscribe()
	awaitLoopStarts(t, f, 2)
	if s := f.loopStarts(); s != 2 {
		t.Errorf("expected 2 loop starts got %d", s)
	}
	sub.Cancel()
	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out awaiting loop shutdown")
	}
}

func TestWriteThrough(t *testing.T) {
	co := newTestCoordinator(t)
	cfg := testConfig()

	f := newScriptedFetcher()
	svc := New(f, cfg, co, logging.ConsoleLogger("error"))
	sub := svc.Subscribe()
	defer sub.Cancel()

	f.responses <- snapshot(5)
	receive(t, sub)

	// the snapshot is persisted after the broadcast
	deadline := time.Now().Add(2 * time.Second)
	for {
		p, err := coordinator.Value[playlist.Playlist](context.Background(), co, cfg.CacheKey)
		if err == nil {
			if len(p.Playcuts) != 1 || p.Playcuts[0].ID != 5 {
				t.Errorf("unexpected cached snapshot %+v", p)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out awaiting persisted snapshot: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
