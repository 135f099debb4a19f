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

// Package locks provides Named Locks functionality for managing
// mutexes by string name (e.g., cache keys).
package locks

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// NamedLocker provides a locker for handling Named Locks
type NamedLocker interface {
	Acquire(string) (NamedLock, error)
	RAcquire(string) (NamedLock, error)
}

// NamedLock defines the interface for implementing Named Locks
type NamedLock interface {
	Release() error
	RRelease() error
}

// NewNamedLocker returns a new Named Locker
func NewNamedLocker() NamedLocker {
	return &namedLocker{locks: make(map[string]*namedLock)}
}

type namedLocker struct {
	locks   map[string]*namedLock
	mapLock sync.Mutex
}

type namedLock struct {
	sync.RWMutex
	name      string
	queueSize atomic.Int32
	locker    *namedLocker
}

func (nl *namedLock) release(unlockFunc func()) {
	if nl.queueSize.Add(-1) == 0 {
		nl.locker.mapLock.Lock()
		// recheck queue size after getting the map lock since another
		// client might have joined since it was acquired
		if nl.queueSize.Load() == 0 {
			delete(nl.locker.locks, nl.name)
		}
		nl.locker.mapLock.Unlock()
	}
	unlockFunc()
}

// Release releases the write lock on the subject Named Lock
func (nl *namedLock) Release() error {
	nl.release(nl.Unlock)
	return nil
}

// RRelease releases the read lock on the subject Named Lock
func (nl *namedLock) RRelease() error {
	nl.release(nl.RUnlock)
	return nil
}

func (lk *namedLocker) acquire(lockName string, isWrite bool) (NamedLock, error) {
	if lockName == "" {
		return nil, fmt.Errorf("invalid lock name: %s", lockName)
	}
	lk.mapLock.Lock()
	nl, ok := lk.locks[lockName]
	if !ok {
		nl = &namedLock{name: lockName, locker: lk}
		lk.locks[lockName] = nl
	}
	nl.queueSize.Add(1)
	lk.mapLock.Unlock()

	if isWrite {
		nl.Lock()
	} else {
		nl.RLock()
	}
	return nl, nil
}

// Acquire locks the named lock for writing, and blocks until the wlock is acquired
func (lk *namedLocker) Acquire(lockName string) (NamedLock, error) {
	return lk.acquire(lockName, true)
}

// RAcquire locks the named lock for reading, and blocks until the rlock is acquired
func (lk *namedLocker) RAcquire(lockName string) (NamedLock, error) {
	return lk.acquire(lockName, false)
}
