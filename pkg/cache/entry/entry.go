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

// Package entry defines the stored-entry envelope that Spindle caches
// persist for each key: the opaque payload bytes together with the
// write-time metadata that drives TTL enforcement.
package entry

import (
	"math"
	"time"
)

//go:generate msgp -io=false

// NeverExpires is the lifespan value indicating an entry that is live
// forever regardless of elapsed time
const NeverExpires = time.Duration(math.MaxInt64)

// Metadata records when an entry was written and how long it remains valid.
// It is constructed fresh on every write and never mutated; rewriting a key
// supersedes the prior Metadata wholesale.
type Metadata struct {
	// WriteTime is the time the entry was written
	WriteTime time.Time `msg:"writetime"`
	// Lifespan is the duration the entry remains valid after WriteTime
	Lifespan time.Duration `msg:"lifespan"`
}

// NewMetadata returns a Metadata stamped with the current time and the
// provided lifespan
func NewMetadata(lifespan time.Duration) Metadata {
	return Metadata{WriteTime: time.Now(), Lifespan: lifespan}
}

// IsExpired indicates whether the entry is stale as of the provided time.
// A zero or negative lifespan is expired from the moment it is written; a
// NeverExpires lifespan is live forever.
func (md Metadata) IsExpired(now time.Time) bool {
	if md.Lifespan == NeverExpires {
		return false
	}
	if md.Lifespan <= 0 {
		return true
	}
	return now.Sub(md.WriteTime) > md.Lifespan
}

// Entry is the envelope persisted by a cache backend for a single key
type Entry struct {
	// Metadata is the write-time metadata for the entry
	Metadata Metadata `msg:"metadata"`
	// Value is the opaque serialized payload; the coordinator, not the
	// backend, knows its logical type
	Value []byte `msg:"value"`
}

// ToBytes returns a serialized byte slice representing the Entry
func (e *Entry) ToBytes() []byte {
	bytes, _ := e.MarshalMsg(nil)
	return bytes
}

// FromBytes returns a deserialized Entry from a serialized byte slice
func FromBytes(data []byte) (*Entry, error) {
	e := &Entry{}
	_, err := e.UnmarshalMsg(data)
	return e, err
}
