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

package cache

import (
	"github.com/golang/snappy"

	"github.com/spindlecache/spindle/pkg/cache/entry"
	"github.com/spindlecache/spindle/pkg/config"
)

// EncodeEnvelope serializes an Entry for physical storage, applying snappy
// compression when the cache is configured for it
func EncodeEnvelope(cfg *config.CachingConfig, e *entry.Entry) []byte {
	b := e.ToBytes()
	if cfg.Compression {
		b = snappy.Encode(nil, b)
	}
	return b
}

// DecodeEnvelope deserializes a stored envelope back into an Entry. Any
// decompression or deserialization failure is reported so callers can treat
// the record as corrupt.
func DecodeEnvelope(cfg *config.CachingConfig, b []byte) (*entry.Entry, error) {
	if cfg.Compression {
		var err error
		b, err = snappy.Decode(nil, b)
		if err != nil {
			return nil, err
		}
	}
	return entry.FromBytes(b)
}
