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

package config

const (
	// DefaultCacheName is the name of the cache configured when none is provided
	DefaultCacheName = "default"
	// DefaultCacheProvider is the default cache provider when none is provided
	DefaultCacheProvider = "memory"
	// DefaultCachePath is the default path for the filesystem and badger caches
	DefaultCachePath = "/tmp/spindle"
	// DefaultBBoltFile is the default filename for the bbolt cache
	DefaultBBoltFile = "spindle.db"
	// DefaultBBoltBucket is the default bucket name for the bbolt cache
	DefaultBBoltBucket = "spindle"
	// DefaultRedisClientType is the default redis client type
	DefaultRedisClientType = "standard"
	// DefaultRedisProtocol is the default redis connection protocol
	DefaultRedisProtocol = "tcp"
	// DefaultRedisEndpoint is the default redis endpoint
	DefaultRedisEndpoint = "redis:6379"

	// DefaultPlaylistPollIntervalMS is the default playlist poll interval
	DefaultPlaylistPollIntervalMS = 30000
	// DefaultPlaylistTimeoutMS is the default playlist fetch timeout
	DefaultPlaylistTimeoutMS = 10000
	// DefaultPlaylistCacheKey is the default cache key for playlist snapshots
	DefaultPlaylistCacheKey = "playlist.snapshot"
	// DefaultPlaylistLifespanSecs is the default lifespan of a cached snapshot
	DefaultPlaylistLifespanSecs = 300

	// DefaultLogLevel is the default level for logging
	DefaultLogLevel = "info"
	// DefaultMetricsListenPort is the default port for the metrics listener
	DefaultMetricsListenPort = 8481
)
