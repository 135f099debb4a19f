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

// Package config provides Spindle configuration abilities, including
// parsing configuration files, as well as default values and state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the main configuration object
type Config struct {
	// Main is the primary MainConfig section
	Main *MainConfig `yaml:"main,omitempty"`
	// Caches is a map of CachingConfigs keyed by cache name
	Caches map[string]*CachingConfig `yaml:"caches,omitempty"`
	// Playlist provides configurations for the playlist poll/broadcast service
	Playlist *PlaylistConfig `yaml:"playlist,omitempty"`
	// Logging provides configurations that affect logging behavior
	Logging *LoggingConfig `yaml:"logging,omitempty"`
	// Metrics provides configurations for collecting Metrics about the application
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// MainConfig is a collection of general configuration values
type MainConfig struct {
	// InstanceID represents a unique ID for the current instance, when multiple
	// instances on the same host share a configuration
	InstanceID int `yaml:"instance_id,omitempty"`
}

// CachingConfig defines a Cache Provider and its configuration
type CachingConfig struct {
	// Provider represents the type of cache that we wish to use: "memory",
	// "filesystem", "bbolt", "badger" or "redis"
	Provider string `yaml:"provider,omitempty"`
	// Compression indicates whether stored envelopes are snappy-compressed
	Compression bool `yaml:"compression,omitempty"`
	// Filesystem is the Filesystem Cache configuration
	Filesystem FilesystemCacheConfig `yaml:"filesystem,omitempty"`
	// BBolt is the BBolt Cache configuration
	BBolt BBoltCacheConfig `yaml:"bbolt,omitempty"`
	// Badger is the Badger Cache configuration
	Badger BadgerCacheConfig `yaml:"badger,omitempty"`
	// Redis is the Redis Cache configuration
	Redis RedisCacheConfig `yaml:"redis,omitempty"`

	// Name is the cache name as indicated by the map key, set during load
	Name string `yaml:"-"`
}

// FilesystemCacheConfig is a collection of Filesystem Cache configurations
type FilesystemCacheConfig struct {
	// CachePath represents the path on disk where the cache will live
	CachePath string `yaml:"cache_path,omitempty"`
}

// BBoltCacheConfig is a collection of BBolt Cache configurations
type BBoltCacheConfig struct {
	// Filename represents the filename (including path) of the BBolt database
	Filename string `yaml:"filename,omitempty"`
	// Bucket represents the name of the bucket within BBolt under which
	// Spindle's key value store lives
	Bucket string `yaml:"bucket,omitempty"`
}

// BadgerCacheConfig is a collection of Badger Cache configurations
type BadgerCacheConfig struct {
	// Directory represents the path on disk where the Badger database resides
	Directory string `yaml:"directory,omitempty"`
	// ValueDirectory represents the path on disk where the Badger value log resides
	ValueDirectory string `yaml:"value_directory,omitempty"`
}

// RedisCacheConfig is a collection of Redis Cache configurations
type RedisCacheConfig struct {
	// ClientType defines the type of Redis client ("standard", "cluster", "sentinel")
	ClientType string `yaml:"client_type,omitempty"`
	// Protocol represents the connection method (e.g., "tcp", "unix", etc.)
	Protocol string `yaml:"protocol,omitempty"`
	// Endpoint represents the host:port of the Redis endpoint
	Endpoint string `yaml:"endpoint,omitempty"`
	// Endpoints represents the host:ports used in a sentinel or cluster configuration
	Endpoints []string `yaml:"endpoints,omitempty"`
	// SentinelMaster should be set when using a sentinel configuration
	SentinelMaster string `yaml:"sentinel_master,omitempty"`
	// Password can be set when using a password-protected Redis instance
	Password string `yaml:"password,omitempty"`
	// DB is the database to be selected after connecting to the server
	DB int `yaml:"db,omitempty"`
}

// PlaylistConfig is a collection of configurations for the playlist service
type PlaylistConfig struct {
	// URL is the remote playlist endpoint polled by the service
	URL string `yaml:"url,omitempty"`
	// PollIntervalMS is the number of milliseconds between playlist fetches
	PollIntervalMS int `yaml:"poll_interval_ms,omitempty"`
	// TimeoutMS is the number of milliseconds a fetch may run before cancellation
	TimeoutMS int `yaml:"timeout_ms,omitempty"`
	// CacheName is the name of the cache used for playlist snapshots
	CacheName string `yaml:"cache_name,omitempty"`
	// CacheKey is the key under which the playlist snapshot is cached
	CacheKey string `yaml:"cache_key,omitempty"`
	// LifespanSecs is the number of seconds a cached snapshot remains valid;
	// -1 means never expire
	LifespanSecs int `yaml:"lifespan_secs,omitempty"`
}

// LoggingConfig is a collection of Logging configurations
type LoggingConfig struct {
	// LogFile provides the filepath to the instance's logfile. Set as empty
	// string to Log to Console
	LogFile string `yaml:"log_file,omitempty"`
	// LogLevel provides the most granular level (e.g., DEBUG) to log
	LogLevel string `yaml:"log_level,omitempty"`
}

// MetricsConfig is a collection of Metrics Collection configurations
type MetricsConfig struct {
	// ListenAddress is the address the metrics listener binds to
	ListenAddress string `yaml:"listen_address,omitempty"`
	// ListenPort is the port the metrics listener binds to
	ListenPort int `yaml:"listen_port,omitempty"`
}

// NewConfig returns a Config with default values
func NewConfig() *Config {
	return &Config{
		Main: &MainConfig{},
		Caches: map[string]*CachingConfig{
			DefaultCacheName: NewCachingConfig(DefaultCacheName),
		},
		Playlist: &PlaylistConfig{
			PollIntervalMS: DefaultPlaylistPollIntervalMS,
			TimeoutMS:      DefaultPlaylistTimeoutMS,
			CacheName:      DefaultCacheName,
			CacheKey:       DefaultPlaylistCacheKey,
			LifespanSecs:   DefaultPlaylistLifespanSecs,
		},
		Logging: &LoggingConfig{
			LogLevel: DefaultLogLevel,
		},
		Metrics: &MetricsConfig{
			ListenPort: DefaultMetricsListenPort,
		},
	}
}

// NewCachingConfig returns a CachingConfig with default values
func NewCachingConfig(name string) *CachingConfig {
	return &CachingConfig{
		Name:     name,
		Provider: DefaultCacheProvider,
		Filesystem: FilesystemCacheConfig{
			CachePath: DefaultCachePath,
		},
		BBolt: BBoltCacheConfig{
			Filename: DefaultBBoltFile,
			Bucket:   DefaultBBoltBucket,
		},
		Badger: BadgerCacheConfig{
			Directory:      DefaultCachePath,
			ValueDirectory: DefaultCachePath,
		},
		Redis: RedisCacheConfig{
			ClientType: DefaultRedisClientType,
			Protocol:   DefaultRedisProtocol,
			Endpoint:   DefaultRedisEndpoint,
		},
	}
}

// Load returns the Configuration parsed from the provided byte slice,
// overlaid onto the default Configuration
func Load(data []byte) (*Config, error) {
	c := NewConfig()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, err
	}
	for name, cc := range c.Caches {
		if cc == nil {
			c.Caches[name] = NewCachingConfig(name)
			continue
		}
		cc.Name = name
		if cc.Provider == "" {
			cc.Provider = DefaultCacheProvider
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile returns the Configuration parsed from the file at the provided path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func (c *Config) validate() error {
	if c.Playlist != nil {
		if c.Playlist.PollIntervalMS < 1 {
			return fmt.Errorf("invalid playlist poll interval: %d", c.Playlist.PollIntervalMS)
		}
		if _, ok := c.Caches[c.Playlist.CacheName]; c.Playlist.CacheName != "" && !ok {
			return fmt.Errorf("invalid playlist cache name: %s", c.Playlist.CacheName)
		}
	}
	return nil
}
