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

// Package metrics implements prometheus metrics and exposes the metrics
// HTTP listener
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
)

const (
	metricNamespace   = "spindle"
	cacheSubsystem    = "cache"
	playlistSubsystem = "playlist"
)

// CacheObjectOperations is a Counter of operations (in # of objects) performed on a Spindle cache
var CacheObjectOperations *prometheus.CounterVec

// CacheByteOperations is a Counter of operations (in # of bytes) performed on a Spindle cache
var CacheByteOperations *prometheus.CounterVec

// CacheEvents is a Counter of events performed on a Spindle cache
var CacheEvents *prometheus.CounterVec

// PlaylistFetches is a Counter of playlist fetch attempts and their status
var PlaylistFetches *prometheus.CounterVec

// PlaylistBroadcasts is a Counter of playlist snapshots broadcast to observers
var PlaylistBroadcasts prometheus.Counter

// PlaylistObservers is a Gauge representing the number of attached playlist observers
var PlaylistObservers prometheus.Gauge

var initOnce sync.Once

// Init initializes the instrumented metrics; it is safe to call more than once
func Init() {
	initOnce.Do(func() {
		CacheObjectOperations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: cacheSubsystem,
				Name:      "operation_objects_total",
				Help:      "Count of objects involved in Spindle cache operations",
			},
			[]string{"cache_name", "provider", "operation", "status"},
		)

		CacheByteOperations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: cacheSubsystem,
				Name:      "operation_bytes_total",
				Help:      "Count of bytes involved in Spindle cache operations",
			},
			[]string{"cache_name", "provider", "operation", "status"},
		)

		CacheEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: cacheSubsystem,
				Name:      "events_total",
				Help:      "Count of events affecting a Spindle cache",
			},
			[]string{"cache_name", "provider", "event", "reason"},
		)

		PlaylistFetches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: playlistSubsystem,
				Name:      "fetches_total",
				Help:      "Count of playlist fetch attempts by status",
			},
			[]string{"status"},
		)

		PlaylistBroadcasts = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: playlistSubsystem,
				Name:      "broadcasts_total",
				Help:      "Count of playlist snapshots broadcast to observers",
			},
		)

		PlaylistObservers = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Subsystem: playlistSubsystem,
				Name:      "observers",
				Help:      "Number of observers attached to the playlist service",
			},
		)

		prometheus.MustRegister(CacheObjectOperations)
		prometheus.MustRegister(CacheByteOperations)
		prometheus.MustRegister(CacheEvents)
		prometheus.MustRegister(PlaylistFetches)
		prometheus.MustRegister(PlaylistBroadcasts)
		prometheus.MustRegister(PlaylistObservers)
	})
}

// ListenAndServe starts the metrics HTTP listener on the configured address
// and port, per the provided config
func ListenAndServe(cfg *config.MetricsConfig, lg *logging.Logger) {
	if cfg == nil || cfg.ListenPort < 1 {
		return
	}
	addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	lg.Info("metrics http endpoint starting", logging.Pairs{"address": addr, "endpoint": "/metrics"})
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			lg.Error("unable to start metrics http server", logging.Pairs{"detail": err.Error()})
		}
	}()
}
