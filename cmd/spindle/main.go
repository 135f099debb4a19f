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

// Package main is the main package for the Spindle daemon, which maintains
// the station's cache stores and the playlist poll/broadcast service
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spindlecache/spindle/pkg/cache/coordinator"
	"github.com/spindlecache/spindle/pkg/cache/registry"
	"github.com/spindlecache/spindle/pkg/config"
	"github.com/spindlecache/spindle/pkg/logging"
	"github.com/spindlecache/spindle/pkg/metrics"
	"github.com/spindlecache/spindle/pkg/playlist"
	"github.com/spindlecache/spindle/pkg/playlist/poller"
)

const (
	applicationName    = "spindle"
	applicationVersion = "1.0.0"
)

var (
	applicationGitCommitID string
	applicationBuildTime   string
)

func main() {
	var (
		flagConfig   string
		flagLogLevel string
		flagVersion  bool
	)
	flag.StringVar(&flagConfig, "config", "", "path to the configuration file")
	flag.StringVar(&flagLogLevel, "log-level", "", "overrides the configured log level")
	flag.BoolVar(&flagVersion, "version", false, "prints the version and exits")
	flag.Usage = usage
	flag.Parse()

	if flagVersion {
		printVersion()
		return
	}

	conf := config.NewConfig()
	if flagConfig != "" {
		var err error
		conf, err = config.LoadFile(flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: could not load configuration: %s\n", applicationName, err)
			os.Exit(1)
		}
	}
	if flagLogLevel != "" {
		conf.Logging.LogLevel = flagLogLevel
	}

	log := logging.New(conf.Logging, conf.Main.InstanceID)
	defer log.Close()
	log.Info("application start up", logging.Pairs{
		"name": applicationName, "version": applicationVersion,
		"buildTime": applicationBuildTime, "commitID": applicationGitCommitID})

	metrics.Init()
	metrics.ListenAndServe(conf.Metrics, log)

	caches, err := registry.LoadCachesFromConfig(conf, log)
	if err != nil {
		log.Fatal(1, "unable to connect caches", logging.Pairs{"detail": err.Error()})
	}
	defer func() {
		for _, c := range caches {
			c.Close()
		}
	}()

	coordinators := make(map[string]*coordinator.Coordinator)
	for name, c := range caches {
		coordinators[name] = coordinator.New(name, c, log)
	}
	defer func() {
		for _, co := range coordinators {
			co.Close()
		}
	}()

	var svc *poller.Service
	var sub *poller.Subscription
	if conf.Playlist != nil && conf.Playlist.URL != "" {
		co := coordinators[conf.Playlist.CacheName]
		svc = poller.New(playlist.NewHTTPFetcher(conf.Playlist), conf.Playlist, co, log)
		sub = svc.Subscribe()
		go logNowPlaying(sub, log)
	} else {
		log.Warn("no playlist url configured, polling disabled", logging.Pairs{})
	}

	waitForSignal(log)

	if sub != nil {
		sub.Cancel()
		<-svc.Done()
	}
	log.Info("application shut down", logging.Pairs{"name": applicationName})
}

// logNowPlaying consumes broadcast snapshots and logs now-playing transitions
func logNowPlaying(sub *poller.Subscription, log *logging.Logger) {
	var last int64 = -1
	for p := range sub.C {
		cut, ok := p.NowPlaying()
		if !ok || cut.ID == last {
			continue
		}
		last = cut.ID
		log.Info("now playing", logging.Pairs{
			"artist": cut.ArtistName, "song": cut.SongTitle, "release": cut.ReleaseTitle})
	}
}

func printVersion() {
	fmt.Printf("%s version %s", applicationName, applicationVersion)
	if applicationGitCommitID != "" {
		fmt.Printf(" (commit %s)", applicationGitCommitID)
	}
	if applicationBuildTime != "" {
		fmt.Printf(" built %s", applicationBuildTime)
	}
	fmt.Println()
}
