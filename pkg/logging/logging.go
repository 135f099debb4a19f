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

// Package logging provides Spindle's structured logging facilities, backed
// by go-kit's logfmt logger. Loggers are plain values passed to the
// components that log with them; there is no package-level default.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-stack/stack"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/spindlecache/spindle/pkg/config"
)

// Pairs represents a set of key=value pairs that describe a log event
type Pairs map[string]interface{}

// Logger is a container for the underlying log provider
type Logger struct {
	logger log.Logger
	closer io.Closer
	level  string
}

// ConsoleLogger returns a Logger that prints log events to the console
func ConsoleLogger(logLevel string) *Logger {
	l := &Logger{}
	l.level = strings.ToLower(logLevel)
	l.logger = newFilteredLogger(os.Stdout, l.level)
	return l
}

// New returns a Logger for the provided logging configuration. The returned
// Logger will write to files distinguished from other Loggers by the
// instance ID.
func New(cfg *config.LoggingConfig, instanceID int) *Logger {
	l := &Logger{}

	var wr io.Writer = os.Stdout
	if cfg.LogFile != "" {
		logFile := cfg.LogFile
		if instanceID > 0 {
			logFile = strings.Replace(logFile, ".log", "."+strconv.Itoa(instanceID)+".log", 1)
		}
		wr = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    256, // megabytes
			MaxBackups: 80,
			MaxAge:     7,    // days
			Compress:   true, // compress rolled backups
		}
	}

	l.level = strings.ToLower(cfg.LogLevel)
	l.logger = newFilteredLogger(wr, l.level)
	if c, ok := wr.(io.Closer); ok && c != nil {
		l.closer = c
	}
	return l
}

func newFilteredLogger(wr io.Writer, logLevel string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(wr))
	logger = log.With(logger,
		"time", log.DefaultTimestampUTC,
		"app", "spindle",
		"caller", log.Valuer(func() interface{} {
			return pkgCaller{stack.Caller(6)}
		}),
	)

	switch logLevel {
	case "debug", "trace":
		logger = level.NewFilter(logger, level.AllowDebug())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	return logger
}

func mapToArray(event string, detail Pairs) []interface{} {
	a := make([]interface{}, (len(detail)*2)+2)
	var i int

	// Ensure the event description is the first Pair in the output order
	a[i] = "event"
	a[i+1] = event
	i += 2

	for k, v := range detail {
		a[i] = k
		a[i+1] = v
		i += 2
	}
	return a
}

// Info sends an "INFO" event to the Logger
func (l *Logger) Info(event string, detail Pairs) {
	level.Info(l.logger).Log(mapToArray(event, detail)...)
}

// Warn sends a "WARN" event to the Logger
func (l *Logger) Warn(event string, detail Pairs) {
	level.Warn(l.logger).Log(mapToArray(event, detail)...)
}

// Error sends an "ERROR" event to the Logger
func (l *Logger) Error(event string, detail Pairs) {
	level.Error(l.logger).Log(mapToArray(event, detail)...)
}

// Debug sends a "DEBUG" event to the Logger
func (l *Logger) Debug(event string, detail Pairs) {
	level.Debug(l.logger).Log(mapToArray(event, detail)...)
}

// Fatal sends a "FATAL" event to the Logger and exits the program with the
// provided exit code
func (l *Logger) Fatal(code int, event string, detail Pairs) {
	// go-kit/log/level does not support Fatal, so implemented separately here
	a := append([]interface{}{"level", "fatal"}, mapToArray(event, detail)...)
	l.logger.Log(a...)
	l.Close()
	os.Exit(code)
}

// Close closes any opened file handles that were used for logging
func (l *Logger) Close() {
	if l.closer != nil {
		l.closer.Close()
	}
}

// Log implements the go-kit log.Logger interface
func (l *Logger) Log(keyvals ...interface{}) error {
	return l.logger.Log(keyvals...)
}

// pkgCaller wraps a stack.Call to make the default string output include the
// package path
type pkgCaller struct {
	c stack.Call
}

// String returns a path from the call stack that is relative to the root of the project
func (pc pkgCaller) String() string {
	return strings.TrimPrefix(fmt.Sprintf("%+v", pc.c), "github.com/spindlecache/spindle/")
}
