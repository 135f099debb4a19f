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

package main

import (
	"fmt"
	"os"
)

const usageText = `
Usage: %s [flags]

Flags:
  -config string
        path to the configuration file
  -log-level string
        overrides the configured log level (debug, info, warn, error)
  -version
        prints the version and exits

With no -config, %s runs with a default in-memory cache and no playlist
polling. See the documented example configuration for the full set of
cache providers and playlist settings.
`

func usage() {
	fmt.Fprintf(os.Stderr, usageText, applicationName, applicationName)
}
