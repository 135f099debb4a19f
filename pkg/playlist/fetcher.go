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

package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spindlecache/spindle/pkg/config"
)

// Fetcher is the narrow contract through which the poll/broadcast service
// obtains playlist snapshots from the remote source
type Fetcher interface {
	Fetch(ctx context.Context) (*Playlist, error)
}

// HTTPFetcher implements Fetcher over an HTTP JSON playlist endpoint
var _ Fetcher = &HTTPFetcher{}

// HTTPFetcher retrieves playlist snapshots from a remote HTTP endpoint
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher for the provided playlist configuration
func NewHTTPFetcher(cfg *config.PlaylistConfig) *HTTPFetcher {
	return &HTTPFetcher{
		URL:    cfg.URL,
		Client: &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
	}
}

// Fetch retrieves and decodes one playlist snapshot
func (f *HTTPFetcher) Fetch(ctx context.Context) (*Playlist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("playlist fetch returned status %d", resp.StatusCode)
	}
	p := &Playlist{}
	if err := json.NewDecoder(resp.Body).Decode(p); err != nil {
		return nil, err
	}
	return p, nil
}
