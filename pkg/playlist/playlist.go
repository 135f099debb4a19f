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

// Package playlist defines the station playlist snapshot model as last
// observed from the remote source. Snapshots are immutable; each
// successful poll that differs from the previous snapshot replaces it
// wholesale.
package playlist

import (
	"golang.org/x/exp/slices"
)

// Playcut represents one song spin on the station playlist
type Playcut struct {
	// ID uniquely identifies the playcut
	ID int64 `json:"id"`
	// Hour is the broadcast hour of the playcut, in unix milliseconds
	Hour int64 `json:"hour"`
	// Chronological orders the playcut within its hour
	Chronological int `json:"chronOrderID"`
	// SongTitle is the title of the spun song
	SongTitle string `json:"songTitle"`
	// ArtistName is the name of the performing artist
	ArtistName string `json:"artistName"`
	// ReleaseTitle is the title of the release the song appears on
	ReleaseTitle string `json:"releaseTitle"`
	// LabelName is the name of the releasing label
	LabelName string `json:"labelName"`
}

// Talkset represents an on-air talk segment between spins
type Talkset struct {
	ID   int64 `json:"id"`
	Hour int64 `json:"hour"`
}

// Breakpoint represents a top-of-hour boundary marker on the playlist
type Breakpoint struct {
	ID   int64 `json:"id"`
	Hour int64 `json:"hour"`
}

// Playlist is an immutable snapshot of the station playlist
type Playlist struct {
	Playcuts    []Playcut    `json:"playcuts"`
	Talksets    []Talkset    `json:"talksets"`
	Breakpoints []Breakpoint `json:"breakpoints"`
}

// NowPlaying returns the most recent playcut on the snapshot, or false when
// the snapshot holds none
func (p *Playlist) NowPlaying() (Playcut, bool) {
	if p == nil || len(p.Playcuts) == 0 {
		return Playcut{}, false
	}
	return p.Playcuts[0], true
}

// IsEmpty indicates whether the snapshot holds no entries of any kind
func (p *Playlist) IsEmpty() bool {
	return p == nil || (len(p.Playcuts) == 0 && len(p.Talksets) == 0 && len(p.Breakpoints) == 0)
}

// Equal indicates whether two snapshots hold the same entry identity
// sequences. It is used to detect "no change" between polls and suppress
// redundant broadcasts.
func (p *Playlist) Equal(other *Playlist) bool {
	if p == nil || other == nil {
		return p == other
	}
	return slices.EqualFunc(p.Playcuts, other.Playcuts,
		func(a, b Playcut) bool { return a.ID == b.ID }) &&
		slices.EqualFunc(p.Talksets, other.Talksets,
			func(a, b Talkset) bool { return a.ID == b.ID }) &&
		slices.EqualFunc(p.Breakpoints, other.Breakpoints,
			func(a, b Breakpoint) bool { return a.ID == b.ID })
}
