// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config validates the startup parameters delivered by the
// environment adapter (CLI flags, URL query parameters, or any other
// collaborator) before any GPU resource is allocated.
package config

import (
	"fmt"

	"github.com/gogpu/cellwatch/ca"
)

// Config holds the fully-parsed, range-checked startup parameters for a
// cellwatch run. It is immutable after Validate succeeds.
type Config struct {
	// Rule selects the CA rule, [0,255].
	Rule int

	// InitialState is the raw initial-state string ('0'/'1' characters),
	// or empty for the default single center cell.
	InitialState string

	// Width, Height are the initial window size in pixels, [500,8192].
	Width, Height int

	// DebounceMS is the recompute debounce interval in milliseconds, [0,5000].
	DebounceMS int

	// CacheTiles is the LRU tile cache capacity, [0,256]. 0 disables caching.
	CacheTiles int

	// TileSize is the tile side length T, [64,1024].
	TileSize int

	// Fullscreen requests starting in fullscreen mode.
	Fullscreen bool
}

// Default returns the startup defaults from the external interface table.
func Default() Config {
	return Config{
		Rule:         30,
		InitialState: "",
		Width:        1280,
		Height:       960,
		DebounceMS:   0,
		CacheTiles:   64,
		TileSize:     256,
		Fullscreen:   false,
	}
}

// Error reports a configuration error: an out-of-range or malformed
// startup parameter. Configuration errors are reported to the user and the
// process exits with non-zero status before any GPU resource is allocated.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Validate range-checks every field and parses InitialState into a ca.State.
// Returns the parsed rule and state, or a *Error describing the first
// problem found.
func (c Config) Validate() (ca.Rule, ca.State, error) {
	if c.Rule < 0 || c.Rule > 255 {
		return 0, ca.State{}, &Error{Field: "rule", Msg: "must be in [0,255]"}
	}
	if c.Width < 500 || c.Width > 8192 {
		return 0, ca.State{}, &Error{Field: "width", Msg: "must be in [500,8192]"}
	}
	if c.Height < 500 || c.Height > 8192 {
		return 0, ca.State{}, &Error{Field: "height", Msg: "must be in [500,8192]"}
	}
	if c.DebounceMS < 0 || c.DebounceMS > 5000 {
		return 0, ca.State{}, &Error{Field: "debounce_ms", Msg: "must be in [0,5000]"}
	}
	if c.CacheTiles < 0 || c.CacheTiles > 256 {
		return 0, ca.State{}, &Error{Field: "cache_tiles", Msg: "must be in [0,256]"}
	}
	if c.TileSize < 64 || c.TileSize > 1024 {
		return 0, ca.State{}, &Error{Field: "tile_size", Msg: "must be in [64,1024]"}
	}

	state, err := ca.NewState(c.InitialState)
	if err != nil {
		return 0, ca.State{}, &Error{Field: "initial_state", Msg: err.Error()}
	}

	return ca.Rule(c.Rule), state, nil
}
