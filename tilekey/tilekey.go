// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tilekey defines the tile cache's key type: tile grid coordinates
// under a given rule and initial-state fingerprint.
package tilekey

import "github.com/gogpu/cellwatch/ca"

// Key identifies a single tile: (rule, initial_state_hash, tx, ty). Keys
// under different rule or state hash never alias, so a rule or initial
// state change never returns a stale tile from the cache.
type Key struct {
	Rule      ca.Rule
	StateHash uint64
	TX, TY    int32
}

// Hash folds all four fields into a single 64-bit value for use as a map
// key's pre-mixed hash, or for callers that want a compact fingerprint of
// the key itself (e.g. logging). Go's built-in map already hashes Key
// structurally since Key is comparable; Hash exists for the rare caller
// that needs a single integer (metrics labels, external cache backends)
// without re-deriving the mix.
func (k Key) Hash() uint64 {
	// FNV-1a over the four fields, folded by hand so the cost stays
	// constant regardless of field width.
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	mix := func(v uint64) {
		for i := 0; i < 8; i++ {
			h ^= (v >> (8 * i)) & 0xff
			h *= prime
		}
	}
	mix(uint64(k.Rule))
	mix(k.StateHash)
	mix(uint64(uint32(k.TX)))
	mix(uint64(uint32(k.TY)))
	return h
}
