// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ca holds the core value types of a one-dimensional elementary
// cellular automaton: the Wolfram rule number and the initial state of
// generation zero. These are pure, comparable values shared by every
// downstream package (internal/rule, internal/tile, internal/tilecache,
// internal/assemble) and are never mutated once a run has started.
package ca

import "hash/fnv"

// Rule is a Wolfram elementary CA rule number in [0, 255]. Bit b of Rule is
// the next-state output for the neighborhood encoding b = 4*left + 2*center + right.
type Rule uint8

// Valid reports whether r is usable. Every uint8 value is a valid Wolfram
// rule number, so this always returns true; it exists for symmetry with
// other Validate-style checks and to make intent explicit at call sites.
func (r Rule) Valid() bool { return true }

// State is the initial row of the automaton at generation 0, a finite
// binary string placed at world columns [0, len(State)). All other cells
// of generation 0 are 0. A State of length 0 represents the default
// single-cell seed: one 1 at world column 0.
type State struct {
	// Bits holds one byte per cell, each 0 or 1, for explicit initial
	// states. Nil or empty means "single center cell at x=0".
	Bits []byte

	// hash caches the fingerprint so repeated lookups (every tile key
	// construction) don't re-hash the state.
	hash    uint64
	hashSet bool
}

// SingleCell returns the default initial state: a single 1-cell at world
// origin, with fingerprint 0.
func SingleCell() State {
	return State{}
}

// NewState parses a binary string of '0'/'1' characters into a State.
// An empty string also yields the default single-cell state. Any other
// character is a configuration error, reported by the caller (config.Validate).
func NewState(s string) (State, error) {
	if s == "" {
		return State{}, nil
	}
	bits := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			bits[i] = 0
		case '1':
			bits[i] = 1
		default:
			return State{}, &InvalidCharError{Char: s[i], Index: i}
		}
	}
	return State{Bits: bits}, nil
}

// InvalidCharError reports a non-binary character in an initial state string.
type InvalidCharError struct {
	Char  byte
	Index int
}

func (e *InvalidCharError) Error() string {
	return "ca: invalid initial state character " + string(rune(e.Char)) + " at index " + itoa(e.Index)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// At returns the generation-0 value of world column x: 0 or 1.
func (s State) At(x int64) byte {
	if len(s.Bits) == 0 {
		return boolBit(x == 0)
	}
	if x < 0 || x >= int64(len(s.Bits)) {
		return 0
	}
	return s.Bits[x]
}

func boolBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Len reports the explicit width of the state, or 0 for the default
// single-cell seed (whose effective width is 1, at column 0).
func (s State) Len() int { return len(s.Bits) }

// Fingerprint returns a 64-bit domain-stable hash of the state, used to key
// tile caches so that a change of initial state invalidates every cached
// tile. The default single-cell state fingerprints to 0.
func (s *State) Fingerprint() uint64 {
	if len(s.Bits) == 0 {
		return 0
	}
	if s.hashSet {
		return s.hash
	}
	h := fnv.New64a()
	_, _ = h.Write(s.Bits)
	s.hash = h.Sum64()
	s.hashSet = true
	return s.hash
}
