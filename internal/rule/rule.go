// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package rule implements the elementary cellular automaton rule evaluator:
// the single pure function at the bottom of the dependency graph, and its
// WGSL equivalent for the GPU compute kernel.
package rule

import "github.com/gogpu/cellwatch/ca"

// Next computes the next-generation value of a cell given its left, center,
// and right neighbors at the current generation and the active rule.
// left, center, right must each be 0 or 1. Returns bit
// (rule >> (4*left + 2*center + right)) & 1.
//
// This is the CPU-side reference used by tests; the GPU compute kernel
// evaluates the same function per-cell via the WGSL source in Source.
func Next(left, center, right byte, r ca.Rule) byte {
	idx := 4*left + 2*center + right
	return byte(r>>idx) & 1
}

// Source is the WGSL fragment implementing Next for the GPU compute kernel:
// a pure function ca_next over one neighbor triple. It touches no buffer;
// internal/gpu/kernel's step shader, into which this fragment is spliced,
// does the row reads and writes and treats out-of-bounds column reads as
// the dead boundary (0).
const Source = `
fn ca_next(left: u32, center: u32, right: u32, rule: u32) -> u32 {
    let idx = 4u * left + 2u * center + right;
    return (rule >> idx) & 1u;
}
`
