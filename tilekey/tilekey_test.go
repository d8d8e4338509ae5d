// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tilekey

import "testing"

func TestHashDiffersOnEachField(t *testing.T) {
	base := Key{Rule: 30, StateHash: 1, TX: 2, TY: 3}
	variants := []Key{
		{Rule: 31, StateHash: 1, TX: 2, TY: 3},
		{Rule: 30, StateHash: 2, TX: 2, TY: 3},
		{Rule: 30, StateHash: 1, TX: 3, TY: 3},
		{Rule: 30, StateHash: 1, TX: 2, TY: 4},
	}
	baseHash := base.Hash()
	for _, v := range variants {
		if v.Hash() == baseHash {
			t.Fatalf("hash collision between %+v and %+v", base, v)
		}
	}
}

func TestHashDeterministic(t *testing.T) {
	k := Key{Rule: 90, StateHash: 12345, TX: -4, TY: 7}
	if k.Hash() != k.Hash() {
		t.Fatal("hash is not deterministic")
	}
}

func TestKeyComparable(t *testing.T) {
	m := map[Key]int{}
	k1 := Key{Rule: 30, StateHash: 0, TX: -1, TY: 0}
	k2 := Key{Rule: 30, StateHash: 0, TX: -1, TY: 0}
	m[k1] = 1
	if m[k2] != 1 {
		t.Fatal("equal keys should map to the same bucket")
	}
}
