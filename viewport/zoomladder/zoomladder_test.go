// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package zoomladder

import "testing"

func TestLadderIsSortedAndInRange(t *testing.T) {
	if len(Ladder) == 0 {
		t.Fatal("ladder is empty")
	}
	for i, v := range Ladder {
		if v < 1 || v > 500 {
			t.Fatalf("Ladder[%d] = %d out of range [1,500]", i, v)
		}
		if i > 0 && Ladder[i-1] >= v {
			t.Fatalf("ladder not strictly sorted at index %d: %d >= %d", i, Ladder[i-1], v)
		}
	}
}

func TestNextStepsUp(t *testing.T) {
	cases := []struct{ current, want int }{
		{1, 2},
		{10, 12},
		{100, 120},
		{500, 500}, // already at top
	}
	for _, c := range cases {
		if got := Next(c.current); got != c.want {
			t.Errorf("Next(%d) = %d, want %d", c.current, got, c.want)
		}
	}
}

func TestPrevStepsDown(t *testing.T) {
	cases := []struct{ current, want int }{
		{500, 450},
		{12, 10},
		{2, 1},
		{1, 1}, // already at bottom
	}
	for _, c := range cases {
		if got := Prev(c.current); got != c.want {
			t.Errorf("Prev(%d) = %d, want %d", c.current, got, c.want)
		}
	}
}

func TestNearestSnapsToClosestEntry(t *testing.T) {
	cases := []struct {
		target float64
		want   int
	}{
		{16.4, 16},
		{17.0, 16}, // 16 and 18 are equidistant-ish; 17 is 1 from 16, 1 from 18 -> tie favors smaller
		{0.0, 1},
		{10000.0, 500},
	}
	for _, c := range cases {
		if got := Nearest(c.target); got != c.want {
			t.Errorf("Nearest(%v) = %d, want %d", c.target, got, c.want)
		}
	}
}

func TestNextPrevRoundTrip(t *testing.T) {
	for _, v := range Ladder {
		if v == Ladder[len(Ladder)-1] {
			continue
		}
		up := Next(v)
		if down := Prev(up); down != v {
			t.Errorf("Prev(Next(%d))=%d, want %d", v, down, v)
		}
	}
}
