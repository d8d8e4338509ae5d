// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tilecache

import (
	"testing"

	"github.com/gogpu/cellwatch/internal/tile"
	"github.com/gogpu/cellwatch/tilekey"
	"github.com/gogpu/wgpu/hal"
)

// fakeBuffer is a distinguishable hal.Buffer stand-in; its identity is all
// that matters for these tests (no real GPU calls ever reach it since
// fakeDevice.DestroyBuffer just records the call).
type fakeBuffer struct{ id string }

// fakeDevice is a minimal tile.Destroyer that records released buffer ids
// instead of touching a real GPU device.
type fakeDevice struct {
	released []string
}

func (d *fakeDevice) DestroyBuffer(b hal.Buffer) {
	if fb, ok := b.(*fakeBuffer); ok {
		d.released = append(d.released, fb.id)
	}
}

func newTestPayload(dev *fakeDevice, id string) *tile.Payload {
	return tile.NewPayload(&fakeBuffer{id: id}, dev, 0, 4, 4)
}

func key(tx, ty int32) tilekey.Key {
	return tilekey.Key{Rule: 30, StateHash: 0, TX: tx, TY: ty}
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New(3)
	_, ok := c.Get(key(0, 0))
	if ok {
		t.Fatal("expected miss on empty cache")
	}
	if c.Misses != 1 || c.Hits != 0 {
		t.Fatalf("misses=%d hits=%d, want misses=1 hits=0", c.Misses, c.Hits)
	}
}

func TestInsertThenGetHits(t *testing.T) {
	dev := &fakeDevice{}
	c := New(3)
	p := newTestPayload(dev, "A")
	c.Insert(key(0, 0), p)

	got, ok := c.Get(key(0, 0))
	if !ok {
		t.Fatal("expected hit after insert")
	}
	if got != p {
		t.Fatal("Get returned a different payload than was inserted")
	}
	if c.Hits != 1 {
		t.Fatalf("hits=%d, want 1", c.Hits)
	}
}

// TestScenarioCacheLRU checks a capacity-3 cache through the sequence
// insert A, insert B, insert C, get A, insert D: after D, the cache
// contains exactly {A, C, D}, and B is the single evicted and released tile.
func TestScenarioCacheLRU(t *testing.T) {
	dev := &fakeDevice{}
	c := New(3)

	a, b, cc, d := newTestPayload(dev, "A"), newTestPayload(dev, "B"), newTestPayload(dev, "C"), newTestPayload(dev, "D")

	c.Insert(key(0, 0), a)
	c.Insert(key(1, 0), b)
	c.Insert(key(2, 0), cc)
	if _, ok := c.Get(key(0, 0)); !ok {
		t.Fatal("expected hit on A")
	}
	c.Insert(key(3, 0), d)

	if c.Len() != 3 {
		t.Fatalf("len=%d, want 3", c.Len())
	}
	for _, k := range []tilekey.Key{key(0, 0), key(2, 0), key(3, 0)} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %v present", k)
		}
	}
	if _, ok := c.Get(key(1, 0)); ok {
		t.Fatal("B should have been evicted")
	}
	if len(dev.released) != 1 || dev.released[0] != "B" {
		t.Fatalf("released = %v, want [B]", dev.released)
	}
}

func TestCapacityZeroDisablesCache(t *testing.T) {
	dev := &fakeDevice{}
	c := New(0)
	p := newTestPayload(dev, "A")
	c.Insert(key(0, 0), p)
	if c.Len() != 0 {
		t.Fatalf("len=%d, want 0 (capacity 0 disables caching)", c.Len())
	}
	_, ok := c.Get(key(0, 0))
	if ok {
		t.Fatal("capacity 0 cache must never hit")
	}
	// Insert being a no-op must not release the caller's payload either.
	if len(dev.released) != 0 {
		t.Fatalf("released = %v, want none", dev.released)
	}
}

func TestClearReleasesAllTiles(t *testing.T) {
	dev := &fakeDevice{}
	c := New(2)
	c.Insert(key(0, 0), newTestPayload(dev, "A"))
	c.Insert(key(1, 0), newTestPayload(dev, "B"))
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("len=%d, want 0 after Clear", c.Len())
	}
	if len(dev.released) != 2 {
		t.Fatalf("released=%v, want 2 entries", dev.released)
	}
}

func TestInsertAtCapacityEvictsExactlyOne(t *testing.T) {
	dev := &fakeDevice{}
	c := New(2)
	c.Insert(key(0, 0), newTestPayload(dev, "A"))
	c.Insert(key(1, 0), newTestPayload(dev, "B"))
	c.Insert(key(2, 0), newTestPayload(dev, "C"))
	if c.Len() != 2 {
		t.Fatalf("len=%d, want 2", c.Len())
	}
	if len(dev.released) != 1 {
		t.Fatalf("released %d tiles, want exactly 1", len(dev.released))
	}
}
