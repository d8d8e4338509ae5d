// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package viewport

import (
	"testing"
	"time"
)

func TestReplayEventSourceDrainsInOrder(t *testing.T) {
	start := time.Unix(0, 0)
	src := NewReplayEventSource(start,
		PointerDownEvent{X: 10, Y: 10},
		PointerMoveEvent{X: 20, Y: 10},
		PointerUpEvent{},
	)

	c := NewCore(800, 600)
	c.Now = src.Now

	for {
		ev, ok := src.Poll()
		if !ok {
			break
		}
		c.Apply(ev)
	}

	if c.drag.active {
		t.Fatal("expected drag to be released after PointerUpEvent")
	}
	if c.Viewport.OffsetX >= 0 {
		t.Fatalf("offset_x = %v, want < 0 after dragging right by 10px", c.Viewport.OffsetX)
	}
}

func TestReplayEventSourceExhausted(t *testing.T) {
	src := NewReplayEventSource(time.Unix(0, 0), QuitEvent{})
	if _, ok := src.Poll(); !ok {
		t.Fatal("expected first poll to return the scripted event")
	}
	if _, ok := src.Poll(); ok {
		t.Fatal("expected poll to report exhausted after all events drained")
	}
}

func TestApplyDispatchesAllEventTypes(t *testing.T) {
	c := NewCore(800, 600)

	c.Apply(TouchDownEvent{ID: 1, X: 10, Y: 10})
	c.Apply(TouchDownEvent{ID: 2, X: 50, Y: 10})
	c.Apply(TouchMoveEvent{ID: 1, X: 5, Y: 10})
	c.Apply(TouchUpEvent{ID: 2})
	c.Apply(TouchUpEvent{ID: 1})
	if len(c.touches) != 0 {
		t.Fatalf("expected all touches released, got %d remaining", len(c.touches))
	}

	c.Apply(ScrollEvent{Delta: 1, X: 400, Y: 300})
	c.Apply(ResizeEvent{Width: 1024, Height: 768})
	c.Apply(FullscreenToggleEvent{})
	if !c.FullscreenRequested {
		t.Fatal("expected fullscreen toggle to flip FullscreenRequested")
	}

	c.Apply(ResetEvent{})
	c.Apply(QuitEvent{})
	if !c.Quitting {
		t.Fatal("expected quit event to set Quitting")
	}
}

func TestReplayEventSourceAdvanceDrivesDebounce(t *testing.T) {
	start := time.Unix(0, 0)
	src := NewReplayEventSource(start, ResetEvent{})
	c := NewCore(800, 600)
	c.Now = src.Now

	ev, _ := src.Poll()
	c.Apply(ev)

	if c.ShouldRecompute(50 * time.Millisecond) {
		t.Fatal("should not recompute before the synthetic clock advances")
	}
	src.Advance(60 * time.Millisecond)
	if !c.ShouldRecompute(50 * time.Millisecond) {
		t.Fatal("should recompute once the synthetic clock passes debounce")
	}
}
