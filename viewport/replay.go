// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package viewport

import "time"

// ReplayEventSource is a deterministic EventSource that replays a fixed
// sequence of events, one per Poll call, advancing a synthetic clock on
// Wait. It is intended for scripted end-to-end tests of the control loop,
// standing in for a real windowing collaborator.
type ReplayEventSource struct {
	events []Event
	pos    int
	clock  time.Time
}

// NewReplayEventSource creates a replay source starting at clock start that
// yields events in order.
func NewReplayEventSource(start time.Time, events ...Event) *ReplayEventSource {
	return &ReplayEventSource{events: events, clock: start}
}

// Poll returns the next scripted event, if any remain.
func (r *ReplayEventSource) Poll() (Event, bool) {
	if r.pos >= len(r.events) {
		return nil, false
	}
	e := r.events[r.pos]
	r.pos++
	return e, true
}

// Wait advances the synthetic clock to deadline. A replay source never
// blocks: there is nothing asynchronous to wait on.
func (r *ReplayEventSource) Wait(deadline time.Time) {
	if deadline.After(r.clock) {
		r.clock = deadline
	}
}

// Now returns the replay source's synthetic clock, suitable for wiring into
// Core.Now so debounce timing advances only as the test script dictates.
func (r *ReplayEventSource) Now() time.Time {
	return r.clock
}

// Advance moves the synthetic clock forward by d without waiting on an event.
func (r *ReplayEventSource) Advance(d time.Duration) {
	r.clock = r.clock.Add(d)
}
