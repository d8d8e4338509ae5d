// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import "testing"

func TestValidateDefaults(t *testing.T) {
	c := Default()
	rule, state, err := c.Validate()
	if err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if rule != 30 {
		t.Fatalf("default rule = %d, want 30", rule)
	}
	if state.Fingerprint() != 0 {
		t.Fatalf("default state fingerprint = %d, want 0", state.Fingerprint())
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"rule too low", func(c *Config) { c.Rule = -1 }, "rule"},
		{"rule too high", func(c *Config) { c.Rule = 256 }, "rule"},
		{"width too small", func(c *Config) { c.Width = 100 }, "width"},
		{"height too large", func(c *Config) { c.Height = 9000 }, "height"},
		{"debounce negative", func(c *Config) { c.DebounceMS = -1 }, "debounce_ms"},
		{"cache too large", func(c *Config) { c.CacheTiles = 257 }, "cache_tiles"},
		{"tile too small", func(c *Config) { c.TileSize = 1 }, "tile_size"},
		{"bad initial state", func(c *Config) { c.InitialState = "012" }, "initial_state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			_, _, err := c.Validate()
			if err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
			cfgErr, ok := err.(*Error)
			if !ok {
				t.Fatalf("expected *Error, got %T", err)
			}
			if cfgErr.Field != tt.wantErr {
				t.Fatalf("error field = %q, want %q", cfgErr.Field, tt.wantErr)
			}
		})
	}
}

func TestValidateExplicitInitialState(t *testing.T) {
	c := Default()
	c.InitialState = "10110"
	_, state, err := c.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Len() != 5 {
		t.Fatalf("state length = %d, want 5", state.Len())
	}
	if state.Fingerprint() == 0 {
		t.Fatalf("explicit state must not fingerprint to 0")
	}
}
