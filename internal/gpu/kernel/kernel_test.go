// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package kernel

import "testing"

func TestConfigBytesLayout(t *testing.T) {
	buf := configBytes(256, 30, 4, 5)
	if len(buf) != configSize {
		t.Fatalf("configBytes length = %d, want %d", len(buf), configSize)
	}
	want := []byte{
		0, 1, 0, 0, // width = 256
		30, 0, 0, 0, // rule = 30
		4, 0, 0, 0, // row_in = 4
		5, 0, 0, 0, // row_out = 5
	}
	for i, b := range want {
		if buf[i] != b {
			t.Fatalf("configBytes[%d] = %d, want %d (full: %v)", i, buf[i], b, buf)
		}
	}
}

func TestStepShaderTemplateHasPlaceholder(t *testing.T) {
	if !containsPlaceholder(stepShaderTemplate) {
		t.Fatal("step.wgsl must contain the __CA_RULE_SOURCE__ placeholder")
	}
}

func containsPlaceholder(s string) bool {
	const needle = "__CA_RULE_SOURCE__"
	for i := 0; i+len(needle) <= len(s); i++ {
		if s[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
