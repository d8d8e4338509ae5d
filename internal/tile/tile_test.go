// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package tile

import (
	"testing"

	"github.com/gogpu/cellwatch/ca"
)

func TestComputeGeometryTile0(t *testing.T) {
	g, err := ComputeGeometry(0, 0, 256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.GenerationEnd != 256 {
		t.Fatalf("GenerationEnd = %d, want 256", g.GenerationEnd)
	}
	if g.Padding != 256 {
		t.Fatalf("Padding = %d, want 256", g.Padding)
	}
	if g.SimWidth != 256+2*256 {
		t.Fatalf("SimWidth = %d, want %d", g.SimWidth, 256+2*256)
	}
	if g.BufferHeight != 257 {
		t.Fatalf("BufferHeight = %d, want 257", g.BufferHeight)
	}
	if g.SeedShift != 256 {
		t.Fatalf("SeedShift = %d, want 256 (tx=0)", g.SeedShift)
	}
}

func TestComputeGeometryNegativeTYFails(t *testing.T) {
	_, err := ComputeGeometry(0, -1, 256)
	if err != ErrGeometryOverflow {
		t.Fatalf("expected ErrGeometryOverflow for ty<0, got %v", err)
	}
}

func TestComputeGeometryDepthGrowsWithTY(t *testing.T) {
	g0, _ := ComputeGeometry(0, 0, 256)
	g1, _ := ComputeGeometry(0, 1, 256)
	if g1.Padding <= g0.Padding {
		t.Fatalf("padding should grow with ty: g0=%d g1=%d", g0.Padding, g1.Padding)
	}
	if g1.SimWidth <= g0.SimWidth {
		t.Fatalf("sim width should grow with ty: g0=%d g1=%d", g0.SimWidth, g1.SimWidth)
	}
}

func TestBuildSeedRowSingleCellAtOrigin(t *testing.T) {
	g, _ := ComputeGeometry(0, 0, 4)
	seed := BuildSeedRow(g, ca.SingleCell())
	// World column 0 sits at index g.SeedShift.
	for i, v := range seed {
		worldCol := int64(i) - g.SeedShift
		want := uint32(0)
		if worldCol == 0 {
			want = 1
		}
		if v != want {
			t.Fatalf("seed[%d] (world col %d) = %d, want %d", i, worldCol, v, want)
		}
	}
}

func TestBuildSeedRowExplicitState(t *testing.T) {
	state, err := ca.NewState("101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, _ := ComputeGeometry(1, 0, 4) // tx=1 shifts the seed left
	seed := BuildSeedRow(g, state)
	for i, v := range seed {
		worldCol := int64(i) - g.SeedShift
		want := state.At(worldCol)
		if v != uint32(want) {
			t.Fatalf("seed[%d] (world col %d) = %d, want %d", i, worldCol, v, want)
		}
	}
}

func TestComputeRegionGeometryCollapsesToTileGeometry(t *testing.T) {
	tileG, err := ComputeGeometry(2, 3, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	regionG, err := ComputeRegionGeometry(2*64, 3*64, 64, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tileG != regionG {
		t.Fatalf("ComputeGeometry and ComputeRegionGeometry disagree: %+v vs %+v", tileG, regionG)
	}
}

func TestComputeRegionGeometryRejectsNegativeY0(t *testing.T) {
	_, err := ComputeRegionGeometry(0, -1, 10, 10)
	if err != ErrGeometryOverflow {
		t.Fatalf("expected ErrGeometryOverflow for y0<0, got %v", err)
	}
}

func TestComputeRegionGeometryUnalignedViewportRegion(t *testing.T) {
	// A viewport region need not be tile-grid-aligned: width/height can be
	// arbitrary positive values, and x0 can be any signed offset.
	g, err := ComputeRegionGeometry(-17, 5, 123, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.GenerationEnd != 14 {
		t.Fatalf("GenerationEnd = %d, want 14", g.GenerationEnd)
	}
	if g.SimWidth != 123+2*14 {
		t.Fatalf("SimWidth = %d, want %d", g.SimWidth, 123+2*14)
	}
	if g.SeedShift != 14-(-17) {
		t.Fatalf("SeedShift = %d, want %d", g.SeedShift, 14-(-17))
	}
}

func TestComputeGeometryTXShiftsSeed(t *testing.T) {
	g0, _ := ComputeGeometry(0, 0, 256)
	g1, _ := ComputeGeometry(1, 0, 256)
	if g1.SeedShift >= g0.SeedShift {
		t.Fatalf("increasing tx should decrease seed shift: g0=%d g1=%d", g0.SeedShift, g1.SeedShift)
	}
	if g0.SeedShift-g1.SeedShift != 256 {
		t.Fatalf("seed shift should move by exactly T=256 per tx step, got delta %d", g0.SeedShift-g1.SeedShift)
	}
}
