package raster

import (
	"math"
	"testing"
)

func TestNewGridFromValues(t *testing.T) {
	g, err := NewGridFromValues(3, 2, -9999, Ref{}, []float64{1, 2, 3, -9999, 5, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.At(0, 0) != 1 || g.At(2, 1) != 6 {
		t.Fatalf("unexpected cell values: %v", g.Values)
	}
	if g.Valid(0, 1) {
		t.Fatal("no-data cell reported as valid")
	}
	if !g.Valid(1, 1) {
		t.Fatal("valid cell reported as no-data")
	}

	t.Run("shapeMismatch", func(t *testing.T) {
		if _, err := NewGridFromValues(3, 2, 0, Ref{}, []float64{1, 2}); err == nil {
			t.Fatal("expected error for mismatched value count")
		}
	})

	t.Run("invalidShape", func(t *testing.T) {
		if _, err := NewGrid(0, 5, 0, Ref{}); err == nil {
			t.Fatal("expected error for zero width")
		}
	})
}

func TestGridNaNSentinel(t *testing.T) {
	nan := math.NaN()
	g, err := NewGridFromValues(2, 1, nan, Ref{}, []float64{3, nan})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Valid(0, 0) {
		t.Fatal("value cell reported as no-data under NaN sentinel")
	}
	if g.Valid(1, 0) {
		t.Fatal("NaN cell reported as valid under NaN sentinel")
	}
}

func TestGridMax(t *testing.T) {
	g, _ := NewGridFromValues(2, 2, -1, Ref{}, []float64{4, -1, 7, 2})
	v, ok := g.Max()
	if !ok || v != 7 {
		t.Fatalf("expected max 7, got %v (ok=%v)", v, ok)
	}

	empty, _ := NewGrid(2, 2, -1, Ref{})
	if _, ok := empty.Max(); ok {
		t.Fatal("expected no max for all-no-data grid")
	}
}

func TestGridClone(t *testing.T) {
	ref := Ref{CRS: "EPSG:3857", OriginX: -20037507, OriginY: 18422517, CellSize: 1000}
	g, _ := NewGridFromValues(2, 1, -9999, ref, []float64{1, 2})
	c := g.Clone()
	c.Values[0] = 42
	if g.Values[0] != 1 {
		t.Fatal("clone shares backing storage with source")
	}
	if c.Ref != ref {
		t.Fatalf("clone dropped spatial reference: %+v", c.Ref)
	}
}

func TestValidMask(t *testing.T) {
	g, _ := NewGridFromValues(3, 2, -9999, Ref{}, []float64{1, -9999, 3, -9999, 5, 0})
	m := ValidMask(g)

	if m.Width != g.Width || m.Height != g.Height {
		t.Fatalf("mask shape %dx%d does not match grid %dx%d", m.Width, m.Height, g.Width, g.Height)
	}
	if m.Count() != 4 {
		t.Fatalf("expected 4 valid cells, got %d", m.Count())
	}
	// The mask must agree with the sentinel cell by cell.
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if m.At(x, y) != g.Valid(x, y) {
				t.Fatalf("mask disagrees with grid validity at (%d,%d)", x, y)
			}
		}
	}
}
