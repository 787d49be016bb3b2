package raster

import "testing"

func TestReclassifyInclusiveRange(t *testing.T) {
	g, _ := NewGridFromValues(5, 1, -9999, Ref{}, []float64{1, 5, 10, 15, -9999})
	out := Reclassify(g, 5, 10)

	want := []float64{-9999, 1, 1, -9999, -9999}
	for i, w := range want {
		if out.Values[i] != w {
			t.Fatalf("cell %d: expected %v, got %v", i, w, out.Values[i])
		}
	}
	// Source grid untouched.
	if g.Values[1] != 5 {
		t.Fatal("reclassify mutated its input")
	}
}

func TestReclassifyKeepsReference(t *testing.T) {
	ref := Ref{CRS: "EPSG:4326", CellSize: 0.008333}
	g, _ := NewGridFromValues(2, 1, -9999, ref, []float64{3, 7})
	out := Reclassify(g, 5, 10)
	if out.Ref != ref {
		t.Fatalf("spatial reference not passed through: %+v", out.Ref)
	}
}

func TestReclassifyMonotonicity(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i % 20)
	}
	g, _ := NewGridFromValues(10, 10, -9999, Ref{}, values)

	// Raising the threshold can never grow the candidate set.
	prev := Reclassify(g, 0, 19).CountValue(1)
	for threshold := 1; threshold < 20; threshold++ {
		n := Reclassify(g, float64(threshold), 19).CountValue(1)
		if n > prev {
			t.Fatalf("threshold %d grew hotspot count: %d > %d", threshold, n, prev)
		}
		prev = n
	}
}
