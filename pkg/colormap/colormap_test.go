package colormap

import (
	"image/color"
	"testing"
)

func TestRampEndpoints(t *testing.T) {
	lo := Viridis.At(0)
	hi := Viridis.At(1)
	if lo != (color.RGBA{68, 1, 84, 255}) {
		t.Fatalf("unexpected low endpoint: %v", lo)
	}
	if hi != (color.RGBA{253, 231, 37, 255}) {
		t.Fatalf("unexpected high endpoint: %v", hi)
	}

	t.Run("clamping", func(t *testing.T) {
		if Viridis.At(-2) != lo || Viridis.At(5) != hi {
			t.Fatal("out-of-range values must clamp to the endpoints")
		}
	})
}

func TestByName(t *testing.T) {
	if ByName("magma").At(1) != Magma.At(1) {
		t.Fatal("magma lookup failed")
	}
	if ByName("hotspot").At(1) != Hotspot.At(1) {
		t.Fatal("hotspot lookup failed")
	}
	// Unknown names fall back to viridis.
	if ByName("nope").At(0.5) != Viridis.At(0.5) {
		t.Fatal("unknown ramp did not fall back to viridis")
	}
}
