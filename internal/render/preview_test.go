package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/richness-hotspots/server/internal/raster"
)

func TestRenderGridProducesPNG(t *testing.T) {
	g, _ := raster.NewGridFromValues(4, 2, -9999, raster.Ref{}, []float64{
		1, 2, 3, 4,
		-9999, 6, 7, 8,
	})
	r := NewPreviewRenderer(Config{MaxDim: 64})

	data, err := r.RenderGrid(g, "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 4 || b.Dy() != 2 {
		t.Fatalf("expected 4x2 preview for a small grid, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderGridDownsamples(t *testing.T) {
	values := make([]float64, 200*100)
	g, _ := raster.NewGridFromValues(200, 100, -9999, raster.Ref{}, values)
	r := NewPreviewRenderer(Config{MaxDim: 50})

	data, err := r.RenderGrid(g, "magma")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 50 || b.Dy() != 25 {
		t.Fatalf("expected 50x25 preview, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderHotspots(t *testing.T) {
	g, _ := raster.NewGridFromValues(2, 1, -9999, raster.Ref{}, []float64{1, -9999})
	r := NewPreviewRenderer(Config{MaxDim: 64})

	data, err := r.RenderHotspots(g)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}

	r0, g0, b0, _ := img.At(0, 0).RGBA()
	r1, g1, b1, _ := img.At(1, 0).RGBA()
	if r0 == r1 && g0 == g1 && b0 == b1 {
		t.Fatal("hotspot and no-data cells rendered identically")
	}
}
