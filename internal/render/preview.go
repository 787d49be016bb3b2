// Package render produces PNG previews of raster grids using fogleman/gg.
package render

import (
	"bytes"
	"image/color"
	"image/png"
	"sync"

	"github.com/fogleman/gg"

	"github.com/richness-hotspots/server/internal/raster"
	"github.com/richness-hotspots/server/pkg/colormap"
)

// Config contains renderer configuration.
type Config struct {
	MaxDim      int    // longest preview edge in pixels
	DefaultRamp string // ramp used when the caller names none
}

// PreviewRenderer renders grids to PNG previews. Values are normalized
// over the grid's valid range and mapped through a color ramp; no-data
// cells render white.
type PreviewRenderer struct {
	config     Config
	bufferPool sync.Pool
}

// NewPreviewRenderer creates a preview renderer.
func NewPreviewRenderer(cfg Config) *PreviewRenderer {
	if cfg.MaxDim <= 0 {
		cfg.MaxDim = 1024
	}
	if cfg.DefaultRamp == "" {
		cfg.DefaultRamp = "viridis"
	}
	return &PreviewRenderer{
		config: cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
	}
}

// previewSize scales a grid shape to fit the configured maximum edge.
func (r *PreviewRenderer) previewSize(g *raster.Grid) (int, int) {
	w, h := g.Width, g.Height
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= r.config.MaxDim {
		return w, h
	}
	scale := float64(r.config.MaxDim) / float64(longest)
	outW := int(float64(w) * scale)
	outH := int(float64(h) * scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}

// RenderGrid renders a preview of a grid through the named ramp,
// normalizing values over the valid range. Nearest-neighbor sampling is
// used when the grid is larger than the preview.
func (r *PreviewRenderer) RenderGrid(g *raster.Grid, rampName string) ([]byte, error) {
	if rampName == "" {
		rampName = r.config.DefaultRamp
	}
	ramp := colormap.ByName(rampName)

	lo, hi, any := valueRange(g)
	span := hi - lo
	if span == 0 {
		span = 1
	}

	outW, outH := r.previewSize(g)
	dc := gg.NewContext(outW, outH)
	dc.SetColor(color.White)
	dc.Clear()

	if any {
		for py := 0; py < outH; py++ {
			sy := py * g.Height / outH
			for px := 0; px < outW; px++ {
				sx := px * g.Width / outW
				v := g.At(sx, sy)
				if g.IsNoData(v) {
					continue
				}
				dc.SetColor(ramp.At((v - lo) / span))
				dc.SetPixel(px, py)
			}
		}
	}

	return r.encodeContext(dc)
}

// RenderHotspots renders a binary hotspot grid: hotspot cells in the
// hotspot ramp's strongest color, everything else white.
func (r *PreviewRenderer) RenderHotspots(g *raster.Grid) ([]byte, error) {
	outW, outH := r.previewSize(g)
	dc := gg.NewContext(outW, outH)
	dc.SetColor(color.White)
	dc.Clear()

	hot := colormap.Hotspot.At(1)
	dc.SetColor(hot)
	for py := 0; py < outH; py++ {
		sy := py * g.Height / outH
		for px := 0; px < outW; px++ {
			sx := px * g.Width / outW
			if g.Valid(sx, sy) {
				dc.SetPixel(px, py)
			}
		}
	}

	return r.encodeContext(dc)
}

func (r *PreviewRenderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}

	// Copy out: the buffer goes back to the pool.
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

func valueRange(g *raster.Grid) (lo, hi float64, any bool) {
	for _, v := range g.Values {
		if g.IsNoData(v) {
			continue
		}
		if !any {
			lo, hi = v, v
			any = true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, any
}
