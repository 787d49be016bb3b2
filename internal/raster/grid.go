// Package raster provides the in-memory grid model and the cell-level
// operations used for hotspot delineation: validity masking, percentile
// statistics, threshold reclassification, and connected-component filtering.
package raster

import (
	"fmt"
	"math"
)

// Ref carries the spatial referencing of a grid. It is passed through
// unchanged by every operation in this package; the algorithms never
// inspect it.
type Ref struct {
	CRS      string  `json:"crs"`
	OriginX  float64 `json:"origin_x"`
	OriginY  float64 `json:"origin_y"`
	CellSize float64 `json:"cell_size"`
}

// Grid is a 2D raster of numeric cell values in row-major order with a
// distinguished no-data sentinel. Grids are treated as immutable once
// built: every operation returns a new Grid and leaves its input intact.
type Grid struct {
	Width  int
	Height int
	NoData float64
	Ref    Ref
	Values []float64
}

// NewGrid creates a grid of the given shape with every cell set to the
// no-data sentinel.
func NewGrid(width, height int, noData float64, ref Ref) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid shape: %dx%d", width, height)
	}
	values := make([]float64, width*height)
	for i := range values {
		values[i] = noData
	}
	return &Grid{
		Width:  width,
		Height: height,
		NoData: noData,
		Ref:    ref,
		Values: values,
	}, nil
}

// NewGridFromValues creates a grid backed by the given row-major values.
// The slice is owned by the grid afterwards.
func NewGridFromValues(width, height int, noData float64, ref Ref, values []float64) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid shape: %dx%d", width, height)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("value count %d does not match shape %dx%d", len(values), width, height)
	}
	return &Grid{
		Width:  width,
		Height: height,
		NoData: noData,
		Ref:    ref,
		Values: values,
	}, nil
}

// Index returns the row-major index of cell (x, y).
func (g *Grid) Index(x, y int) int {
	return y*g.Width + x
}

// At returns the value of cell (x, y).
func (g *Grid) At(x, y int) float64 {
	return g.Values[y*g.Width+x]
}

// InBounds reports whether (x, y) lies inside the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// IsNoData reports whether v is the grid's no-data sentinel. A NaN
// sentinel matches any NaN value.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(g.NoData) {
		return math.IsNaN(v)
	}
	return v == g.NoData
}

// Valid reports whether cell (x, y) carries real data.
func (g *Grid) Valid(x, y int) bool {
	return !g.IsNoData(g.Values[y*g.Width+x])
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	values := make([]float64, len(g.Values))
	copy(values, g.Values)
	return &Grid{
		Width:  g.Width,
		Height: g.Height,
		NoData: g.NoData,
		Ref:    g.Ref,
		Values: values,
	}
}

// Max returns the largest valid cell value. ok is false when the grid
// holds no valid cells.
func (g *Grid) Max() (v float64, ok bool) {
	for _, cell := range g.Values {
		if g.IsNoData(cell) {
			continue
		}
		if !ok || cell > v {
			v = cell
			ok = true
		}
	}
	return v, ok
}

// CountValue returns the number of valid cells equal to v.
func (g *Grid) CountValue(v float64) int {
	n := 0
	for _, cell := range g.Values {
		if !g.IsNoData(cell) && cell == v {
			n++
		}
	}
	return n
}

// SameShape reports whether the two grids have identical dimensions.
func (g *Grid) SameShape(other *Grid) bool {
	return other != nil && g.Width == other.Width && g.Height == other.Height
}
