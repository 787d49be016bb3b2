package raster

// Mask is a grid-shaped boolean field marking cells that carry real data.
// It is always derived from a grid, never stored as ground truth: callers
// recompute it whenever the source grid changes.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// ValidMask derives the valid-cell mask of a grid: true wherever the
// source cell is not no-data.
func ValidMask(g *Grid) *Mask {
	bits := make([]bool, len(g.Values))
	for i, v := range g.Values {
		bits[i] = !g.IsNoData(v)
	}
	return &Mask{
		Width:  g.Width,
		Height: g.Height,
		Bits:   bits,
	}
}

// Count returns the number of set cells in the mask.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// At returns the mask value at (x, y).
func (m *Mask) At(x, y int) bool {
	return m.Bits[y*m.Width+x]
}
