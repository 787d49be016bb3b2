package raster

// Reclassify produces a binary hotspot-candidate grid: cells of g with a
// value in [threshold, maxValue] become 1, everything else (values below
// the threshold, values above maxValue, and no-data cells) becomes
// no-data. maxValue is expected to be at least the grid's true maximum;
// the upper bound is inclusive so values sitting exactly on it are kept.
func Reclassify(g *Grid, threshold, maxValue float64) *Grid {
	out := &Grid{
		Width:  g.Width,
		Height: g.Height,
		NoData: g.NoData,
		Ref:    g.Ref,
		Values: make([]float64, len(g.Values)),
	}
	for i, v := range g.Values {
		if !g.IsNoData(v) && v >= threshold && v <= maxValue {
			out.Values[i] = 1
		} else {
			out.Values[i] = g.NoData
		}
	}
	return out
}
