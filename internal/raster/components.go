package raster

// eightNeighbors lists the offsets of the 8-connected neighborhood: a
// cell is connected to any cell sharing an edge or a corner with it.
var eightNeighbors = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// FilterComponents removes small disconnected fragments from a binary
// hotspot grid. Valid cells are grouped into 8-connected components;
// every component with fewer than minSize cells is reset to no-data in
// the output, while components of at least minSize cells keep their
// values. Label identity never matters, only component size, so the
// traversal order has no effect on which cells survive.
func FilterComponents(g *Grid, minSize int) *Grid {
	out := &Grid{
		Width:  g.Width,
		Height: g.Height,
		NoData: g.NoData,
		Ref:    g.Ref,
		Values: make([]float64, len(g.Values)),
	}
	for i := range out.Values {
		out.Values[i] = g.NoData
	}

	seen := make([]bool, len(g.Values))
	// Reused across components to keep allocation flat.
	queue := make([]int, 0, 256)

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			start := g.Index(x, y)
			if seen[start] || g.IsNoData(g.Values[start]) {
				continue
			}

			// BFS flood fill collecting one component.
			queue = queue[:0]
			queue = append(queue, start)
			seen[start] = true

			for qi := 0; qi < len(queue); qi++ {
				u := queue[qi]
				ux, uy := u%g.Width, u/g.Width
				for _, d := range eightNeighbors {
					vx, vy := ux+d[0], uy+d[1]
					if !g.InBounds(vx, vy) {
						continue
					}
					v := g.Index(vx, vy)
					if seen[v] || g.IsNoData(g.Values[v]) {
						continue
					}
					seen[v] = true
					queue = append(queue, v)
				}
			}

			if len(queue) >= minSize {
				for _, idx := range queue {
					out.Values[idx] = g.Values[idx]
				}
			}
		}
	}

	return out
}
