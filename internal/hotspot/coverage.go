// Package hotspot implements the threshold search that delineates
// richness hotspots: starting from a percentile-seeded threshold, it
// probes symmetrically outward, reclassifies and contiguity-filters the
// richness grid at each candidate threshold, and keeps the candidate
// whose hotspot coverage lands closest to the target.
package hotspot

import "github.com/richness-hotspots/server/internal/raster"

// Coverage returns the percentage of the original valid area still
// classified as hotspot in a filtered grid. The denominator is the
// valid-cell count of the original richness grid, fixed once per search
// run; it is deliberately not recomputed from the filtered grid, since
// coverage is defined against the original valid extent. Returns 0 for a
// non-positive denominator so a broken candidate cannot abort the loop.
func Coverage(filtered *raster.Grid, totalValidPixels int) float64 {
	if totalValidPixels <= 0 {
		return 0
	}
	return float64(filtered.CountValue(1)) / float64(totalValidPixels) * 100
}
