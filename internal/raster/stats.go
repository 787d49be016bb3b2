package raster

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptyPopulation indicates a statistics request over a grid with no
// valid cells.
var ErrEmptyPopulation = errors.New("raster: no valid cells in population")

// PercentileResult holds percentile values computed over the valid-cell
// population of a grid, plus the size of that population.
type PercentileResult struct {
	Values           map[float64]float64 `json:"values"`
	TotalValidPixels int                 `json:"total_valid_pixels"`
}

// Percentiles computes the requested percentiles over the cells of g
// selected by mask, using nearest-rank semantics: the result for
// percentile p is the smallest valid value v such that at least p percent
// of the valid values are <= v. The same rule is applied on every call,
// so ties always resolve identically.
//
// Returns ErrEmptyPopulation when the mask selects no cells.
func Percentiles(g *Grid, mask *Mask, percentiles []float64) (*PercentileResult, error) {
	if len(percentiles) == 0 {
		return nil, errors.New("raster: no percentiles requested")
	}
	for _, p := range percentiles {
		if p < 0 || p > 100 {
			return nil, fmt.Errorf("raster: percentile out of range: %v", p)
		}
	}

	population := make([]float64, 0, len(g.Values))
	for i, v := range g.Values {
		if mask.Bits[i] && !g.IsNoData(v) {
			population = append(population, v)
		}
	}
	if len(population) == 0 {
		return nil, ErrEmptyPopulation
	}
	sort.Float64s(population)

	values := make(map[float64]float64, len(percentiles))
	for _, p := range percentiles {
		values[p] = stat.Quantile(p/100, stat.Empirical, population, nil)
	}

	return &PercentileResult{
		Values:           values,
		TotalValidPixels: len(population),
	}, nil
}
