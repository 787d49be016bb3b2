package hotspot

import (
	"context"
	"fmt"

	"github.com/richness-hotspots/server/internal/raster"
)

// RunConfig describes a full delineation run against a richness grid.
type RunConfig struct {
	Percentile       float64 // percentile seeding the threshold search
	TargetCoverage   float64 // percent of valid cells to cover
	MaxIterations    int     // search radius on each side of the seed
	MinComponentSize int     // minimum 8-connected component size in cells
	HighestValue     float64 // grid maximum; derived from the grid when 0
	Workers          int
	Logf             func(format string, args ...any)
}

// RunOutput bundles a resolved delineation with the statistics the
// search was seeded from.
type RunOutput struct {
	SeedThreshold    int
	PercentileValue  float64
	TotalValidPixels int
	HighestValue     float64
	Result           *Result
}

// Delineate runs the complete pipeline on a richness grid: derive the
// valid mask, compute the seed percentile and the valid-cell count, then
// search thresholds around the truncated percentile value. The
// percentile statistics come from the original grid exactly once.
//
// Returns raster.ErrEmptyPopulation before any search when the grid has
// no valid cells, and ErrUnresolved when every candidate fails.
func Delineate(ctx context.Context, g *raster.Grid, cfg RunConfig) (*RunOutput, error) {
	mask := raster.ValidMask(g)
	stats, err := raster.Percentiles(g, mask, []float64{cfg.Percentile})
	if err != nil {
		return nil, fmt.Errorf("seed statistics: %w", err)
	}

	highest := cfg.HighestValue
	if highest == 0 {
		m, ok := g.Max()
		if !ok {
			return nil, raster.ErrEmptyPopulation
		}
		highest = m
	}

	seed := int(stats.Values[cfg.Percentile])

	searcher := NewSearcher(g, stats.TotalValidPixels, Params{
		InitialThreshold: seed,
		TargetCoverage:   cfg.TargetCoverage,
		MaxIterations:    cfg.MaxIterations,
		HighestValue:     highest,
		MinComponentSize: cfg.MinComponentSize,
		Workers:          cfg.Workers,
	})
	searcher.Logf = cfg.Logf

	result, err := searcher.Run(ctx)
	if err != nil {
		return nil, err
	}

	return &RunOutput{
		SeedThreshold:    seed,
		PercentileValue:  stats.Values[cfg.Percentile],
		TotalValidPixels: stats.TotalValidPixels,
		HighestValue:     highest,
		Result:           result,
	}, nil
}
