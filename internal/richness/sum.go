// Package richness builds species richness grids by summing many binary
// presence/absence grids. Inputs are partitioned into fixed-size batches
// that are summed concurrently; the partial sums are then reduced into
// the final richness grid. Summation is commutative, so neither batch
// boundaries nor completion order affect the result.
package richness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/richness-hotspots/server/internal/raster"
)

// ErrNoInputs indicates a summation request over an empty input set.
var ErrNoInputs = errors.New("richness: no input grids")

// Sum adds a set of equally shaped grids cell by cell. No-data cells are
// ignored rather than poisoning the sum: an output cell is valid when at
// least one input is valid there, and no-data only where every input is
// no-data. The first grid's no-data sentinel and spatial reference carry
// over to the output.
func Sum(grids []*raster.Grid) (*raster.Grid, error) {
	if len(grids) == 0 {
		return nil, ErrNoInputs
	}
	first := grids[0]
	for i, g := range grids[1:] {
		if !first.SameShape(g) {
			return nil, fmt.Errorf("richness: grid %d shape %dx%d does not match %dx%d",
				i+1, g.Width, g.Height, first.Width, first.Height)
		}
	}

	sums := make([]float64, len(first.Values))
	anyValid := make([]bool, len(first.Values))
	for _, g := range grids {
		for i, v := range g.Values {
			if g.IsNoData(v) {
				continue
			}
			sums[i] += v
			anyValid[i] = true
		}
	}

	out := &raster.Grid{
		Width:  first.Width,
		Height: first.Height,
		NoData: first.NoData,
		Ref:    first.Ref,
		Values: sums,
	}
	for i, ok := range anyValid {
		if !ok {
			out.Values[i] = out.NoData
		}
	}
	return out, nil
}

// BatchConfig controls batched parallel summation.
type BatchConfig struct {
	BatchSize int // inputs per batch, default 150
	Workers   int // concurrent batch workers, default 1
	// Load reads one input grid by path.
	Load func(path string) (*raster.Grid, error)
}

// SumPaths sums the grids at the given paths in batches. Every input is
// loaded and summed exactly once; each batch produces a partial sum, and
// the partial sums are reduced with the same no-data policy as the
// per-batch sums. The first load or shape error aborts the whole run.
func SumPaths(ctx context.Context, paths []string, cfg BatchConfig) (*raster.Grid, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}
	if cfg.Load == nil {
		return nil, errors.New("richness: no loader configured")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 150
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	var batches [][]string
	for start := 0; start < len(paths); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(paths) {
			end = len(paths)
		}
		batches = append(batches, paths[start:end])
	}

	partials := make([]*raster.Grid, len(batches))
	errs := make([]error, len(batches))

	workers := cfg.Workers
	if workers > len(batches) {
		workers = len(batches)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				partials[b], errs[b] = sumBatch(ctx, batches[b], cfg.Load)
			}
		}()
	}

feed:
	for b := range batches {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- b:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for b, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", b, err)
		}
	}

	return Sum(partials)
}

func sumBatch(ctx context.Context, paths []string, load func(string) (*raster.Grid, error)) (*raster.Grid, error) {
	grids := make([]*raster.Grid, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := load(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		grids = append(grids, g)
	}
	return Sum(grids)
}
