// Package main sums per-species range grids into a single richness
// grid, loading inputs in batches to bound memory use.
package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"sort"

	"github.com/richness-hotspots/server/internal/data/gridfile"
	"github.com/richness-hotspots/server/internal/richness"
)

func main() {
	inputDir := flag.String("input-dir", "", "Directory of per-species range grids (*.grd)")
	output := flag.String("output", "richness.grd", "Path for the output richness grid")
	batchSize := flag.Int("batch-size", 150, "Grids summed per batch")
	workers := flag.Int("workers", 1, "Concurrent batch workers")
	flag.Parse()

	if *inputDir == "" {
		log.Fatal("-input-dir is required")
	}

	paths, err := filepath.Glob(filepath.Join(*inputDir, "*.grd"))
	if err != nil {
		log.Fatalf("Failed to list %s: %v", *inputDir, err)
	}
	if len(paths) == 0 {
		log.Fatalf("No *.grd files found in %s", *inputDir)
	}
	sort.Strings(paths)

	log.Printf("Summing %d grids from %s (batch_size=%d, workers=%d)",
		len(paths), *inputDir, *batchSize, *workers)

	sum, err := richness.SumPaths(context.Background(), paths, richness.BatchConfig{
		BatchSize: *batchSize,
		Workers:   *workers,
		Load:      gridfile.Read,
	})
	if err != nil {
		log.Fatalf("Summation failed: %v", err)
	}

	if err := gridfile.Write(*output, sum); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}
	log.Printf("Wrote richness grid to %s", *output)
}
