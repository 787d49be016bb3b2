// Package main delineates richness hotspots from a single raster and
// writes the selected hotspot grid.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/richness-hotspots/server/internal/data/gridfile"
	"github.com/richness-hotspots/server/internal/data/tdbraster"
	"github.com/richness-hotspots/server/internal/hotspot"
	"github.com/richness-hotspots/server/internal/raster"
)

func main() {
	input := flag.String("input", "", "Path to the input richness grid")
	format := flag.String("format", "grid", "Input format: grid or tiledb")
	output := flag.String("output", "hotspots.grd", "Path for the output hotspot grid")
	percentile := flag.Float64("percentile", 95, "Percentile seeding the threshold search")
	target := flag.Float64("target", 5, "Target coverage in percent of valid cells")
	maxIterations := flag.Int("max-iterations", 5, "Search radius on each side of the seed")
	minComponentSize := flag.Int("min-component-size", 1000, "Minimum connected component size in cells")
	workers := flag.Int("workers", 1, "Candidate evaluation workers")
	flag.Parse()

	if *input == "" {
		log.Fatal("-input is required")
	}

	var g *raster.Grid
	var err error
	switch *format {
	case "grid":
		g, err = gridfile.Read(*input)
	case "tiledb":
		g, err = tdbraster.Read(*input)
	default:
		log.Fatalf("Unsupported format: %s", *format)
	}
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *input, err)
	}

	log.Printf("Loaded %dx%d grid from %s", g.Width, g.Height, *input)

	out, err := hotspot.Delineate(context.Background(), g, hotspot.RunConfig{
		Percentile:       *percentile,
		TargetCoverage:   *target,
		MaxIterations:    *maxIterations,
		MinComponentSize: *minComponentSize,
		Workers:          *workers,
		Logf:             log.Printf,
	})
	if err != nil {
		log.Printf("Delineation failed: %v", err)
		os.Exit(1)
	}

	best := out.Result.Best
	log.Printf("Selected threshold %d with coverage %.4f%% (target %.2f%%)",
		best.Threshold, best.Coverage, *target)

	if err := gridfile.Write(*output, best.Grid); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}
	log.Printf("Wrote hotspot grid to %s", *output)
}
