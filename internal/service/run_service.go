package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/richness-hotspots/server/internal/cache"
	"github.com/richness-hotspots/server/internal/config"
	"github.com/richness-hotspots/server/internal/data/gridfile"
	"github.com/richness-hotspots/server/internal/hotspot"
	"github.com/richness-hotspots/server/internal/render"
	"github.com/richness-hotspots/server/internal/runstore"
)

// RunService executes queued delineation runs and serves their results.
type RunService struct {
	store    *runstore.Store
	catalog  *Catalog
	cache    *cache.Manager
	renderer *render.PreviewRenderer
	defaults config.SearchConfig
	outDir   string
}

// NewRunService creates a run service.
func NewRunService(store *runstore.Store, catalog *Catalog, cacheMgr *cache.Manager, renderer *render.PreviewRenderer, defaults config.SearchConfig, outputDir string) *RunService {
	return &RunService{
		store:    store,
		catalog:  catalog,
		cache:    cacheMgr,
		renderer: renderer,
		defaults: defaults,
		outDir:   outputDir,
	}
}

// OutputPath returns where a run's hotspot grid is written.
func (s *RunService) OutputPath(runID string) string {
	return filepath.Join(s.outDir, runID+".grd")
}

// runConfig merges a run's parameters with the configured search
// defaults. A zero parameter means "use the default".
func (s *RunService) runConfig(params runstore.RunParams) hotspot.RunConfig {
	cfg := hotspot.RunConfig{
		Percentile:       s.defaults.Percentile,
		TargetCoverage:   s.defaults.TargetCoverage,
		MaxIterations:    s.defaults.MaxIterations,
		MinComponentSize: s.defaults.MinComponentSize,
		Workers:          s.defaults.Workers,
	}
	if params.Percentile > 0 {
		cfg.Percentile = params.Percentile
	}
	if params.TargetCoverage > 0 {
		cfg.TargetCoverage = params.TargetCoverage
	}
	if params.MaxIterations > 0 {
		cfg.MaxIterations = params.MaxIterations
	}
	if params.MinComponentSize > 0 {
		cfg.MinComponentSize = params.MinComponentSize
	}
	if params.HighestValue > 0 {
		cfg.HighestValue = params.HighestValue
	}
	return cfg
}

// Execute runs a queued delineation end to end: load the raster, search
// thresholds, persist candidate diagnostics, and write the hotspot grid.
// Status transitions are the caller's responsibility.
func (s *RunService) Execute(ctx context.Context, runID string) error {
	run, err := s.store.GetRun(runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", runID)
	}

	g, err := s.catalog.Grid(run.RasterID)
	if err != nil {
		return err
	}

	cfg := s.runConfig(run.Params)
	cfg.Logf = func(format string, args ...any) {
		log.Printf("[Run %s] %s", runID, fmt.Sprintf(format, args...))
	}

	out, err := hotspot.Delineate(ctx, g, cfg)
	if out != nil {
		if seedErr := s.store.UpdateRunSeed(runID, out.SeedThreshold, out.TotalValidPixels); seedErr != nil {
			log.Printf("[Run %s] failed to persist seed: %v", runID, seedErr)
		}
		if recErr := s.store.InsertCandidates(runID, candidateRecords(out.Result)); recErr != nil {
			log.Printf("[Run %s] failed to persist candidates: %v", runID, recErr)
		}
	}
	if err != nil {
		return err
	}

	best := out.Result.Best
	outputPath := s.OutputPath(runID)
	if err := gridfile.Write(outputPath, best.Grid); err != nil {
		return fmt.Errorf("write output grid: %w", err)
	}
	if err := s.store.SaveRunResult(runID, best.Threshold, best.Coverage, outputPath); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func candidateRecords(res *hotspot.Result) []runstore.CandidateRecord {
	if res == nil {
		return nil
	}
	records := make([]runstore.CandidateRecord, 0, len(res.Candidates)+len(res.Failures))
	for _, c := range res.Candidates {
		records = append(records, runstore.CandidateRecord{
			Ord:       c.Order,
			Threshold: c.Threshold,
			Coverage:  c.Coverage,
		})
	}
	for _, f := range res.Failures {
		records = append(records, runstore.CandidateRecord{
			Ord:       f.Order,
			Threshold: f.Threshold,
			Error:     f.Err.Error(),
		})
	}
	return records
}

// ResultGrid loads the hotspot grid written by a completed run.
func (s *RunService) ResultGrid(run *runstore.Run) ([]byte, error) {
	if run.Status != runstore.RunStatusCompleted || run.OutputPath == "" {
		return nil, fmt.Errorf("run %s has no result grid", run.ID)
	}
	return os.ReadFile(run.OutputPath)
}

// Preview renders a PNG preview of a completed run's hotspot grid.
func (s *RunService) Preview(run *runstore.Run) ([]byte, error) {
	if run.Status != runstore.RunStatusCompleted || run.OutputPath == "" {
		return nil, fmt.Errorf("run %s has no result grid", run.ID)
	}

	key := cache.RunPreviewKey(run.ID)
	if s.cache != nil {
		if data, ok := s.cache.GetPreview(key); ok {
			return data, nil
		}
	}

	g, err := gridfile.Read(run.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("load result grid: %w", err)
	}
	png, err := s.renderer.RenderHotspots(g)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetPreview(key, png)
	}
	return png, nil
}
