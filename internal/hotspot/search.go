package hotspot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/richness-hotspots/server/internal/raster"
)

// ErrUnresolved indicates that every threshold candidate failed, so no
// hotspot grid could be selected. Callers must treat this as a hard
// failure of the run; the search never retries on its own because the
// symmetric probing already over-samples around the seed.
var ErrUnresolved = errors.New("hotspot: threshold remained unresolved")

// Params controls one threshold search run.
type Params struct {
	InitialThreshold int     // seed, typically a truncated percentile value
	TargetCoverage   float64 // percent of valid cells to cover
	MaxIterations    int     // probes on each side of the seed
	HighestValue     float64 // upper bound of the reclassification range
	MinComponentSize int     // cells; smaller 8-connected components are dropped
	Workers          int     // concurrent candidate evaluations, <=1 is serial
}

// Candidate is one evaluated threshold: the threshold value, the coverage
// its filtered grid achieves, and that grid. Order is the candidate's
// position in the generation sequence and decides ties during selection.
type Candidate struct {
	Order     int
	Threshold int
	Coverage  float64
	Grid      *raster.Grid
}

// CandidateFailure records a candidate that was skipped because one of
// its processing steps failed.
type CandidateFailure struct {
	Order     int
	Threshold int
	Err       error
}

// Result is the outcome of a resolved search run.
type Result struct {
	Best       Candidate
	Candidates []Candidate // successful candidates in generation order
	Failures   []CandidateFailure
}

// Thresholds builds the candidate sequence for a seed and search radius:
// the seed first, then seed+i and seed-i interleaved for ascending i.
// The sequence has 2*radius+1 entries.
func Thresholds(seed, radius int) []int {
	out := make([]int, 0, 2*radius+1)
	out = append(out, seed)
	for i := 1; i <= radius; i++ {
		out = append(out, seed+i, seed-i)
	}
	return out
}

// Searcher runs the threshold search over one richness grid. The
// reclassify and filter steps are function fields so tests can inject
// failing stages; production code uses the raster package defaults.
type Searcher struct {
	grid       *raster.Grid
	totalValid int
	params     Params

	reclassify func(g *raster.Grid, threshold, maxValue float64) (*raster.Grid, error)
	filter     func(g *raster.Grid, minSize int) (*raster.Grid, error)

	// Logf receives one line per candidate outcome plus the final
	// selection. Nil disables diagnostics.
	Logf func(format string, args ...any)
}

// NewSearcher creates a searcher for a grid whose valid-cell count has
// already been established from the original grid. That count stays the
// coverage denominator for the entire run.
func NewSearcher(g *raster.Grid, totalValidPixels int, params Params) *Searcher {
	return &Searcher{
		grid:       g,
		totalValid: totalValidPixels,
		params:     params,
		reclassify: func(g *raster.Grid, threshold, maxValue float64) (*raster.Grid, error) {
			if g == nil || len(g.Values) == 0 {
				return nil, errors.New("hotspot: empty grid")
			}
			return raster.Reclassify(g, threshold, maxValue), nil
		},
		filter: func(g *raster.Grid, minSize int) (*raster.Grid, error) {
			if g == nil || len(g.Values) == 0 {
				return nil, errors.New("hotspot: empty grid")
			}
			return raster.FilterComponents(g, minSize), nil
		},
	}
}

func (s *Searcher) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

// evaluate runs one candidate through reclassification, component
// filtering, and coverage evaluation.
func (s *Searcher) evaluate(order, threshold int) (Candidate, error) {
	reclassified, err := s.reclassify(s.grid, float64(threshold), s.params.HighestValue)
	if err != nil {
		return Candidate{}, fmt.Errorf("reclassify at threshold %d: %w", threshold, err)
	}
	filtered, err := s.filter(reclassified, s.params.MinComponentSize)
	if err != nil {
		return Candidate{}, fmt.Errorf("filter at threshold %d: %w", threshold, err)
	}
	return Candidate{
		Order:     order,
		Threshold: threshold,
		Coverage:  Coverage(filtered, s.totalValid),
		Grid:      filtered,
	}, nil
}

// Run evaluates every candidate threshold and selects the one whose
// coverage is closest to the target. Candidate failures are recorded and
// skipped; only a run in which every candidate fails returns
// ErrUnresolved. Ties on coverage distance go to the earlier-generated
// candidate, so thresholds nearer the seed win implicitly.
//
// Candidates are independent of one another, so with Workers > 1 they
// are evaluated concurrently; selection always happens over the complete
// sequence in generation order, never in completion order.
func (s *Searcher) Run(ctx context.Context) (*Result, error) {
	thresholds := Thresholds(s.params.InitialThreshold, s.params.MaxIterations)

	type outcome struct {
		candidate Candidate
		err       error
	}
	outcomes := make([]outcome, len(thresholds))

	workers := s.params.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(thresholds) {
		workers = len(thresholds)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c, err := s.evaluate(i, thresholds[i])
				outcomes[i] = outcome{candidate: c, err: err}
			}
		}()
	}

feed:
	for i := range thresholds {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	bestSet := false
	bestDist := 0.0
	for i, o := range outcomes {
		if o.err != nil {
			s.logf("threshold %d skipped: %v", thresholds[i], o.err)
			res.Failures = append(res.Failures, CandidateFailure{
				Order:     i,
				Threshold: thresholds[i],
				Err:       o.err,
			})
			continue
		}
		s.logf("threshold %d, coverage %.4f%%", o.candidate.Threshold, o.candidate.Coverage)
		res.Candidates = append(res.Candidates, o.candidate)

		dist := o.candidate.Coverage - s.params.TargetCoverage
		if dist < 0 {
			dist = -dist
		}
		// Strict improvement only: the first candidate at a given
		// distance keeps the slot.
		if !bestSet || dist < bestDist {
			bestSet = true
			bestDist = dist
			res.Best = o.candidate
		}
	}

	if !bestSet {
		return nil, fmt.Errorf("%w: all %d candidates failed", ErrUnresolved, len(thresholds))
	}

	s.logf("selected threshold %d (coverage %.4f%%, target %.4f%%)",
		res.Best.Threshold, res.Best.Coverage, s.params.TargetCoverage)
	return res, nil
}
