package raster

import (
	"errors"
	"testing"
)

func TestPercentilesNearestRank(t *testing.T) {
	g, _ := NewGridFromValues(5, 1, -9999, Ref{}, []float64{1, 2, 3, 4, 5})
	res, err := Percentiles(g, ValidMask(g), []float64{50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalValidPixels != 5 {
		t.Fatalf("expected 5 valid pixels, got %d", res.TotalValidPixels)
	}
	if got := res.Values[50]; got != 3 {
		t.Fatalf("expected p50 = 3 under nearest-rank, got %v", got)
	}
}

func TestPercentilesIgnoreNoData(t *testing.T) {
	g, _ := NewGridFromValues(4, 2, -9999, Ref{}, []float64{
		10, -9999, 30, 20,
		-9999, 50, 40, -9999,
	})
	res, err := Percentiles(g, ValidMask(g), []float64{0, 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalValidPixels != 5 {
		t.Fatalf("expected 5 valid pixels, got %d", res.TotalValidPixels)
	}
	if res.Values[0] != 10 || res.Values[100] != 50 {
		t.Fatalf("expected p0=10 p100=50, got %v", res.Values)
	}
}

func TestPercentilesSeedExample(t *testing.T) {
	// 100 distinct values: the 95th percentile under nearest-rank is the
	// 95th smallest value.
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}
	g, _ := NewGridFromValues(10, 10, -9999, Ref{}, values)
	res, err := Percentiles(g, ValidMask(g), []float64{95})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Values[95]; got != 95 {
		t.Fatalf("expected p95 = 95, got %v", got)
	}
}

func TestPercentilesEmptyPopulation(t *testing.T) {
	g, _ := NewGrid(3, 3, -9999, Ref{})
	_, err := Percentiles(g, ValidMask(g), []float64{95})
	if !errors.Is(err, ErrEmptyPopulation) {
		t.Fatalf("expected ErrEmptyPopulation, got %v", err)
	}
}

func TestPercentilesBadRequest(t *testing.T) {
	g, _ := NewGridFromValues(1, 1, -9999, Ref{}, []float64{1})

	if _, err := Percentiles(g, ValidMask(g), nil); err == nil {
		t.Fatal("expected error for empty percentile set")
	}
	if _, err := Percentiles(g, ValidMask(g), []float64{101}); err == nil {
		t.Fatal("expected error for out-of-range percentile")
	}
}
