package gridfile

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/richness-hotspots/server/internal/raster"
)

func TestWriteRead(t *testing.T) {
	ref := raster.Ref{CRS: "EPSG:3857", OriginX: -20037507, OriginY: 18422517, CellSize: 1000}
	g, err := raster.NewGridFromValues(3, 2, -9999, ref, []float64{1, 2, 3, -9999, 5, 6})
	if err != nil {
		t.Fatalf("building grid: %v", err)
	}

	path := filepath.Join(t.TempDir(), "richness.grd")
	if err := Write(path, g); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Width != 3 || got.Height != 2 || got.NoData != -9999 {
		t.Fatalf("header round trip failed: %+v", got)
	}
	if got.Ref != ref {
		t.Fatalf("spatial reference not preserved: %+v", got.Ref)
	}
	for i := range g.Values {
		if got.Values[i] != g.Values[i] {
			t.Fatalf("cell %d: expected %v, got %v", i, g.Values[i], got.Values[i])
		}
	}
}

func TestWriteReadNaNSentinel(t *testing.T) {
	nan := math.NaN()
	g, _ := raster.NewGridFromValues(2, 1, nan, raster.Ref{}, []float64{7, nan})

	path := filepath.Join(t.TempDir(), "nan.grd")
	if err := Write(path, g); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !math.IsNaN(got.NoData) {
		t.Fatalf("expected NaN sentinel, got %v", got.NoData)
	}
	if got.Values[0] != 7 || !math.IsNaN(got.Values[1]) {
		t.Fatalf("values not preserved: %v", got.Values)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()

	t.Run("missingFile", func(t *testing.T) {
		if _, err := Read(filepath.Join(dir, "absent.grd")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("badMagic", func(t *testing.T) {
		path := filepath.Join(dir, "bad.grd")
		if err := os.WriteFile(path, []byte("not a grid at all"), 0644); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if _, err := Read(path); err == nil {
			t.Fatal("expected error for bad magic")
		}
	})

	t.Run("truncated", func(t *testing.T) {
		g, _ := raster.NewGridFromValues(4, 4, -9999, raster.Ref{}, make([]float64, 16))
		path := filepath.Join(dir, "trunc.grd")
		if err := Write(path, g); err != nil {
			t.Fatalf("setup: %v", err)
		}
		data, _ := os.ReadFile(path)
		if err := os.WriteFile(path, data[:len(data)-4], 0644); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if _, err := Read(path); err == nil {
			t.Fatal("expected error for truncated payload")
		}
	})
}
