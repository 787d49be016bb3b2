//go:build tiledb

package tdbraster

import (
	"fmt"
	"math"

	tiledb "github.com/TileDB-Inc/TileDB-Go"

	"github.com/richness-hotspots/server/internal/raster"
)

// Supported reports whether TileDB reads are available in this build.
func Supported() bool { return true }

// Read loads the full extent of a dense 2D TileDB array as a grid.
func Read(arrayURI string) (*raster.Grid, error) {
	ctx, err := tiledb.NewContext(nil)
	if err != nil {
		return nil, fmt.Errorf("tdbraster: create context: %w", err)
	}
	defer ctx.Free()

	arr, err := tiledb.NewArray(ctx, arrayURI)
	if err != nil {
		return nil, fmt.Errorf("tdbraster: open array (%s): %w", arrayURI, err)
	}
	defer arr.Free()
	if err := arr.Open(tiledb.TILEDB_READ); err != nil {
		return nil, fmt.Errorf("tdbraster: open array for read: %w", err)
	}
	defer arr.Close()

	y0, y1, err := dimensionExtent(arr, "y")
	if err != nil {
		return nil, err
	}
	x0, x1, err := dimensionExtent(arr, "x")
	if err != nil {
		return nil, err
	}
	width := int(x1-x0) + 1
	height := int(y1-y0) + 1
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tdbraster: empty array extent %dx%d", width, height)
	}

	sub, err := arr.NewSubarray()
	if err != nil {
		return nil, fmt.Errorf("tdbraster: create subarray: %w", err)
	}
	defer sub.Free()
	if err := sub.AddRangeByName("y", tiledb.MakeRange[int32](y0, y1)); err != nil {
		return nil, fmt.Errorf("tdbraster: add y range: %w", err)
	}
	if err := sub.AddRangeByName("x", tiledb.MakeRange[int32](x0, x1)); err != nil {
		return nil, fmt.Errorf("tdbraster: add x range: %w", err)
	}

	q, err := tiledb.NewQuery(ctx, arr)
	if err != nil {
		return nil, fmt.Errorf("tdbraster: create query: %w", err)
	}
	defer q.Free()
	if err := q.SetSubarray(sub); err != nil {
		return nil, fmt.Errorf("tdbraster: set subarray: %w", err)
	}
	if err := q.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, fmt.Errorf("tdbraster: set layout: %w", err)
	}

	values := make([]float64, width*height)
	if _, err := q.SetDataBuffer("value", values); err != nil {
		return nil, fmt.Errorf("tdbraster: set value buffer: %w", err)
	}

	if err := q.Submit(); err != nil {
		return nil, fmt.Errorf("tdbraster: query submit failed: %w", err)
	}
	status, err := q.Status()
	if err != nil {
		return nil, fmt.Errorf("tdbraster: query status failed: %w", err)
	}
	if status != tiledb.TILEDB_COMPLETED {
		return nil, fmt.Errorf("tdbraster: unexpected query status: %v", status)
	}

	noData, ref := arrayMetadata(arr)
	return raster.NewGridFromValues(width, height, noData, ref, values)
}

func dimensionExtent(arr *tiledb.Array, name string) (int32, int32, error) {
	ned, isEmpty, err := arr.NonEmptyDomainFromName(name)
	if err != nil {
		return 0, 0, fmt.Errorf("tdbraster: non-empty domain for %s: %w", name, err)
	}
	if isEmpty || ned == nil {
		return 0, 0, fmt.Errorf("tdbraster: dimension %s is empty", name)
	}
	bounds, ok := ned.Bounds.([]int32)
	if !ok || len(bounds) != 2 {
		return 0, 0, fmt.Errorf("tdbraster: unexpected bounds type for %s: %T", name, ned.Bounds)
	}
	return bounds[0], bounds[1], nil
}

// arrayMetadata pulls the optional no-data sentinel and spatial
// reference off the array metadata; absent keys fall back to a NaN
// sentinel and an empty reference.
func arrayMetadata(arr *tiledb.Array) (float64, raster.Ref) {
	noData := math.NaN()
	var ref raster.Ref

	if _, _, v, err := arr.GetMetadata("nodata"); err == nil {
		if f, ok := v.(float64); ok {
			noData = f
		}
	}
	if _, _, v, err := arr.GetMetadata("crs"); err == nil {
		if s, ok := v.(string); ok {
			ref.CRS = s
		}
	}
	if _, _, v, err := arr.GetMetadata("origin_x"); err == nil {
		if f, ok := v.(float64); ok {
			ref.OriginX = f
		}
	}
	if _, _, v, err := arr.GetMetadata("origin_y"); err == nil {
		if f, ok := v.(float64); ok {
			ref.OriginY = f
		}
	}
	if _, _, v, err := arr.GetMetadata("cell_size"); err == nil {
		if f, ok := v.(float64); ok {
			ref.CellSize = f
		}
	}
	return noData, ref
}
