// Package tdbraster reads raster grids from dense 2D TileDB arrays.
//
// This is intentionally small: the array is expected to carry int32 "y"
// and "x" dimensions, a float64 "value" attribute, and optional array
// metadata ("nodata", "crs", "origin_x", "origin_y", "cell_size") that
// maps onto the grid's no-data sentinel and spatial reference. Support
// is compiled in with "-tags tiledb"; without the tag Read reports
// ErrUnsupported so the rest of the server keeps working on grid files.
package tdbraster

import "errors"

// ErrUnsupported indicates this binary was built without TileDB support
// (build with: go build -tags tiledb).
var ErrUnsupported = errors.New("tdbraster: tiledb support is not enabled in this build")
