//go:build !tiledb

package tdbraster

import (
	"fmt"
	"os"

	"github.com/richness-hotspots/server/internal/raster"
)

// Supported reports whether TileDB reads are available in this build.
func Supported() bool { return false }

// Read is a stub when built without "-tags tiledb". It still validates
// that the array exists so configuration problems surface early, but
// always returns ErrUnsupported.
func Read(arrayURI string) (*raster.Grid, error) {
	if _, err := os.Stat(arrayURI); err != nil {
		return nil, fmt.Errorf("tdbraster: array not found at %s: %w", arrayURI, err)
	}
	return nil, ErrUnsupported
}
