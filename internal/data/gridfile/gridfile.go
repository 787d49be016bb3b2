// Package gridfile reads and writes the repository's raster grid format:
// a small JSON header (shape, no-data sentinel, spatial reference)
// followed by a zstd-compressed little-endian payload of cell values.
// The spatial reference is carried verbatim and never interpreted here.
package gridfile

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/richness-hotspots/server/internal/raster"
)

var magic = [4]byte{'R', 'G', 'R', 'D'}

const formatVersion = 1

// header is the JSON block at the start of every grid file. A null
// no-data field encodes a NaN sentinel, which JSON cannot represent
// directly.
type header struct {
	Version int        `json:"version"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	NoData  *float64   `json:"nodata"`
	Ref     raster.Ref `json:"ref"`
}

// Write stores a grid at the given path, creating parent directories as
// needed.
func Write(path string, g *raster.Grid) error {
	if g == nil || len(g.Values) != g.Width*g.Height {
		return fmt.Errorf("gridfile: malformed grid")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("gridfile: create directory: %w", err)
	}

	h := header{
		Version: formatVersion,
		Width:   g.Width,
		Height:  g.Height,
		Ref:     g.Ref,
	}
	if !math.IsNaN(g.NoData) {
		nd := g.NoData
		h.NoData = &nd
	}
	headerJSON, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("gridfile: encode header: %w", err)
	}

	raw := make([]byte, 8*len(g.Values))
	for i, v := range g.Values {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("gridfile: create zstd encoder: %w", err)
	}
	payload := enc.EncodeAll(raw, nil)
	enc.Close()

	buf := make([]byte, 0, 8+len(headerJSON)+len(payload))
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(headerJSON)))
	buf = append(buf, headerJSON...)
	buf = append(buf, payload...)

	// Write via a temp file so readers never observe a partial grid.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return fmt.Errorf("gridfile: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("gridfile: rename %s: %w", path, err)
	}
	return nil
}

// Read loads a grid from the given path.
func Read(path string) (*raster.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gridfile: read %s: %w", path, err)
	}
	if len(data) < 8 || [4]byte(data[:4]) != magic {
		return nil, fmt.Errorf("gridfile: %s is not a grid file", path)
	}

	headerLen := int(binary.LittleEndian.Uint32(data[4:8]))
	if 8+headerLen > len(data) {
		return nil, fmt.Errorf("gridfile: %s: truncated header", path)
	}
	var h header
	if err := json.Unmarshal(data[8:8+headerLen], &h); err != nil {
		return nil, fmt.Errorf("gridfile: %s: parse header: %w", path, err)
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("gridfile: %s: unsupported version %d", path, h.Version)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return nil, fmt.Errorf("gridfile: %s: invalid shape %dx%d", path, h.Width, h.Height)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("gridfile: create zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data[8+headerLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("gridfile: %s: decompress payload: %w", path, err)
	}

	n := h.Width * h.Height
	if len(raw) != 8*n {
		return nil, fmt.Errorf("gridfile: %s: payload holds %d bytes, expected %d", path, len(raw), 8*n)
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}

	noData := math.NaN()
	if h.NoData != nil {
		noData = *h.NoData
	}
	return raster.NewGridFromValues(h.Width, h.Height, noData, h.Ref, values)
}
