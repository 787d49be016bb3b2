// Package service provides business logic for the hotspot server.
package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/richness-hotspots/server/internal/cache"
	"github.com/richness-hotspots/server/internal/config"
	"github.com/richness-hotspots/server/internal/data/gridfile"
	"github.com/richness-hotspots/server/internal/data/tdbraster"
	"github.com/richness-hotspots/server/internal/raster"
	"github.com/richness-hotspots/server/internal/render"
)

// Catalog serves the configured richness rasters: lazy grid loading,
// percentile statistics, and rendered previews.
type Catalog struct {
	data     config.DataConfig
	cache    *cache.Manager
	renderer *render.PreviewRenderer

	mu    sync.Mutex
	grids map[string]*raster.Grid
}

// NewCatalog creates a catalog over the configured rasters.
func NewCatalog(data config.DataConfig, cacheMgr *cache.Manager, renderer *render.PreviewRenderer) *Catalog {
	return &Catalog{
		data:     data,
		cache:    cacheMgr,
		renderer: renderer,
		grids:    make(map[string]*raster.Grid),
	}
}

// IDs returns the configured raster IDs in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.data.Rasters))
	for id := range c.data.Rasters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultID returns the configured default raster ID, falling back to
// the first configured raster when none is set.
func (c *Catalog) DefaultID() string {
	if c.data.DefaultRaster != "" {
		return c.data.DefaultRaster
	}
	ids := c.IDs()
	if len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// Grid returns the richness grid for a raster ID, loading it on first
// use and holding it in memory afterwards.
func (c *Catalog) Grid(id string) (*raster.Grid, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.grids[id]; ok {
		return g, nil
	}

	rc, ok := c.data.Rasters[id]
	if !ok {
		return nil, fmt.Errorf("unknown raster: %s", id)
	}

	var g *raster.Grid
	var err error
	switch rc.Format {
	case "", "grid":
		g, err = gridfile.Read(rc.Path)
	case "tiledb":
		g, err = tdbraster.Read(rc.Path)
	default:
		return nil, fmt.Errorf("raster %s: unsupported format %q", id, rc.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("load raster %s: %w", id, err)
	}

	c.grids[id] = g
	return g, nil
}

// StatsResponse is the JSON shape of a percentile statistics query.
type StatsResponse struct {
	RasterID         string             `json:"raster_id"`
	Width            int                `json:"width"`
	Height           int                `json:"height"`
	TotalValidPixels int                `json:"total_valid_pixels"`
	Percentiles      map[string]float64 `json:"percentiles"`
	Ref              raster.Ref         `json:"ref"`
}

// Stats computes percentile statistics for a raster, serving repeated
// queries from the LRU cache.
func (c *Catalog) Stats(id string, percentiles []float64) ([]byte, error) {
	key := cache.StatsKey(id, percentiles)
	if c.cache != nil {
		if data, ok := c.cache.GetQuery(key); ok {
			return data, nil
		}
	}

	g, err := c.Grid(id)
	if err != nil {
		return nil, err
	}

	mask := raster.ValidMask(g)
	res, err := raster.Percentiles(g, mask, percentiles)
	if err != nil {
		return nil, err
	}

	resp := StatsResponse{
		RasterID:         id,
		Width:            g.Width,
		Height:           g.Height,
		TotalValidPixels: res.TotalValidPixels,
		Percentiles:      make(map[string]float64, len(res.Values)),
		Ref:              g.Ref,
	}
	for p, v := range res.Values {
		resp.Percentiles[fmt.Sprintf("%g", p)] = v
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.SetQuery(key, data)
	}
	return data, nil
}

// Preview renders a PNG preview of a raster using the named color ramp,
// serving repeated requests from the preview cache.
func (c *Catalog) Preview(id, ramp string) ([]byte, error) {
	key := cache.RasterPreviewKey(id, ramp)
	if c.cache != nil {
		if data, ok := c.cache.GetPreview(key); ok {
			return data, nil
		}
	}

	g, err := c.Grid(id)
	if err != nil {
		return nil, err
	}
	png, err := c.renderer.RenderGrid(g, ramp)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.SetPreview(key, png)
	}
	return png, nil
}
