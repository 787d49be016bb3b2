// Package cache provides caching for rendered previews and raster
// statistics.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	PreviewCacheSizeMB int
	PreviewTTL         time.Duration
	QueryCacheSize     int
}

// Manager manages the preview and query caches. Previews (PNG blobs)
// live in a size-bounded TTL cache; small query results such as raster
// statistics live in an LRU.
type Manager struct {
	previewCache *bigcache.BigCache
	queryCache   *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	previewConfig := bigcache.Config{
		Shards:             256,
		LifeWindow:         cfg.PreviewTTL,
		CleanWindow:        cfg.PreviewTTL / 2,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       1024 * 1024, // previews are whole-grid PNGs
		HardMaxCacheSize:   cfg.PreviewCacheSizeMB,
		Verbose:            false,
	}

	previewCache, err := bigcache.New(context.Background(), previewConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview cache: %w", err)
	}

	queryCache, err := lru.New[string, []byte](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	return &Manager{
		previewCache: previewCache,
		queryCache:   queryCache,
	}, nil
}

// GetPreview retrieves a rendered preview from cache.
func (m *Manager) GetPreview(key string) ([]byte, bool) {
	data, err := m.previewCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetPreview stores a rendered preview in cache.
func (m *Manager) SetPreview(key string, data []byte) error {
	return m.previewCache.Set(key, data)
}

// GetQuery retrieves a query result from cache.
func (m *Manager) GetQuery(key string) ([]byte, bool) {
	return m.queryCache.Get(key)
}

// SetQuery stores a query result in cache.
func (m *Manager) SetQuery(key string, data []byte) {
	m.queryCache.Add(key, data)
}

// RasterPreviewKey generates a cache key for a raster preview.
func RasterPreviewKey(rasterID, ramp string) string {
	return fmt.Sprintf("preview:raster:%s:%s", rasterID, ramp)
}

// RunPreviewKey generates a cache key for a run output preview.
func RunPreviewKey(runID string) string {
	return fmt.Sprintf("preview:run:%s", runID)
}

// StatsKey generates a cache key for raster percentile statistics.
func StatsKey(rasterID string, percentiles []float64) string {
	return fmt.Sprintf("stats:%s:%v", rasterID, percentiles)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"preview_cache_len": m.previewCache.Len(),
		"preview_cache_cap": m.previewCache.Capacity(),
		"query_cache_len":   m.queryCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.previewCache.Close()
}
