// Package config handles configuration loading for the hotspot server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
	Search SearchConfig `yaml:"search"`
	Runs   RunsConfig   `yaml:"runs"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// RasterConfig describes one configured richness raster.
type RasterConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // "grid" (default) or "tiledb"
}

// DataConfig contains data source settings.
type DataConfig struct {
	Rasters       map[string]RasterConfig `yaml:"rasters"`
	DefaultRaster string                  `yaml:"default_raster"`
	OutputDir     string                  `yaml:"output_dir"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	PreviewSizeMB     int `yaml:"preview_size_mb"`
	PreviewTTLMinutes int `yaml:"preview_ttl_minutes"`
	QueryCacheSize    int `yaml:"query_cache_size"`
}

// RenderConfig contains preview rendering settings.
type RenderConfig struct {
	MaxDim      int    `yaml:"max_dim"`
	DefaultRamp string `yaml:"default_ramp"`
}

// SearchConfig carries the delineation defaults applied when a run does
// not override them.
type SearchConfig struct {
	Percentile       float64 `yaml:"percentile"`
	TargetCoverage   float64 `yaml:"target_coverage"`
	MaxIterations    int     `yaml:"max_iterations"`
	MinComponentSize int     `yaml:"min_component_size"`
	Workers          int     `yaml:"workers"`
}

// RunsConfig contains run job manager settings.
type RunsConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent"`
	SQLitePath    string `yaml:"sqlite_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			OutputDir: "./data/hotspots",
		},
		Cache: CacheConfig{
			PreviewSizeMB:     256,
			PreviewTTLMinutes: 10,
			QueryCacheSize:    1000,
		},
		Render: RenderConfig{
			MaxDim:      1024,
			DefaultRamp: "viridis",
		},
		Search: SearchConfig{
			Percentile:       95,
			TargetCoverage:   5,
			MaxIterations:    5,
			MinComponentSize: 1000,
			Workers:          1,
		},
		Runs: RunsConfig{
			MaxConcurrent: 1,
			SQLitePath:    "./data/runs.sqlite",
			RetentionDays: 7,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Data.OutputDir == "" {
		cfg.Data.OutputDir = defaults.Data.OutputDir
	}
	if cfg.Cache.PreviewSizeMB == 0 {
		cfg.Cache.PreviewSizeMB = defaults.Cache.PreviewSizeMB
	}
	if cfg.Cache.PreviewTTLMinutes == 0 {
		cfg.Cache.PreviewTTLMinutes = defaults.Cache.PreviewTTLMinutes
	}
	if cfg.Cache.QueryCacheSize == 0 {
		cfg.Cache.QueryCacheSize = defaults.Cache.QueryCacheSize
	}
	if cfg.Render.MaxDim == 0 {
		cfg.Render.MaxDim = defaults.Render.MaxDim
	}
	if cfg.Render.DefaultRamp == "" {
		cfg.Render.DefaultRamp = defaults.Render.DefaultRamp
	}
	if cfg.Search.Percentile == 0 {
		cfg.Search.Percentile = defaults.Search.Percentile
	}
	if cfg.Search.TargetCoverage == 0 {
		cfg.Search.TargetCoverage = defaults.Search.TargetCoverage
	}
	if cfg.Search.MaxIterations == 0 {
		cfg.Search.MaxIterations = defaults.Search.MaxIterations
	}
	if cfg.Search.MinComponentSize == 0 {
		cfg.Search.MinComponentSize = defaults.Search.MinComponentSize
	}
	if cfg.Search.Workers == 0 {
		cfg.Search.Workers = defaults.Search.Workers
	}
	if cfg.Runs.MaxConcurrent == 0 {
		cfg.Runs.MaxConcurrent = defaults.Runs.MaxConcurrent
	}
	if cfg.Runs.SQLitePath == "" {
		cfg.Runs.SQLitePath = defaults.Runs.SQLitePath
	}
	if cfg.Runs.RetentionDays == 0 {
		cfg.Runs.RetentionDays = defaults.Runs.RetentionDays
	}

	// Default every raster entry to the grid file format.
	for id, rc := range cfg.Data.Rasters {
		if rc.Format == "" {
			rc.Format = "grid"
			cfg.Data.Rasters[id] = rc
		}
	}
}
