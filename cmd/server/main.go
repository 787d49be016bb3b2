// Package main is the entry point for the hotspot server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/richness-hotspots/server/internal/api"
	"github.com/richness-hotspots/server/internal/cache"
	"github.com/richness-hotspots/server/internal/config"
	"github.com/richness-hotspots/server/internal/render"
	"github.com/richness-hotspots/server/internal/runstore"
	"github.com/richness-hotspots/server/internal/service"
)

func main() {
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting hotspot server on port %d", cfg.Server.Port)

	cacheManager, err := cache.NewManager(cache.Config{
		PreviewCacheSizeMB: cfg.Cache.PreviewSizeMB,
		PreviewTTL:         time.Duration(cfg.Cache.PreviewTTLMinutes) * time.Minute,
		QueryCacheSize:     cfg.Cache.QueryCacheSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	renderer := render.NewPreviewRenderer(render.Config{
		MaxDim:      cfg.Render.MaxDim,
		DefaultRamp: cfg.Render.DefaultRamp,
	})

	catalog := service.NewCatalog(cfg.Data, cacheManager, renderer)
	ids := catalog.IDs()
	log.Printf("Configured %d raster(s), default: %s", len(ids), catalog.DefaultID())
	for _, id := range ids {
		rc := cfg.Data.Rasters[id]
		log.Printf("  [%s] %s (format=%s)", id, rc.Path, rc.Format)
	}

	store, err := runstore.NewStore(cfg.Runs.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to initialize run store: %v", err)
	}
	defer store.Close()

	runService := service.NewRunService(store, catalog, cacheManager, renderer, cfg.Search, cfg.Data.OutputDir)

	runManager := api.NewRunManager(store, api.RunManagerConfig{
		MaxConcurrent: cfg.Runs.MaxConcurrent,
		RetentionDays: cfg.Runs.RetentionDays,
		CleanupPeriod: 1 * time.Hour,
	})
	runManager.Executor = runService.Execute
	log.Printf("Run manager: max_concurrent=%d, retention_days=%d, sqlite=%s",
		cfg.Runs.MaxConcurrent, cfg.Runs.RetentionDays, cfg.Runs.SQLitePath)

	runManager.Start()
	defer runManager.Stop()

	router := api.NewRouter(api.RouterConfig{
		Catalog:     catalog,
		RunManager:  runManager,
		RunService:  runService,
		Cache:       cacheManager,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	cacheManager.Close()
	log.Println("Server stopped")
}
