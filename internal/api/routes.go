package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/richness-hotspots/server/internal/cache"
	"github.com/richness-hotspots/server/internal/runstore"
	"github.com/richness-hotspots/server/internal/service"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Catalog     *service.Catalog
	RunManager  *RunManager
	RunService  *service.RunService
	Cache       *cache.Manager
	CORSOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/rasters", rastersHandler(cfg.Catalog))
		r.Route("/rasters/{raster_id}", func(r chi.Router) {
			r.Get("/stats", rasterStatsHandler(cfg.Catalog))
			r.Get("/preview.png", rasterPreviewHandler(cfg.Catalog))
			r.Get("/runs", rasterRunsHandler(cfg.RunManager))
		})

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", runSubmitHandler(cfg.Catalog, cfg.RunManager))
			r.Get("/{run_id}", runStatusHandler(cfg.RunManager))
			r.Get("/{run_id}/result", runResultHandler(cfg.RunManager))
			r.Get("/{run_id}/grid", runGridHandler(cfg.RunManager, cfg.RunService))
			r.Get("/{run_id}/preview.png", runPreviewHandler(cfg.RunManager, cfg.RunService))
			r.Delete("/{run_id}", runCancelHandler(cfg.RunManager))
		})

		r.Get("/stats", serverStatsHandler(cfg.Cache))
	})

	return r
}

func rastersHandler(catalog *service.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rasters": catalog.IDs(),
			"default": catalog.DefaultID(),
		})
	}
}

// parsePercentiles parses a comma-separated percentile list. An empty
// value falls back to the conventional 95th percentile.
func parsePercentiles(raw string) ([]float64, error) {
	if raw == "" {
		return []float64{95}, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func rasterStatsHandler(catalog *service.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rasterID := chi.URLParam(r, "raster_id")

		percentiles, err := parsePercentiles(r.URL.Query().Get("percentiles"))
		if err != nil {
			http.Error(w, "invalid percentiles: "+err.Error(), http.StatusBadRequest)
			return
		}

		data, err := catalog.Stats(rasterID, percentiles)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func rasterPreviewHandler(catalog *service.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rasterID := chi.URLParam(r, "raster_id")
		ramp := r.URL.Query().Get("ramp")

		png, err := catalog.Preview(rasterID, ramp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(png)
	}
}

func rasterRunsHandler(rm *RunManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rasterID := chi.URLParam(r, "raster_id")

		runs, err := rm.Store().ListRunsByRaster(rasterID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []*runstore.Run{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"runs": runs})
	}
}

func runSubmitHandler(catalog *service.Catalog, rm *RunManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params runstore.RunParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		if params.RasterID == "" {
			params.RasterID = catalog.DefaultID()
		}
		if params.RasterID == "" {
			http.Error(w, "raster_id is required", http.StatusBadRequest)
			return
		}
		if _, err := catalog.Grid(params.RasterID); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if params.Percentile < 0 || params.Percentile > 100 {
			http.Error(w, "percentile must be between 0 and 100", http.StatusBadRequest)
			return
		}
		if params.TargetCoverage < 0 || params.TargetCoverage > 100 {
			http.Error(w, "target_coverage must be between 0 and 100", http.StatusBadRequest)
			return
		}

		run, err := rm.Submit(params)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(run)
	}
}

func runStatusHandler(rm *RunManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := rm.Get(chi.URLParam(r, "run_id"))
		if run == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(run)
	}
}

func runResultHandler(rm *RunManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := rm.Get(chi.URLParam(r, "run_id"))
		if run == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		if run.Status != runstore.RunStatusCompleted {
			http.Error(w, "run is not completed (status: "+string(run.Status)+")", http.StatusConflict)
			return
		}

		candidates, err := rm.Store().ListCandidates(run.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if candidates == nil {
			candidates = []runstore.CandidateRecord{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"run":        run,
			"candidates": candidates,
		})
	}
}

func runGridHandler(rm *RunManager, rs *service.RunService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := rm.Get(chi.URLParam(r, "run_id"))
		if run == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		data, err := rs.ResultGrid(run)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="`+run.ID+`.grd"`)
		w.Write(data)
	}
}

func runPreviewHandler(rm *RunManager, rs *service.RunService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := rm.Get(chi.URLParam(r, "run_id"))
		if run == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		png, err := rs.Preview(run)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}
}

func runCancelHandler(rm *RunManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "run_id")
		run := rm.Get(runID)
		if run == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		switch run.Status {
		case runstore.RunStatusQueued, runstore.RunStatusRunning:
			if !rm.Cancel(runID) {
				http.Error(w, "failed to cancel run", http.StatusConflict)
				return
			}
		default:
			// Finished runs are deleted instead
			if err := rm.Delete(runID); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"run_id": runID, "ok": true})
	}
}

func serverStatsHandler(cacheMgr *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := map[string]interface{}{}
		if cacheMgr != nil {
			stats["cache"] = cacheMgr.Stats()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}
