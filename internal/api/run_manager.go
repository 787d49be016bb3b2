// Package api provides HTTP handlers for the hotspot server.
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richness-hotspots/server/internal/runstore"
)

// RunManagerConfig contains configuration for the run manager.
type RunManagerConfig struct {
	MaxConcurrent int // max concurrent delineation runs (default 1)
	RetentionDays int // days to keep finished runs (default 7)
	CleanupPeriod time.Duration
}

// RunManager manages delineation runs with SQLite persistence.
type RunManager struct {
	cfg      RunManagerConfig
	store    *runstore.Store
	queue    chan string // run IDs
	running  map[string]context.CancelFunc
	mu       sync.Mutex
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}

	// Executor is called to run the actual delineation.
	Executor func(ctx context.Context, runID string) error
}

// NewRunManager creates a new run manager over an open store.
func NewRunManager(store *runstore.Store, cfg RunManagerConfig) *RunManager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 7
	}
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 1 * time.Hour
	}

	return &RunManager{
		cfg:     cfg,
		store:   store,
		queue:   make(chan string, 100),
		running: make(map[string]context.CancelFunc),
		stopCh:  make(chan struct{}),
	}
}

// Store returns the underlying store for direct access.
func (rm *RunManager) Store() *runstore.Store {
	return rm.store
}

// Start starts the worker goroutines and cleanup ticker.
// Also recovers from previous shutdown.
func (rm *RunManager) Start() {
	// Mark any running runs as failed (server restart)
	if err := rm.store.MarkRunningAsFailed("server restarted"); err != nil {
		log.Printf("[RunManager] failed to mark running runs as failed: %v", err)
	}

	// Re-queue any queued runs
	queued, err := rm.store.ListQueuedRuns()
	if err != nil {
		log.Printf("[RunManager] failed to list queued runs: %v", err)
	} else {
		for _, run := range queued {
			select {
			case rm.queue <- run.ID:
				log.Printf("[RunManager] re-queued run %s", run.ID)
			default:
				log.Printf("[RunManager] queue full, cannot re-queue run %s", run.ID)
			}
		}
	}

	for i := 0; i < rm.cfg.MaxConcurrent; i++ {
		rm.wg.Add(1)
		go rm.worker()
	}

	go rm.cleaner()
}

// Stop stops all workers gracefully.
func (rm *RunManager) Stop() {
	rm.stopOnce.Do(func() {
		close(rm.stopCh)
		close(rm.queue)
		rm.wg.Wait()
	})
}

func (rm *RunManager) worker() {
	defer rm.wg.Done()
	for runID := range rm.queue {
		rm.execute(runID)
	}
}

func (rm *RunManager) execute(runID string) {
	ctx, cancel := context.WithCancel(context.Background())

	rm.mu.Lock()
	rm.running[runID] = cancel
	rm.mu.Unlock()

	defer func() {
		rm.mu.Lock()
		delete(rm.running, runID)
		rm.mu.Unlock()
	}()

	if err := rm.store.UpdateRunStarted(runID); err != nil {
		log.Printf("[RunManager] failed to update run %s as started: %v", runID, err)
		return
	}

	var execErr error
	if rm.Executor != nil {
		execErr = rm.Executor(ctx, runID)
	}

	if ctx.Err() == context.Canceled {
		rm.store.UpdateRunStatus(runID, runstore.RunStatusCancelled, "cancelled by user")
	} else if execErr != nil {
		rm.store.UpdateRunStatus(runID, runstore.RunStatusFailed, execErr.Error())
	} else {
		rm.store.UpdateRunStatus(runID, runstore.RunStatusCompleted, "")
	}
}

func (rm *RunManager) cleaner() {
	ticker := time.NewTicker(rm.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopCh:
			return
		case <-ticker.C:
			rm.cleanup()
		}
	}
}

func (rm *RunManager) cleanup() {
	deleted, err := rm.store.DeleteExpiredRuns(rm.cfg.RetentionDays)
	if err != nil {
		log.Printf("[RunManager] cleanup error: %v", err)
	} else if deleted > 0 {
		log.Printf("[RunManager] cleaned up %d expired runs", deleted)
	}
}

// Submit creates a new run and enqueues it for execution.
func (rm *RunManager) Submit(params runstore.RunParams) (*runstore.Run, error) {
	run := &runstore.Run{
		ID:        uuid.NewString(),
		RasterID:  params.RasterID,
		Status:    runstore.RunStatusQueued,
		Params:    params,
		CreatedAt: time.Now(),
	}

	if err := rm.store.CreateRun(run); err != nil {
		return nil, err
	}

	select {
	case rm.queue <- run.ID:
	default:
		// Queue full; mark as failed immediately
		rm.store.UpdateRunStatus(run.ID, runstore.RunStatusFailed, "run queue is full; try again later")
	}

	return run, nil
}

// Get returns a run by ID.
func (rm *RunManager) Get(id string) *runstore.Run {
	run, err := rm.store.GetRun(id)
	if err != nil {
		log.Printf("[RunManager] error getting run %s: %v", id, err)
		return nil
	}
	return run
}

// Cancel attempts to cancel a queued or running run.
func (rm *RunManager) Cancel(id string) bool {
	rm.mu.Lock()
	cancel, ok := rm.running[id]
	rm.mu.Unlock()

	if ok && cancel != nil {
		cancel()
		return true
	}

	// If not running, try to mark as cancelled in DB
	run, err := rm.store.GetRun(id)
	if err != nil || run == nil {
		return false
	}
	if run.Status == runstore.RunStatusQueued {
		rm.store.UpdateRunStatus(id, runstore.RunStatusCancelled, "cancelled before start")
		return true
	}
	return false
}

// Delete deletes a run and its results.
func (rm *RunManager) Delete(id string) error {
	return rm.store.DeleteRun(id)
}
