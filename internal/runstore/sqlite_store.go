// Package runstore provides persistent storage for delineation run state
// and per-candidate diagnostics using SQLite.
package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// RunStatus represents the current state of a delineation run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunParams contains the parameters for a delineation run. Zero values
// mean "use the server's configured search defaults".
type RunParams struct {
	RasterID         string  `json:"raster_id"`
	Percentile       float64 `json:"percentile,omitempty"`
	TargetCoverage   float64 `json:"target_coverage,omitempty"`
	MaxIterations    int     `json:"max_iterations,omitempty"`
	MinComponentSize int     `json:"min_component_size,omitempty"`
	HighestValue     float64 `json:"highest_value,omitempty"`
}

// Run represents one delineation run.
type Run struct {
	ID               string     `json:"run_id"`
	RasterID         string     `json:"raster_id"`
	Status           RunStatus  `json:"status"`
	Params           RunParams  `json:"params"`
	SeedThreshold    int        `json:"seed_threshold"`
	TotalValidPixels int        `json:"total_valid_pixels"`
	Threshold        int        `json:"threshold"`
	Coverage         float64    `json:"coverage"`
	OutputPath       string     `json:"output_path,omitempty"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// CandidateRecord is the persisted diagnostic for one evaluated
// threshold candidate, kept for reproducibility audits.
type CandidateRecord struct {
	Ord       int     `json:"ord"`
	Threshold int     `json:"threshold"`
	Coverage  float64 `json:"coverage"`
	Error     string  `json:"error,omitempty"`
}

// Store provides persistent storage for runs using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore creates a new SQLite-based run store.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		raster_id TEXT NOT NULL,
		status TEXT NOT NULL,
		params_json TEXT NOT NULL,
		seed_threshold INTEGER DEFAULT 0,
		total_valid_pixels INTEGER DEFAULT 0,
		threshold INTEGER DEFAULT 0,
		coverage REAL DEFAULT 0,
		output_path TEXT DEFAULT '',
		error TEXT DEFAULT '',
		created_at TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_raster ON runs(raster_id);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at);

	CREATE TABLE IF NOT EXISTS run_candidates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		threshold INTEGER NOT NULL,
		coverage REAL NOT NULL,
		error TEXT DEFAULT '',
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_candidates_run ON run_candidates(run_id, ord);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRun creates a new run record with status=queued.
func (s *Store) CreateRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (run_id, raster_id, status, params_json, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.RasterID,
		string(run.Status),
		string(paramsJSON),
		run.Error,
		run.CreatedAt.Format(time.RFC3339),
	)
	return err
}

// GetRun retrieves a run by ID. Returns (nil, nil) when no such run
// exists.
func (s *Store) GetRun(runID string) (*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, raster_id, status, params_json, seed_threshold, total_valid_pixels,
		       threshold, coverage, output_path, error, created_at, started_at, finished_at
		FROM runs WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// UpdateRunStarted marks a run as running and records the start time.
func (s *Store) UpdateRunStarted(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, started_at = ? WHERE run_id = ?
	`, string(RunStatusRunning), time.Now().Format(time.RFC3339), runID)
	return err
}

// UpdateRunStatus updates the terminal status and error message of a run.
func (s *Store) UpdateRunStatus(runID string, status RunStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE run_id = ?
	`, string(status), errMsg, time.Now().Format(time.RFC3339), runID)
	return err
}

// UpdateRunSeed records the percentile seed and the fixed valid-pixel
// denominator once the statistics pass has completed.
func (s *Store) UpdateRunSeed(runID string, seedThreshold, totalValidPixels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE runs SET seed_threshold = ?, total_valid_pixels = ? WHERE run_id = ?
	`, seedThreshold, totalValidPixels, runID)
	return err
}

// SaveRunResult records the selected threshold, its coverage, and the
// path of the written output grid.
func (s *Store) SaveRunResult(runID string, threshold int, coverage float64, outputPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE runs SET threshold = ?, coverage = ?, output_path = ? WHERE run_id = ?
	`, threshold, coverage, outputPath, runID)
	return err
}

// InsertCandidates stores the per-candidate diagnostics of a run.
func (s *Store) InsertCandidates(runID string, candidates []CandidateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO run_candidates (run_id, ord, threshold, coverage, error)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candidates {
		if _, err := stmt.Exec(runID, c.Ord, c.Threshold, c.Coverage, c.Error); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListCandidates returns a run's candidate diagnostics in generation
// order.
func (s *Store) ListCandidates(runID string) ([]CandidateRecord, error) {
	rows, err := s.db.Query(`
		SELECT ord, threshold, coverage, error
		FROM run_candidates WHERE run_id = ? ORDER BY ord
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CandidateRecord
	for rows.Next() {
		var c CandidateRecord
		if err := rows.Scan(&c.Ord, &c.Threshold, &c.Coverage, &c.Error); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListRunsByRaster returns all runs for a raster, newest first.
func (s *Store) ListRunsByRaster(rasterID string) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, raster_id, status, params_json, seed_threshold, total_valid_pixels,
		       threshold, coverage, output_path, error, created_at, started_at, finished_at
		FROM runs WHERE raster_id = ? ORDER BY created_at DESC
	`, rasterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ListQueuedRuns returns all queued runs, oldest first.
func (s *Store) ListQueuedRuns() ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, raster_id, status, params_json, seed_threshold, total_valid_pixels,
		       threshold, coverage, output_path, error, created_at, started_at, finished_at
		FROM runs WHERE status = ? ORDER BY created_at
	`, string(RunStatusQueued))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// MarkRunningAsFailed fails every run left in the running state, used on
// startup after an unclean shutdown.
func (s *Store) MarkRunningAsFailed(errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, error = ?, finished_at = ?
		WHERE status = ?
	`, string(RunStatusFailed), errMsg, time.Now().Format(time.RFC3339), string(RunStatusRunning))
	return err
}

// DeleteExpiredRuns removes finished runs older than the retention
// window, along with their candidate diagnostics and output grids.
func (s *Store) DeleteExpiredRuns(retentionDays int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	// Remove output files before dropping the rows that point at them.
	rows, err := s.db.Query(`
		SELECT output_path FROM runs
		WHERE finished_at IS NOT NULL AND finished_at < ? AND output_path != ''
	`, cutoff)
	if err != nil {
		return 0, err
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, err
		}
		paths = append(paths, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, p := range paths {
		os.Remove(p)
	}

	if _, err := s.db.Exec(`
		DELETE FROM run_candidates WHERE run_id IN (
			SELECT run_id FROM runs WHERE finished_at IS NOT NULL AND finished_at < ?
		)
	`, cutoff); err != nil {
		return 0, err
	}

	res, err := s.db.Exec(`
		DELETE FROM runs WHERE finished_at IS NOT NULL AND finished_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRun deletes a run, its candidates, and its output grid.
func (s *Store) DeleteRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var outputPath string
	err := s.db.QueryRow(`SELECT output_path FROM runs WHERE run_id = ?`, runID).Scan(&outputPath)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if outputPath != "" {
		os.Remove(outputPath)
	}

	if _, err := s.db.Exec(`DELETE FROM run_candidates WHERE run_id = ?`, runID); err != nil {
		return err
	}
	_, err = s.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	return err
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var out []*Run
	for rows.Next() {
		var run Run
		var paramsJSON, createdAt string
		var startedAt, finishedAt sql.NullString
		var status string

		if err := rows.Scan(
			&run.ID, &run.RasterID, &status, &paramsJSON,
			&run.SeedThreshold, &run.TotalValidPixels,
			&run.Threshold, &run.Coverage, &run.OutputPath, &run.Error,
			&createdAt, &startedAt, &finishedAt,
		); err != nil {
			return nil, err
		}

		run.Status = RunStatus(status)
		if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal params for run %s: %w", run.ID, err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			run.CreatedAt = t
		}
		if startedAt.Valid {
			if t, err := time.Parse(time.RFC3339, startedAt.String); err == nil {
				run.StartedAt = &t
			}
		}
		if finishedAt.Valid {
			if t, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
				run.FinishedAt = &t
			}
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}
