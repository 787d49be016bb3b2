package runstore

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.sqlite")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestRun(id string) *Run {
	return &Run{
		ID:       id,
		RasterID: "richness-2024",
		Status:   RunStatusQueued,
		Params: RunParams{
			RasterID:         "richness-2024",
			Percentile:       95,
			TargetCoverage:   5,
			MaxIterations:    5,
			MinComponentSize: 1000,
		},
		CreatedAt: time.Now(),
	}
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateRun(newTestRun("run-1")); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.Status != RunStatusQueued {
		t.Errorf("expected status queued, got %s", got.Status)
	}
	if got.Params.Percentile != 95 {
		t.Errorf("expected percentile 95, got %v", got.Params.Percentile)
	}
	if got.StartedAt != nil {
		t.Error("expected nil StartedAt for queued run")
	}
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetRun("does-not-exist")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing run, got %+v", got)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateRun(newTestRun("run-1")); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := s.UpdateRunStarted("run-1"); err != nil {
		t.Fatalf("UpdateRunStarted failed: %v", err)
	}
	if err := s.UpdateRunSeed("run-1", 42, 123456); err != nil {
		t.Fatalf("UpdateRunSeed failed: %v", err)
	}
	if err := s.SaveRunResult("run-1", 44, 4.87, "/tmp/out.grd"); err != nil {
		t.Fatalf("SaveRunResult failed: %v", err)
	}
	if err := s.UpdateRunStatus("run-1", RunStatusCompleted, ""); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.SeedThreshold != 42 || got.TotalValidPixels != 123456 {
		t.Errorf("unexpected seed state: %d, %d", got.SeedThreshold, got.TotalValidPixels)
	}
	if got.Threshold != 44 || got.Coverage != 4.87 {
		t.Errorf("unexpected result: %d, %v", got.Threshold, got.Coverage)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Error("expected both StartedAt and FinishedAt set")
	}
}

func TestCandidates(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateRun(newTestRun("run-1")); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	records := []CandidateRecord{
		{Ord: 0, Threshold: 42, Coverage: 6.1},
		{Ord: 1, Threshold: 43, Coverage: 5.4},
		{Ord: 2, Threshold: 41, Coverage: 0, Error: "reclassify: out of memory"},
	}
	if err := s.InsertCandidates("run-1", records); err != nil {
		t.Fatalf("InsertCandidates failed: %v", err)
	}

	got, err := s.ListCandidates("run-1")
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[1].Threshold != 43 || got[1].Coverage != 5.4 {
		t.Errorf("unexpected candidate: %+v", got[1])
	}
	if got[2].Error == "" {
		t.Error("expected error recorded on failed candidate")
	}
}

func TestListQueuedRuns(t *testing.T) {
	s := newTestStore(t)

	r1 := newTestRun("run-1")
	r1.CreatedAt = time.Now().Add(-time.Minute)
	r2 := newTestRun("run-2")
	if err := s.CreateRun(r1); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := s.CreateRun(r2); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := s.UpdateRunStarted("run-2"); err != nil {
		t.Fatalf("UpdateRunStarted failed: %v", err)
	}

	queued, err := s.ListQueuedRuns()
	if err != nil {
		t.Fatalf("ListQueuedRuns failed: %v", err)
	}
	if len(queued) != 1 || queued[0].ID != "run-1" {
		t.Errorf("expected only run-1 queued, got %+v", queued)
	}
}

func TestMarkRunningAsFailed(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateRun(newTestRun("run-1")); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := s.UpdateRunStarted("run-1"); err != nil {
		t.Fatalf("UpdateRunStarted failed: %v", err)
	}
	if err := s.MarkRunningAsFailed("server restarted"); err != nil {
		t.Fatalf("MarkRunningAsFailed failed: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.Error != "server restarted" {
		t.Errorf("unexpected error message: %q", got.Error)
	}
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateRun(newTestRun("run-1")); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := s.InsertCandidates("run-1", []CandidateRecord{{Ord: 0, Threshold: 42, Coverage: 5}}); err != nil {
		t.Fatalf("InsertCandidates failed: %v", err)
	}
	if err := s.DeleteRun("run-1"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Error("expected run deleted")
	}
	cands, err := s.ListCandidates("run-1")
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("expected candidates deleted, got %d", len(cands))
	}
}
