package sqlite

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := openTestDB(t)
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='structure'`).Scan(&name)
	if err != nil {
		t.Fatalf("expected structure table to exist after migration: %v", err)
	}
}

func TestInsertRunAndStructures_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	run := RunRecord{
		RunID:    "run-1",
		StartedAt: 1000,
		BoxMode:  true,
		NTracers: 100,
		NMocks:   20,
		BoxSide:  500,
		Config:   map[string]any{"guard_grid_size": 20},
	}
	if err := db.InsertRun(run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	rows := []StructureRow{
		{RunID: "run-1", Kind: "void", StructureID: 0, CoreParticle: 5, CoreDensity: 0.1,
			NPartsTotal: 30, VolumeTotal: 400, MeanDensity: 0.2, REff: 4.5, Lambda: -0.3,
			DensityRatio: 1.3, EdgeFlag: 0, X: 10, Y: 20, Z: 30},
		{RunID: "run-1", Kind: "void", StructureID: 1, CoreParticle: 9, CoreDensity: 0.15,
			NPartsTotal: 10, VolumeTotal: 100, MeanDensity: 0.3, REff: 2.8, Lambda: -0.1,
			DensityRatio: 1.1, EdgeFlag: 1, X: 1, Y: 2, Z: 3},
	}
	if err := db.InsertStructures(rows); err != nil {
		t.Fatalf("InsertStructures: %v", err)
	}

	n, err := db.CountStructures("run-1", "void")
	if err != nil {
		t.Fatalf("CountStructures: %v", err)
	}
	if n != 2 {
		t.Errorf("CountStructures = %d, want 2", n)
	}

	if err := db.FinishRun("run-1", 2000); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	var finishedAt int64
	if err := db.QueryRow(`SELECT finished_at FROM pipeline_run WHERE run_id = ?`, "run-1").Scan(&finishedAt); err != nil {
		t.Fatalf("query finished_at: %v", err)
	}
	if finishedAt != 2000 {
		t.Errorf("finished_at = %d, want 2000", finishedAt)
	}
}

func TestInsertStructures_EmptyIsNoOp(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertStructures(nil); err != nil {
		t.Fatalf("InsertStructures(nil): %v", err)
	}
}
