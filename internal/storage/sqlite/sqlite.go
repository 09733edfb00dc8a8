// Package sqlite implements the optional Catalog Store: a pure-Go
// SQLite sink for void/cluster catalogue rows and run metadata,
// schema-versioned with embedded migrations, mirroring the teacher's
// internal/db/db.go + internal/db/migrate.go pattern. Flat-file catalogue
// output (spec §6) remains the pipeline's primary product; this store is
// an optional durable sink for downstream querying.
package sqlite

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a *sql.DB opened against the modernc.org/sqlite driver.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the catalog database at path and
// applies all pending migrations.
func Open(path string) (*DB, error) {
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage/sqlite: open %s: %w", path, err)
	}
	db := &DB{DB: sdb}
	if err := db.migrateUp(); err != nil {
		sdb.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("storage/sqlite: iofs source: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db.DB, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("storage/sqlite: driver instance: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("storage/sqlite: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("storage/sqlite: migrate up: %w", err)
	}
	return nil
}

// RunRecord is one pipeline_run row.
type RunRecord struct {
	RunID      string
	StartedAt  int64
	FinishedAt *int64
	BoxMode    bool
	NTracers   int
	NMocks     int
	BoxSide    float64
	Config     any // marshaled to config_json
}

// InsertRun records the start of a pipeline run.
func (db *DB) InsertRun(r RunRecord) error {
	cfgJSON, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("storage/sqlite: marshal config: %w", err)
	}
	_, err = db.Exec(`INSERT INTO pipeline_run (run_id, started_at, finished_at, box_mode, n_tracers, n_mocks, box_side, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt, r.FinishedAt, r.BoxMode, r.NTracers, r.NMocks, r.BoxSide, string(cfgJSON))
	if err != nil {
		return fmt.Errorf("storage/sqlite: insert run %s: %w", r.RunID, err)
	}
	return nil
}

// FinishRun stamps a run's finished_at time.
func (db *DB) FinishRun(runID string, finishedAt int64) error {
	_, err := db.Exec(`UPDATE pipeline_run SET finished_at = ? WHERE run_id = ?`, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("storage/sqlite: finish run %s: %w", runID, err)
	}
	return nil
}

// StructureRow is one void or cluster catalogue entry (spec §6's
// catalogue row, plus run/kind bookkeeping).
type StructureRow struct {
	RunID        string
	Kind         string // "void" or "cluster"
	StructureID  int
	CoreParticle int
	CoreDensity  float64
	NPartsTotal  int
	VolumeTotal  float64
	MeanDensity  float64
	REff         float64
	ThetaEff     float64
	Lambda       float64
	DensityRatio float64
	EdgeFlag     int
	X, Y, Z      float64
	RA, Dec, Z3  float64 // sky coords; zero in box mode
}

// InsertStructures bulk-inserts catalogue rows for one run+kind inside a
// single transaction.
func (db *DB) InsertStructures(rows []StructureRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("storage/sqlite: begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO structure
		(run_id, kind, structure_id, core_particle, core_density, n_parts_total, volume_total,
		 mean_density, r_eff, theta_eff, lambda, density_ratio, edge_flag, x, y, z, ra, dec, redshift)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("storage/sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.RunID, r.Kind, r.StructureID, r.CoreParticle, r.CoreDensity, r.NPartsTotal,
			r.VolumeTotal, r.MeanDensity, r.REff, r.ThetaEff, r.Lambda, r.DensityRatio, r.EdgeFlag,
			r.X, r.Y, r.Z, r.RA, r.Dec, r.Z3); err != nil {
			tx.Rollback()
			return fmt.Errorf("storage/sqlite: insert structure %d: %w", r.StructureID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage/sqlite: commit: %w", err)
	}
	return nil
}

// CountStructures returns the number of catalogue rows for a run+kind.
func (db *DB) CountStructures(runID, kind string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM structure WHERE run_id = ? AND kind = ?`, runID, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage/sqlite: count structures: %w", err)
	}
	return n, nil
}
